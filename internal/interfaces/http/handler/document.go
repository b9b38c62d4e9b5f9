package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/application/printing"
)

// DocumentHandler prints and archives quote documents
type DocumentHandler struct {
	BaseHandler
	documents *printing.QuoteDocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *printing.QuoteDocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// RenderPDF godoc
// @ID           renderQuotePDF
// @Summary      Print a quote as PDF
// @Tags         documents
// @Produce      application/pdf
// @Param        number path string true "Quote number"
// @Param        paper query string false "LETTER or A4"
// @Success      200 {file} binary "PDF document"
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{number}/pdf [get]
func (h *DocumentHandler) RenderPDF(c *gin.Context) {
	var opts printing.RenderQuoteOptions
	if !h.BindQuery(c, &opts) {
		return
	}
	doc, err := h.documents.RenderQuote(c.Request.Context(), c.Param("number"), opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+doc.Filename+`"`)
	c.Header("X-Page-Count", strconv.Itoa(doc.Pages))
	c.Data(http.StatusOK, "application/pdf", doc.Data)
}

// Archive godoc
// @ID           archiveQuote
// @Summary      Store the printed quote in the document archive
// @Tags         documents
// @Produce      json
// @Param        number path string true "Quote number"
// @Success      200 {object} APIResponse[printing.ArchivedQuoteResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{number}/archive [post]
func (h *DocumentHandler) Archive(c *gin.Context) {
	resp, err := h.documents.ArchiveQuote(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Link godoc
// @ID           getQuoteArchiveLink
// @Summary      Download link of an archived quote
// @Tags         documents
// @Produce      json
// @Param        number path string true "Quote number"
// @Success      200 {object} APIResponse[printing.ArchivedQuoteResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{number}/archive [get]
func (h *DocumentHandler) Link(c *gin.Context) {
	resp, err := h.documents.QuoteLink(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
