package handler

import (
	"github.com/gin-gonic/gin"
	quoteapp "github.com/marmoleria/backend/internal/application/quote"
	"github.com/marmoleria/backend/internal/interfaces/http/dto"
)

// QuoteHandler serves the quote calculator and issued quotes
type QuoteHandler struct {
	BaseHandler
	quoteService *quoteapp.QuoteService
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(quoteService *quoteapp.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// Compute godoc
// @ID           computeQuote
// @Summary      Preview a quote
// @Description  Price lines, derived supplies and shipping without issuing a quote number
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request body quoteapp.ComputeQuoteRequest true "Quote lines"
// @Success      200 {object} APIResponse[quote.Calculation]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/compute [post]
func (h *QuoteHandler) Compute(c *gin.Context) {
	var req quoteapp.ComputeQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	calc, err := h.quoteService.ComputeQuote(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, calc)
}

// Create godoc
// @ID           createQuote
// @Summary      Issue a quote
// @Description  Compute and persist a quote under the next COT-YYYY-NNNNNN number
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request body quoteapp.CreateQuoteRequest true "Quote"
// @Success      201 {object} APIResponse[quoteapp.QuoteResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes [post]
func (h *QuoteHandler) Create(c *gin.Context) {
	var req quoteapp.CreateQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	q, err := h.quoteService.CreateQuote(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, q)
}

// Get godoc
// @ID           getQuote
// @Summary      Get a quote
// @Tags         quotes
// @Produce      json
// @Param        number path string true "Quote number"
// @Success      200 {object} APIResponse[quoteapp.QuoteResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{number} [get]
func (h *QuoteHandler) Get(c *gin.Context) {
	q, err := h.quoteService.GetQuote(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, q)
}

// List godoc
// @ID           listQuotes
// @Summary      List quotes
// @Tags         quotes
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        advisor query string false "Advisor"
// @Param        status query string false "ACTIVE or CANCELLED"
// @Param        search query string false "Number or customer"
// @Success      200 {object} APIResponse[[]quoteapp.QuoteResponse]
// @Security     BearerAuth
// @Router       /quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	var filter quoteapp.ListQuotesFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	quotes, total, err := h.quoteService.ListQuotes(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, size := pageOf(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, quotes, total, page, size)
}

// Cancel godoc
// @ID           cancelQuote
// @Summary      Cancel a quote
// @Description  Cancelled quotes accept no new reservations; existing ones are untouched
// @Tags         quotes
// @Produce      json
// @Param        number path string true "Quote number"
// @Success      200 {object} APIResponse[quoteapp.QuoteResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{number}/cancel [post]
func (h *QuoteHandler) Cancel(c *gin.Context) {
	q, err := h.quoteService.CancelQuote(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, q)
}

func pageOf(page, size int) (int, int) {
	p := dto.PageRequest{Page: page, PageSize: size}.Normalize()
	return p.Page, p.PageSize
}
