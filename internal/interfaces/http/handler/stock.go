package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	stockapp "github.com/marmoleria/backend/internal/application/stock"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StockHandler serves receipts, containers and ledger balances
type StockHandler struct {
	BaseHandler
	stockService *stockapp.StockService
}

// NewStockHandler creates a new stock handler
func NewStockHandler(stockService *stockapp.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// Receive godoc
// @ID           receiveStock
// @Summary      Record received stock
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        request body stockapp.ReceiveStockRequest true "Receipt"
// @Success      201 {object} APIResponse[stock.SourceBalance]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stock/receipts [post]
func (h *StockHandler) Receive(c *gin.Context) {
	var req stockapp.ReceiveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	balance, err := h.stockService.ReceiveStock(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, balance)
}

// RegisterContainer godoc
// @ID           registerContainer
// @Summary      Register an import container
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        request body stockapp.RegisterContainerRequest true "Container"
// @Success      201 {object} APIResponse[stockapp.ContainerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stock/containers [post]
func (h *StockHandler) RegisterContainer(c *gin.Context) {
	var req stockapp.RegisterContainerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	container, err := h.stockService.RegisterContainer(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, container)
}

// GetContainer godoc
// @ID           getContainer
// @Summary      Get a container
// @Tags         stock
// @Produce      json
// @Param        id path string true "Container ID"
// @Success      200 {object} APIResponse[stockapp.ContainerResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stock/containers/{id} [get]
func (h *StockHandler) GetContainer(c *gin.Context) {
	container, err := h.stockService.GetContainer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, container)
}

// AdvanceContainer godoc
// @ID           advanceContainer
// @Summary      Change a container's tracking status
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        id path string true "Container ID"
// @Param        request body stockapp.AdvanceContainerRequest true "Next status"
// @Success      200 {object} APIResponse[stockapp.ContainerResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stock/containers/{id}/status [post]
func (h *StockHandler) AdvanceContainer(c *gin.Context) {
	var req stockapp.AdvanceContainerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	container, err := h.stockService.AdvanceContainer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, container)
}

// Balances godoc
// @ID           listStockBalances
// @Summary      Snapshot of every stock source
// @Tags         stock
// @Produce      json
// @Success      200 {object} APIResponse[[]stock.SourceBalance]
// @Security     BearerAuth
// @Router       /stock/balances [get]
func (h *StockHandler) Balances(c *gin.Context) {
	h.Success(c, h.stockService.Balances(c.Request.Context()))
}

// Availability godoc
// @ID           getStockAvailability
// @Summary      Allocatable quantity of a product
// @Description  Sums the eligible sources only
// @Tags         stock
// @Produce      json
// @Param        reference path string true "Product reference"
// @Success      200 {object} APIResponse[stockapp.AvailabilityResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stock/availability/{reference} [get]
func (h *StockHandler) Availability(c *gin.Context) {
	availability, err := h.stockService.Availability(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, availability)
}

// Export godoc
// @ID           exportStock
// @Summary      Download the stock snapshot as a workbook
// @Tags         stock
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200 {file} binary "XLSX workbook"
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /stock/export [get]
func (h *StockHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.stockService.ExportWorkbook(c.Request.Context(), &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	attachment(c, "existencias-"+time.Now().Format("20060102")+".xlsx")
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}
