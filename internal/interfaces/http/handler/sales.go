package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	salesapp "github.com/marmoleria/backend/internal/application/sales"
)

// SalesHandler serves the per-advisor monthly sales aggregate
type SalesHandler struct {
	BaseHandler
	salesService *salesapp.SalesService
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(salesService *salesapp.SalesService) *SalesHandler {
	return &SalesHandler{salesService: salesService}
}

// PeriodQuery selects a single month
type PeriodQuery struct {
	Period string `form:"period" binding:"required"`
}

// RangeQuery selects an inclusive range of months
type RangeQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// RebuildResponse reports a sales rebuild
type RebuildResponse struct {
	Records int `json:"records"`
}

// ForPeriod godoc
// @ID           getAdvisorSales
// @Summary      Sales of an advisor for one month
// @Description  Months without dispatched sales report zero
// @Tags         sales
// @Produce      json
// @Param        advisor path string true "Advisor"
// @Param        period query string true "Month as YYYY-MM"
// @Success      200 {object} APIResponse[sales.SeriesPoint]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/advisors/{advisor} [get]
func (h *SalesHandler) ForPeriod(c *gin.Context) {
	var q PeriodQuery
	if !h.BindQuery(c, &q) {
		return
	}
	point, err := h.salesService.SalesFor(c.Request.Context(), c.Param("advisor"), q.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, point)
}

// Series godoc
// @ID           getAdvisorSalesSeries
// @Summary      Monthly sales series of an advisor
// @Tags         sales
// @Produce      json
// @Param        advisor path string true "Advisor"
// @Param        from query string true "First month as YYYY-MM"
// @Param        to query string true "Last month as YYYY-MM"
// @Success      200 {object} APIResponse[[]sales.SeriesPoint]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/advisors/{advisor}/series [get]
func (h *SalesHandler) Series(c *gin.Context) {
	var q RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	points, err := h.salesService.SalesForRange(c.Request.Context(), c.Param("advisor"), q.From, q.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, points)
}

// Export godoc
// @ID           exportAdvisorSales
// @Summary      Download an advisor's sales series as a workbook
// @Tags         sales
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        advisor path string true "Advisor"
// @Param        from query string true "First month as YYYY-MM"
// @Param        to query string true "Last month as YYYY-MM"
// @Success      200 {file} binary "XLSX workbook"
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/advisors/{advisor}/export [get]
func (h *SalesHandler) Export(c *gin.Context) {
	var q RangeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	advisor := c.Param("advisor")
	var buf bytes.Buffer
	if err := h.salesService.ExportWorkbook(c.Request.Context(), &buf, advisor, q.From, q.To); err != nil {
		h.HandleError(c, err)
		return
	}
	attachment(c, "ventas-"+advisor+"-"+q.From+"-"+q.To+".xlsx")
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Rebuild godoc
// @ID           rebuildSales
// @Summary      Recompute the sales aggregate from dispatched reservations
// @Description  Admin only
// @Tags         sales
// @Produce      json
// @Success      200 {object} APIResponse[RebuildResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/rebuild [post]
func (h *SalesHandler) Rebuild(c *gin.Context) {
	n, err := h.salesService.Rebuild(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RebuildResponse{Records: n})
}
