package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductCatalog is the part of the catalog the handler lists
type ProductCatalog interface {
	LookupProduct(reference string) (*catalog.Product, error)
	Products() []*catalog.Product
}

// ProductResponse is a catalog product
type ProductResponse struct {
	Reference   string          `json:"reference"`
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Currency    string          `json:"currency"`
	Unit        string          `json:"unit"`
	YieldClass  string          `json:"yield_class,omitempty"`
	Translucent bool            `json:"translucent"`
	Format      string          `json:"format,omitempty"`
}

// CatalogHandler exposes the read-only product catalog
type CatalogHandler struct {
	BaseHandler
	catalog ProductCatalog
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(c ProductCatalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// ListProducts godoc
// @ID           listProducts
// @Summary      List catalog products
// @Tags         catalog
// @Produce      json
// @Success      200 {object} APIResponse[[]ProductResponse]
// @Security     BearerAuth
// @Router       /catalog/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products := h.catalog.Products()
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	h.Success(c, out)
}

// GetProduct godoc
// @ID           getProduct
// @Summary      Get a catalog product
// @Tags         catalog
// @Produce      json
// @Param        reference path string true "Product reference"
// @Success      200 {object} APIResponse[ProductResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{reference} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	p, err := h.catalog.LookupProduct(c.Param("reference"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProductResponse(p))
}

func toProductResponse(p *catalog.Product) ProductResponse {
	resp := ProductResponse{
		Reference:   p.Reference,
		Name:        p.Name,
		Kind:        string(p.Kind),
		UnitPrice:   p.UnitPrice.Amount(),
		Currency:    string(p.UnitPrice.Currency()),
		Unit:        p.Unit,
		YieldClass:  p.YieldClass,
		Translucent: p.Translucent,
	}
	if p.IsSurface() {
		resp.Format = string(p.Format())
	}
	return resp
}
