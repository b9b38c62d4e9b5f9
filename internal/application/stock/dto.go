package stock

import (
	"time"

	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// ReceiveStockRequest records goods arriving at a source
type ReceiveStockRequest struct {
	SourceType string          `json:"source_type" binding:"required,oneof=WAREHOUSE FREE_ZONE CONTAINER"`
	SourceID   string          `json:"source_id" binding:"required_if=SourceType CONTAINER,max=60"`
	Reference  string          `json:"reference" binding:"required,max=120"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
}

// RegisterContainerRequest announces an import container
type RegisterContainerRequest struct {
	ID      string    `json:"id" binding:"required,max=60"`
	Carrier string    `json:"carrier" binding:"max=120"`
	ETA     time.Time `json:"eta" binding:"required"`
	Status  string    `json:"status" binding:"omitempty,oneof=IN_PRODUCTION IN_TRANSIT IN_PORT DELAYED ARRIVED"`
}

// AdvanceContainerRequest moves a container to its next status
type AdvanceContainerRequest struct {
	Status string `json:"status" binding:"required,oneof=IN_PRODUCTION IN_TRANSIT IN_PORT DELAYED ARRIVED"`
}

// ContainerResponse is the API view of a container
type ContainerResponse struct {
	ID        string    `json:"id"`
	Carrier   string    `json:"carrier,omitempty"`
	ETA       time.Time `json:"eta"`
	Status    string    `json:"status"`
	Eligible  bool      `json:"eligible"`
	CreatedAt time.Time `json:"created_at"`
}

// AvailabilityResponse is the allocatable quantity of one product
type AvailabilityResponse struct {
	Reference string                `json:"reference"`
	Available decimal.Decimal       `json:"available"`
	Sources   []SourceQuantityEntry `json:"sources"`
}

// SourceQuantityEntry is the quantity of one product at one eligible source
type SourceQuantityEntry struct {
	Source   stock.SourceKey `json:"source"`
	Quantity decimal.Decimal `json:"quantity"`
}

func toContainerResponse(rec stock.ContainerRecord, policy stock.EligibilityPolicy) ContainerResponse {
	return ContainerResponse{
		ID:        rec.ID,
		Carrier:   rec.Carrier,
		ETA:       rec.ETA,
		Status:    string(rec.Status),
		Eligible:  policy.Allows(rec.Status),
		CreatedAt: rec.CreatedAt,
	}
}
