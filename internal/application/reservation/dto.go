package reservation

import (
	"time"

	"github.com/google/uuid"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// SourceInput names a stock source; ID may be empty for the singletons and
// for "every eligible container"
type SourceInput struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"id"`
}

// CreateReservationRequest allocates stock for one quoted product
type CreateReservationRequest struct {
	QuoteNumber      string          `json:"quote_number" binding:"required"`
	ProductReference string          `json:"product_reference" binding:"required"`
	Quantity         decimal.Decimal `json:"quantity" binding:"required"`
	PreferredSources []SourceInput   `json:"preferred_sources" binding:"omitempty,dive"`
}

// RejectReservationRequest carries the rejection reason
type RejectReservationRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ListReservationsFilter filters reservation listings
type ListReservationsFilter struct {
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	QuoteNumber string `form:"quote_number"`
	Status      string `form:"status" binding:"omitempty,oneof=PENDIENTE VALIDADA DESPACHADA RECHAZADA"`
	Advisor     string `form:"advisor"`
}

// ReservationResponse is the API view of a reservation
type ReservationResponse struct {
	ID               uuid.UUID       `json:"id"`
	QuoteNumber      string          `json:"quote_number"`
	Customer         string          `json:"customer"`
	ProductReference string          `json:"product_reference"`
	Quantity         decimal.Decimal `json:"quantity"`
	SourceType       string          `json:"source_type"`
	SourceID         string          `json:"source_id"`
	Advisor          string          `json:"advisor"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	RejectReason     string          `json:"reject_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	ValidatedAt      *time.Time      `json:"validated_at,omitempty"`
	ValidatedBy      string          `json:"validated_by,omitempty"`
	RejectedAt       *time.Time      `json:"rejected_at,omitempty"`
	RejectedBy       string          `json:"rejected_by,omitempty"`
	DispatchedAt     *time.Time      `json:"dispatched_at,omitempty"`
	DispatchedBy     string          `json:"dispatched_by,omitempty"`
	Version          int             `json:"version"`
}

// ToReservationResponse converts a domain reservation to its response
func ToReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:               r.ID,
		QuoteNumber:      r.QuoteNumber,
		Customer:         r.Customer,
		ProductReference: r.ProductReference,
		Quantity:         r.Quantity,
		SourceType:       string(r.SourceType),
		SourceID:         r.SourceID,
		Advisor:          r.Advisor,
		UnitPrice:        r.UnitPrice,
		Amount:           r.Amount().Amount(),
		Currency:         string(r.Currency),
		Status:           string(r.Status),
		RejectReason:     r.RejectReason,
		CreatedAt:        r.CreatedAt,
		ValidatedAt:      r.ValidatedAt,
		ValidatedBy:      r.ValidatedBy,
		RejectedAt:       r.RejectedAt,
		RejectedBy:       r.RejectedBy,
		DispatchedAt:     r.DispatchedAt,
		DispatchedBy:     r.DispatchedBy,
		Version:          r.Version,
	}
}

// ToReservationResponses converts a slice of reservations
func ToReservationResponses(rs []*reservation.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, len(rs))
	for i, r := range rs {
		out[i] = ToReservationResponse(r)
	}
	return out
}

// ParseSourceOrder converts request sources into ledger keys
func ParseSourceOrder(inputs []SourceInput) ([]stock.SourceKey, error) {
	keys := make([]stock.SourceKey, 0, len(inputs))
	for _, in := range inputs {
		t, err := stock.ParseSourceType(in.Type)
		if err != nil {
			return nil, err
		}
		key, err := stock.NewSourceKey(t, in.ID)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
