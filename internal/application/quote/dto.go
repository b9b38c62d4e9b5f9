package quote

import (
	"time"

	"github.com/google/uuid"
	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// QuoteLineInput is one requested product
type QuoteLineInput struct {
	Reference string             `json:"reference" binding:"required,min=1,max=120"`
	Quantity  decimal.Decimal    `json:"quantity" binding:"required"`
	UnitPrice *valueobject.Money `json:"unit_price,omitempty"`
}

// SupplyInput selects derived supplies
type SupplyInput struct {
	Adhesive          bool   `json:"adhesive"`
	AdhesiveReference string `json:"adhesive_reference" binding:"required_if=Adhesive true"`
	Sealant           bool   `json:"sealant"`
	SealantReference  string `json:"sealant_reference" binding:"required_if=Sealant true"`
	ClaySurface       bool   `json:"clay_surface"`
}

// ComputeQuoteRequest previews a quote without persisting it
type ComputeQuoteRequest struct {
	Lines           []QuoteLineInput `json:"lines" binding:"required,min=1,dive"`
	DestinationCity string           `json:"destination_city" binding:"max=120"`
	Profile         string           `json:"profile" binding:"max=60"`
	Currency        string           `json:"currency" binding:"omitempty,oneof=COP USD EUR"`
	Supply          SupplyInput      `json:"supply"`
}

// CreateQuoteRequest issues a numbered quote
type CreateQuoteRequest struct {
	ComputeQuoteRequest
	CustomerName string `json:"customer_name" binding:"required,min=1,max=200"`
	Advisor      string `json:"advisor" binding:"required,min=1,max=100"`
}

// ListQuotesFilter filters quote listings
type ListQuotesFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Advisor  string `form:"advisor"`
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE CANCELLED"`
	Search   string `form:"search"`
}

// QuoteResponse is the API view of a quote
type QuoteResponse struct {
	ID              uuid.UUID          `json:"id"`
	Number          string             `json:"number"`
	Profile         string             `json:"profile"`
	CustomerName    string             `json:"customer_name"`
	Advisor         string             `json:"advisor"`
	DestinationCity string             `json:"destination_city,omitempty"`
	Currency        string             `json:"currency"`
	Lines           []quote.Line       `json:"lines"`
	Supplies        []quote.SupplyLine `json:"supplies"`
	ShippingCost    decimal.Decimal    `json:"shipping_cost"`
	Total           decimal.Decimal    `json:"total"`
	Details         quote.Details      `json:"details"`
	Status          string             `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
}

// ToQuoteResponse converts a domain quote to its response
func ToQuoteResponse(q *quote.Quote) QuoteResponse {
	return QuoteResponse{
		ID:              q.ID,
		Number:          q.Number,
		Profile:         q.Profile,
		CustomerName:    q.CustomerName,
		Advisor:         q.Advisor,
		DestinationCity: q.DestinationCity,
		Currency:        string(q.Currency),
		Lines:           q.Lines,
		Supplies:        q.Supplies,
		ShippingCost:    q.ShippingCost,
		Total:           q.Total,
		Details:         q.Details,
		Status:          string(q.Status),
		CreatedAt:       q.CreatedAt,
		CancelledAt:     q.CancelledAt,
	}
}

func (r ComputeQuoteRequest) toDomain() quote.ComputeRequest {
	lines := make([]quote.LineRequest, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = quote.LineRequest{Reference: l.Reference, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	var currency valueobject.Currency
	if r.Currency != "" {
		currency = valueobject.ParseCurrency(r.Currency)
	}
	return quote.ComputeRequest{
		Lines:           lines,
		DestinationCity: r.DestinationCity,
		Profile:         r.Profile,
		Currency:        currency,
		Supply:          r.Supply.toDomain(),
	}
}

func (s SupplyInput) toDomain() quote.SupplyOptions {
	return quote.SupplyOptions{
		Adhesive:          s.Adhesive,
		AdhesiveReference: s.AdhesiveReference,
		Sealant:           s.Sealant,
		SealantReference:  s.SealantReference,
		ClaySurface:       s.ClaySurface,
	}
}
