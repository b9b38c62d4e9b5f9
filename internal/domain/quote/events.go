package quote

import (
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeQuote is the aggregate type of quotes
const AggregateTypeQuote = "Quote"

// Event type constants
const (
	EventTypeQuoteCreated   = "QuoteCreated"
	EventTypeQuoteCancelled = "QuoteCancelled"
)

// QuoteCreatedEvent is raised when a quote is issued
type QuoteCreatedEvent struct {
	shared.BaseDomainEvent
	Number   string          `json:"number"`
	Advisor  string          `json:"advisor"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

// NewQuoteCreatedEvent creates a QuoteCreatedEvent
func NewQuoteCreatedEvent(q *Quote) *QuoteCreatedEvent {
	return &QuoteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteCreated, AggregateTypeQuote, q.ID),
		Number:          q.Number,
		Advisor:         q.Advisor,
		Total:           q.Total,
		Currency:        string(q.Currency),
	}
}

// QuoteCancelledEvent is raised when a quote is cancelled
type QuoteCancelledEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
}

// NewQuoteCancelledEvent creates a QuoteCancelledEvent
func NewQuoteCancelledEvent(q *Quote) *QuoteCancelledEvent {
	return &QuoteCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteCancelled, AggregateTypeQuote, q.ID),
		Number:          q.Number,
	}
}
