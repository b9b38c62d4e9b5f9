package reservation

import (
	"github.com/google/uuid"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeReservation is the aggregate type of reservations
const AggregateTypeReservation = "Reservation"

// Event type constants
const (
	EventTypeReservationCreated    = "ReservationCreated"
	EventTypeReservationValidated  = "ReservationValidated"
	EventTypeReservationRejected   = "ReservationRejected"
	EventTypeReservationDispatched = "ReservationDispatched"
)

// ReservationCreatedEvent is raised when stock is reserved for a quote
type ReservationCreatedEvent struct {
	shared.BaseDomainEvent
	ReservationID    uuid.UUID       `json:"reservation_id"`
	QuoteNumber      string          `json:"quote_number"`
	ProductReference string          `json:"product_reference"`
	Quantity         decimal.Decimal `json:"quantity"`
	Source           string          `json:"source"`
}

// NewReservationCreatedEvent creates a ReservationCreatedEvent
func NewReservationCreatedEvent(r *Reservation) *ReservationCreatedEvent {
	return &ReservationCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReservationCreated, AggregateTypeReservation, r.ID),
		ReservationID:    r.ID,
		QuoteNumber:      r.QuoteNumber,
		ProductReference: r.ProductReference,
		Quantity:         r.Quantity,
		Source:           r.Source().String(),
	}
}

// ReservationValidatedEvent is raised when a reservation is approved
type ReservationValidatedEvent struct {
	shared.BaseDomainEvent
	ReservationID uuid.UUID `json:"reservation_id"`
	ValidatedBy   string    `json:"validated_by"`
}

// NewReservationValidatedEvent creates a ReservationValidatedEvent
func NewReservationValidatedEvent(r *Reservation) *ReservationValidatedEvent {
	return &ReservationValidatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationValidated, AggregateTypeReservation, r.ID),
		ReservationID:   r.ID,
		ValidatedBy:     r.ValidatedBy,
	}
}

// ReservationRejectedEvent is raised when a reservation is refused and its stock restored
type ReservationRejectedEvent struct {
	shared.BaseDomainEvent
	ReservationID    uuid.UUID       `json:"reservation_id"`
	ProductReference string          `json:"product_reference"`
	Quantity         decimal.Decimal `json:"quantity"`
	Source           string          `json:"source"`
	Reason           string          `json:"reason"`
}

// NewReservationRejectedEvent creates a ReservationRejectedEvent
func NewReservationRejectedEvent(r *Reservation) *ReservationRejectedEvent {
	return &ReservationRejectedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReservationRejected, AggregateTypeReservation, r.ID),
		ReservationID:    r.ID,
		ProductReference: r.ProductReference,
		Quantity:         r.Quantity,
		Source:           r.Source().String(),
		Reason:           r.RejectReason,
	}
}

// ReservationDispatchedEvent is raised when a validated reservation ships.
// The sales aggregator credits Amount to the advisor for Period.
type ReservationDispatchedEvent struct {
	shared.BaseDomainEvent
	ReservationID uuid.UUID       `json:"reservation_id"`
	Advisor       string          `json:"advisor"`
	Period        string          `json:"period"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// NewReservationDispatchedEvent creates a ReservationDispatchedEvent
func NewReservationDispatchedEvent(r *Reservation) *ReservationDispatchedEvent {
	amount := r.Amount()
	return &ReservationDispatchedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationDispatched, AggregateTypeReservation, r.ID),
		ReservationID:   r.ID,
		Advisor:         r.Advisor,
		Period:          r.Period(),
		Amount:          amount.Amount(),
		Currency:        string(amount.Currency()),
	}
}
