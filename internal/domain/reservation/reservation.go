package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// Status represents the approval status of a reservation
type Status string

const (
	StatusPending    Status = "PENDIENTE"
	StatusValidated  Status = "VALIDADA"
	StatusDispatched Status = "DESPACHADA"
	StatusRejected   Status = "RECHAZADA"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusDispatched, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// ParseStatus parses a status case-insensitively
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown reservation status %q", s)
	}
	return status, nil
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusValidated || target == StatusRejected
	case StatusValidated:
		return target == StatusDispatched
	case StatusDispatched, StatusRejected:
		return false // Terminal states
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusDispatched || s == StatusRejected
}

// PeriodLayout formats sales periods as YYYY-MM
const PeriodLayout = "2006-01"

// Reservation is a quantity of one product held at exactly one stock source on
// behalf of a quote
type Reservation struct {
	shared.BaseAggregateRoot
	QuoteNumber      string
	Customer         string
	ProductReference string
	Quantity         decimal.Decimal
	SourceType       stock.SourceType
	SourceID         string
	Advisor          string
	UnitPrice        decimal.Decimal
	Currency         valueobject.Currency
	Status           Status
	RejectReason     string
	ValidatedAt      *time.Time
	DispatchedAt     *time.Time
	RejectedAt       *time.Time
	ValidatedBy      string
	RejectedBy       string
	DispatchedBy     string
}

// NewReservation creates a pending reservation for stock already debited from source
func NewReservation(quoteNumber, customer, advisor, reference string, source stock.SourceKey, quantity decimal.Decimal, unitPrice valueobject.Money) (*Reservation, error) {
	if strings.TrimSpace(quoteNumber) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quote number cannot be empty")
	}
	if strings.TrimSpace(reference) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product reference cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Reservation quantity must be positive")
	}
	if !source.Type.IsValid() || source.ID == "" {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Invalid stock source %s", source)
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unit price cannot be negative")
	}

	r := &Reservation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		QuoteNumber:       quoteNumber,
		Customer:          customer,
		ProductReference:  reference,
		Quantity:          quantity,
		SourceType:        source.Type,
		SourceID:          source.ID,
		Advisor:           advisor,
		UnitPrice:         unitPrice.Amount(),
		Currency:          unitPrice.Currency(),
		Status:            StatusPending,
	}
	r.AddDomainEvent(NewReservationCreatedEvent(r))
	return r, nil
}

// Source returns the key of the originating stock source
func (r *Reservation) Source() stock.SourceKey {
	return stock.SourceKey{Type: r.SourceType, ID: r.SourceID}
}

// Amount returns UnitPrice × Quantity rounded to cents
func (r *Reservation) Amount() valueobject.Money {
	return valueobject.MustNewMoney(r.UnitPrice, r.Currency).Multiply(r.Quantity).Round(2)
}

// Validate approves a pending reservation
func (r *Reservation) Validate(actor Actor) error {
	if err := r.authorize(actor, "validate"); err != nil {
		return err
	}
	if !r.Status.CanTransitionTo(StatusValidated) {
		return r.invalidTransition("validate")
	}

	now := time.Now().UTC()
	r.Status = StatusValidated
	r.ValidatedAt = &now
	r.ValidatedBy = actor.audit()
	r.touch(now)
	r.AddDomainEvent(NewReservationValidatedEvent(r))
	return nil
}

// Reject refuses a pending reservation. The caller must credit the quantity
// back to Source().
func (r *Reservation) Reject(actor Actor, reason string) error {
	if err := r.authorize(actor, "reject"); err != nil {
		return err
	}
	if !r.Status.CanTransitionTo(StatusRejected) {
		return r.invalidTransition("reject")
	}

	now := time.Now().UTC()
	r.Status = StatusRejected
	r.RejectReason = strings.TrimSpace(reason)
	r.RejectedAt = &now
	r.RejectedBy = actor.audit()
	r.touch(now)
	r.AddDomainEvent(NewReservationRejectedEvent(r))
	return nil
}

// Dispatch marks a validated reservation as shipped and raises the sale
func (r *Reservation) Dispatch(actor Actor) error {
	if err := r.authorize(actor, "dispatch"); err != nil {
		return err
	}
	if !r.Status.CanTransitionTo(StatusDispatched) {
		return r.invalidTransition("dispatch")
	}

	now := time.Now().UTC()
	r.Status = StatusDispatched
	r.DispatchedAt = &now
	r.DispatchedBy = actor.audit()
	r.touch(now)
	r.AddDomainEvent(NewReservationDispatchedEvent(r))
	return nil
}

// Period returns the YYYY-MM sales period of a dispatched reservation
func (r *Reservation) Period() string {
	if r.DispatchedAt == nil {
		return ""
	}
	return r.DispatchedAt.Format(PeriodLayout)
}

func (r *Reservation) authorize(actor Actor, action string) error {
	if !actor.CanApprove() {
		return shared.NewDomainErrorf(shared.CodeForbidden, "Role %s cannot %s reservations", actor.Role(), action)
	}
	return nil
}

func (r *Reservation) invalidTransition(action string) error {
	return shared.NewDomainError(shared.CodeInvalidTransition, fmt.Sprintf("Cannot %s reservation in %s status", action, r.Status))
}

func (r *Reservation) touch(now time.Time) {
	r.UpdatedAt = now
	r.IncrementVersion()
}
