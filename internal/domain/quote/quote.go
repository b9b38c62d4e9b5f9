package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Status represents the status of a quote
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusActive && target == StatusCancelled
}

// Details holds the request context kept alongside the priced lines
type Details struct {
	Supply            SupplyOptions   `json:"supply"`
	Area              decimal.Decimal `json:"area"`
	EstimatedWeightKg decimal.Decimal `json:"estimated_weight_kg"`
	LinesTotal        decimal.Decimal `json:"lines_total"`
	SuppliesTotal     decimal.Decimal `json:"supplies_total"`
}

// Quote is a priced customer request. It is immutable after creation except
// for the terminal cancellation.
type Quote struct {
	shared.BaseAggregateRoot
	Number          string
	Profile         string
	CustomerName    string
	Advisor         string
	DestinationCity string
	Currency        valueobject.Currency
	Lines           []Line
	Supplies        []SupplyLine
	ShippingCost    decimal.Decimal
	Total           decimal.Decimal
	Details         Details
	Status          Status
	CancelledAt     *time.Time
}

// FormatNumber renders the human-facing quote number
func FormatNumber(year int, seq int64) string {
	return fmt.Sprintf("COT-%d-%06d", year, seq)
}

// NewQuote creates an active quote from a calculation
func NewQuote(number, customerName, advisor, destinationCity string, supply SupplyOptions, calc *Calculation) (*Quote, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quote number cannot be empty")
	}
	if strings.TrimSpace(customerName) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Customer name cannot be empty")
	}
	if strings.TrimSpace(advisor) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Advisor cannot be empty")
	}
	if calc == nil || len(calc.Lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quote must contain at least one line")
	}

	q := &Quote{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		Profile:           calc.Profile,
		CustomerName:      strings.TrimSpace(customerName),
		Advisor:           strings.TrimSpace(advisor),
		DestinationCity:   destinationCity,
		Currency:          calc.Currency,
		Lines:             calc.Lines,
		Supplies:          calc.Supplies,
		ShippingCost:      calc.ShippingCost,
		Total:             calc.Total,
		Details: Details{
			Supply:            supply,
			Area:              calc.Area,
			EstimatedWeightKg: calc.EstimatedWeightKg,
			LinesTotal:        calc.LinesTotal,
			SuppliesTotal:     calc.SuppliesTotal,
		},
		Status: StatusActive,
	}
	q.AddDomainEvent(NewQuoteCreatedEvent(q))
	return q, nil
}

// LineFor returns the line quoting the product
func (q *Quote) LineFor(reference string) (Line, bool) {
	for _, l := range q.Lines {
		if l.Reference == reference {
			return l, true
		}
	}
	return Line{}, false
}

// IsActive reports whether the quote may still back reservations
func (q *Quote) IsActive() bool {
	return q.Status == StatusActive
}

// Cancel marks the quote as cancelled
func (q *Quote) Cancel() error {
	if !q.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError(shared.CodeInvalidTransition, fmt.Sprintf("Cannot cancel quote in %s status", q.Status))
	}
	now := time.Now().UTC()
	q.Status = StatusCancelled
	q.CancelledAt = &now
	q.UpdatedAt = now
	q.IncrementVersion()
	q.AddDomainEvent(NewQuoteCancelledEvent(q))
	return nil
}

// TotalMoney returns the total as money
func (q *Quote) TotalMoney() valueobject.Money {
	return valueobject.MustNewMoney(q.Total, q.Currency)
}
