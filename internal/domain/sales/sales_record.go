package sales

import (
	"strings"
	"time"

	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const periodLayout = "2006-01"

// Period is a calendar month
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses YYYY-MM
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, strings.TrimSpace(s))
	if err != nil {
		return Period{}, shared.NewDomainErrorf(shared.CodeInvalidInput, "Invalid period %q, expected YYYY-MM", s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// PeriodOf returns the period containing t
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// String returns YYYY-MM
func (p Period) String() string {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).Format(periodLayout)
}

// Next returns the following month
func (p Period) Next() Period {
	return PeriodOf(time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC))
}

// Previous returns the preceding month
func (p Period) Previous() Period {
	return PeriodOf(time.Date(p.Year, p.Month-1, 1, 0, 0, 0, 0, time.UTC))
}

// Before reports whether p is earlier than other
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// maxRangeMonths bounds range queries
const maxRangeMonths = 120

// Range lists every period from p to end inclusive
func (p Period) Range(end Period) ([]Period, error) {
	if end.Before(p) {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Period %s is after %s", p, end)
	}
	out := []Period{}
	for cur := p; !end.Before(cur); cur = cur.Next() {
		out = append(out, cur)
		if len(out) > maxRangeMonths {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Range exceeds %d months", maxRangeMonths)
		}
	}
	return out, nil
}

// SalesRecord is the dispatched sales total of one advisor in one period
type SalesRecord struct {
	Advisor  string
	Period   Period
	Amount   decimal.Decimal
	Currency valueobject.Currency
}

// NewSalesRecord validates a record
func NewSalesRecord(advisor string, period Period, amount valueobject.Money) (*SalesRecord, error) {
	if strings.TrimSpace(advisor) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Advisor cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Sale amount cannot be negative")
	}
	return &SalesRecord{
		Advisor:  strings.TrimSpace(advisor),
		Period:   period,
		Amount:   amount.Amount(),
		Currency: amount.Currency(),
	}, nil
}

// Money returns the amount as money
func (r *SalesRecord) Money() valueobject.Money {
	return valueobject.MustNewMoney(r.Amount, r.Currency)
}

// SeriesPoint is one month of a sales series
type SeriesPoint struct {
	Period   string          `json:"period"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}
