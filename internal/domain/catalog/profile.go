package catalog

import (
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CalculatorProfile selects which pricing and supply rules apply to a quote
type CalculatorProfile struct {
	Name            string
	Currency        valueobject.Currency
	DefaultWeightKg decimal.Decimal            // weight per unit when no override exists
	WeightKg        map[string]decimal.Decimal // per-reference weight per unit
	AllowAdhesive   bool
	AllowSealant    bool
}

// WeightFactor returns the estimated kilograms per unit of the reference
func (p *CalculatorProfile) WeightFactor(reference string) decimal.Decimal {
	if w, ok := p.WeightKg[reference]; ok {
		return w
	}
	return p.DefaultWeightKg
}
