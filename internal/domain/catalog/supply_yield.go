package catalog

import (
	"slices"

	"github.com/shopspring/decimal"
)

// YieldGroup maps a set of product references, or a whole yield class, to the
// area covered by one unit of adhesive. Translucent groups form a separate table.
type YieldGroup struct {
	Name        string
	Class       string
	Products    []string
	Ratio       decimal.Decimal // area per adhesive unit
	Translucent bool
}

// lists reports whether the group names the product explicitly
func (g *YieldGroup) lists(reference string) bool {
	return slices.Contains(g.Products, reference)
}

// covers reports whether the group covers the product through its class
func (g *YieldGroup) covers(p *Product) bool {
	return g.Class != "" && g.Class == p.YieldClass
}

// SealantYield holds the coverage ratios of a sealant product
type SealantYield struct {
	Reference     string
	StandardYield decimal.Decimal
	ClayYield     decimal.Decimal
}

// RatioFor returns the coverage ratio for the surface type
func (s *SealantYield) RatioFor(claySurface bool) decimal.Decimal {
	if claySurface {
		return s.ClayYield
	}
	return s.StandardYield
}
