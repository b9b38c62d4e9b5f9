package catalog

import (
	"sort"

	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Reader is the read-only view of the catalog used by the calculator and the
// reservation engine
type Reader interface {
	LookupProduct(reference string) (*Product, error)
	LookupYield(reference string) (*YieldGroup, error)
	LookupSealant(reference string) (*SealantYield, error)
	LookupShippingRate(city string) (*ShippingRate, error)
	LookupProfile(name string) (*CalculatorProfile, error)
	FormatAreas() FormatAreas
}

// Data is the raw material a Catalog is built from
type Data struct {
	Products      []Product
	YieldGroups   []YieldGroup
	Sealants      []SealantYield
	ShippingRates []ShippingRate
	Profiles      []CalculatorProfile
	Formats       FormatAreas
}

// Catalog is static reference data. It is immutable after NewCatalog and safe
// for concurrent readers; returned pointers must not be modified.
type Catalog struct {
	products    map[string]*Product
	yieldGroups []*YieldGroup
	sealants    map[string]*SealantYield
	rates       map[string]*ShippingRate
	profiles    map[string]*CalculatorProfile
	formats     FormatAreas
}

// NewCatalog validates the referential integrity of data and builds a Catalog
func NewCatalog(data Data) (*Catalog, error) {
	c := &Catalog{
		products: make(map[string]*Product, len(data.Products)),
		sealants: make(map[string]*SealantYield, len(data.Sealants)),
		rates:    make(map[string]*ShippingRate, len(data.ShippingRates)),
		profiles: make(map[string]*CalculatorProfile, len(data.Profiles)),
		formats:  data.Formats,
	}

	if !data.Formats.Standard.IsPositive() || !data.Formats.XL.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Format areas must be positive")
	}

	for i := range data.Products {
		p := data.Products[i]
		if _, err := NewProduct(p.Reference, p.Name, p.Kind, p.UnitPrice, p.Unit); err != nil {
			return nil, err
		}
		if _, dup := c.products[p.Reference]; dup {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Duplicate product reference %s", p.Reference)
		}
		if p.Unit == "" {
			p.Unit = "m2"
		}
		c.products[p.Reference] = &p
	}

	names := make(map[string]struct{}, len(data.YieldGroups))
	for i := range data.YieldGroups {
		g := data.YieldGroups[i]
		if g.Name == "" {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Yield group name cannot be empty")
		}
		if _, dup := names[g.Name]; dup {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Duplicate yield group %s", g.Name)
		}
		names[g.Name] = struct{}{}
		if !g.Ratio.IsPositive() {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Yield group %s must have a positive ratio", g.Name)
		}
		for _, ref := range g.Products {
			if _, ok := c.products[ref]; !ok {
				return nil, shared.NewDomainErrorf(shared.CodeUnknownReference, "Yield group %s lists unknown product %s", g.Name, ref)
			}
		}
		c.yieldGroups = append(c.yieldGroups, &g)
	}
	sort.Slice(c.yieldGroups, func(i, j int) bool {
		return c.yieldGroups[i].Name < c.yieldGroups[j].Name
	})

	for i := range data.Sealants {
		s := data.Sealants[i]
		p, ok := c.products[s.Reference]
		if !ok {
			return nil, shared.NewDomainErrorf(shared.CodeUnknownReference, "Sealant yield for unknown product %s", s.Reference)
		}
		if p.Kind != ProductKindSupply {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Sealant %s must be a supply product", s.Reference)
		}
		if !s.StandardYield.IsPositive() || !s.ClayYield.IsPositive() {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Sealant %s must have positive yields", s.Reference)
		}
		c.sealants[s.Reference] = &s
	}

	for i := range data.ShippingRates {
		r := data.ShippingRates[i]
		key := NormalizeCity(r.City)
		if key == "" {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Shipping rate city cannot be empty")
		}
		if _, dup := c.rates[key]; dup {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Duplicate shipping rate for %s", r.City)
		}
		if r.BaseFee.IsNegative() || r.PerKgFee.IsNegative() {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Shipping rate for %s cannot be negative", r.City)
		}
		c.rates[key] = &r
	}

	for i := range data.Profiles {
		p := data.Profiles[i]
		if p.Name == "" {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Profile name cannot be empty")
		}
		if _, dup := c.profiles[p.Name]; dup {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Duplicate profile %s", p.Name)
		}
		if p.DefaultWeightKg.IsNegative() {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Profile %s has a negative weight", p.Name)
		}
		if p.WeightKg == nil {
			p.WeightKg = map[string]decimal.Decimal{}
		}
		c.profiles[p.Name] = &p
	}

	return c, nil
}

// LookupProduct returns the product with the given reference
func (c *Catalog) LookupProduct(reference string) (*Product, error) {
	p, ok := c.products[reference]
	if !ok {
		return nil, shared.NewDomainErrorf(shared.CodeUnknownReference, "Unknown product reference %s", reference)
	}
	return p, nil
}

// LookupYield returns the adhesive yield group covering the product. Explicit
// membership wins over class membership, and the group's translucency must
// match the product's.
func (c *Catalog) LookupYield(reference string) (*YieldGroup, error) {
	p, err := c.LookupProduct(reference)
	if err != nil {
		return nil, err
	}
	for _, g := range c.yieldGroups {
		if g.Translucent == p.Translucent && g.lists(reference) {
			return g, nil
		}
	}
	for _, g := range c.yieldGroups {
		if g.Translucent == p.Translucent && g.covers(p) {
			return g, nil
		}
	}
	return nil, shared.NewDomainErrorf(shared.CodeUnmappedYieldGroup, "Product %s has no adhesive yield group", reference)
}

// LookupSealant returns the sealant yield of a sealant product
func (c *Catalog) LookupSealant(reference string) (*SealantYield, error) {
	s, ok := c.sealants[reference]
	if !ok {
		return nil, shared.NewDomainErrorf(shared.CodeUnmappedYieldGroup, "No sealant yield for %s", reference)
	}
	return s, nil
}

// LookupShippingRate returns the tariff of a city, ignoring case and accents
func (c *Catalog) LookupShippingRate(city string) (*ShippingRate, error) {
	r, ok := c.rates[NormalizeCity(city)]
	if !ok {
		return nil, shared.NewDomainErrorf(shared.CodeUnknownShippingZone, "No shipping rate for %s", city)
	}
	return r, nil
}

// LookupProfile returns a calculator profile by name
func (c *Catalog) LookupProfile(name string) (*CalculatorProfile, error) {
	p, ok := c.profiles[name]
	if !ok {
		return nil, shared.NewDomainErrorf(shared.CodeUnknownReference, "Unknown calculator profile %s", name)
	}
	return p, nil
}

// FormatAreas returns the per-unit area of each format
func (c *Catalog) FormatAreas() FormatAreas {
	return c.formats
}

// Products returns all products ordered by reference
func (c *Catalog) Products() []*Product {
	out := make([]*Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reference < out[j].Reference })
	return out
}

var _ Reader = (*Catalog)(nil)
