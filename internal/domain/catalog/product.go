package catalog

import (
	"strings"

	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ProductKind separates sellable surfaces from the supplies (adhesive, sealant)
// derived from them
type ProductKind string

const (
	ProductKindSurface ProductKind = "SURFACE"
	ProductKindSupply  ProductKind = "SUPPLY"
)

// IsValid checks if the kind is a known ProductKind
func (k ProductKind) IsValid() bool {
	return k == ProductKindSurface || k == ProductKindSupply
}

// Format is the physical format of a surface product
type Format string

const (
	FormatStandard Format = "STANDARD"
	FormatXL       Format = "XL"
)

// Product is a catalog entry identified by its unique reference name
type Product struct {
	Reference   string
	Name        string
	Kind        ProductKind
	UnitPrice   valueobject.Money
	Unit        string // e.g. "m2"
	YieldClass  string // groups products sharing an adhesive coverage ratio
	Translucent bool   // translucent products use the translucent yield table
	XLFormat    bool
}

// NewProduct creates a validated product
func NewProduct(reference, name string, kind ProductKind, unitPrice valueobject.Money, unit string) (*Product, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product reference cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Product %s has invalid kind %q", reference, kind)
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Product %s has a negative price", reference)
	}
	if unit == "" {
		unit = "m2"
	}
	if name == "" {
		name = reference
	}
	return &Product{
		Reference: reference,
		Name:      name,
		Kind:      kind,
		UnitPrice: unitPrice,
		Unit:      unit,
	}, nil
}

// Format returns the product's physical format
func (p *Product) Format() Format {
	if p.XLFormat {
		return FormatXL
	}
	return FormatStandard
}

// IsSurface reports whether the product covers area (and therefore drives
// derived supply quantities)
func (p *Product) IsSurface() bool {
	return p.Kind == ProductKindSurface
}

// FormatAreas holds the area covered by one unit of each format
type FormatAreas struct {
	Standard decimal.Decimal
	XL       decimal.Decimal
}

// AreaOf returns the total area covered by quantity units of p
func (f FormatAreas) AreaOf(p *Product, quantity decimal.Decimal) decimal.Decimal {
	if p.XLFormat {
		return quantity.Mul(f.XL)
	}
	return quantity.Mul(f.Standard)
}
