package quote

import (
	"sort"
	"strings"

	"github.com/marmoleria/backend/internal/domain/catalog"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SupplyKind identifies a derived supply line
type SupplyKind string

const (
	SupplyKindAdhesive SupplyKind = "ADHESIVE"
	SupplyKindSealant  SupplyKind = "SEALANT"
)

// moneyPlaces is the rounding applied to every monetary amount of a quote
const moneyPlaces = 2

// LineRequest is one requested product. UnitPrice overrides the catalog price.
type LineRequest struct {
	Reference string
	Quantity  decimal.Decimal
	UnitPrice *valueobject.Money
}

// SupplyOptions selects which derived supplies and services are quoted
type SupplyOptions struct {
	Adhesive          bool   `json:"adhesive"`
	AdhesiveReference string `json:"adhesive_reference,omitempty"`
	Sealant           bool   `json:"sealant"`
	SealantReference  string `json:"sealant_reference,omitempty"`
	ClaySurface       bool   `json:"clay_surface"`
}

// ComputeRequest is the input of a quote computation
type ComputeRequest struct {
	Lines           []LineRequest
	DestinationCity string
	Profile         string
	Currency        valueobject.Currency
	Supply          SupplyOptions
}

// Line is a priced product line
type Line struct {
	Reference string          `json:"reference"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// SupplyLine is a derived supply (adhesive per yield group, or sealant)
type SupplyLine struct {
	Kind      SupplyKind      `json:"kind"`
	Reference string          `json:"reference"`
	Group     string          `json:"group,omitempty"`
	Units     decimal.Decimal `json:"units"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Calculation is the deterministic result of pricing a request
type Calculation struct {
	Profile           string               `json:"profile"`
	Currency          valueobject.Currency `json:"currency"`
	Lines             []Line               `json:"lines"`
	Supplies          []SupplyLine         `json:"supplies"`
	Area              decimal.Decimal      `json:"area"`
	EstimatedWeightKg decimal.Decimal      `json:"estimated_weight_kg"`
	LinesTotal        decimal.Decimal      `json:"lines_total"`
	SuppliesTotal     decimal.Decimal      `json:"supplies_total"`
	ShippingCost      decimal.Decimal      `json:"shipping_cost"`
	Total             decimal.Decimal      `json:"total"`
}

// Calculator prices quote requests from catalog data. It never touches stock
// and holds no mutable state, so one instance serves concurrent callers.
type Calculator struct {
	catalog        catalog.Reader
	defaultProfile string
}

// NewCalculator creates a calculator; defaultProfile applies when a request names none
func NewCalculator(reader catalog.Reader, defaultProfile string) *Calculator {
	return &Calculator{catalog: reader, defaultProfile: defaultProfile}
}

// Compute prices the request
func (c *Calculator) Compute(req ComputeRequest) (*Calculation, error) {
	profileName := strings.TrimSpace(req.Profile)
	if profileName == "" {
		profileName = c.defaultProfile
	}
	profile, err := c.catalog.LookupProfile(profileName)
	if err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quote must contain at least one line")
	}
	if req.Supply.Adhesive && !profile.AllowAdhesive {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Profile %s does not quote adhesive", profile.Name)
	}
	if req.Supply.Sealant && !profile.AllowSealant {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Profile %s does not quote sealant", profile.Name)
	}

	currency := req.Currency
	if currency == "" {
		currency = profile.Currency
	}

	calc := &Calculation{
		Profile:           profile.Name,
		Currency:          currency,
		Lines:             make([]Line, 0, len(req.Lines)),
		Supplies:          []SupplyLine{},
		Area:              decimal.Zero,
		EstimatedWeightKg: decimal.Zero,
	}
	linesTotal := valueobject.Zero(currency)
	groupArea := make(map[string]decimal.Decimal)
	groups := make(map[string]*catalog.YieldGroup)
	formats := c.catalog.FormatAreas()

	for i, lr := range req.Lines {
		if !lr.Quantity.IsPositive() {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidQuantity, "Line %d quantity must be positive", i+1)
		}
		product, err := c.catalog.LookupProduct(lr.Reference)
		if err != nil {
			return nil, err
		}
		price := product.UnitPrice
		if lr.UnitPrice != nil {
			price = *lr.UnitPrice
		}
		subtotal := price.Multiply(lr.Quantity).Round(moneyPlaces)
		if linesTotal, err = linesTotal.Add(subtotal); err != nil {
			return nil, err
		}
		calc.Lines = append(calc.Lines, Line{
			Reference: product.Reference,
			Quantity:  lr.Quantity,
			UnitPrice: price.Amount(),
			Subtotal:  subtotal.Amount(),
		})
		calc.EstimatedWeightKg = calc.EstimatedWeightKg.Add(lr.Quantity.Mul(profile.WeightFactor(product.Reference)))

		if !product.IsSurface() {
			continue
		}
		area := formats.AreaOf(product, lr.Quantity)
		calc.Area = calc.Area.Add(area)
		if req.Supply.Adhesive {
			group, err := c.catalog.LookupYield(product.Reference)
			if err != nil {
				return nil, err
			}
			groups[group.Name] = group
			groupArea[group.Name] = groupArea[group.Name].Add(area)
		}
	}

	suppliesTotal := valueobject.Zero(currency)
	if req.Supply.Adhesive {
		lines, err := c.adhesive(req.Supply.AdhesiveReference, currency, groups, groupArea)
		if err != nil {
			return nil, err
		}
		calc.Supplies = append(calc.Supplies, lines...)
	}
	if req.Supply.Sealant {
		line, err := c.sealant(req.Supply, currency, calc.Area)
		if err != nil {
			return nil, err
		}
		calc.Supplies = append(calc.Supplies, line)
	}
	for _, s := range calc.Supplies {
		suppliesTotal, _ = suppliesTotal.Add(valueobject.MustNewMoney(s.Subtotal, currency))
	}

	shipping := valueobject.Zero(currency)
	if strings.TrimSpace(req.DestinationCity) != "" {
		if shipping, err = c.shipping(req.DestinationCity, currency, calc.EstimatedWeightKg); err != nil {
			return nil, err
		}
	}

	total, _ := linesTotal.Add(suppliesTotal)
	total, _ = total.Add(shipping)

	calc.LinesTotal = linesTotal.Round(moneyPlaces).Amount()
	calc.SuppliesTotal = suppliesTotal.Round(moneyPlaces).Amount()
	calc.ShippingCost = shipping.Round(moneyPlaces).Amount()
	calc.Total = total.Round(moneyPlaces).Amount()
	return calc, nil
}

// adhesive computes ceil(area / ratio) units per yield group, groups in name order
func (c *Calculator) adhesive(reference string, currency valueobject.Currency, groups map[string]*catalog.YieldGroup, area map[string]decimal.Decimal) ([]SupplyLine, error) {
	if reference == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Adhesive reference is required")
	}
	product, err := c.catalog.LookupProduct(reference)
	if err != nil {
		return nil, err
	}
	if product.UnitPrice.Currency() != currency {
		return nil, currencyMismatch(reference, product.UnitPrice.Currency(), currency)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]SupplyLine, 0, len(names))
	for _, name := range names {
		units := area[name].Div(groups[name].Ratio).Ceil()
		if !units.IsPositive() {
			continue
		}
		lines = append(lines, SupplyLine{
			Kind:      SupplyKindAdhesive,
			Reference: product.Reference,
			Group:     name,
			Units:     units,
			UnitPrice: product.UnitPrice.Amount(),
			Subtotal:  product.UnitPrice.Multiply(units).Round(moneyPlaces).Amount(),
		})
	}
	return lines, nil
}

// sealant computes ceil(totalArea / yield) using the clay yield for clay surfaces
func (c *Calculator) sealant(opts SupplyOptions, currency valueobject.Currency, area decimal.Decimal) (SupplyLine, error) {
	if opts.SealantReference == "" {
		return SupplyLine{}, shared.NewDomainError(shared.CodeInvalidInput, "Sealant reference is required")
	}
	yield, err := c.catalog.LookupSealant(opts.SealantReference)
	if err != nil {
		return SupplyLine{}, err
	}
	product, err := c.catalog.LookupProduct(opts.SealantReference)
	if err != nil {
		return SupplyLine{}, err
	}
	if product.UnitPrice.Currency() != currency {
		return SupplyLine{}, currencyMismatch(product.Reference, product.UnitPrice.Currency(), currency)
	}
	units := area.Div(yield.RatioFor(opts.ClaySurface)).Ceil()
	return SupplyLine{
		Kind:      SupplyKindSealant,
		Reference: product.Reference,
		Units:     units,
		UnitPrice: product.UnitPrice.Amount(),
		Subtotal:  product.UnitPrice.Multiply(units).Round(moneyPlaces).Amount(),
	}, nil
}

// shipping computes base + perKg × weight
func (c *Calculator) shipping(city string, currency valueobject.Currency, weight decimal.Decimal) (valueobject.Money, error) {
	rate, err := c.catalog.LookupShippingRate(city)
	if err != nil {
		return valueobject.Money{}, err
	}
	if rate.BaseFee.Currency() != currency || rate.PerKgFee.Currency() != currency {
		return valueobject.Money{}, currencyMismatch("shipping to "+rate.City, rate.BaseFee.Currency(), currency)
	}
	cost, err := rate.BaseFee.Add(rate.PerKgFee.Multiply(weight))
	if err != nil {
		return valueobject.Money{}, err
	}
	return cost.Round(moneyPlaces), nil
}

func currencyMismatch(what string, got, want valueobject.Currency) error {
	return shared.NewDomainErrorf(shared.CodeCurrencyMismatch, "Price of %s is in %s, quote is in %s", what, got, want)
}
