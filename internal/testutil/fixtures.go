package testutil

import (
	"testing"

	"github.com/marmoleria/backend/internal/domain/catalog"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Reference names used by the sample catalog.
const (
	Carrara      = "Carrara"
	OnixMiel     = "Onix Miel"
	TravertinoXL = "Travertino XL"
	Pegante      = "Pegante Blanco"
	Sellador     = "Sellador"
)

// COP builds a peso amount.
func COP(amount string) valueobject.Money {
	m, err := valueobject.NewMoneyFromString(amount, valueobject.COP)
	if err != nil {
		panic(err)
	}
	return m
}

// SampleCatalogData returns a small marble catalog: two standard surfaces, an
// XL surface, adhesive and sealant supplies, a Bogotá tariff and two profiles.
func SampleCatalogData() catalog.Data {
	return catalog.Data{
		Products: []catalog.Product{
			{Reference: Carrara, Name: "Mármol Carrara", Kind: catalog.ProductKindSurface, UnitPrice: COP("250000"), YieldClass: "MARBLE"},
			{Reference: OnixMiel, Name: "Ónix Miel", Kind: catalog.ProductKindSurface, UnitPrice: COP("480000"), YieldClass: "MARBLE", Translucent: true},
			{Reference: TravertinoXL, Name: "Travertino formato XL", Kind: catalog.ProductKindSurface, UnitPrice: COP("310000"), XLFormat: true},
			{Reference: Pegante, Name: "Pegante blanco 25kg", Kind: catalog.ProductKindSupply, UnitPrice: COP("45000"), Unit: "bulto"},
			{Reference: Sellador, Name: "Sellador hidrofugante", Kind: catalog.ProductKindSupply, UnitPrice: COP("90000"), Unit: "galon"},
		},
		YieldGroups: []catalog.YieldGroup{
			{Name: "marble", Class: "MARBLE", Ratio: decimal.NewFromInt(4)},
			{Name: "translucent", Class: "MARBLE", Ratio: decimal.NewFromInt(3), Translucent: true},
			{Name: "travertine", Products: []string{TravertinoXL}, Ratio: decimal.NewFromInt(5)},
		},
		Sealants: []catalog.SealantYield{
			{Reference: Sellador, StandardYield: decimal.NewFromInt(20), ClayYield: decimal.NewFromInt(12)},
		},
		ShippingRates: []catalog.ShippingRate{
			{City: "Bogotá", BaseFee: COP("10000"), PerKgFee: COP("2000")},
			{City: "Medellín", BaseFee: COP("25000"), PerKgFee: COP("3500")},
		},
		Profiles: []catalog.CalculatorProfile{
			{
				Name:            "retail",
				Currency:        valueobject.COP,
				DefaultWeightKg: decimal.NewFromInt(1),
				WeightKg:        map[string]decimal.Decimal{TravertinoXL: decimal.NewFromInt(3)},
				AllowAdhesive:   true,
				AllowSealant:    true,
			},
			{
				Name:            "wholesale",
				Currency:        valueobject.COP,
				DefaultWeightKg: decimal.NewFromInt(1),
				AllowAdhesive:   true,
			},
		},
		Formats: catalog.FormatAreas{
			Standard: decimal.RequireFromString("0.36"),
			XL:       decimal.RequireFromString("1.2"),
		},
	}
}

// SampleCatalog builds the sample catalog.
func SampleCatalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	c, err := catalog.NewCatalog(SampleCatalogData())
	require.NoError(t, err)
	return c
}
