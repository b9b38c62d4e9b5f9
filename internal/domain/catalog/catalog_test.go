package catalog

import (
	"testing"

	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cop(amount int64) valueobject.Money {
	m, _ := valueobject.NewMoneyFromInt(amount, valueobject.COP)
	return m
}

func sampleData() Data {
	return Data{
		Products: []Product{
			{Reference: "Carrara", Kind: ProductKindSurface, UnitPrice: cop(250000), YieldClass: "MARBLE"},
			{Reference: "Onix Miel", Kind: ProductKindSurface, UnitPrice: cop(480000), Translucent: true, YieldClass: "MARBLE"},
			{Reference: "Travertino XL", Kind: ProductKindSurface, UnitPrice: cop(310000), XLFormat: true},
			{Reference: "Pegante Blanco", Kind: ProductKindSupply, UnitPrice: cop(45000)},
			{Reference: "Sellador", Kind: ProductKindSupply, UnitPrice: cop(90000)},
		},
		YieldGroups: []YieldGroup{
			{Name: "marble", Class: "MARBLE", Ratio: decimal.NewFromInt(4)},
			{Name: "translucent", Class: "MARBLE", Ratio: decimal.NewFromInt(3), Translucent: true},
			{Name: "travertine", Products: []string{"Travertino XL"}, Ratio: decimal.NewFromInt(5)},
		},
		Sealants: []SealantYield{
			{Reference: "Sellador", StandardYield: decimal.NewFromInt(20), ClayYield: decimal.NewFromInt(12)},
		},
		ShippingRates: []ShippingRate{
			{City: "Bogotá", BaseFee: cop(10000), PerKgFee: cop(2000)},
		},
		Profiles: []CalculatorProfile{
			{Name: "retail", Currency: valueobject.COP, DefaultWeightKg: decimal.NewFromInt(1), AllowAdhesive: true, AllowSealant: true},
		},
		Formats: FormatAreas{Standard: decimal.RequireFromString("0.36"), XL: decimal.RequireFromString("1.2")},
	}
}

func TestNewCatalog(t *testing.T) {
	t.Run("builds catalog from valid data", func(t *testing.T) {
		c, err := NewCatalog(sampleData())
		require.NoError(t, err)
		assert.Len(t, c.Products(), 5)
		assert.Equal(t, "Carrara", c.Products()[0].Reference)
	})

	t.Run("rejects duplicate references", func(t *testing.T) {
		data := sampleData()
		data.Products = append(data.Products, data.Products[0])
		_, err := NewCatalog(data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Duplicate product reference")
	})

	t.Run("rejects yield group listing unknown product", func(t *testing.T) {
		data := sampleData()
		data.YieldGroups[2].Products = []string{"Missing"}
		_, err := NewCatalog(data)
		assert.True(t, shared.HasCode(err, shared.CodeUnknownReference))
	})

	t.Run("rejects non-positive ratio", func(t *testing.T) {
		data := sampleData()
		data.YieldGroups[0].Ratio = decimal.Zero
		_, err := NewCatalog(data)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
	})

	t.Run("rejects sealant on a surface product", func(t *testing.T) {
		data := sampleData()
		data.Sealants[0].Reference = "Carrara"
		_, err := NewCatalog(data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be a supply product")
	})

	t.Run("rejects missing format areas", func(t *testing.T) {
		data := sampleData()
		data.Formats = FormatAreas{}
		_, err := NewCatalog(data)
		assert.Error(t, err)
	})
}

func TestCatalog_Lookups(t *testing.T) {
	c, err := NewCatalog(sampleData())
	require.NoError(t, err)

	t.Run("unknown product", func(t *testing.T) {
		_, err := c.LookupProduct("Nero Marquina")
		assert.True(t, shared.HasCode(err, shared.CodeUnknownReference))
	})

	t.Run("yield by class respects translucency", func(t *testing.T) {
		g, err := c.LookupYield("Carrara")
		require.NoError(t, err)
		assert.Equal(t, "marble", g.Name)

		g, err = c.LookupYield("Onix Miel")
		require.NoError(t, err)
		assert.Equal(t, "translucent", g.Name)
	})

	t.Run("yield by explicit membership", func(t *testing.T) {
		g, err := c.LookupYield("Travertino XL")
		require.NoError(t, err)
		assert.Equal(t, "travertine", g.Name)
	})

	t.Run("unmapped yield", func(t *testing.T) {
		_, err := c.LookupYield("Pegante Blanco")
		assert.True(t, shared.HasCode(err, shared.CodeUnmappedYieldGroup))
	})

	t.Run("sealant ratio by surface", func(t *testing.T) {
		s, err := c.LookupSealant("Sellador")
		require.NoError(t, err)
		assert.True(t, s.RatioFor(true).Equal(decimal.NewFromInt(12)))
		assert.True(t, s.RatioFor(false).Equal(decimal.NewFromInt(20)))

		_, err = c.LookupSealant("Carrara")
		assert.True(t, shared.HasCode(err, shared.CodeUnmappedYieldGroup))
	})

	t.Run("shipping rate ignores case and accents", func(t *testing.T) {
		for _, city := range []string{"Bogotá", "bogota", "  BOGOTA ", "BOGOTÁ"} {
			r, err := c.LookupShippingRate(city)
			require.NoError(t, err, city)
			assert.Equal(t, "Bogotá", r.City)
		}

		_, err := c.LookupShippingRate("Medellín")
		assert.True(t, shared.HasCode(err, shared.CodeUnknownShippingZone))
	})

	t.Run("profile weight factor", func(t *testing.T) {
		p, err := c.LookupProfile("retail")
		require.NoError(t, err)
		assert.True(t, p.WeightFactor("Carrara").Equal(decimal.NewFromInt(1)))

		_, err = c.LookupProfile("wholesale")
		assert.True(t, shared.HasCode(err, shared.CodeUnknownReference))
	})
}

func TestFormatAreas_AreaOf(t *testing.T) {
	c, err := NewCatalog(sampleData())
	require.NoError(t, err)

	carrara, _ := c.LookupProduct("Carrara")
	travertine, _ := c.LookupProduct("Travertino XL")

	assert.Equal(t, "3.6", c.FormatAreas().AreaOf(carrara, decimal.NewFromInt(10)).String())
	assert.Equal(t, "12", c.FormatAreas().AreaOf(travertine, decimal.NewFromInt(10)).String())
	assert.Equal(t, FormatXL, travertine.Format())
	assert.Equal(t, FormatStandard, carrara.Format())
}

func TestNormalizeCity(t *testing.T) {
	assert.Equal(t, "bogota", NormalizeCity("Bogotá"))
	assert.Equal(t, "santa marta", NormalizeCity("  Santa   Marta "))
	assert.Equal(t, "cucuta", NormalizeCity("CÚCUTA"))
}

func TestNewProduct(t *testing.T) {
	t.Run("defaults name and unit", func(t *testing.T) {
		p, err := NewProduct("Carrara", "", ProductKindSurface, cop(1), "")
		require.NoError(t, err)
		assert.Equal(t, "Carrara", p.Name)
		assert.Equal(t, "m2", p.Unit)
		assert.True(t, p.IsSurface())
	})

	t.Run("fails with empty reference", func(t *testing.T) {
		_, err := NewProduct(" ", "x", ProductKindSurface, cop(1), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reference cannot be empty")
	})

	t.Run("fails with invalid kind", func(t *testing.T) {
		_, err := NewProduct("X", "x", "TOOL", cop(1), "")
		assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
	})

	t.Run("fails with negative price", func(t *testing.T) {
		_, err := NewProduct("X", "x", ProductKindSupply, cop(-1), "")
		assert.Error(t, err)
	})
}
