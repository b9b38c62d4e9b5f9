package quote_test

import (
	"testing"

	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/marmoleria/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newCalculator(t *testing.T) *quote.Calculator {
	return quote.NewCalculator(testutil.SampleCatalog(t), "retail")
}

func TestCalculator_Shipping(t *testing.T) {
	calc := newCalculator(t)

	result, err := calc.Compute(quote.ComputeRequest{
		Lines:           []quote.LineRequest{{Reference: testutil.Carrara, Quantity: qty(5)}},
		DestinationCity: "Bogotá",
	})
	require.NoError(t, err)

	assert.Equal(t, "5", result.EstimatedWeightKg.String())
	assert.Equal(t, "20000.00", result.ShippingCost.StringFixed(2))
	assert.Equal(t, "1250000.00", result.LinesTotal.StringFixed(2))
	assert.Equal(t, "1270000.00", result.Total.StringFixed(2))
	assert.Equal(t, valueobject.COP, result.Currency)
}

func TestCalculator_ShippingCityIsAccentInsensitive(t *testing.T) {
	calc := newCalculator(t)
	a, err := calc.Compute(quote.ComputeRequest{
		Lines:           []quote.LineRequest{{Reference: testutil.TravertinoXL, Quantity: qty(2)}},
		DestinationCity: "BOGOTA",
	})
	require.NoError(t, err)
	// 2 units at the 3 kg override
	assert.Equal(t, "22000.00", a.ShippingCost.StringFixed(2))
}

func TestCalculator_Deterministic(t *testing.T) {
	calc := newCalculator(t)
	req := quote.ComputeRequest{
		Lines: []quote.LineRequest{
			{Reference: testutil.OnixMiel, Quantity: qty(10)},
			{Reference: testutil.Carrara, Quantity: qty(10)},
			{Reference: testutil.TravertinoXL, Quantity: qty(3)},
		},
		DestinationCity: "Medellín",
		Supply: quote.SupplyOptions{
			Adhesive: true, AdhesiveReference: testutil.Pegante,
			Sealant: true, SealantReference: testutil.Sellador,
		},
	}

	first, err := calc.Compute(req)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := calc.Compute(req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCalculator_Adhesive(t *testing.T) {
	calc := newCalculator(t)

	result, err := calc.Compute(quote.ComputeRequest{
		Lines: []quote.LineRequest{
			{Reference: testutil.OnixMiel, Quantity: qty(10)},
			{Reference: testutil.Carrara, Quantity: qty(10)},
			{Reference: testutil.TravertinoXL, Quantity: qty(3)},
		},
		Supply: quote.SupplyOptions{Adhesive: true, AdhesiveReference: testutil.Pegante},
	})
	require.NoError(t, err)

	require.Len(t, result.Supplies, 3)
	// marble: 3.6 m2 / 4 → 1; translucent: 3.6 / 3 → 2; travertine: 3.6 / 5 → 1
	assert.Equal(t, "marble", result.Supplies[0].Group)
	assert.Equal(t, "1", result.Supplies[0].Units.String())
	assert.Equal(t, "translucent", result.Supplies[1].Group)
	assert.Equal(t, "2", result.Supplies[1].Units.String())
	assert.Equal(t, "travertine", result.Supplies[2].Group)
	assert.Equal(t, "1", result.Supplies[2].Units.String())
	assert.Equal(t, "180000.00", result.SuppliesTotal.StringFixed(2))
	assert.Equal(t, "10.8", result.Area.String())
}

func TestCalculator_Sealant(t *testing.T) {
	calc := newCalculator(t)
	req := quote.ComputeRequest{
		Lines:  []quote.LineRequest{{Reference: testutil.Carrara, Quantity: qty(50)}},
		Supply: quote.SupplyOptions{Sealant: true, SealantReference: testutil.Sellador},
	}

	t.Run("standard surface", func(t *testing.T) {
		result, err := calc.Compute(req)
		require.NoError(t, err)
		require.Len(t, result.Supplies, 1)
		assert.Equal(t, quote.SupplyKindSealant, result.Supplies[0].Kind)
		assert.Equal(t, "1", result.Supplies[0].Units.String())
	})

	t.Run("clay surface", func(t *testing.T) {
		clay := req
		clay.Supply.ClaySurface = true
		result, err := calc.Compute(clay)
		require.NoError(t, err)
		assert.Equal(t, "2", result.Supplies[0].Units.String())
		assert.Equal(t, "180000.00", result.SuppliesTotal.StringFixed(2))
	})
}

func TestCalculator_Errors(t *testing.T) {
	calc := newCalculator(t)

	tests := []struct {
		name string
		req  quote.ComputeRequest
		code string
	}{
		{
			name: "zero quantity",
			req:  quote.ComputeRequest{Lines: []quote.LineRequest{{Reference: testutil.Carrara, Quantity: decimal.Zero}}},
			code: shared.CodeInvalidQuantity,
		},
		{
			name: "unknown product",
			req:  quote.ComputeRequest{Lines: []quote.LineRequest{{Reference: "Nero Marquina", Quantity: qty(1)}}},
			code: shared.CodeUnknownReference,
		},
		{
			name: "unknown city",
			req:  quote.ComputeRequest{Lines: []quote.LineRequest{{Reference: testutil.Carrara, Quantity: qty(1)}}, DestinationCity: "Leticia"},
			code: shared.CodeUnknownShippingZone,
		},
		{
			name: "unmapped yield group",
			req: quote.ComputeRequest{
				Lines:  []quote.LineRequest{{Reference: testutil.Pegante, Quantity: qty(1)}, {Reference: testutil.Carrara, Quantity: qty(1)}},
				Supply: quote.SupplyOptions{Adhesive: true, AdhesiveReference: testutil.Sellador, Sealant: true, SealantReference: testutil.Pegante},
			},
			code: shared.CodeUnmappedYieldGroup,
		},
		{
			name: "line price in another currency",
			req: quote.ComputeRequest{Lines: []quote.LineRequest{{
				Reference: testutil.Carrara, Quantity: qty(1),
				UnitPrice: ptr(valueobject.MustNewMoney(decimal.NewFromInt(60), valueobject.USD)),
			}}},
			code: shared.CodeCurrencyMismatch,
		},
		{
			name: "catalog prices in another currency",
			req:  quote.ComputeRequest{Lines: []quote.LineRequest{{Reference: testutil.Carrara, Quantity: qty(1)}}, Currency: valueobject.USD},
			code: shared.CodeCurrencyMismatch,
		},
		{
			name: "profile disallows sealant",
			req: quote.ComputeRequest{
				Profile: "wholesale",
				Lines:   []quote.LineRequest{{Reference: testutil.Carrara, Quantity: qty(1)}},
				Supply:  quote.SupplyOptions{Sealant: true, SealantReference: testutil.Sellador},
			},
			code: shared.CodeInvalidInput,
		},
		{
			name: "unknown profile",
			req:  quote.ComputeRequest{Profile: "vip", Lines: []quote.LineRequest{{Reference: testutil.Carrara, Quantity: qty(1)}}},
			code: shared.CodeUnknownReference,
		},
		{
			name: "no lines",
			req:  quote.ComputeRequest{},
			code: shared.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Compute(tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, shared.ErrorCode(err))
		})
	}
}

func TestCalculator_PriceOverrideRounds(t *testing.T) {
	calc := newCalculator(t)
	override := valueobject.MustNewMoney(decimal.RequireFromString("100.005"), valueobject.COP)

	result, err := calc.Compute(quote.ComputeRequest{
		Lines: []quote.LineRequest{{Reference: testutil.Carrara, Quantity: qty(3), UnitPrice: &override}},
	})
	require.NoError(t, err)
	assert.Equal(t, "300.02", result.Lines[0].Subtotal.StringFixed(2))
	assert.Equal(t, "300.02", result.Total.StringFixed(2))
}

func ptr[T any](v T) *T { return &v }
