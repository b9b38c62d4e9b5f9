package report

import (
	"bytes"
	"testing"

	"github.com/marmoleria/backend/internal/domain/sales"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return rows
}

func TestXLSXExporter_WriteSeries(t *testing.T) {
	points := []sales.SeriesPoint{
		{Period: "2026-01", Amount: decimal.NewFromInt(1000000), Currency: "COP"},
		{Period: "2026-02", Amount: decimal.Zero, Currency: "COP"},
		{Period: "2026-03", Amount: decimal.RequireFromString("250000.50"), Currency: "COP"},
	}

	var buf bytes.Buffer
	require.NoError(t, NewXLSXExporter().WriteSeries(&buf, "Laura", points))

	rows := readRows(t, buf.Bytes(), "Ventas")
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"Asesor", "Laura"}, rows[0])
	assert.Equal(t, []string{"Periodo", "Monto", "Moneda"}, rows[2])
	assert.Equal(t, "2026-01", rows[3][0])
	assert.Equal(t, "Total", rows[6][0])
	assert.Equal(t, "COP", rows[6][2])
}

func TestXLSXExporter_WriteStock(t *testing.T) {
	balances := []stock.SourceBalance{
		{
			Key:      stock.WarehouseKey,
			Eligible: true,
			Holdings: map[string]decimal.Decimal{"Travertino XL": decimal.NewFromInt(4), "Carrara": decimal.NewFromInt(10)},
		},
		{
			Key:      stock.ContainerKey("MSCU0000001"),
			Status:   stock.ContainerStatusInTransit,
			Holdings: map[string]decimal.Decimal{"Carrara": decimal.NewFromInt(30)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewXLSXExporter().WriteStock(&buf, balances))

	rows := readRows(t, buf.Bytes(), "Inventario")
	require.Len(t, rows, 4)
	assert.Equal(t, "Referencia", rows[0][3])
	assert.Equal(t, []string{"WAREHOUSE", "main", "", "Carrara", "10", "Sí"}, rows[1])
	assert.Equal(t, "Travertino XL", rows[2][3])
	assert.Equal(t, []string{"CONTAINER", "MSCU0000001", "IN_TRANSIT", "Carrara", "30", "No"}, rows[3])
}
