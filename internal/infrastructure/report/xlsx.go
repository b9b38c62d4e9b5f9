// Package report renders sales series and stock balances as XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/marmoleria/backend/internal/domain/sales"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// XLSXExporter writes workbooks with excelize
type XLSXExporter struct{}

// NewXLSXExporter creates an exporter
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// WriteSeries writes one row per month plus a total row
func (e *XLSXExporter) WriteSeries(w io.Writer, advisor string, points []sales.SeriesPoint) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Ventas"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A1", "Asesor"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "B1", advisor); err != nil {
		return err
	}

	header := []any{"Periodo", "Monto", "Moneda"}
	if err := f.SetSheetRow(sheet, "A3", &header); err != nil {
		return err
	}

	total := decimal.Zero
	row := 4
	for _, p := range points {
		total = total.Add(p.Amount)
		if err := setRow(f, sheet, row, p.Period, p.Amount.InexactFloat64(), p.Currency); err != nil {
			return err
		}
		row++
	}
	currency := ""
	if len(points) > 0 {
		currency = points[0].Currency
	}
	if err := setRow(f, sheet, row, "Total", total.InexactFloat64(), currency); err != nil {
		return err
	}

	if err := e.styleTable(f, sheet, 3, row); err != nil {
		return err
	}
	return write(f, w)
}

// WriteStock writes the source balances of the ledger snapshot
func (e *XLSXExporter) WriteStock(w io.Writer, balances []stock.SourceBalance) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Inventario"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	header := []any{"Tipo", "Origen", "Estado", "Referencia", "Cantidad", "Disponible"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	row := 2
	for _, b := range balances {
		status := ""
		if b.Status != "" {
			status = b.Status.String()
		}
		available := "No"
		if b.Eligible {
			available = "Sí"
		}
		refs := make([]string, 0, len(b.Holdings))
		for ref := range b.Holdings {
			refs = append(refs, ref)
		}
		sort.Strings(refs)
		for _, ref := range refs {
			if err := setRow(f, sheet, row,
				string(b.Key.Type), b.Key.ID, status, ref, b.Holdings[ref].InexactFloat64(), available,
			); err != nil {
				return err
			}
			row++
		}
	}

	if err := e.styleTable(f, sheet, 1, row-1); err != nil {
		return err
	}
	return write(f, w)
}

func (e *XLSXExporter) styleTable(f *excelize.File, sheet string, headerRow, lastRow int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, headerRow, headerRow, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "F", 16); err != nil {
		return err
	}
	if lastRow > headerRow {
		numFmt := "#,##0.00"
		amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		if err != nil {
			return err
		}
		col := "B"
		if sheet == "Inventario" {
			col = "E"
		}
		from := fmt.Sprintf("%s%d", col, headerRow+1)
		to := fmt.Sprintf("%s%d", col, lastRow)
		if err := f.SetCellStyle(sheet, from, to, amount); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func write(f *excelize.File, w io.Writer) error {
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
