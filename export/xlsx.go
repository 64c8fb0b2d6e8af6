/*
xlsx.go - Excel exporter for reconciliation reports

PURPOSE:
  Implements report.Sink by writing one workbook per supplier (sheets
  "Rotación" and, when applicable, "Teleferia") and the cross-supplier
  "Resumen" workbook. Formatting follows the column hints of report.Table.

FILES:
  base pass:      <dir>/<supplier>_prev.xlsx
  allowance pass: <dir>/<supplier>.xlsx and <dir>/Resumen.xlsx

LAYOUT:
  Arial 10, bold centered header, 18pt rows, gridlines hidden, each table
  registered as an Excel table with a SUM totals row below it.
*/
package export

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/warp/discount-reconciler/generic"
	"github.com/warp/discount-reconciler/logging"
	"github.com/warp/discount-reconciler/report"
	"github.com/xuri/excelize/v2"
)

const (
	SummaryFile  = "Resumen.xlsx"
	SummarySheet = "Resumen"

	rowHeight      = 18
	fontFamily     = "Arial"
	fontSize       = 10
	currencyFormat = "[$$-409] #,##0.00"
	percentFormat  = 10 // built-in "0.00%"
	tableStyle     = "TableStyleMedium2"
	defaultSheet   = "Sheet1"
	maxColWidth    = 255 // excelize upper bound
)

// XLSXWriter writes reports under Dir. It is safe for sequential use only,
// which is how the Reconciler drives it.
type XLSXWriter struct {
	Dir    string
	Logger *logrus.Logger
}

func NewXLSXWriter(dir string, logger *logrus.Logger) *XLSXWriter {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &XLSXWriter{Dir: dir, Logger: logger}
}

// SupplierFile returns the workbook path of a supplier for a run mode.
func (w *XLSXWriter) SupplierFile(id generic.SupplierID, mode generic.RunMode) string {
	name := safeFileName(string(id))
	if mode == generic.RunWithAllowance {
		return filepath.Join(w.Dir, name+".xlsx")
	}
	return filepath.Join(w.Dir, name+"_prev.xlsx")
}

// WriteSupplier writes the supplier workbook.
func (w *XLSXWriter) WriteSupplier(ctx context.Context, rep report.SupplierReport, mode generic.RunMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tables := []report.Table{rep.Rotation}
	if rep.IncludeFairPeriod {
		tables = append(tables, rep.FairPeriod)
	}

	f := excelize.NewFile()
	defer f.Close()
	st, err := newStyles(f)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if err := writeTable(f, st, t); err != nil {
			return fmt.Errorf("write %s sheet: %w", t.Kind, err)
		}
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return err
	}

	path := w.SupplierFile(rep.Supplier, mode)
	if err := w.save(f, path); err != nil {
		return err
	}
	w.Logger.WithFields(logrus.Fields{"supplier": rep.Supplier, "file": path}).Info("supplier report written")
	return nil
}

// WriteSummary writes Resumen.xlsx.
func (w *XLSXWriter) WriteSummary(ctx context.Context, rows []generic.SummaryRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeGrid(f, st, SummarySheet, summaryColumns, summaryCells(rows)); err != nil {
		return fmt.Errorf("write summary sheet: %w", err)
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return err
	}

	path := filepath.Join(w.Dir, SummaryFile)
	if err := w.save(f, path); err != nil {
		return err
	}
	w.Logger.WithFields(logrus.Fields{"suppliers": len(rows), "file": path}).Info("summary written")
	return nil
}

func (w *XLSXWriter) save(f *excelize.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// SHEETS
// =============================================================================

var summaryColumns = []report.Column{
	{Name: "Proveedor", Format: report.FormatLeft},
	{Name: "Descuento sistema", Format: report.FormatCurrency, Total: true},
	{Name: "Descuento feria", Format: report.FormatCurrency, Total: true},
	{Name: "Diferencia feria $", Format: report.FormatCurrency, Total: true},
	{Name: "Descuento real", Format: report.FormatCurrency, Total: true},
	{Name: "Diferencia real $", Format: report.FormatCurrency, Total: true},
	{Name: "Diferencia real %", Format: report.FormatPercent},
}

func summaryCells(rows []generic.SummaryRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			string(r.Supplier),
			r.Reported.InexactFloat64(),
			r.Feria.InexactFloat64(),
			r.FeriaDiff.InexactFloat64(),
			r.Real.InexactFloat64(),
			r.RealDiff.InexactFloat64(),
			r.RealDiffPct.InexactFloat64(),
		}
	}
	return out
}

func writeTable(f *excelize.File, st styles, t report.Table) error {
	cells := make([][]any, len(t.Lines))
	for i := range t.Lines {
		cells[i] = t.Row(i)
	}
	return writeGrid(f, st, string(t.Kind), t.Columns(), cells)
}

// writeGrid writes header, body and a totals row, then styles and
// registers the header+body range as an Excel table.
func writeGrid(f *excelize.File, st styles, sheet string, cols []report.Column, cells [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for r, row := range cells {
		ref, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, ref, &row); err != nil {
			return err
		}
	}

	lastRow := len(cells) + 1
	totalsRow := lastRow + 1
	for c, col := range cols {
		name, _ := excelize.ColumnNumberToName(c + 1)
		if err := f.SetCellStyle(sheet, name+"2", fmt.Sprintf("%s%d", name, totalsRow), st.forFormat(col.Format)); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, columnWidth(col.Name, cells, c)); err != nil {
			return err
		}
		if col.Total && len(cells) > 0 {
			formula := fmt.Sprintf("SUM(%s2:%s%d)", name, name, lastRow)
			if err := f.SetCellFormula(sheet, fmt.Sprintf("%s%d", name, totalsRow), formula); err != nil {
				return err
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(cols))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", st.header); err != nil {
		return err
	}
	for r := 1; r <= totalsRow; r++ {
		if err := f.SetRowHeight(sheet, r, rowHeight); err != nil {
			return err
		}
	}

	if len(cells) > 0 {
		if err := f.AddTable(sheet, &excelize.Table{
			Range:     fmt.Sprintf("A1:%s%d", lastCol, lastRow),
			Name:      tableName(sheet),
			StyleName: tableStyle,
		}); err != nil {
			return err
		}
	}

	showGrid := false
	return f.SetSheetView(sheet, 0, &excelize.ViewOptions{ShowGridLines: &showGrid})
}

// columnWidth is the longest rendered value (or header) plus padding,
// capped at maxColWidth.
func columnWidth(header string, cells [][]any, col int) float64 {
	width := utf8.RuneCountInString(header)
	for _, row := range cells {
		if col < len(row) {
			if n := utf8.RuneCountInString(fmt.Sprint(row[col])); n > width {
				width = n
			}
		}
	}
	return math.Min(float64(width+5), maxColWidth)
}

// tableName derives a valid Excel table name from a sheet name.
func tableName(sheet string) string {
	var b strings.Builder
	b.WriteString("T_")
	for _, r := range sheet {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func safeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
