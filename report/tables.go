package report

import (
	"sort"

	"github.com/warp/discount-reconciler/discount"
)

// =============================================================================
// RESULT TABLES - Line-level output handed to exporters
// =============================================================================

// TableKind names the two line-level tables of a supplier.
type TableKind string

const (
	TableRotation   TableKind = "Rotación"
	TableFairPeriod TableKind = "Teleferia"
)

// ColumnFormat is a formatting hint for exporters; the engine never styles cells.
type ColumnFormat string

const (
	FormatCenter   ColumnFormat = "center"
	FormatLeft     ColumnFormat = "left"
	FormatCurrency ColumnFormat = "currency"
	FormatPercent  ColumnFormat = "percent"
)

type Column struct {
	Name   string
	Format ColumnFormat
	Total  bool // summed in a totals row
}

// Table is one line-level result table.
type Table struct {
	Kind          TableKind
	WithTotalCost bool // false for NetPrice suppliers
	Lines         []discount.PricedLine
}

func (t Table) showsDiscount() bool { return t.Kind == TableFairPeriod }

// Columns returns the column set of the table, in export order.
func (t Table) Columns() []Column {
	cols := []Column{
		{Name: "Grupo", Format: FormatCenter},
		{Name: "Subgrupo", Format: FormatCenter},
		{Name: "Código", Format: FormatCenter},
		{Name: "Descripción", Format: FormatLeft},
		{Name: "Bodega", Format: FormatCenter},
		{Name: "Id Cliente", Format: FormatCenter},
		{Name: "Cliente", Format: FormatLeft},
		{Name: "Tipo", Format: FormatCenter},
		{Name: "Número", Format: FormatCenter},
		{Name: "Cantidad", Format: FormatCenter, Total: true},
		{Name: "Precio Neto", Format: FormatCurrency, Total: true},
	}
	if t.WithTotalCost {
		cols = append(cols, Column{Name: "Costo Total", Format: FormatCurrency, Total: true})
	}
	if t.showsDiscount() {
		cols = append(cols,
			Column{Name: "% Descuento", Format: FormatPercent},
			Column{Name: "Nota", Format: FormatCurrency, Total: true},
		)
	}
	return append(cols,
		Column{Name: "Vendedor", Format: FormatLeft},
		Column{Name: "NIT", Format: FormatLeft},
		Column{Name: "Sigla", Format: FormatLeft},
	)
}

// Row renders line i as cell values matching Columns().
func (t Table) Row(i int) []any {
	p := t.Lines[i]
	row := []any{
		string(p.Supplier),
		p.Subgroup,
		string(p.Code),
		p.Description,
		p.Warehouse,
		p.ClientID,
		p.Client,
		p.DocType,
		p.DocNumber,
		p.Quantity.InexactFloat64(),
		p.NetPrice.InexactFloat64(),
	}
	if t.WithTotalCost {
		row = append(row, p.TotalCost.InexactFloat64())
	}
	if t.showsDiscount() {
		row = append(row, p.Percent.InexactFloat64(), p.Note.InexactFloat64())
	}
	return append(row, p.Vendor, p.TaxID, p.Abbreviation)
}

// sortByDescription orders lines by description; ties keep their order.
func (t *Table) sortByDescription() {
	sort.SliceStable(t.Lines, func(i, j int) bool {
		return t.Lines[i].Description < t.Lines[j].Description
	})
}

func newTable(kind TableKind, mode discount.PricingMode, lines []discount.PricedLine) Table {
	t := Table{
		Kind:          kind,
		WithTotalCost: mode != discount.NetPrice,
		Lines:         append([]discount.PricedLine(nil), lines...),
	}
	t.sortByDescription()
	return t
}

// mergeTables concatenates tables of the same kind and re-sorts them.
func mergeTables(kind TableKind, tables ...Table) Table {
	merged := Table{Kind: kind}
	for _, t := range tables {
		merged.WithTotalCost = merged.WithTotalCost || t.WithTotalCost
		merged.Lines = append(merged.Lines, t.Lines...)
	}
	merged.sortByDescription()
	return merged
}
