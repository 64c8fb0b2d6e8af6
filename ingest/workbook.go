package ingest

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/warp/discount-reconciler/discount"
	"github.com/warp/discount-reconciler/generic"
	"github.com/xuri/excelize/v2"
)

// Sheet and column names of the supplier workbook.
const (
	SheetBase      = "Base"
	SheetDiscounts = "Descuentos"

	ColSupplier    = "Proveedor"
	ColBaseMode    = "Base descuento"
	ColCode        = "Codigo"
	ColDescription = "Descripción"
	ColRealPct     = "% Desc real"
	ColDates       = "Fecha"
)

// blanketCode is how the workbook marks a rule for every product.
const blanketCode = "0"

// LoadWorkbook reads the supplier workbook at path.
func LoadWorkbook(path string) ([]discount.SupplierRecord, []discount.DiscountRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open supplier workbook: %w", err)
	}
	defer f.Close()
	return ReadWorkbook(f)
}

// ReadWorkbook parses the Base sheet into the supplier master and the
// Descuentos sheet into the rule table. Rules without dates or percent
// are skipped.
func ReadWorkbook(r io.Reader) ([]discount.SupplierRecord, []discount.DiscountRule, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open supplier workbook: %w", err)
	}
	defer f.Close()

	suppliers, err := readSuppliers(f)
	if err != nil {
		return nil, nil, err
	}
	rules, err := readRules(f)
	if err != nil {
		return nil, nil, err
	}
	return suppliers, rules, nil
}

func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, &generic.SchemaError{Table: sheet}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &generic.SchemaError{Table: sheet, Column: ColSupplier}
	}
	return rows, nil
}

func requireColumns(sheet string, hdr headerIndex, names ...string) (map[string]int, error) {
	pos := make(map[string]int, len(names))
	for _, n := range names {
		i, ok := hdr.find(n)
		if !ok {
			return nil, &generic.SchemaError{Table: sheet, Column: n}
		}
		pos[n] = i
	}
	return pos, nil
}

func readSuppliers(f *excelize.File) ([]discount.SupplierRecord, error) {
	rows, err := sheetRows(f, SheetBase)
	if err != nil {
		return nil, err
	}
	pos, err := requireColumns(SheetBase, newHeaderIndex(rows[0]), ColSupplier, ColBaseMode)
	if err != nil {
		return nil, err
	}

	var suppliers []discount.SupplierRecord
	for _, row := range rows[1:] {
		id := cell(row, pos[ColSupplier])
		if id == "" {
			continue
		}
		suppliers = append(suppliers, discount.SupplierRecord{
			ID:   generic.SupplierID(id),
			Mode: pricingMode(cell(row, pos[ColBaseMode])),
		})
	}
	return suppliers, nil
}

// pricingMode maps the "Base descuento" flag: 1 is net price, anything else
// total cost.
func pricingMode(flag string) discount.PricingMode {
	if v, err := decimal.NewFromString(flag); err == nil && v.Equal(decimal.NewFromInt(1)) {
		return discount.NetPrice
	}
	return discount.TotalCost
}

func readRules(f *excelize.File) ([]discount.DiscountRule, error) {
	rows, err := sheetRows(f, SheetDiscounts)
	if err != nil {
		return nil, err
	}
	hdr := newHeaderIndex(rows[0])
	pos, err := requireColumns(SheetDiscounts, hdr, ColSupplier, ColCode, ColRealPct, ColDates)
	if err != nil {
		return nil, err
	}
	descPos, _ := hdr.find(ColDescription)

	var rules []discount.DiscountRule
	for rowNo, row := range rows[1:] {
		supplier := cell(row, pos[ColSupplier])
		descriptor := cell(row, pos[ColDates])
		pctText := cell(row, pos[ColRealPct])
		if supplier == "" || descriptor == "" || pctText == "" {
			continue
		}
		pct, err := parsePercent(pctText)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %s: %w", SheetDiscounts, rowNo+2, ColRealPct, err)
		}

		code := generic.ProductCode(cell(row, pos[ColCode]))
		if code == blanketCode {
			code = generic.AllProducts
		}
		rules = append(rules, discount.DiscountRule{
			Supplier:    generic.SupplierID(supplier),
			Code:        code,
			Description: cell(row, descPos),
			Percent:     pct,
			Descriptor:  descriptor,
		})
	}
	return rules, nil
}
