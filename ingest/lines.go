/*
lines.go - Monthly sales report (CSV) reader

PURPOSE:
  Reads the ";"-delimited sales report into TransactionLines. Columns are
  addressed by header name (case and accents ignored), so extra report
  columns are simply skipped.

NORMALIZATION:
  - amounts: "$", "," removed, "(x)" is -x, empty is 0
  - dates:   "dd-mmm.-yyyy[ hh:mm:ss]" with Spanish month abbreviations
  - % Descuento: ceil(pct)/100, so "9.2" becomes 0.10
  - Precio Neto: grossed up to the pre-discount price, net / (1 - pct)

SEE ALSO:
  - parse.go: cell parsers
  - workbook.go: supplier master and rule table
*/
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/discount-reconciler/discount"
	"github.com/warp/discount-reconciler/generic"
)

// LinesTable names the sales report in SchemaErrors.
const LinesTable = "lines"

// Delimiter of the sales report.
const Delimiter = ';'

type lineColumn struct {
	name     string
	aliases  []string
	required bool
}

var (
	colGroup       = lineColumn{"Grupo", nil, true}
	colSubgroup    = lineColumn{"Subgrupo", nil, true}
	colCode        = lineColumn{"Código", nil, true}
	colDescription = lineColumn{"Descripción", nil, true}
	colWarehouse   = lineColumn{"Bodega", nil, false}
	colClientID    = lineColumn{"Id Cliente", nil, false}
	colClient      = lineColumn{"Cliente", nil, false}
	colDocType     = lineColumn{"Tipo", nil, false}
	colDocNumber   = lineColumn{"Número", nil, false}
	colDate        = lineColumn{"Fecha", []string{"fecha_factura"}, true}
	colQuantity    = lineColumn{"Cantidad", nil, true}
	colNetPrice    = lineColumn{"Precio Neto", nil, true}
	colTotalCost   = lineColumn{"Costo Total", nil, true}
	colDiscValue   = lineColumn{"Valor descuento", nil, true}
	colDiscPct     = lineColumn{"% Descuento", nil, true}
	colVendor      = lineColumn{"Vendedor", nil, false}
	colTaxID       = lineColumn{"NIT", nil, false}
	colAbbrev      = lineColumn{"Sigla", nil, false}
)

var lineColumns = []lineColumn{
	colGroup, colSubgroup, colCode, colDescription, colWarehouse, colClientID, colClient,
	colDocType, colDocNumber, colDate, colQuantity, colNetPrice, colTotalCost, colDiscValue,
	colDiscPct, colVendor, colTaxID, colAbbrev,
}

// LoadLines reads the sales report at path.
func LoadLines(path string) ([]discount.TransactionLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sales report: %w", err)
	}
	defer f.Close()
	return ReadLines(f)
}

// ReadLines parses a sales report. The first record is the header.
func ReadLines(r io.Reader) ([]discount.TransactionLine, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &generic.SchemaError{Table: LinesTable, Column: colGroup.name}
	}
	if err != nil {
		return nil, fmt.Errorf("read sales report header: %w", err)
	}

	hdr := newHeaderIndex(header)
	pos := make(map[string]int, len(lineColumns))
	for _, c := range lineColumns {
		i, ok := hdr.find(append([]string{c.name}, c.aliases...)...)
		if !ok && c.required {
			return nil, &generic.SchemaError{Table: LinesTable, Column: c.name}
		}
		pos[c.name] = i
	}

	var lines []discount.TransactionLine
	for rowNo := 2; ; rowNo++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sales report row %d: %w", rowNo, err)
		}
		if isBlank(record) {
			continue
		}

		line, err := parseLine(record, pos)
		if err != nil {
			return nil, fmt.Errorf("sales report row %d: %w", rowNo, err)
		}
		line.Seq = len(lines) + 1
		lines = append(lines, line)
	}
	return lines, nil
}

func parseLine(record []string, pos map[string]int) (discount.TransactionLine, error) {
	get := func(c lineColumn) string { return cell(record, pos[c.name]) }

	date, err := ParseReportDate(get(colDate))
	if err != nil {
		return discount.TransactionLine{}, err
	}

	amounts := make(map[string]decimal.Decimal, 5)
	for _, c := range []lineColumn{colQuantity, colNetPrice, colTotalCost, colDiscValue, colDiscPct} {
		v, err := ParseCurrency(get(c))
		if err != nil {
			return discount.TransactionLine{}, fmt.Errorf("%s: %w", c.name, err)
		}
		amounts[c.name] = v
	}

	pct := amounts[colDiscPct.name].Ceil().Div(generic.Hundred)
	net := amounts[colNetPrice.name]
	if keep := decimal.NewFromInt(1).Sub(pct); keep.IsPositive() {
		net = net.Div(keep)
	}

	return discount.TransactionLine{
		Supplier:      generic.SupplierID(get(colGroup)),
		Subgroup:      get(colSubgroup),
		Code:          generic.ProductCode(get(colCode)),
		Description:   get(colDescription),
		Warehouse:     get(colWarehouse),
		ClientID:      get(colClientID),
		Client:        get(colClient),
		DocType:       get(colDocType),
		DocNumber:     get(colDocNumber),
		Date:          date,
		Quantity:      amounts[colQuantity.name],
		NetPrice:      net,
		TotalCost:     amounts[colTotalCost.name],
		DiscountValue: amounts[colDiscValue.name],
		DiscountPct:   pct,
		Vendor:        get(colVendor),
		TaxID:         get(colTaxID),
		Abbreviation:  get(colAbbrev),
	}, nil
}

// ReportPeriod is the year and month of the first line.
func ReportPeriod(lines []discount.TransactionLine) (int, time.Month, error) {
	if len(lines) == 0 {
		return 0, 0, fmt.Errorf("sales report has no lines: %w", generic.ErrNotLoaded)
	}
	return lines[0].Date.Year(), lines[0].Date.Month(), nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}
