package export

import (
	"github.com/warp/discount-reconciler/report"
	"github.com/xuri/excelize/v2"
)

type styles struct {
	header   int
	center   int
	left     int
	currency int
	percent  int
}

func newStyles(f *excelize.File) (styles, error) {
	font := func(bold bool) *excelize.Font {
		return &excelize.Font{Family: fontFamily, Size: fontSize, Bold: bold}
	}
	align := func(h string) *excelize.Alignment {
		return &excelize.Alignment{Horizontal: h, Vertical: "center"}
	}
	currency := currencyFormat

	defs := []*excelize.Style{
		{Font: font(true), Alignment: align("center")},
		{Font: font(false), Alignment: align("center")},
		{Font: font(false), Alignment: align("left")},
		{Font: font(false), Alignment: align("right"), CustomNumFmt: &currency},
		{Font: font(false), Alignment: align("center"), NumFmt: percentFormat},
	}
	ids := make([]int, len(defs))
	for i, d := range defs {
		id, err := f.NewStyle(d)
		if err != nil {
			return styles{}, err
		}
		ids[i] = id
	}
	return styles{header: ids[0], center: ids[1], left: ids[2], currency: ids[3], percent: ids[4]}, nil
}

func (s styles) forFormat(format report.ColumnFormat) int {
	switch format {
	case report.FormatLeft:
		return s.left
	case report.FormatCurrency:
		return s.currency
	case report.FormatPercent:
		return s.percent
	default:
		return s.center
	}
}
