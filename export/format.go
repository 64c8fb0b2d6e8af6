package export

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders an amount the way the workbooks display it,
// e.g. "$1,234.50" and "-$20.00".
func FormatCurrency(v decimal.Decimal) string {
	f := v.Round(2).Abs().InexactFloat64()
	s := printer.Sprintf("$%.2f", f)
	if v.Round(2).IsNegative() {
		return "-" + s
	}
	return s
}

// FormatPercent renders a fraction as a percentage, e.g. 0.125 -> "12.50%".
func FormatPercent(v decimal.Decimal) string {
	return printer.Sprintf("%.2f%%", v.Mul(decimal.NewFromInt(100)).InexactFloat64())
}
