package cli

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var vndPrinter = message.NewPrinter(language.Vietnamese)

// FormatVND renders an amount as whole đồng with Vietnamese digit grouping,
// e.g. 1.250.000 ₫
func FormatVND(amount float64) string {
	return vndPrinter.Sprintf("%d ₫", int64(math.Round(amount)))
}
