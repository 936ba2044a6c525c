package cost

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Format renders an amount with grouped thousands, e.g. "EUR 12,500".
func Format(amount float64, currency string) string {
	return printer.Sprintf("%s %.0f", currency, amount)
}
