// Package money renders integer-cent amounts. All balances in the system are
// integer cents; floats never touch money.
package money

import "fmt"

// FormatCents renders cents as a dollar string, e.g. 15050 as "$150.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
