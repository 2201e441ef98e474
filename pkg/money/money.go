package money

import "fmt"

// All monetary values in the engine are carried as int64 centavos. Floating
// point only appears transiently inside rounding helpers.

// RoundHalfUp rounds a fractional centavo amount to the nearest whole
// centavo, ties away from zero.
func RoundHalfUp(cents float64) int64 {
	if cents >= 0 {
		return int64(cents + 0.5)
	}
	return int64(cents - 0.5)
}

// CommissionCents computes the commission owed on a price at the given
// percentage, rounded half-up to the smallest currency unit.
func CommissionCents(priceCents int64, percentage float64) int64 {
	return RoundHalfUp(float64(priceCents) * percentage / 100)
}

// FormatBRL renders centavos as a human-readable amount, for logs and
// audit records.
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$%d.%02d", sign, cents/100, cents%100)
}
