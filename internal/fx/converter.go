// Package fx provides pure IDR↔USD conversion with a configurable fallback
// rate for rows lacking an explicit USD column.
package fx

// Currency identifies a price currency.
type Currency string

const (
	IDR Currency = "IDR"
	USD Currency = "USD"
)

// DefaultRate is the fallback exchange rate in IDR per USD, used when the
// source table carries no explicit USD value for a row.
const DefaultRate = 15000.0

// ToIDR converts amount in the given currency to IDR at rate. A non-positive
// rate falls back to DefaultRate. IDR amounts pass through unchanged.
func ToIDR(amount float64, currency Currency, rate float64) float64 {
	if currency != USD {
		return amount
	}
	if rate <= 0 {
		rate = DefaultRate
	}
	return amount * rate
}

// ToUSD converts an IDR amount to USD at rate. A non-positive rate falls
// back to DefaultRate.
func ToUSD(amountIDR float64, rate float64) float64 {
	if rate <= 0 {
		rate = DefaultRate
	}
	return amountIDR / rate
}
