package accounting

import (
	"github.com/shopspring/decimal"
)

// Tolerance is the fixed comparison tolerance for monetary balances. Sums of
// linked credits routinely differ from invoice totals by sub-cent rounding
// noise; anything within this band counts as equal.
var Tolerance = decimal.NewFromFloat(0.01)

// hundred is used for percentage math.
var hundred = decimal.NewFromInt(100)

// RoundMoney normalizes an amount to 2 decimal places, half away from zero.
// This is used on every monetary value emitted to the tax authority.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// AvailableBalance is the invoice headroom left for credits: total minus the
// sum of linked credit notes, floored at zero. Computed on read, never stored.
func AvailableBalance(invoiceTotal, totalCredits decimal.Decimal) decimal.Decimal {
	available := invoiceTotal.Sub(totalCredits)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// IsFullyCredited reports whether the remaining headroom is within tolerance
// of zero.
func IsFullyCredited(invoiceTotal, totalCredits decimal.Decimal) bool {
	return AvailableBalance(invoiceTotal, totalCredits).LessThanOrEqual(Tolerance)
}

// UtilizationPct is the percentage of the invoice total consumed by credits.
// A zero-total invoice yields 0, not a division error.
func UtilizationPct(invoiceTotal, totalCredits decimal.Decimal) decimal.Decimal {
	if invoiceTotal.IsZero() {
		return decimal.Zero
	}
	return totalCredits.Div(invoiceTotal).Mul(hundred).Round(2)
}

// ExceedsAvailable reports whether amount is more than the available balance
// by more than the tolerance, along with the shortfall when it is.
func ExceedsAvailable(amount, available decimal.Decimal) (bool, decimal.Decimal) {
	if amount.Sub(available).GreaterThan(Tolerance) {
		return true, RoundMoney(amount.Sub(available))
	}
	return false, decimal.Zero
}
