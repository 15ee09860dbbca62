package domain

import "github.com/shopspring/decimal"

// MinorUnits is the number of decimal places money is kept at.
const MinorUnits int32 = 2

var hundred = decimal.NewFromInt(100)

// ComputeTotal sums unit price times quantity over all items.
func ComputeTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(MinorUnits)
}

// DiscountedTotal returns total - total*percent/100 rounded to minor units.
func DiscountedTotal(total, percent decimal.Decimal) decimal.Decimal {
	discount := total.Mul(percent).Div(hundred)
	return total.Sub(discount).Round(MinorUnits)
}

// ToMinorUnits converts an amount to the provider's integer minor units (cents).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(MinorUnits).Round(0).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -MinorUnits)
}
