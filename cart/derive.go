package cart

import "github.com/shopspring/decimal"

// Total returns the sum of quantity × initial price over all line items.
// The value is exact; use FormatTotal for display.
func Total(s State) decimal.Decimal {
	total := decimal.Zero
	for _, li := range s.items {
		total = total.Add(li.InitialPrice.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	return total
}

// FormatTotal returns Total rounded to two decimal places.
func FormatTotal(s State) string {
	return Total(s).StringFixed(2)
}

// Count returns the number of units in the cart.
func Count(s State) int {
	n := 0
	for _, li := range s.items {
		n += li.Quantity
	}
	return n
}

// Header returns the cart heading shown above the line items.
func Header(s State) string {
	if s.Empty() {
		return "Your Cart is empty"
	}
	return "Your Cart"
}
