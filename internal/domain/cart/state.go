package cart

import (
	"github.com/shopspring/decimal"
)

// State is the cart as shown to the shopper.
// Subtotal, Savings and Total are always derived from Lines; build a State
// with NewState instead of setting them directly.
type State struct {
	Lines    []Line  `json:"lines"`
	Subtotal float64 `json:"subtotal"`
	Savings  float64 `json:"savings"`
	Total    float64 `json:"total"`
}

// NewState normalizes lines and computes totals
func NewState(lines []Line) State {
	normalized := Normalize(lines)
	subtotal, savings := computeTotals(normalized)
	return State{
		Lines:    normalized,
		Subtotal: subtotal.InexactFloat64(),
		Savings:  savings.InexactFloat64(),
		// Shipping and discounts would adjust total here.
		Total: subtotal.InexactFloat64(),
	}
}

// EmptyState returns a state with no lines
func EmptyState() State {
	return NewState(nil)
}

// IsEmpty returns true when the cart has no lines
func (s State) IsEmpty() bool {
	return len(s.Lines) == 0
}

// ItemCount returns the total quantity across all lines
func (s State) ItemCount() int {
	count := 0
	for _, line := range s.Lines {
		count += line.Quantity
	}
	return count
}

// Find returns the line with the given key
func (s State) Find(key string) (Line, bool) {
	for _, line := range s.Lines {
		if line.Key == key {
			return line, true
		}
	}
	return Line{}, false
}

// computeTotals returns subtotal = Σ unitPrice·qty and
// savings = Σ (max(originalPrice, unitPrice) − unitPrice)·qty.
func computeTotals(lines []Line) (decimal.Decimal, decimal.Decimal) {
	subtotal := decimal.Zero
	savings := decimal.Zero
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		unit := decimal.NewFromFloat(line.UnitPrice)
		subtotal = subtotal.Add(unit.Mul(qty))

		list := decimal.NewFromFloat(line.ListPrice())
		savings = savings.Add(list.Sub(unit).Mul(qty))
	}
	return subtotal, savings
}
