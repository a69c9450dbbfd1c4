package discount

import (
	"github.com/shopspring/decimal"

	"github.com/kupilikula/rocketshop-market-backend/internal/pricing"
)

// State is the per-line working record threaded through the passes. Passes
// receive a State and return a new one; the input is never modified.
type State struct {
	lines []pricing.LineDiscountState
}

func NewState(lines []pricing.CartLine) State {
	out := make([]pricing.LineDiscountState, len(lines))
	for i, line := range lines {
		out[i] = pricing.NewLineState(line)
	}
	return State{lines: out}
}

// Lines returns a copy of the line states.
func (s State) Lines() []pricing.LineDiscountState {
	out := make([]pricing.LineDiscountState, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line returns the state at index i.
func (s State) Line(i int) pricing.LineDiscountState {
	return s.lines[i]
}

func (s State) clone() State {
	return State{lines: s.Lines()}
}

// AccumulatedTotal sums every line's discount.
func (s State) AccumulatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.DiscountAccumulated)
	}
	return total
}
