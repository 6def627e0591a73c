package parser

import "math"

// Signals records which parts of a command were actually read from the text.
type Signals struct {
	Action   bool
	Product  bool
	Quantity bool
	Price    bool
}

// Score weighs action and product at 0.3 each and quantity and price at 0.2,
// rounded to two decimals and capped at 1.
func Score(s Signals) float64 {
	score := 0.0
	if s.Action {
		score += 0.3
	}
	if s.Product {
		score += 0.3
	}
	if s.Quantity {
		score += 0.2
	}
	if s.Price {
		score += 0.2
	}
	return math.Min(math.Round(score*100)/100, 1.0)
}
