package fallback

import "math"

const (
	DefaultLowPriceRatio  = 0.10
	DefaultTotalTolerance = 0.15
	MinTotalTolerance     = 0.10
	MaxTotalTolerance     = 0.20
)

// SafePrice guards a price inferred from a message against two common
// mistakes: a number far below the listing price (a typo or a quantity read
// as a price) and the total for the whole quantity typed in place of the
// per-unit price.
//
// Values below lowRatio of listing are replaced by listing. Values within
// tolerance of listing*quantity are divided back into a per-unit price.
// Without a listing price the proposal is returned unchanged; a non-positive
// proposal stays absent.
func SafePrice(proposed, listing, quantity, tolerance, lowRatio float64) float64 {
	if proposed <= 0 || math.IsNaN(proposed) || math.IsInf(proposed, 0) {
		return 0
	}
	if listing <= 0 {
		return proposed
	}
	if lowRatio > 0 && proposed < listing*lowRatio {
		return listing
	}
	if quantity > 1 && tolerance > 0 {
		total := listing * quantity
		if math.Abs(proposed-total) <= total*tolerance {
			return math.Round(proposed/quantity*100) / 100
		}
	}
	return proposed
}
