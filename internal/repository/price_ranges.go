package repository

import "math"

// PriceRange is one histogram bucket. The lower bound is inclusive only for the
// first bucket so that consecutive buckets never overlap and leave no gaps.
type PriceRange struct {
	Label        string
	Min          float64
	Max          float64
	MinInclusive bool
}

// PriceRanges are the fixed histogram buckets, in response order.
var PriceRanges = []PriceRange{
	{Label: "0-100", Min: 0, Max: 100, MinInclusive: true},
	{Label: "101-200", Min: 100, Max: 200},
	{Label: "201-300", Min: 200, Max: 300},
	{Label: "301-400", Min: 300, Max: 400},
	{Label: "401-500", Min: 400, Max: 500},
	{Label: "501-600", Min: 500, Max: 600},
	{Label: "601-700", Min: 600, Max: 700},
	{Label: "701-800", Min: 700, Max: 800},
	{Label: "801-900", Min: 800, Max: 900},
	{Label: "901-above", Min: 900, Max: math.Inf(1)},
}

// Bounded reports whether the range has a finite upper bound.
func (r PriceRange) Bounded() bool {
	return !math.IsInf(r.Max, 1)
}

// Contains reports whether price falls in the range.
func (r PriceRange) Contains(price float64) bool {
	if r.MinInclusive {
		if price < r.Min {
			return false
		}
	} else if price <= r.Min {
		return false
	}
	return !r.Bounded() || price <= r.Max
}
