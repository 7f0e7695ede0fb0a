// Package util provides common utility functions for price calculations.
package util

import "math"

// snapEps absorbs float division noise so exact tick multiples survive
// Floor/Ceil unchanged (1.25/0.05 is not quite 25 in float64).
const snapEps = 1e-12

func snap(q float64) float64 {
	if r := math.Round(q); math.Abs(q-r) < snapEps {
		return r
	}
	return q
}

func normTick(tick float64) float64 {
	return math.Abs(tick)
}

// RoundToTick rounds x to the nearest tick increment, ties away from zero.
// For example, with tick=0.01, 1.2345 becomes 1.23 and 1.235 becomes 1.24.
// A zero tick returns x unchanged.
func RoundToTick(x, tick float64) float64 {
	tick = normTick(tick)
	if tick == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.Round(x/tick) * tick
}

// FloorToTick rounds x down to a tick multiple.
func FloorToTick(x, tick float64) float64 {
	tick = normTick(tick)
	if tick == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.Floor(snap(x/tick)) * tick
}

// CeilToTick rounds x up to a tick multiple.
func CeilToTick(x, tick float64) float64 {
	tick = normTick(tick)
	if tick == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.Ceil(snap(x/tick)) * tick
}
