// Package signal provides entry signal filters: predicates over the
// underlying's daily price series that decide which quote dates are eligible
// for trade entry. Signals run on data derived from the chain itself, before
// the contract matcher, and can be combined with And and Or.
package signal

import (
	"math"
	"time"
)

// Bar is one daily observation of an underlying, extracted from the option
// chain's unique (symbol, quote date) pairs.
type Bar struct {
	Symbol string
	Date   time.Time
	Price  float64
}

// Func evaluates a price series and returns one eligibility flag per bar,
// aligned with the input slice. Bars must be grouped by symbol and sorted
// chronologically within each symbol.
type Func func(bars []Bar) []bool

// perSymbol applies fn to each symbol's contiguous run of bars and stitches
// the results back into one mask.
func perSymbol(bars []Bar, fn func(prices []float64) []bool) []bool {
	mask := make([]bool, len(bars))
	start := 0
	for i := 1; i <= len(bars); i++ {
		if i == len(bars) || bars[i].Symbol != bars[start].Symbol {
			prices := make([]float64, i-start)
			for j := start; j < i; j++ {
				prices[j-start] = bars[j].Price
			}
			sub := fn(prices)
			copy(mask[start:i], sub)
			start = i
		}
	}
	return mask
}

// rsi computes the Relative Strength Index with Wilder smoothing. The first
// period values are NaN while the averages warm up.
func rsi(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(prices) <= period {
		return out
	}
	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}
		if i >= period {
			if avgLoss == 0 {
				out[i] = 100
			} else {
				rs := avgGain / avgLoss
				out[i] = 100 - 100/(1+rs)
			}
		}
	}
	return out
}

// RSIBelow returns a signal that fires when RSI(period) is below threshold,
// the classic oversold condition.
func RSIBelow(period int, threshold float64) Func {
	return func(bars []Bar) []bool {
		return perSymbol(bars, func(prices []float64) []bool {
			vals := rsi(prices, period)
			mask := make([]bool, len(vals))
			for i, v := range vals {
				mask[i] = !math.IsNaN(v) && v < threshold
			}
			return mask
		})
	}
}

// RSIAbove returns a signal that fires when RSI(period) is above threshold.
func RSIAbove(period int, threshold float64) Func {
	return func(bars []Bar) []bool {
		return perSymbol(bars, func(prices []float64) []bool {
			vals := rsi(prices, period)
			mask := make([]bool, len(vals))
			for i, v := range vals {
				mask[i] = !math.IsNaN(v) && v > threshold
			}
			return mask
		})
	}
}

// sma computes a simple moving average; entries before the window fills are NaN.
func sma(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// SMABelow fires when the price is below its simple moving average.
func SMABelow(period int) Func {
	return func(bars []Bar) []bool {
		return perSymbol(bars, func(prices []float64) []bool {
			avg := sma(prices, period)
			mask := make([]bool, len(prices))
			for i := range prices {
				mask[i] = !math.IsNaN(avg[i]) && prices[i] < avg[i]
			}
			return mask
		})
	}
}

// SMAAbove fires when the price is above its simple moving average.
func SMAAbove(period int) Func {
	return func(bars []Bar) []bool {
		return perSymbol(bars, func(prices []float64) []bool {
			avg := sma(prices, period)
			mask := make([]bool, len(prices))
			for i := range prices {
				mask[i] = !math.IsNaN(avg[i]) && prices[i] > avg[i]
			}
			return mask
		})
	}
}

// DayOfWeek fires only on the given weekdays.
func DayOfWeek(days ...time.Weekday) Func {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return func(bars []Bar) []bool {
		mask := make([]bool, len(bars))
		for i, b := range bars {
			mask[i] = set[b.Date.Weekday()]
		}
		return mask
	}
}

// And combines signals; every one must fire for a date to be eligible.
func And(signals ...Func) Func {
	return func(bars []Bar) []bool {
		mask := make([]bool, len(bars))
		for i := range mask {
			mask[i] = true
		}
		for _, sig := range signals {
			sub := sig(bars)
			for i := range mask {
				mask[i] = mask[i] && sub[i]
			}
		}
		return mask
	}
}

// Or combines signals; at least one must fire.
func Or(signals ...Func) Func {
	return func(bars []Bar) []bool {
		mask := make([]bool, len(bars))
		for _, sig := range signals {
			sub := sig(bars)
			for i := range mask {
				mask[i] = mask[i] || sub[i]
			}
		}
		return mask
	}
}
