// Package stats provides the descriptive statistics and risk metrics used to
// summarize backtested trade returns.
package stats

import (
	"math"
	"sort"
)

// Summary holds the descriptive statistics of one bucket of returns.
// All fields except Count are NaN when undefined: Mean through Max need at
// least one observation, Std needs two.
type Summary struct {
	Count        int     `json:"count"`
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	Min          float64 `json:"min"`
	P25          float64 `json:"p25"`
	P50          float64 `json:"p50"`
	P75          float64 `json:"p75"`
	Max          float64 `json:"max"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
}

// Undefined reports whether every non-count statistic is NaN, i.e. the
// bucket held no usable observations.
func (s Summary) Undefined() bool {
	return s.Count == 0
}

// Describe computes a Summary over values, skipping NaN entries. Count is
// the number of non-NaN observations.
func Describe(values []float64) Summary {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	s := Summary{
		Count: len(clean),
		Mean:  math.NaN(), Std: math.NaN(),
		Min: math.NaN(), P25: math.NaN(), P50: math.NaN(), P75: math.NaN(),
		Max: math.NaN(), WinRate: math.NaN(), ProfitFactor: math.NaN(),
	}
	if len(clean) == 0 {
		return s
	}
	sort.Float64s(clean)

	var sum, grossProfit, grossLoss float64
	wins := 0
	for _, v := range clean {
		sum += v
		if v > 0 {
			wins++
			grossProfit += v
		} else if v < 0 {
			grossLoss += -v
		}
	}
	s.Mean = sum / float64(len(clean))
	s.Min = clean[0]
	s.Max = clean[len(clean)-1]
	s.P25 = percentileSorted(clean, 0.25)
	s.P50 = percentileSorted(clean, 0.50)
	s.P75 = percentileSorted(clean, 0.75)
	s.WinRate = float64(wins) / float64(len(clean))
	if grossLoss > 0 {
		s.ProfitFactor = grossProfit / grossLoss
	}

	if len(clean) >= 2 {
		var ss float64
		for _, v := range clean {
			d := v - s.Mean
			ss += d * d
		}
		s.Std = math.Sqrt(ss / float64(len(clean)-1))
	}
	return s
}

// percentileSorted returns the p-quantile of a sorted slice using linear
// interpolation between closest ranks.
func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// tradingDays is the default annualisation factor.
const tradingDays = 252

// SharpeRatio returns the annualised Sharpe ratio of a returns series, or 0
// when there are fewer than two observations or the deviation is zero.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	dailyRF := riskFreeRate / tradingDays
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - dailyRF
	}
	d := Describe(excess)
	if math.IsNaN(d.Std) || d.Std < 1e-12 {
		return 0
	}
	return d.Mean / d.Std * math.Sqrt(tradingDays)
}

// SortinoRatio returns the annualised Sortino ratio, penalising only
// downside deviation. More appropriate than Sharpe for the asymmetric
// payoff profiles option strategies produce.
func SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	dailyRF := riskFreeRate / tradingDays
	var sum, downSq float64
	nDown := 0
	for _, r := range returns {
		e := r - dailyRF
		sum += e
		if e < 0 {
			downSq += e * e
			nDown++
		}
	}
	if nDown == 0 {
		return 0
	}
	downsideStd := math.Sqrt(downSq / float64(len(returns)))
	if downsideStd == 0 {
		return 0
	}
	mean := sum / float64(len(returns))
	return mean / downsideStd * math.Sqrt(tradingDays)
}

// MaxDrawdown returns the maximum peak-to-trough drawdown of an equity curve
// as a negative fraction, or 0 for an empty or monotonically rising curve.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	worst := 0.0
	peak := equity[0]
	for _, v := range equity[1:] {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (v - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}
