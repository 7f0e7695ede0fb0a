package backtest

import (
	"fmt"

	"github.com/quantfold/optback/internal/util"
)

// Interval is one half-open bucket [Lo, Hi).
type Interval struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%g, %g)", iv.Lo, iv.Hi)
}

// valid reports whether the interval was actually assigned; a zero Interval
// means the value fell outside the bucket partition.
func (iv Interval) valid() bool {
	return iv.Lo != 0 || iv.Hi != 0
}

// dteBins partitions [0, maxEntryDTE) into half-open intervals of width
// dteInterval. Only full-width intervals are produced: when the range does
// not divide evenly the ragged tail is excluded and trades falling there are
// dropped from bucketed output.
func dteBins(dteInterval, maxEntryDTE int) []Interval {
	var bins []Interval
	for lo := 0; lo+dteInterval <= maxEntryDTE; lo += dteInterval {
		bins = append(bins, Interval{Lo: float64(lo), Hi: float64(lo + dteInterval)})
	}
	return bins
}

// otmBins partitions [-maxOTMPct, maxOTMPct) into half-open intervals of
// width otmPctInterval, edges rounded to 2 decimals to match the OTM%
// precision of the preprocessed chain.
func otmBins(otmPctInterval, maxOTMPct float64) []Interval {
	var bins []Interval
	for lo := -maxOTMPct; lo+otmPctInterval <= maxOTMPct+1e-9; lo += otmPctInterval {
		bins = append(bins, Interval{
			Lo: roundTo2(lo),
			Hi: roundTo2(lo + otmPctInterval),
		})
	}
	return bins
}

func roundTo2(v float64) float64 {
	return util.RoundToTick(v, 0.01)
}

// locate returns the bucket containing v, or a zero Interval when v falls
// outside the partition.
func locate(bins []Interval, v float64) Interval {
	for _, b := range bins {
		if v >= b.Lo && v < b.Hi {
			return b
		}
	}
	return Interval{}
}

// assignBins stamps each matched pair with its DTE and OTM% buckets. The
// composer joins on these ranges, so assignment has to happen before leg
// tables are built.
func assignBins(pairs []Pair, dte, otm []Interval) []Pair {
	out := make([]Pair, len(pairs))
	for i, p := range pairs {
		p.DTERange = locate(dte, float64(p.DTEEntry))
		p.OTMRange = locate(otm, p.OTMPct)
		out[i] = p
	}
	return out
}
