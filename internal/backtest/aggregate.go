package backtest

import (
	"fmt"
	"strings"

	"github.com/quantfold/optback/internal/stats"
)

// BucketRow is one row of bucketed output: a combination of DTE and OTM%
// ranges with the descriptive statistics of every trade that fell into it.
// Same-expiration shapes carry one DTE range; calendars carry one per leg.
// OTM ranges are per relevant leg, or a single shared range when all legs
// sit at the same strike.
type BucketRow struct {
	DTERanges []Interval    `json:"dte_ranges"`
	OTMRanges []Interval    `json:"otm_ranges"`
	Stats     stats.Summary `json:"stats"`
}

// bucketDims returns the DTE and OTM dimensions of a strategy shape.
func bucketDims(desc descriptor) (dteDims, otmDims int) {
	dteDims = 1
	if desc.calendar {
		dteDims = 2
	}
	otmDims = 1
	if desc.otmPerLeg {
		otmDims = len(desc.legs)
	}
	return
}

// tradeBuckets extracts a trade's bucket combination in layout order.
func tradeBuckets(t Trade, desc descriptor) (dte, otm []Interval) {
	if desc.calendar {
		dte = []Interval{t.Legs[0].DTERange, t.Legs[1].DTERange}
	} else {
		dte = []Interval{t.Legs[0].DTERange}
	}
	if desc.otmPerLeg {
		otm = make([]Interval, len(t.Legs))
		for i, l := range t.Legs {
			otm[i] = l.OTMRange
		}
	} else {
		otm = []Interval{t.Legs[0].OTMRange}
	}
	return
}

func comboKey(dte, otm []Interval) string {
	var b strings.Builder
	for _, iv := range dte {
		fmt.Fprintf(&b, "d%g:%g|", iv.Lo, iv.Hi)
	}
	for _, iv := range otm {
		fmt.Fprintf(&b, "o%g:%g|", iv.Lo, iv.Hi)
	}
	return b.String()
}

// aggregate groups trades by bucket combination and summarizes pct_change
// per group. With DropNaN unset the full bucket grid is emitted, including
// count-zero rows: an empty-but-present bucket is meaningful output. With
// DropNaN set, rows whose every non-count statistic is undefined are
// dropped.
func aggregate(trades []Trade, desc descriptor, cfg Config, dteB, otmB []Interval) []BucketRow {
	observed := make(map[string][]float64)
	for _, t := range trades {
		dte, otm := tradeBuckets(t, desc)
		observed[comboKey(dte, otm)] = append(observed[comboKey(dte, otm)], t.PctChange)
	}

	dteDims, otmDims := bucketDims(desc)
	var rows []BucketRow
	walkGrid(dteB, otmB, dteDims, otmDims, func(dte, otm []Interval) {
		summary := stats.Describe(observed[comboKey(dte, otm)])
		if cfg.DropNaN && summary.Undefined() {
			return
		}
		rows = append(rows, BucketRow{
			DTERanges: append([]Interval(nil), dte...),
			OTMRanges: append([]Interval(nil), otm...),
			Stats:     summary,
		})
	})
	return rows
}

// walkGrid visits every bucket combination in deterministic lexicographic
// order: DTE dimensions first, then OTM dimensions.
func walkGrid(dteB, otmB []Interval, dteDims, otmDims int, visit func(dte, otm []Interval)) {
	dte := make([]Interval, dteDims)
	otm := make([]Interval, otmDims)
	var walkOTM func(i int)
	walkOTM = func(i int) {
		if i == otmDims {
			visit(dte, otm)
			return
		}
		for _, iv := range otmB {
			otm[i] = iv
			walkOTM(i + 1)
		}
	}
	var walkDTE func(i int)
	walkDTE = func(i int) {
		if i == dteDims {
			walkOTM(0)
			return
		}
		for _, iv := range dteB {
			dte[i] = iv
			walkDTE(i + 1)
		}
	}
	walkDTE(0)
}
