package backtest

import (
	"fmt"
	"math"
	"strconv"
)

const dateLayout = "2006-01-02"

// Columns returns the header row for the result's tabular form: bucket
// columns for aggregated runs, per-leg trade columns for raw runs.
func (r *Result) Columns() []string {
	if r.Trades != nil {
		return rawColumns(r.Shape, r.legCount())
	}
	return bucketColumns(r.Shape, r.legCount())
}

// Records returns the result's rows as formatted strings, aligned with
// Columns.
func (r *Result) Records() [][]string {
	if r.Trades == nil {
		rows := make([][]string, 0, len(r.Buckets))
		for _, b := range r.Buckets {
			rows = append(rows, bucketRecord(b))
		}
		return rows
	}
	rows := make([][]string, 0, len(r.Trades))
	for _, t := range r.Trades {
		rows = append(rows, rawRecord(t, r.Shape))
	}
	return rows
}

func (r *Result) legCount() int {
	switch r.Shape {
	case ShapeSingle:
		return 1
	case ShapeStraddle, ShapeDouble, ShapeCalendar, ShapeDiagonal:
		return 2
	case ShapeTriple:
		return 3
	case ShapeQuadruple:
		return 4
	}
	return 1
}

// rawColumns lays out the per-trade columns of a shape. Single-contract
// trades use flat column names; multi-leg trades prefix per-leg columns
// with legN_. Shapes that pin a bucket across legs emit it once.
func rawColumns(shape Shape, legs int) []string {
	cols := []string{
		"underlying_symbol",
		"quote_date_entry",
		"quote_date_exit",
		"underlying_price_entry",
		"underlying_price_exit",
	}

	if legs == 1 {
		return append(cols,
			"option_type", "expiration", "strike",
			"dte_entry", "dte_range", "otm_pct_range",
			"delta_entry", "entry", "exit", "pct_change",
		)
	}

	twoExp := shape == ShapeCalendar || shape == ShapeDiagonal
	if !twoExp {
		cols = append(cols, "expiration")
	}
	cols = append(cols, "dte_entry")
	if twoExp {
		cols = append(cols, "leg1_dte_range", "leg2_dte_range")
	} else {
		cols = append(cols, "dte_range")
	}
	if shape == ShapeStraddle || shape == ShapeCalendar {
		cols = append(cols, "strike", "otm_pct_range")
	}

	for i := 1; i <= legs; i++ {
		p := fmt.Sprintf("leg%d_", i)
		cols = append(cols, p+"option_type")
		if twoExp {
			cols = append(cols, p+"expiration")
		}
		if shape != ShapeStraddle && shape != ShapeCalendar {
			cols = append(cols, p+"strike", p+"otm_pct_range")
		}
		cols = append(cols, p+"entry", p+"exit")
	}
	return append(cols, "total_entry_cost", "total_exit_proceeds", "pct_change")
}

func rawRecord(t Trade, shape Shape) []string {
	first := t.Legs[0]
	row := []string{
		first.Symbol,
		first.QuoteDateEntry.Format(dateLayout),
		first.QuoteDateExit.Format(dateLayout),
		f2(first.UnderlyingEntry),
		f2(first.UnderlyingExit),
	}

	if len(t.Legs) == 1 {
		return append(row,
			first.OptionType,
			first.Expiration.Format(dateLayout),
			f2(first.Strike),
			strconv.Itoa(first.DTEEntry),
			first.DTERange.String(),
			first.OTMRange.String(),
			f4(first.DeltaEntry),
			f4(first.Entry),
			f4(first.Exit),
			f4(t.PctChange),
		)
	}

	twoExp := shape == ShapeCalendar || shape == ShapeDiagonal
	if !twoExp {
		row = append(row, first.Expiration.Format(dateLayout))
	}
	row = append(row, strconv.Itoa(first.DTEEntry))
	if twoExp {
		row = append(row, t.Legs[0].DTERange.String(), t.Legs[1].DTERange.String())
	} else {
		row = append(row, first.DTERange.String())
	}
	if shape == ShapeStraddle || shape == ShapeCalendar {
		row = append(row, f2(first.Strike), first.OTMRange.String())
	}

	for _, l := range t.Legs {
		row = append(row, l.OptionType)
		if twoExp {
			row = append(row, l.Expiration.Format(dateLayout))
		}
		if shape != ShapeStraddle && shape != ShapeCalendar {
			row = append(row, f2(l.Strike), l.OTMRange.String())
		}
		row = append(row, f4(l.EntryCost), f4(l.ExitProceeds))
	}
	return append(row,
		f4(t.TotalEntryCost), f4(t.TotalExitProceeds), f4(t.PctChange),
	)
}

func bucketColumns(shape Shape, legs int) []string {
	var cols []string
	if shape == ShapeCalendar || shape == ShapeDiagonal {
		cols = append(cols, "leg1_dte_range", "leg2_dte_range")
	} else {
		cols = append(cols, "dte_range")
	}
	switch shape {
	case ShapeSingle, ShapeStraddle, ShapeCalendar:
		cols = append(cols, "otm_pct_range")
	default:
		for i := 1; i <= legs; i++ {
			cols = append(cols, fmt.Sprintf("leg%d_otm_pct_range", i))
		}
	}
	return append(cols,
		"count", "mean", "std", "min", "25%", "50%", "75%", "max",
		"win_rate", "profit_factor",
	)
}

func bucketRecord(b BucketRow) []string {
	var row []string
	for _, iv := range b.DTERanges {
		row = append(row, iv.String())
	}
	for _, iv := range b.OTMRanges {
		row = append(row, iv.String())
	}
	s := b.Stats
	return append(row,
		strconv.Itoa(s.Count),
		f4(s.Mean), f4(s.Std), f4(s.Min),
		f4(s.P25), f4(s.P50), f4(s.P75), f4(s.Max),
		f4(s.WinRate), f4(s.ProfitFactor),
	)
}

func f2(v float64) string { return formatFloat(v, 2) }
func f4(v float64) string { return formatFloat(v, 4) }

func formatFloat(v float64, prec int) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	if math.IsInf(v, -1) {
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
