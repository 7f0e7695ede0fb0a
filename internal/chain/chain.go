// Package chain defines the option chain data model and the preprocessing
// step that every backtest runs before matching entries to exits.
package chain

import (
	"fmt"
	"math"
	"time"

	"github.com/quantfold/optback/internal/util"
)

// Quote is one observation of one option contract on one quote date.
// (Symbol, OptionType, Expiration, Strike) identifies a contract;
// adding QuoteDate identifies a quote row.
type Quote struct {
	Symbol          string
	UnderlyingPrice float64
	OptionType      string // "call"/"put", matched case-insensitively on the first letter
	Expiration      time.Time
	QuoteDate       time.Time
	Strike          float64
	Bid             float64
	Ask             float64

	// Optional greeks. NaN when the feed did not supply them.
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64

	// Optional liquidity data, zero when absent.
	Volume int64
}

// Mid returns the bid/ask midpoint, the fill price used throughout the engine.
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// IsCall reports whether the quote is for a call option.
func (q Quote) IsCall() bool {
	return len(q.OptionType) > 0 && (q.OptionType[0] == 'c' || q.OptionType[0] == 'C')
}

// IsPut reports whether the quote is for a put option.
func (q Quote) IsPut() bool {
	return len(q.OptionType) > 0 && (q.OptionType[0] == 'p' || q.OptionType[0] == 'P')
}

// Row is a quote annotated with the derived columns the matcher operates on.
type Row struct {
	Quote
	DTE    int     // whole days from quote date to expiration
	OTMPct float64 // (strike - underlying) / strike, rounded to 2 decimals
}

// SchemaError reports a missing or malformed input column. It is fatal and
// surfaced before any preprocessing happens; no partial result is produced.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("chain schema: column %q: %s", e.Column, e.Reason)
}

// Validate checks every quote against the input contract: required fields
// present with sensible values. The engine must not silently coerce bad
// input, so the first violation fails the whole chain.
func Validate(quotes []Quote) error {
	for i, q := range quotes {
		switch {
		case q.Symbol == "":
			return &SchemaError{Column: "underlying_symbol", Reason: fmt.Sprintf("empty at row %d", i)}
		case !q.IsCall() && !q.IsPut():
			return &SchemaError{Column: "option_type", Reason: fmt.Sprintf("%q at row %d is not a call or put", q.OptionType, i)}
		case q.Expiration.IsZero():
			return &SchemaError{Column: "expiration", Reason: fmt.Sprintf("missing at row %d", i)}
		case q.QuoteDate.IsZero():
			return &SchemaError{Column: "quote_date", Reason: fmt.Sprintf("missing at row %d", i)}
		case q.Strike <= 0 || math.IsNaN(q.Strike):
			return &SchemaError{Column: "strike", Reason: fmt.Sprintf("%v at row %d is not a positive number", q.Strike, i)}
		case math.IsNaN(q.Bid) || math.IsNaN(q.Ask):
			return &SchemaError{Column: "bid", Reason: fmt.Sprintf("bid/ask missing at row %d", i)}
		case q.Bid > q.Ask:
			return &SchemaError{Column: "ask", Reason: fmt.Sprintf("bid %v above ask %v at row %d", q.Bid, q.Ask, i)}
		case q.UnderlyingPrice <= 0 || math.IsNaN(q.UnderlyingPrice):
			return &SchemaError{Column: "underlying_price", Reason: fmt.Sprintf("%v at row %d is not a positive number", q.UnderlyingPrice, i)}
		}
	}
	return nil
}

// DaysBetween returns whole days from one date to another, ignoring the
// time-of-day component.
func DaysBetween(from, to time.Time) int {
	f := from.UTC().Truncate(24 * time.Hour)
	t := to.UTC().Truncate(24 * time.Hour)
	return int(t.Sub(f).Hours() / 24)
}

// round2 rounds to cents-of-a-percent precision, matching the precision the
// OTM buckets are defined in.
func round2(v float64) float64 {
	return util.RoundToTick(v, 0.01)
}

// Prepare derives DTE and OTM% for each quote and trims rows outside the
// configured OTM band and DTE window. Order matters: later stages assume
// both derived columns exist on every surviving row.
func Prepare(quotes []Quote, exitDTE, maxEntryDTE int, maxOTMPct float64) []Row {
	rows := make([]Row, 0, len(quotes))
	for _, q := range quotes {
		r := Row{
			Quote:  q,
			DTE:    DaysBetween(q.QuoteDate, q.Expiration),
			OTMPct: round2((q.Strike - q.UnderlyingPrice) / q.Strike),
		}
		if r.OTMPct < -maxOTMPct || r.OTMPct > maxOTMPct {
			continue
		}
		if r.DTE < exitDTE || r.DTE > maxEntryDTE {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}
