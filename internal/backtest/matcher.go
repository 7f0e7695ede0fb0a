package backtest

import (
	"time"

	"github.com/quantfold/optback/internal/chain"
)

// Pair is one contract matched between its entry quote and its exit quote.
// Shared fields carry entry/exit variants the way the downstream column
// layouts expect.
type Pair struct {
	Symbol         string
	OptionType     string
	Expiration     time.Time
	Strike         float64
	QuoteDateEntry time.Time
	QuoteDateExit  time.Time
	DTEEntry       int
	DTEExit        int
	OTMPct         float64 // at entry

	UnderlyingEntry float64
	UnderlyingExit  float64
	BidEntry        float64
	AskEntry        float64
	BidExit         float64
	AskExit         float64
	Entry           float64 // unsigned midpoint at entry
	Exit            float64 // unsigned midpoint at exit
	DeltaEntry      float64

	// Bucket assignments, filled by the binning step after matching.
	DTERange Interval
	OTMRange Interval
}

// IsCall reports whether the contract is a call.
func (p Pair) IsCall() bool {
	return len(p.OptionType) > 0 && (p.OptionType[0] == 'c' || p.OptionType[0] == 'C')
}

// IsPut reports whether the contract is a put.
func (p Pair) IsPut() bool {
	return len(p.OptionType) > 0 && (p.OptionType[0] == 'p' || p.OptionType[0] == 'P')
}

// matchPairs splits preprocessed rows into entries (dte beyond the exit dte
// with a non-trivial mid) and exits (at the exit dte, or the nearest within
// the configured tolerance), then inner-joins the two sets on the contract
// identity key. Empty entries or exits yield an empty result, not an error.
func matchPairs(rows []chain.Row, cfg Config) ([]Pair, error) {
	enc := newKeyEncoder(rows)

	exits := make(map[int64]chain.Row)
	for _, r := range rows {
		if !isExitCandidate(r, cfg) {
			continue
		}
		k, err := enc.key(r)
		if err != nil {
			return nil, err
		}
		if best, ok := exits[k]; ok && !betterExit(r, best, cfg.ExitDTE) {
			continue
		}
		exits[k] = r
	}
	if len(exits) == 0 {
		return nil, nil
	}

	var pairs []Pair
	for _, r := range rows {
		if r.DTE <= cfg.ExitDTE || r.Mid() <= cfg.MinBidAsk {
			continue
		}
		if !cfg.entryAllowed(r.Symbol, dayUnix(r.QuoteDate)) {
			continue
		}
		k, err := enc.key(r)
		if err != nil {
			return nil, err
		}
		exit, ok := exits[k]
		if !ok {
			continue
		}
		p := newPair(r, exit)
		if p.DTEExit >= p.DTEEntry {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func isExitCandidate(r chain.Row, cfg Config) bool {
	if cfg.ExitDTETolerance == 0 {
		return r.DTE == cfg.ExitDTE
	}
	return r.DTE >= cfg.ExitDTE && r.DTE <= cfg.ExitDTE+cfg.ExitDTETolerance
}

// betterExit reports whether candidate should replace current as a
// contract's exit quote: smaller distance to the target exit dte wins, ties
// go to the earlier quote date.
func betterExit(candidate, current chain.Row, exitDTE int) bool {
	cd, bd := candidate.DTE-exitDTE, current.DTE-exitDTE
	if cd < 0 {
		cd = -cd
	}
	if bd < 0 {
		bd = -bd
	}
	if cd != bd {
		return cd < bd
	}
	return candidate.QuoteDate.Before(current.QuoteDate)
}

func newPair(entry, exit chain.Row) Pair {
	return Pair{
		Symbol:          entry.Symbol,
		OptionType:      entry.OptionType,
		Expiration:      entry.Expiration,
		Strike:          entry.Strike,
		QuoteDateEntry:  entry.QuoteDate,
		QuoteDateExit:   exit.QuoteDate,
		DTEEntry:        entry.DTE,
		DTEExit:         exit.DTE,
		OTMPct:          entry.OTMPct,
		UnderlyingEntry: entry.UnderlyingPrice,
		UnderlyingExit:  exit.UnderlyingPrice,
		BidEntry:        entry.Bid,
		AskEntry:        entry.Ask,
		BidExit:         exit.Bid,
		AskExit:         exit.Ask,
		Entry:           entry.Mid(),
		Exit:            exit.Mid(),
		DeltaEntry:      entry.Delta,
	}
}
