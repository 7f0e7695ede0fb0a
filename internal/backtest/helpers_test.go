package backtest

import (
	"testing"
	"time"

	"github.com/quantfold/optback/internal/chain"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

// quote builds a test quote with a symmetric 0.10 spread around mid.
func quote(t *testing.T, sym, typ, quoteDate, exp string, strike, underlying, mid float64) chain.Quote {
	t.Helper()
	return chain.Quote{
		Symbol:          sym,
		OptionType:      typ,
		QuoteDate:       date(t, quoteDate),
		Expiration:      date(t, exp),
		Strike:          strike,
		UnderlyingPrice: underlying,
		Bid:             mid - 0.05,
		Ask:             mid + 0.05,
	}
}

func prepared(t *testing.T, cfg Config, quotes ...chain.Quote) []chain.Row {
	t.Helper()
	return chain.Prepare(quotes, cfg.ExitDTE, cfg.MaxEntryDTE, cfg.MaxOTMPct)
}

func mustMatch(t *testing.T, cfg Config, quotes ...chain.Quote) []Pair {
	t.Helper()
	pairs, err := matchPairs(prepared(t, cfg, quotes...), cfg)
	if err != nil {
		t.Fatalf("matchPairs: %v", err)
	}
	return pairs
}

func binned(t *testing.T, cfg Config, quotes ...chain.Quote) []Pair {
	t.Helper()
	pairs := mustMatch(t, cfg, quotes...)
	pairs = assignBins(pairs, dteBins(cfg.DTEInterval, cfg.MaxEntryDTE), otmBins(cfg.OTMPctInterval, cfg.MaxOTMPct))
	out := pairs[:0]
	for _, p := range pairs {
		if p.DTERange.valid() && p.OTMRange.valid() {
			out = append(out, p)
		}
	}
	return out
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
