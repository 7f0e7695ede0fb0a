package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/quantfold/optback/internal/chain"
	"github.com/quantfold/optback/internal/signal"
)

// Result is the outcome of one strategy evaluation. Buckets holds the
// aggregated view; Trades is populated instead when the run is raw.
type Result struct {
	Strategy string
	Shape    Shape
	Trades   []Trade
	Buckets  []BucketRow
}

// run is the pipeline behind every strategy function: validate, preprocess,
// signal-gate entries, match, bin, compose, and aggregate.
func run(data []chain.Quote, desc descriptor, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", desc.name, err)
	}
	if desc.calendar {
		if err := cfg.validateCalendar(); err != nil {
			return nil, fmt.Errorf("%s: %w", desc.name, err)
		}
	}
	if err := chain.Validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", desc.name, err)
	}

	maxDTE := cfg.MaxEntryDTE
	if desc.calendar {
		maxDTE = cfg.BackDTEMax
	}
	rows := chain.Prepare(data, cfg.ExitDTE, maxDTE, cfg.MaxOTMPct)
	cfg.entryDates = applySignal(rows, cfg.EntrySignal)

	dteB := dteBins(cfg.DTEInterval, maxDTE)
	otmB := otmBins(cfg.OTMPctInterval, cfg.MaxOTMPct)

	var trades []Trade
	var err error
	if desc.calendar {
		trades, err = composeCalendar(rows, desc, cfg, dteB, otmB)
	} else {
		var pairs []Pair
		pairs, err = matchPairs(rows, cfg)
		if err == nil {
			pairs = assignBins(pairs, dteB, otmB)
			binned := pairs[:0]
			for _, p := range pairs {
				if p.DTERange.valid() && p.OTMRange.valid() {
					binned = append(binned, p)
				}
			}
			trades = compose(binned, desc, cfg.Commission)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", desc.name, err)
	}

	res := &Result{Strategy: desc.name, Shape: desc.shape}
	if cfg.Raw {
		res.Trades = trades
		return res, nil
	}
	res.Buckets = aggregate(trades, desc, cfg, dteB, otmB)
	return res, nil
}

// applySignal extracts the underlying's daily bars from the chain, runs the
// entry signal over them, and returns the admitted entry dates per symbol.
// A nil signal admits everything.
func applySignal(rows []chain.Row, fn signal.Func) map[string]map[int64]bool {
	if fn == nil {
		return nil
	}

	seen := make(map[string]map[int64]float64)
	for _, r := range rows {
		day := dayUnix(r.QuoteDate)
		if seen[r.Symbol] == nil {
			seen[r.Symbol] = make(map[int64]float64)
		}
		seen[r.Symbol][day] = r.UnderlyingPrice
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var bars []signal.Bar
	for _, sym := range symbols {
		days := make([]int64, 0, len(seen[sym]))
		for day := range seen[sym] {
			days = append(days, day)
		}
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
		for _, day := range days {
			bars = append(bars, signal.Bar{
				Symbol: sym,
				Date:   time.Unix(day, 0).UTC(),
				Price:  seen[sym][day],
			})
		}
	}

	mask := fn(bars)
	allowed := make(map[string]map[int64]bool, len(seen))
	for i, bar := range bars {
		if i >= len(mask) || !mask[i] {
			continue
		}
		if allowed[bar.Symbol] == nil {
			allowed[bar.Symbol] = make(map[int64]bool)
		}
		allowed[bar.Symbol][dayUnix(bar.Date)] = true
	}
	return allowed
}

// RunAll evaluates the named strategies concurrently over a shared chain
// and returns one result per strategy. An unknown name or a failed run
// cancels the remaining work.
func RunAll(ctx context.Context, data []chain.Quote, names []string, cfg Config) (map[string]*Result, error) {
	for _, name := range names {
		if _, ok := Catalog[name]; !ok {
			return nil, configErrf("strategy", "unknown strategy %q", name)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	results := make(map[string]*Result, len(names))

	for _, name := range names {
		name := name
		fn := Catalog[name]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := fn(data, cfg)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"strategy": name,
				"elapsed":  time.Since(start).Round(time.Millisecond),
			}).Debug("strategy run complete")
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
