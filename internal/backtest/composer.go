package backtest

import (
	"time"

	"github.com/quantfold/optback/internal/chain"
	"github.com/quantfold/optback/internal/commission"
)

// joinScope selects the optional columns of the grouping key a strategy
// joins its legs on. Every same-expiration join includes the underlying
// symbol, expiration, entry DTE and DTE bucket; straddles additionally pin
// the strike, OTM bucket and entry underlying price so both legs describe
// the same moneyness event.
type joinScope struct {
	strike     bool
	otmRange   bool
	underlying bool
}

// groupKey is comparable so the composer can bucket leg tables in a map and
// keep the N-way join linear in the table sizes.
type groupKey struct {
	symbol     string
	expiration int64
	dteEntry   int
	dteRange   Interval
	strike     int64
	otmRange   Interval
	underlying int64
}

func (s joinScope) keyOf(p Pair) groupKey {
	k := groupKey{
		symbol:     p.Symbol,
		expiration: p.Expiration.Unix(),
		dteEntry:   p.DTEEntry,
		dteRange:   p.DTERange,
	}
	if s.strike {
		k.strike = strikeCents(p.Strike)
	}
	if s.otmRange {
		k.otmRange = p.OTMRange
	}
	if s.underlying {
		k.underlying = strikeCents(p.UnderlyingEntry)
	}
	return k
}

// compose builds complete trades from matched pairs for a same-expiration
// strategy: one leg table per leg definition, reduced with an inner join on
// the strategy's grouping key, post-filtered by its rule.
func compose(pairs []Pair, desc descriptor, sched commission.Schedule) []Trade {
	tables := make([][]Pair, len(desc.legs))
	for i, def := range desc.legs {
		tables[i] = filterLeg(pairs, def)
		if len(tables[i]) == 0 {
			return nil
		}
	}

	if len(desc.legs) == 1 {
		trades := make([]Trade, 0, len(tables[0]))
		for _, p := range tables[0] {
			trades = append(trades, buildTrade([]Pair{p}, desc, sched))
		}
		return trades
	}

	buckets := make([]map[groupKey][]Pair, len(tables))
	for i := 1; i < len(tables); i++ {
		buckets[i] = make(map[groupKey][]Pair)
		for _, p := range tables[i] {
			k := desc.scope.keyOf(p)
			buckets[i][k] = append(buckets[i][k], p)
		}
	}

	var trades []Trade
	parts := make([]Pair, len(tables))
	var extend func(i int, key groupKey)
	extend = func(i int, key groupKey) {
		if i == len(tables) {
			if desc.rule != nil {
				legs := makeFills(parts, desc.legs)
				if !desc.rule(legs) {
					return
				}
			}
			trades = append(trades, buildTrade(parts, desc, sched))
			return
		}
		for _, p := range buckets[i][key] {
			parts[i] = p
			extend(i+1, key)
		}
	}
	for _, p := range tables[0] {
		parts[0] = p
		extend(1, desc.scope.keyOf(p))
	}
	return trades
}

// backEntryKey indexes back-leg entry candidates for the calendar join:
// same symbol and entry date, plus the strike for same-strike calendars.
type backEntryKey struct {
	symbol string
	date   int64
	strike int64
}

// composeCalendar builds two-expiration trades. The front leg is matched
// normally (exit at the configured exit DTE); the back leg enters on the
// front leg's entry date and exits on the front leg's exit date, looked up
// by quote date since its own DTE never reaches the exit DTE while the
// trade is open.
func composeCalendar(rows []chain.Row, desc descriptor, cfg Config, dteB, otmB []Interval) ([]Trade, error) {
	typed := make([]chain.Row, 0, len(rows))
	for _, r := range rows {
		if desc.legs[0].Filter(rowPair(r)) {
			typed = append(typed, r)
		}
	}
	if len(typed) == 0 {
		return nil, nil
	}

	matched, err := matchPairs(typed, cfg)
	if err != nil {
		return nil, err
	}
	matched = assignBins(matched, dteB, otmB)
	var fronts []Pair
	for _, p := range matched {
		if p.DTEEntry >= cfg.FrontDTEMin && p.DTEEntry <= cfg.FrontDTEMax &&
			p.DTERange.valid() && p.OTMRange.valid() {
			fronts = append(fronts, p)
		}
	}
	if len(fronts) == 0 {
		return nil, nil
	}

	// Back-leg entry candidates and a (contract, quote date) lookup for
	// their exits.
	entries := make(map[backEntryKey][]chain.Row)
	byContractDate := make(map[int64]map[int64]chain.Row)
	enc := newKeyEncoder(typed)
	for _, r := range typed {
		k, err := enc.key(r)
		if err != nil {
			return nil, err
		}
		if byContractDate[k] == nil {
			byContractDate[k] = make(map[int64]chain.Row)
		}
		byContractDate[k][dayUnix(r.QuoteDate)] = r

		if r.DTE >= cfg.BackDTEMin && r.DTE <= cfg.BackDTEMax && r.Mid() > cfg.MinBidAsk {
			ek := backEntryKey{symbol: r.Symbol, date: dayUnix(r.QuoteDate)}
			if desc.sameStrike {
				ek.strike = strikeCents(r.Strike)
			}
			entries[ek] = append(entries[ek], r)
		}
	}

	var trades []Trade
	for _, front := range fronts {
		ek := backEntryKey{symbol: front.Symbol, date: dayUnix(front.QuoteDateEntry)}
		if desc.sameStrike {
			ek.strike = strikeCents(front.Strike)
		}
		for _, backEntry := range entries[ek] {
			k, err := enc.key(backEntry)
			if err != nil {
				return nil, err
			}
			backExit, ok := byContractDate[k][dayUnix(front.QuoteDateExit)]
			if !ok {
				continue
			}
			back := newPair(backEntry, backExit)
			back.DTERange = locate(dteB, float64(back.DTEEntry))
			back.OTMRange = locate(otmB, back.OTMPct)
			if !back.DTERange.valid() || !back.OTMRange.valid() {
				continue
			}
			parts := []Pair{front, back}
			legs := makeFills(parts, desc.legs)
			if desc.rule != nil && !desc.rule(legs) {
				continue
			}
			trades = append(trades, buildTrade(parts, desc, cfg.Commission))
		}
	}
	return trades, nil
}

// rowPair adapts a chain row to the Pair-based leg filters.
func rowPair(r chain.Row) Pair {
	return Pair{OptionType: r.OptionType}
}

func dayUnix(t time.Time) int64 {
	return t.UTC().Truncate(24 * time.Hour).Unix()
}
