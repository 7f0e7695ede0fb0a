package backtest

import (
	"math"

	"github.com/quantfold/optback/internal/commission"
)

// LegFill is one leg of a completed trade: a matched pair with its side,
// ratio and signed execution prices.
type LegFill struct {
	Pair
	Side  Side
	Ratio int

	// EntryCost and ExitProceeds carry the side and ratio multipliers:
	// positive entry cost is a debit, negative a credit.
	EntryCost    float64
	ExitProceeds float64
}

// Trade is one complete strategy instance, built per backtest invocation
// and discarded after aggregation.
type Trade struct {
	Legs              []LegFill
	TotalEntryCost    float64
	TotalExitProceeds float64
	PctChange         float64
}

// makeFills signs each leg's entry/exit mids by side and ratio, in
// leg-definition order.
func makeFills(parts []Pair, defs []LegDef) []LegFill {
	legs := make([]LegFill, len(parts))
	for i, p := range parts {
		sign := float64(defs[i].Side) * float64(defs[i].Ratio)
		legs[i] = LegFill{
			Pair:         p,
			Side:         defs[i].Side,
			Ratio:        defs[i].Ratio,
			EntryCost:    sign * p.Entry,
			ExitProceeds: sign * p.Exit,
		}
	}
	return legs
}

// buildTrade sums the signed leg prices into total entry cost and exit
// proceeds and derives the percentage return. A zero-cost trade has an
// undefined return and yields NaN, never an error. When a commission
// schedule is present the totals are net of commission on both sides.
func buildTrade(parts []Pair, desc descriptor, sched commission.Schedule) Trade {
	t := Trade{Legs: makeFills(parts, desc.legs)}
	contracts := 0
	for _, l := range t.Legs {
		t.TotalEntryCost += l.EntryCost
		t.TotalExitProceeds += l.ExitProceeds
		contracts += l.Ratio
	}
	if sched != nil {
		cost := sched(contracts)
		t.TotalEntryCost += cost
		t.TotalExitProceeds -= cost
	}
	if t.TotalEntryCost == 0 {
		t.PctChange = math.NaN()
	} else {
		t.PctChange = (t.TotalExitProceeds - t.TotalEntryCost) / math.Abs(t.TotalEntryCost)
	}
	return t
}
