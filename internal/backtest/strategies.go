package backtest

import (
	"sort"

	"github.com/quantfold/optback/internal/chain"
)

// Shape names the output column layout of a strategy, which depends on leg
// count and whether legs share strikes or expirations.
type Shape string

const (
	ShapeSingle    Shape = "single"
	ShapeStraddle  Shape = "straddle"
	ShapeDouble    Shape = "double"
	ShapeTriple    Shape = "triple"
	ShapeQuadruple Shape = "quadruple"
	ShapeCalendar  Shape = "calendar"
	ShapeDiagonal  Shape = "diagonal"
)

// descriptor declares a strategy as data: its legs, the grouping key its
// legs join on, its post-join rule and its output shape. One generic
// composer consumes every descriptor; strategies never get bespoke code.
type descriptor struct {
	name       string
	shape      Shape
	legs       []LegDef
	scope      joinScope
	rule       Rule
	calendar   bool
	sameStrike bool
	otmPerLeg  bool
}

func single(name string, side Side, filter LegFilter) descriptor {
	return descriptor{
		name:  name,
		shape: ShapeSingle,
		legs:  []LegDef{leg(side, filter)},
	}
}

func straddle(name string, side Side) descriptor {
	return descriptor{
		name:  name,
		shape: ShapeStraddle,
		legs:  []LegDef{leg(side, Puts), leg(side, Calls)},
		scope: joinScope{strike: true, otmRange: true, underlying: true},
	}
}

func double(name string, legs ...LegDef) descriptor {
	return descriptor{
		name:      name,
		shape:     ShapeDouble,
		legs:      legs,
		rule:      NonOverlappingStrikes,
		otmPerLeg: true,
	}
}

func butterfly(name string, side Side, filter LegFilter) descriptor {
	return descriptor{
		name:  name,
		shape: ShapeTriple,
		legs: []LegDef{
			ratioLeg(side, filter, 1),
			ratioLeg(-side, filter, 2),
			ratioLeg(side, filter, 1),
		},
		rule:      ButterflyStrikes,
		otmPerLeg: true,
	}
}

func fourLegs(name string, rule Rule, outer Side) descriptor {
	return descriptor{
		name:  name,
		shape: ShapeQuadruple,
		legs: []LegDef{
			leg(outer, Puts),
			leg(-outer, Puts),
			leg(-outer, Calls),
			leg(outer, Calls),
		},
		rule:      rule,
		otmPerLeg: true,
	}
}

func calendar(name string, frontSide Side, filter LegFilter, sameStrike bool) descriptor {
	shape := ShapeCalendar
	if !sameStrike {
		shape = ShapeDiagonal
	}
	return descriptor{
		name:       name,
		shape:      shape,
		legs:       []LegDef{leg(frontSide, filter), leg(-frontSide, filter)},
		rule:       ExpirationOrdering,
		calendar:   true,
		sameStrike: sameStrike,
		otmPerLeg:  !sameStrike,
	}
}

// StrategyFunc evaluates one strategy over an option chain.
type StrategyFunc func(data []chain.Quote, cfg Config) (*Result, error)

// Singles.

func LongCalls(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, single("long_calls", Long, Calls), cfg)
}

func ShortCalls(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, single("short_calls", Short, Calls), cfg)
}

func LongPuts(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, single("long_puts", Long, Puts), cfg)
}

func ShortPuts(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, single("short_puts", Short, Puts), cfg)
}

// Straddles and strangles.

func LongStraddles(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, straddle("long_straddles", Long), cfg)
}

func ShortStraddles(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, straddle("short_straddles", Short), cfg)
}

func LongStrangles(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, double("long_strangles", leg(Long, Puts), leg(Long, Calls)), cfg)
}

func ShortStrangles(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, double("short_strangles", leg(Short, Puts), leg(Short, Calls)), cfg)
}

// Vertical spreads. Leg order is ascending strike, so the long leg of a
// long call spread comes first and the short leg second.

func LongCallSpread(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, double("long_call_spread", leg(Long, Calls), leg(Short, Calls)), cfg)
}

func ShortCallSpread(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, double("short_call_spread", leg(Short, Calls), leg(Long, Calls)), cfg)
}

func LongPutSpread(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, double("long_put_spread", leg(Short, Puts), leg(Long, Puts)), cfg)
}

func ShortPutSpread(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, double("short_put_spread", leg(Long, Puts), leg(Short, Puts)), cfg)
}

// Butterflies, 1-2-1.

func LongCallButterfly(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, butterfly("long_call_butterfly", Long, Calls), cfg)
}

func ShortCallButterfly(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, butterfly("short_call_butterfly", Short, Calls), cfg)
}

func LongPutButterfly(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, butterfly("long_put_butterfly", Long, Puts), cfg)
}

func ShortPutButterfly(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, butterfly("short_put_butterfly", Short, Puts), cfg)
}

// Iron condors and butterflies. Outer is the side of the wings.

func IronCondor(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, fourLegs("iron_condor", IronCondorStrikes, Long), cfg)
}

func ReverseIronCondor(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, fourLegs("reverse_iron_condor", IronCondorStrikes, Short), cfg)
}

func IronButterfly(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, fourLegs("iron_butterfly", IronButterflyStrikes, Long), cfg)
}

func ReverseIronButterfly(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, fourLegs("reverse_iron_butterfly", IronButterflyStrikes, Short), cfg)
}

// Covered strategies, simulated with options only: the underlying position
// is approximated by a deep ITM call at the lower strike.

func CoveredCall(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, double("covered_call", leg(Long, Calls), leg(Short, Calls)), cfg)
}

func ProtectivePut(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, double("protective_put", leg(Long, Calls), leg(Long, Puts)), cfg)
}

// Calendars (same strike) and diagonals (different strikes). The front leg
// comes first; a long calendar shorts the front and longs the back.

func LongCallCalendar(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, calendar("long_call_calendar", Short, Calls, true), cfg)
}

func ShortCallCalendar(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, calendar("short_call_calendar", Long, Calls, true), cfg)
}

func LongPutCalendar(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, calendar("long_put_calendar", Short, Puts, true), cfg)
}

func ShortPutCalendar(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, calendar("short_put_calendar", Long, Puts, true), cfg)
}

func LongCallDiagonal(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, calendar("long_call_diagonal", Short, Calls, false), cfg)
}

func ShortCallDiagonal(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, calendar("short_call_diagonal", Long, Calls, false), cfg)
}

func LongPutDiagonal(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, calendar("long_put_diagonal", Short, Puts, false), cfg)
}

func ShortPutDiagonal(data []chain.Quote, cfg Config) (*Result, error) {
	return run(data, calendar("short_put_diagonal", Long, Puts, false), cfg)
}

// Catalog maps strategy names to their evaluation functions, for callers
// that select strategies at runtime.
var Catalog = map[string]StrategyFunc{
	"long_calls":             LongCalls,
	"short_calls":            ShortCalls,
	"long_puts":              LongPuts,
	"short_puts":             ShortPuts,
	"long_straddles":         LongStraddles,
	"short_straddles":        ShortStraddles,
	"long_strangles":         LongStrangles,
	"short_strangles":        ShortStrangles,
	"long_call_spread":       LongCallSpread,
	"short_call_spread":      ShortCallSpread,
	"long_put_spread":        LongPutSpread,
	"short_put_spread":       ShortPutSpread,
	"long_call_butterfly":    LongCallButterfly,
	"short_call_butterfly":   ShortCallButterfly,
	"long_put_butterfly":     LongPutButterfly,
	"short_put_butterfly":    ShortPutButterfly,
	"iron_condor":            IronCondor,
	"reverse_iron_condor":    ReverseIronCondor,
	"iron_butterfly":         IronButterfly,
	"reverse_iron_butterfly": ReverseIronButterfly,
	"covered_call":           CoveredCall,
	"protective_put":         ProtectivePut,
	"long_call_calendar":     LongCallCalendar,
	"short_call_calendar":    ShortCallCalendar,
	"long_put_calendar":      LongPutCalendar,
	"short_put_calendar":     ShortPutCalendar,
	"long_call_diagonal":     LongCallDiagonal,
	"short_call_diagonal":    ShortCallDiagonal,
	"long_put_diagonal":      LongPutDiagonal,
	"short_put_diagonal":     ShortPutDiagonal,
}

// StrategyNames returns the catalog keys in sorted order.
func StrategyNames() []string {
	names := make([]string, 0, len(Catalog))
	for name := range Catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
