package backtest

// Side is the direction of one leg; its value is the profit multiplier.
type Side int

const (
	// Long pays the entry price and collects the exit price.
	Long Side = 1
	// Short collects the entry price and pays the exit price.
	Short Side = -1
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

// LegFilter is a stateless predicate selecting the matched pairs one leg of
// a strategy may be filled from.
type LegFilter func(Pair) bool

// Calls keeps call contracts, matching case-insensitively on the leading
// "c" of the option type.
func Calls(p Pair) bool { return p.IsCall() }

// Puts keeps put contracts.
func Puts(p Pair) bool { return p.IsPut() }

// LegDef pairs a side with a contract filter and an integer ratio
// multiplier (1 unless the strategy trades unbalanced legs, like the 1-2-1
// body of a butterfly).
type LegDef struct {
	Side   Side
	Filter LegFilter
	Ratio  int
}

func leg(side Side, filter LegFilter) LegDef {
	return LegDef{Side: side, Filter: filter, Ratio: 1}
}

func ratioLeg(side Side, filter LegFilter, ratio int) LegDef {
	return LegDef{Side: side, Filter: filter, Ratio: ratio}
}

// filterLeg applies a leg's contract filter to the matched pairs.
func filterLeg(pairs []Pair, def LegDef) []Pair {
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if def.Filter(p) {
			out = append(out, p)
		}
	}
	return out
}
