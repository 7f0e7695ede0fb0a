package backtest

import "testing"

func fillsAtStrikes(strikes ...float64) []LegFill {
	legs := make([]LegFill, len(strikes))
	for i, s := range strikes {
		legs[i] = LegFill{Pair: Pair{Strike: s}}
	}
	return legs
}

func TestNonOverlappingStrikes(t *testing.T) {
	tests := []struct {
		name    string
		strikes []float64
		want    bool
	}{
		{"ascending", []float64{100, 105}, true},
		{"equal strikes rejected", []float64{100, 100}, false},
		{"descending rejected", []float64{105, 100}, false},
		{"single leg passes", []float64{100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NonOverlappingStrikes(fillsAtStrikes(tt.strikes...)); got != tt.want {
				t.Errorf("NonOverlappingStrikes(%v) = %v, expected %v", tt.strikes, got, tt.want)
			}
		})
	}
}

func TestButterflyStrikes(t *testing.T) {
	tests := []struct {
		name    string
		strikes []float64
		want    bool
	}{
		{"symmetric wings", []float64{200, 210, 220}, true},
		{"asymmetric wings rejected", []float64{200, 210, 215}, false},
		{"unordered rejected", []float64{210, 200, 220}, false},
		{"fractional strikes symmetric", []float64{102.5, 105, 107.5}, true},
		{"non-target leg count passes", []float64{100, 105}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ButterflyStrikes(fillsAtStrikes(tt.strikes...)); got != tt.want {
				t.Errorf("ButterflyStrikes(%v) = %v, expected %v", tt.strikes, got, tt.want)
			}
		})
	}
}

func TestIronCondorStrikes(t *testing.T) {
	if !IronCondorStrikes(fillsAtStrikes(90, 95, 105, 110)) {
		t.Error("ascending condor strikes rejected")
	}
	if IronCondorStrikes(fillsAtStrikes(90, 95, 95, 110)) {
		t.Error("condor with shared middle strikes accepted")
	}
}

func TestIronButterflyStrikes(t *testing.T) {
	if !IronButterflyStrikes(fillsAtStrikes(90, 100, 100, 110)) {
		t.Error("iron butterfly with shared body strike rejected")
	}
	if IronButterflyStrikes(fillsAtStrikes(90, 100, 105, 110)) {
		t.Error("iron butterfly with split body strikes accepted")
	}
	if IronButterflyStrikes(fillsAtStrikes(100, 100, 100, 110)) {
		t.Error("iron butterfly with degenerate lower wing accepted")
	}
}

func TestExpirationOrdering(t *testing.T) {
	front := LegFill{Pair: Pair{Expiration: date(t, "2021-02-19")}}
	back := LegFill{Pair: Pair{Expiration: date(t, "2021-03-19")}}

	if !ExpirationOrdering([]LegFill{front, back}) {
		t.Error("front-before-back rejected")
	}
	if ExpirationOrdering([]LegFill{back, front}) {
		t.Error("back-before-front accepted")
	}
	if ExpirationOrdering([]LegFill{front, front}) {
		t.Error("equal expirations accepted")
	}
}
