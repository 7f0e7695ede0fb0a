package backtest

// Rule is a post-join filter over a complete candidate trade's legs, in
// leg-definition order. A rule applied to a leg count it does not target
// keeps the trade, so one rule serves several strategies without branching
// at the call site. Rules are pure predicates and therefore idempotent.
type Rule func(legs []LegFill) bool

// NonOverlappingStrikes keeps trades whose strikes strictly ascend across
// adjacent legs. No-op for single-leg trades.
func NonOverlappingStrikes(legs []LegFill) bool {
	for i := 1; i < len(legs); i++ {
		if !(legs[i].Strike > legs[i-1].Strike) {
			return false
		}
	}
	return true
}

// ButterflyStrikes keeps three-leg trades with strictly ascending strikes
// and equal wing widths. Widths are compared in integer cents so float
// strikes cannot produce spurious inequality.
func ButterflyStrikes(legs []LegFill) bool {
	if len(legs) != 3 {
		return true
	}
	if !NonOverlappingStrikes(legs) {
		return false
	}
	lower := strikeCents(legs[1].Strike) - strikeCents(legs[0].Strike)
	upper := strikeCents(legs[2].Strike) - strikeCents(legs[1].Strike)
	return lower == upper
}

// IronCondorStrikes keeps four-leg trades with strictly ascending strikes.
func IronCondorStrikes(legs []LegFill) bool {
	if len(legs) != 4 {
		return true
	}
	return NonOverlappingStrikes(legs)
}

// IronButterflyStrikes keeps four-leg trades whose middle legs share a
// strike between strictly wider wings.
func IronButterflyStrikes(legs []LegFill) bool {
	if len(legs) != 4 {
		return true
	}
	return legs[0].Strike < legs[1].Strike &&
		strikeCents(legs[1].Strike) == strikeCents(legs[2].Strike) &&
		legs[2].Strike < legs[3].Strike
}

// ExpirationOrdering keeps two-leg trades whose front leg expires strictly
// before the back leg, the calendar and diagonal spread constraint.
func ExpirationOrdering(legs []LegFill) bool {
	if len(legs) != 2 {
		return true
	}
	return legs[0].Expiration.Before(legs[1].Expiration)
}
