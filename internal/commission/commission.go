// Package commission defines the cost-per-contract collaborator consumed by
// the profit calculator when computing net rather than gross proceeds.
package commission

// Schedule returns the total commission, in option price units, for filling
// the given number of contracts on one side of a trade. A nil Schedule means
// commissions are zero.
type Schedule func(contracts int) float64

// PerContract charges a flat rate per contract.
func PerContract(rate float64) Schedule {
	return func(contracts int) float64 {
		return rate * float64(contracts)
	}
}

// Free charges nothing; equivalent to a nil Schedule but explicit.
func Free() Schedule {
	return func(int) float64 { return 0 }
}
