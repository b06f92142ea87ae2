package payout

// Platform fee, in basis points of the chore budget.
const platformFeeBps = 1000

// PlatformFee returns the platform's cut of a budget in paise.
func PlatformFee(budget int64) int64 {
	return budget * platformFeeBps / 10000
}

// PayoutAmount returns what the worker receives: the budget minus the
// platform fee.
func PayoutAmount(budget int64) int64 {
	return budget - PlatformFee(budget)
}
