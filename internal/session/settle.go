package session

import "time"

// Platform commission on settled sessions. Business payees are exempt:
// businesses bring their own learners, so the platform takes nothing on
// their sessions.
const commissionPercent = 15

// FinalCost meters a session: elapsed seconds at the hourly rate, floored
// to whole cents and clamped to [0, cap].
func FinalCost(hourlyRateCents int64, elapsed time.Duration, capCents int64) int64 {
	secs := int64(elapsed / time.Second)
	if secs < 0 {
		secs = 0
	}

	cost := hourlyRateCents * secs / 3600
	if cost < 0 {
		cost = 0
	}
	if cost > capCents {
		cost = capCents
	}
	return cost
}

// SplitCommission divides the final cost between the payee and the platform.
// Commission rounds half up; the payee gets the remainder, so the two parts
// always sum to finalCost exactly.
func SplitCommission(finalCost int64, businessPayee bool) (payeeCredit, commission int64) {
	if businessPayee {
		return finalCost, 0
	}

	commission = (finalCost*commissionPercent + 50) / 100
	return finalCost - commission, commission
}
