package model

import (
	"math"
	"time"
)

// NextBillingDate returns anchor + cycleDays calendar days. AddDate handles
// month and year rollover exactly (2024-01-31 + 30 days = 2024-03-01).
func NextBillingDate(anchor time.Time, cycleDays int) time.Time {
	return anchor.AddDate(0, 0, cycleDays)
}

// DaysRemaining returns the number of whole-or-partial days from today until
// next, rounded up. A billing date already in the past yields 0: a plan change
// after the cycle rolled over carries no prorated credit or charge.
func DaysRemaining(next, today time.Time) int {
	d := int(math.Ceil(next.Sub(today).Hours() / 24))
	if d < 0 {
		return 0
	}
	return d
}

// ProratedDelta computes the mid-cycle plan-change adjustment in minor units:
// the difference between the new and old daily rate, applied to the days left
// in the current cycle, rounded half away from zero.
func ProratedDelta(currentPriceMinor, newPriceMinor int64, daysRemaining, cycleDays int) int64 {
	if cycleDays <= 0 || daysRemaining <= 0 {
		return 0
	}
	dailyOld := float64(currentPriceMinor) / float64(cycleDays)
	dailyNew := float64(newPriceMinor) / float64(cycleDays)
	delta := (dailyNew - dailyOld) * float64(daysRemaining)
	return int64(math.Round(delta))
}
