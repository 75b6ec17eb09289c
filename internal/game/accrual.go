package game

import (
	"math"
	"time"
)

// Accrual device tuning.
const (
	MaxDeviceLevel = 10

	baseRate        = 1
	baseCapacity    = 12
	baseUpgradeCost = 50
	costGrowth      = 2.2
)

// DeviceTier describes one upgrade level of the accrual device.
type DeviceTier struct {
	Level           int
	RatePerInterval float64
	Capacity        float64
	UpgradeCost     int64 // cost to reach this tier; zero for tier 1
}

var tiers = buildTiers()

func buildTiers() []DeviceTier {
	out := make([]DeviceTier, MaxDeviceLevel)
	for i := range out {
		mult := math.Pow(2, float64(i))
		t := DeviceTier{
			Level:           i + 1,
			RatePerInterval: baseRate * mult,
			Capacity:        baseCapacity * mult,
		}
		if i > 0 {
			t.UpgradeCost = int64(math.Round(baseUpgradeCost * math.Pow(costGrowth, float64(i-1))))
		}
		out[i] = t
	}
	return out
}

// Tier returns the tier for a device level, clamped to the table.
func Tier(level int) DeviceTier {
	if level < 1 {
		level = 1
	}
	if level > MaxDeviceLevel {
		level = MaxDeviceLevel
	}
	return tiers[level-1]
}

// NextTier returns the tier above level, or false at the top of the table.
func NextTier(level int) (DeviceTier, bool) {
	if level >= MaxDeviceLevel {
		return DeviceTier{}, false
	}
	return Tier(level + 1), true
}

// Tiers returns a copy of the whole tier table.
func Tiers() []DeviceTier {
	out := make([]DeviceTier, len(tiers))
	copy(out, tiers)
	return out
}

// Accrue advances a device by the whole intervals elapsed since last.
// The new timestamp moves forward by exactly those intervals, not to now,
// so partial progress toward the next interval is kept. Storage never
// exceeds capacity. A clock that went backwards changes nothing.
func Accrue(stored, rate, capacity float64, last time.Time, interval time.Duration, now time.Time) (float64, time.Time) {
	if interval <= 0 || !now.After(last) {
		return math.Min(stored, capacity), last
	}
	whole := int64(now.Sub(last) / interval)
	if whole == 0 {
		return math.Min(stored, capacity), last
	}
	next := stored + float64(whole)*rate
	if next > capacity {
		next = capacity
	}
	return next, last.Add(time.Duration(whole) * interval)
}

// Withdraw returns the whole units available in stored. Fractions are
// dropped; the caller zeroes the storage.
func Withdraw(stored float64) int64 {
	if stored <= 0 {
		return 0
	}
	return int64(math.Floor(stored))
}
