package account

import (
	"time"

	"github.com/notepid/lapgame/internal/game"
)

// Epoch is the "never happened" timestamp for new accounts. Gates compare
// against it like any other time, so first actions always pass.
var Epoch = time.Unix(0, 0).UTC()

// Account is one player's game record. Values handed out by the Store are
// copies; changing them has no effect on the store.
type Account struct {
	ID          string
	DisplayName string
	Score       int64
	Level       int    // derived from Score
	Rank        string // derived from Level

	LastClaimTime          time.Time
	LastPeriodicRewardTime time.Time
	ClaimCount             int64

	DeviceLevel     int
	AccrualStored   float64
	LastAccrualTime time.Time

	// Seq is the creation order, used to break leaderboard ties.
	Seq int64
}

// NewAccount returns a fresh account with epoch-zero timestamps.
func NewAccount(id, displayName string) Account {
	a := Account{
		ID:                     id,
		DisplayName:            displayName,
		LastClaimTime:          Epoch,
		LastPeriodicRewardTime: Epoch,
		DeviceLevel:            1,
		LastAccrualTime:        Epoch,
	}
	a.recompute()
	return a
}

// recompute refreshes the fields derived from Score.
func (a *Account) recompute() {
	a.Level, a.Rank = game.Standing(a.Score)
}

// Tier returns the account's current device tier.
func (a Account) Tier() game.DeviceTier {
	return game.Tier(a.DeviceLevel)
}

// ClaimResult is the outcome of a claim attempt.
type ClaimResult struct {
	Granted     bool
	Amount      int64 // points granted, streak bonus included
	StreakBonus int64
	Score       int64
	ClaimCount  int64
	LeveledUp   bool
	Level       int
	Rank        string
	Remaining   time.Duration // wait left when not granted
}

// DeviceView is what a player sees when checking their accrual device.
type DeviceView struct {
	Level       int
	Stored      int64 // whole units ready to withdraw
	Capacity    int64
	Rate        int64
	Interval    time.Duration
	NextLevel   int   // zero at max level
	UpgradeCost int64 // cost of NextLevel
	Score       int64
}

// Upgrade failure reasons.
const (
	ReasonMaxLevel          = "max_level"
	ReasonInsufficientFunds = "insufficient_funds"
)

// UpgradeResult is the outcome of a device upgrade attempt.
type UpgradeResult struct {
	Success  bool
	NewLevel int
	Cost     int64
	Score    int64
	Reason   string // set when Success is false
}

// Rules are the tunable numbers behind claims and accrual.
type Rules struct {
	ClaimAmount     int64
	ClaimInterval   time.Duration
	StreakEvery     int64 // every Nth claim earns StreakBonus; 0 disables
	StreakBonus     int64
	AccrualInterval time.Duration
}

// DefaultRules returns the stock game tuning.
func DefaultRules() Rules {
	return Rules{
		ClaimAmount:     1,
		ClaimInterval:   5 * time.Minute,
		StreakEvery:     10,
		StreakBonus:     5,
		AccrualInterval: 10 * time.Minute,
	}
}
