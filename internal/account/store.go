// Package account owns every player record and is the only code allowed to
// change one. All operations are atomic per account; Transfer is atomic
// across its two accounts.
package account

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/notepid/lapgame/internal/game"
)

type entry struct {
	mu  sync.Mutex
	acc Account
}

// Store holds the authoritative account map.
//
// Locking: mu is held for read by every account operation and for write by
// account creation, Snapshot and Restore. Each entry has its own mutex that
// serializes read-modify-write on that account. Two-account operations lock
// entries in identifier order.
type Store struct {
	mu       sync.RWMutex
	rules    Rules
	accounts map[string]*entry
	order    []*entry
	nextSeq  int64

	version atomic.Int64
}

// NewStore creates an empty store.
func NewStore(rules Rules) *Store {
	return &Store{
		rules:    rules,
		accounts: make(map[string]*entry),
		nextSeq:  1,
	}
}

// Rules returns the store's game tuning.
func (s *Store) Rules() Rules {
	return s.rules
}

// Version increases on every committed mutation.
func (s *Store) Version() int64 {
	return s.version.Load()
}

// Len returns the number of accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// GetOrCreate returns the account for id, creating it on first contact.
// A non-empty displayName replaces the stored one.
func (s *Store) GetOrCreate(id, displayName string) (Account, error) {
	if id == "" {
		return Account{}, fmt.Errorf("get or create: empty id: %w", ErrNotFound)
	}

	s.mu.RLock()
	e := s.accounts[id]
	if e != nil {
		acc := s.touch(e, displayName)
		s.mu.RUnlock()
		return acc, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.accounts[id]; e != nil {
		return s.touch(e, displayName), nil
	}
	e = s.insertLocked(NewAccount(id, displayName))
	return e.acc, nil
}

func (s *Store) touch(e *entry, displayName string) Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	if displayName != "" && displayName != e.acc.DisplayName {
		e.acc.DisplayName = displayName
		s.version.Add(1)
	}
	return e.acc
}

// insertLocked adds a new account. s.mu must be held for write.
func (s *Store) insertLocked(acc Account) *entry {
	acc.Seq = s.nextSeq
	s.nextSeq++
	e := &entry{acc: acc}
	s.accounts[acc.ID] = e
	s.order = append(s.order, e)
	s.version.Add(1)
	return e
}

// Get returns a copy of the account for id.
func (s *Store) Get(id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.accounts[id]
	if e == nil {
		return Account{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acc, nil
}

// update runs fn on a working copy of the account and commits the copy only
// if fn reports a change and no error.
func (s *Store) update(id string, fn func(a *Account) (bool, error)) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.accounts[id]
	if e == nil {
		return Account{}, fmt.Errorf("account %q: %w", id, ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.acc
	changed, err := fn(&work)
	if err != nil {
		return e.acc, err
	}
	if changed {
		work.recompute()
		e.acc = work
		s.version.Add(1)
	}
	return e.acc, nil
}

// Claim grants the claim reward if the cooldown has elapsed. When it has
// not, the result carries the remaining wait and the error wraps
// ErrRateLimited.
func (s *Store) Claim(id string, now time.Time) (ClaimResult, error) {
	var res ClaimResult
	acc, err := s.update(id, func(a *Account) (bool, error) {
		ok, remaining := game.TryConsume(a.LastClaimTime, s.rules.ClaimInterval, now)
		if !ok {
			res.Remaining = remaining
			return false, fmt.Errorf("claim: %s left: %w", remaining.Round(time.Second), ErrRateLimited)
		}

		prevLevel := a.Level
		a.ClaimCount++
		amount := s.rules.ClaimAmount
		if s.rules.StreakEvery > 0 && a.ClaimCount%s.rules.StreakEvery == 0 {
			res.StreakBonus = s.rules.StreakBonus
			amount += s.rules.StreakBonus
		}
		a.Score += amount
		a.LastClaimTime = now
		a.recompute()

		res.Granted = true
		res.Amount = amount
		res.LeveledUp = a.Level > prevLevel
		return true, nil
	})
	res.Score = acc.Score
	res.ClaimCount = acc.ClaimCount
	res.Level = acc.Level
	res.Rank = acc.Rank
	return res, err
}

// accrue steps the device forward. An account whose device has never run
// starts accruing from now.
func (a *Account) accrue(now time.Time, interval time.Duration) bool {
	if !a.LastAccrualTime.After(Epoch) {
		a.LastAccrualTime = now
		return true
	}
	t := a.Tier()
	stored, last := game.Accrue(a.AccrualStored, t.RatePerInterval, t.Capacity, a.LastAccrualTime, interval, now)
	if stored == a.AccrualStored && last.Equal(a.LastAccrualTime) {
		return false
	}
	a.AccrualStored, a.LastAccrualTime = stored, last
	return true
}

func (s *Store) deviceView(a Account) DeviceView {
	t := a.Tier()
	v := DeviceView{
		Level:    a.DeviceLevel,
		Stored:   game.Withdraw(a.AccrualStored),
		Capacity: int64(t.Capacity),
		Rate:     int64(t.RatePerInterval),
		Interval: s.rules.AccrualInterval,
		Score:    a.Score,
	}
	if next, ok := game.NextTier(a.DeviceLevel); ok {
		v.NextLevel = next.Level
		v.UpgradeCost = next.UpgradeCost
	}
	return v
}

// InteractDevice runs an accrual step and returns the device state.
func (s *Store) InteractDevice(id string, now time.Time) (DeviceView, error) {
	acc, err := s.update(id, func(a *Account) (bool, error) {
		return a.accrue(now, s.rules.AccrualInterval), nil
	})
	if err != nil {
		return DeviceView{}, err
	}
	return s.deviceView(acc), nil
}

// WithdrawDevice moves the device's whole stored units into score and
// returns the amount moved. The accrual clock is not reset.
func (s *Store) WithdrawDevice(id string, now time.Time) (int64, Account, error) {
	var amount int64
	acc, err := s.update(id, func(a *Account) (bool, error) {
		changed := a.accrue(now, s.rules.AccrualInterval)
		amount = game.Withdraw(a.AccrualStored)
		if amount == 0 {
			return changed, nil
		}
		a.AccrualStored = 0
		a.Score += amount
		return true, nil
	})
	return amount, acc, err
}

// UpgradeDevice buys the next device tier if the account can afford it.
// Storage accrued under the old tier is settled first.
func (s *Store) UpgradeDevice(id string, now time.Time) (UpgradeResult, error) {
	var res UpgradeResult
	acc, err := s.update(id, func(a *Account) (bool, error) {
		changed := a.accrue(now, s.rules.AccrualInterval)
		next, ok := game.NextTier(a.DeviceLevel)
		if !ok {
			res.Reason = ReasonMaxLevel
			return changed, nil
		}
		res.Cost = next.UpgradeCost
		if a.Score < next.UpgradeCost {
			res.Reason = ReasonInsufficientFunds
			return changed, nil
		}
		a.Score -= next.UpgradeCost
		a.DeviceLevel = next.Level
		res.Success = true
		return true, nil
	})
	res.NewLevel = acc.DeviceLevel
	res.Score = acc.Score
	return res, err
}

// AwardBonus credits amount unconditionally. The bool reports a level-up.
func (s *Store) AwardBonus(id string, amount int64) (Account, bool, error) {
	if amount <= 0 {
		return Account{}, false, ErrInvalidAmount
	}
	var leveled bool
	acc, err := s.update(id, func(a *Account) (bool, error) {
		prev := a.Level
		a.Score += amount
		a.recompute()
		leveled = a.Level > prev
		return true, nil
	})
	return acc, leveled, err
}

// ApplyPeriodicReward credits bonus if interval has passed since the
// account's last periodic reward. The bool reports whether it was applied.
func (s *Store) ApplyPeriodicReward(id string, now time.Time, interval time.Duration, bonus int64) (Account, bool, error) {
	if bonus <= 0 {
		return Account{}, false, ErrInvalidAmount
	}
	var applied bool
	acc, err := s.update(id, func(a *Account) (bool, error) {
		if ok, _ := game.TryConsume(a.LastPeriodicRewardTime, interval, now); !ok {
			return false, nil
		}
		a.Score += bonus
		a.LastPeriodicRewardTime = now
		applied = true
		return true, nil
	})
	return acc, applied, err
}

// IDs returns every account id in creation order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.order))
	for i, e := range s.order {
		e.mu.Lock()
		ids[i] = e.acc.ID
		e.mu.Unlock()
	}
	return ids
}

// Snapshot returns a copy of every account in creation order. It excludes
// all writers while it copies, so it never observes half of a transfer.
func (s *Store) Snapshot() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Account, len(s.order))
	for i, e := range s.order {
		out[i] = e.acc
	}
	return out
}

// Restore replaces the store's contents with accs, typically at startup.
// Derived fields are recomputed and out-of-range values clamped.
func (s *Store) Restore(accs []Account) {
	var sorted, unsequenced []Account
	var maxSeq int64
	for _, a := range accs {
		if a.Seq <= 0 {
			unsequenced = append(unsequenced, a)
			continue
		}
		sorted = append(sorted, a)
		if a.Seq > maxSeq {
			maxSeq = a.Seq
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })
	for _, a := range unsequenced {
		maxSeq++
		a.Seq = maxSeq
		sorted = append(sorted, a)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = make(map[string]*entry, len(sorted))
	s.order = nil
	s.nextSeq = maxSeq + 1
	for _, a := range sorted {
		if a.ID == "" || s.accounts[a.ID] != nil {
			continue
		}
		if a.DeviceLevel < 1 || a.DeviceLevel > game.MaxDeviceLevel {
			a.DeviceLevel = game.Tier(a.DeviceLevel).Level
		}
		if capacity := a.Tier().Capacity; a.AccrualStored > capacity {
			a.AccrualStored = capacity
		}
		if a.AccrualStored < 0 {
			a.AccrualStored = 0
		}
		if a.Score < 0 {
			a.Score = 0
		}
		a.LastClaimTime = normalizeTime(a.LastClaimTime)
		a.LastPeriodicRewardTime = normalizeTime(a.LastPeriodicRewardTime)
		a.LastAccrualTime = normalizeTime(a.LastAccrualTime)
		a.recompute()
		e := &entry{acc: a}
		s.accounts[a.ID] = e
		s.order = append(s.order, e)
	}
	s.version.Add(1)
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return Epoch
	}
	return t.UTC()
}
