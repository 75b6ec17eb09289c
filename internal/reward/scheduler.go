// Package reward runs the background jobs that hand out points without a
// player asking: the periodic reward sweep and per-room reward windows.
package reward

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/notepid/lapgame/internal/account"
)

// Notifier delivers a text notice to one player. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, accountID, text string) error
}

// Config tunes the periodic reward.
type Config struct {
	Cadence    time.Duration // how often the sweep runs
	FirstDelay time.Duration // delay before the first sweep
	Interval   time.Duration // minimum time between rewards for one account
	Bonus      int64
}

// DefaultConfig returns the stock periodic reward settings.
func DefaultConfig() Config {
	return Config{
		Cadence:    30 * time.Minute,
		FirstDelay: 5 * time.Second,
		Interval:   30 * time.Minute,
		Bonus:      20,
	}
}

const (
	deliveryTimeout  = 5 * time.Second
	deliveryParallel = 8
)

// SweepStats summarizes one sweep.
type SweepStats struct {
	Checked     int
	Rewarded    int
	Undelivered int
}

// Scheduler credits the periodic bonus to every eligible account.
type Scheduler struct {
	store    *account.Store
	notifier Notifier
	cfg      Config
	now      func() time.Time

	hookMu sync.Mutex
	hooks  []func(now time.Time)
}

// NewScheduler creates a periodic reward scheduler. notifier may be nil.
func NewScheduler(store *account.Store, notifier Notifier, cfg Config) *Scheduler {
	return &Scheduler{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OnTick registers housekeeping to run after every sweep.
func (s *Scheduler) OnTick(fn func(now time.Time)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Run sweeps on the configured cadence until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	first := time.NewTimer(s.cfg.FirstDelay)
	defer first.Stop()

	select {
	case <-ctx.Done():
		return
	case <-first.C:
	}
	s.tick(ctx)

	ticker := time.NewTicker(s.cfg.Cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	stats := s.Sweep(ctx, now)
	log.Printf("Reward: sweep checked=%d rewarded=%d undelivered=%d", stats.Checked, stats.Rewarded, stats.Undelivered)

	s.hookMu.Lock()
	hooks := append([]func(time.Time){}, s.hooks...)
	s.hookMu.Unlock()
	for _, fn := range hooks {
		fn(now)
	}
}

// Sweep applies the periodic reward to every account due at now, then
// sends one notice per rewarded account. All rewards are committed before
// any notice goes out, and a failed notice is only logged.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) SweepStats {
	var stats SweepStats
	var rewarded []account.Account

	for _, id := range s.store.IDs() {
		stats.Checked++
		acc, applied, err := s.store.ApplyPeriodicReward(id, now, s.cfg.Interval, s.cfg.Bonus)
		if err != nil {
			log.Printf("Reward: account %s: %v", id, err)
			continue
		}
		if applied {
			rewarded = append(rewarded, acc)
		}
	}
	stats.Rewarded = len(rewarded)

	if s.notifier == nil || len(rewarded) == 0 {
		return stats
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
		sem    = make(chan struct{}, deliveryParallel)
	)
	for _, acc := range rewarded {
		wg.Add(1)
		sem <- struct{}{}
		go func(acc account.Account) {
			defer wg.Done()
			defer func() { <-sem }()

			dctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
			defer cancel()
			text := fmt.Sprintf("Periodic reward: +%d points! Score: %d", s.cfg.Bonus, acc.Score)
			if err := s.notifier.Notify(dctx, acc.ID, text); err != nil {
				log.Printf("Reward: notify %s: %v", acc.ID, err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(acc)
	}
	wg.Wait()
	stats.Undelivered = failed
	return stats
}
