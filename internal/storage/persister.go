package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/notepid/lapgame/internal/account"
)

const shutdownFlushTimeout = 10 * time.Second

// ErrSavesHeld is returned by Flush after a failed Restore. Saving the
// in-memory store then would overwrite a snapshot that could not be read.
var ErrSavesHeld = errors.New("saves held until the snapshot is restored")

// Persister copies the account store to a backend whenever it has changed.
// A failed save is logged and retried on the next tick; the running
// process keeps serving from memory.
type Persister struct {
	accounts *account.Store
	backend  Store
	interval time.Duration

	mu    sync.Mutex // serializes flushes
	saved int64      // store version of the last successful save
	held  bool
}

// NewPersister creates a persister flushing every interval.
func NewPersister(accounts *account.Store, backend Store, interval time.Duration) *Persister {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Persister{accounts: accounts, backend: backend, interval: interval, saved: -1}
}

// Restore loads the saved snapshot into the account store. If the load
// fails, later flushes are held so the unreadable snapshot stays in place
// for the operator.
func (p *Persister) Restore(ctx context.Context) (int, error) {
	recs, err := p.backend.Load(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.held = true
		return 0, fmt.Errorf("%w: restore: %w", account.ErrPersistence, err)
	}
	p.held = false
	p.accounts.Restore(Accounts(recs))
	p.saved = p.accounts.Version()
	return p.accounts.Len(), nil
}

// Held reports whether saves are held after a failed Restore.
func (p *Persister) Held() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held
}

// Flush saves a snapshot if the store changed since the last save.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Read the version first: a change racing with the snapshot is saved
	// again on the next flush.
	version := p.accounts.Version()
	if version == p.saved {
		return nil
	}
	if p.held {
		return fmt.Errorf("%w: %w", account.ErrPersistence, ErrSavesHeld)
	}
	snap := p.accounts.Snapshot()
	if err := p.backend.Save(ctx, Records(snap)); err != nil {
		return fmt.Errorf("%w: flush %d accounts: %w", account.ErrPersistence, len(snap), err)
	}
	p.saved = version
	return nil
}

// Run flushes on the configured interval until ctx is cancelled, then
// flushes once more.
func (p *Persister) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			defer cancel()
			if err := p.Flush(fctx); err != nil {
				log.Printf("Storage: WARNING: durability at risk: final %v", err)
				return
			}
			log.Printf("Storage: final snapshot saved")
			return
		case <-ticker.C:
			if err := p.Flush(ctx); err != nil {
				log.Printf("Storage: WARNING: durability at risk: %v", err)
			}
		}
	}
}
