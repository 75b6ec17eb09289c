package account

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Receipt records a completed transfer.
type Receipt struct {
	ID        string
	From      string
	To        string
	Amount    int64
	At        time.Time
	FromScore int64
	ToScore   int64
}

// Transfer moves amount points from one account to another. The destination
// is created if it has never been seen. Debit and credit are committed
// together: no other operation can observe one without the other.
func (s *Store) Transfer(from, to string, amount int64, now time.Time) (Receipt, error) {
	switch {
	case amount <= 0:
		return Receipt{}, ErrInvalidAmount
	case to == "":
		return Receipt{}, ErrNoTarget
	case from == to:
		return Receipt{}, ErrSelfTransfer
	}

	s.mu.RLock()
	if s.accounts[to] != nil {
		defer s.mu.RUnlock()
		return s.transferLocked(from, to, amount, now)
	}
	s.mu.RUnlock()

	// A new destination is inserted under the write lock, and only once the
	// source is known to cover the amount.
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferLocked(from, to, amount, now)
}

// transferLocked runs with s.mu held. It needs the write lock when the
// destination does not exist yet.
func (s *Store) transferLocked(from, to string, amount int64, now time.Time) (Receipt, error) {
	src := s.accounts[from]
	if src == nil {
		return Receipt{}, fmt.Errorf("transfer from %q: %w", from, ErrNotFound)
	}
	dst := s.accounts[to]
	if dst == nil {
		if src.acc.Score < amount {
			return Receipt{}, fmt.Errorf("transfer %d with balance %d: %w", amount, src.acc.Score, ErrInsufficientFunds)
		}
		dst = s.insertLocked(NewAccount(to, ""))
	}

	first, second := src, dst
	if to < from {
		first, second = dst, src
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if src.acc.Score < amount {
		return Receipt{}, fmt.Errorf("transfer %d with balance %d: %w", amount, src.acc.Score, ErrInsufficientFunds)
	}

	debited, credited := src.acc, dst.acc
	debited.Score -= amount
	credited.Score += amount
	debited.recompute()
	credited.recompute()
	src.acc, dst.acc = debited, credited
	s.version.Add(1)

	return Receipt{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Amount:    amount,
		At:        now,
		FromScore: debited.Score,
		ToScore:   credited.Score,
	}, nil
}
