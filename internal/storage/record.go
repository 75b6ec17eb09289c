// Package storage moves account snapshots to and from durable storage. The
// in-memory account store stays authoritative; backends only see whole
// snapshots.
package storage

import (
	"context"
	"time"

	"github.com/notepid/lapgame/internal/account"
)

// Record is the persisted form of one account. Level and Rank are written
// for people reading the snapshot and recomputed on load.
type Record struct {
	ID                     string    `json:"id"`
	DisplayName            string    `json:"display_name"`
	Score                  int64     `json:"score"`
	Level                  int       `json:"level"`
	Rank                   string    `json:"rank"`
	LastClaimTime          time.Time `json:"last_claim_time"`
	LastPeriodicRewardTime time.Time `json:"last_periodic_reward_time"`
	ClaimCount             int64     `json:"claim_count"`
	DeviceLevel            int       `json:"device_level"`
	AccrualStored          float64   `json:"accrual_stored"`
	LastAccrualTime        time.Time `json:"last_accrual_time"`
	Seq                    int64     `json:"seq"`
}

// Store is a snapshot backend.
type Store interface {
	// Load returns the last saved snapshot, or nothing if none exists.
	Load(ctx context.Context) ([]Record, error)
	// Save replaces the saved snapshot.
	Save(ctx context.Context, recs []Record) error
}

// FromAccount converts an account to its record.
func FromAccount(a account.Account) Record {
	return Record{
		ID:                     a.ID,
		DisplayName:            a.DisplayName,
		Score:                  a.Score,
		Level:                  a.Level,
		Rank:                   a.Rank,
		LastClaimTime:          a.LastClaimTime.UTC(),
		LastPeriodicRewardTime: a.LastPeriodicRewardTime.UTC(),
		ClaimCount:             a.ClaimCount,
		DeviceLevel:            a.DeviceLevel,
		AccrualStored:          a.AccrualStored,
		LastAccrualTime:        a.LastAccrualTime.UTC(),
		Seq:                    a.Seq,
	}
}

// Account converts a record back to an account.
func (r Record) Account() account.Account {
	return account.Account{
		ID:                     r.ID,
		DisplayName:            r.DisplayName,
		Score:                  r.Score,
		Level:                  r.Level,
		Rank:                   r.Rank,
		LastClaimTime:          r.LastClaimTime.UTC(),
		LastPeriodicRewardTime: r.LastPeriodicRewardTime.UTC(),
		ClaimCount:             r.ClaimCount,
		DeviceLevel:            r.DeviceLevel,
		AccrualStored:          r.AccrualStored,
		LastAccrualTime:        r.LastAccrualTime.UTC(),
		Seq:                    r.Seq,
	}
}

// Records converts a snapshot to records.
func Records(accs []account.Account) []Record {
	out := make([]Record, len(accs))
	for i, a := range accs {
		out[i] = FromAccount(a)
	}
	return out
}

// Accounts converts records to accounts.
func Accounts(recs []Record) []account.Account {
	out := make([]account.Account, len(recs))
	for i, r := range recs {
		out[i] = r.Account()
	}
	return out
}
