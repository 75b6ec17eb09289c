package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// SQLStore keeps the snapshot in the accounts table, one row per account.
// The table is created by the database migrations.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore creates a SQL backend over an open, migrated database.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

const selectAccounts = `
	SELECT id, display_name, score, level, rank_name,
		last_claim_at, last_periodic_reward_at, claim_count,
		device_level, accrual_stored, last_accrual_at, seq
	FROM accounts
	ORDER BY seq, id`

const upsertAccount = `
	INSERT INTO accounts (id, display_name, score, level, rank_name,
		last_claim_at, last_periodic_reward_at, claim_count,
		device_level, accrual_stored, last_accrual_at, seq, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		display_name = excluded.display_name,
		score = excluded.score,
		level = excluded.level,
		rank_name = excluded.rank_name,
		last_claim_at = excluded.last_claim_at,
		last_periodic_reward_at = excluded.last_periodic_reward_at,
		claim_count = excluded.claim_count,
		device_level = excluded.device_level,
		accrual_stored = excluded.accrual_stored,
		last_accrual_at = excluded.last_accrual_at,
		seq = excluded.seq,
		updated_at = excluded.updated_at`

// Load reads every account row.
func (s *SQLStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(selectAccounts))
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		var claimAt, periodicAt, accrualAt int64
		if err := rows.Scan(&r.ID, &r.DisplayName, &r.Score, &r.Level, &r.Rank,
			&claimAt, &periodicAt, &r.ClaimCount,
			&r.DeviceLevel, &r.AccrualStored, &accrualAt, &r.Seq); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		r.LastClaimTime = fromUnixNano(claimAt)
		r.LastPeriodicRewardTime = fromUnixNano(periodicAt)
		r.LastAccrualTime = fromUnixNano(accrualAt)
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return recs, nil
}

// Save upserts every record in one transaction.
func (s *SQLStore) Save(ctx context.Context, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(upsertAccount))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.ID, r.DisplayName, r.Score, r.Level, r.Rank,
			toUnixNano(r.LastClaimTime), toUnixNano(r.LastPeriodicRewardTime), r.ClaimCount,
			r.DeviceLevel, r.AccrualStored, toUnixNano(r.LastAccrualTime), r.Seq, now); err != nil {
			return fmt.Errorf("upsert account %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// toUnixNano stores the zero time as the epoch.
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
