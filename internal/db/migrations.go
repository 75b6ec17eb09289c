package db

type migration struct {
	name string
	sql  string
}

// Timestamps in the accounts table are Unix nanoseconds in UTC; zero is the
// "never" epoch.
var migrations = []migration{
	{
		name: "create users table",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT UNIQUE NOT NULL COLLATE NOCASE,
				password_hash TEXT NOT NULL,
				total_logins INTEGER DEFAULT 0,
				last_login_at DATETIME,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`,
	},
	{
		name: "create accounts table",
		sql: `
			CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				display_name TEXT NOT NULL DEFAULT '',
				score INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0),
				level INTEGER NOT NULL DEFAULT 1,
				rank_name TEXT NOT NULL DEFAULT '',
				last_claim_at INTEGER NOT NULL DEFAULT 0,
				last_periodic_reward_at INTEGER NOT NULL DEFAULT 0,
				claim_count INTEGER NOT NULL DEFAULT 0,
				device_level INTEGER NOT NULL DEFAULT 1,
				accrual_stored REAL NOT NULL DEFAULT 0,
				last_accrual_at INTEGER NOT NULL DEFAULT 0,
				seq INTEGER NOT NULL DEFAULT 0,
				updated_at INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_accounts_seq ON accounts(seq);
			CREATE INDEX IF NOT EXISTS idx_accounts_score ON accounts(score DESC);
		`,
	},
	{
		name: "create server settings table",
		sql: `
			CREATE TABLE IF NOT EXISTS server_settings (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				name TEXT NOT NULL,
				operator TEXT NOT NULL,
				motd TEXT NOT NULL DEFAULT '',
				lobby TEXT NOT NULL DEFAULT 'lobby'
			);
			INSERT OR IGNORE INTO server_settings (id, name, operator, motd, lobby)
				VALUES (1, 'Lap Game', 'Operator', 'Be nice. Claim often.', 'lobby');
		`,
	},
}
