package user

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repo handles database operations for users.
type Repo struct {
	db *sql.DB
}

// NewRepo creates a new user repository.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

const userColumns = `id, username, password_hash, total_logins, last_login_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	var lastLogin, created, updated sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.TotalLogins, &lastLogin, &created, &updated); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	if created.Valid {
		u.CreatedAt = created.Time
	}
	if updated.Valid {
		u.UpdatedAt = updated.Time
	}
	return u, nil
}

// Create registers a new user with a hashed password.
func (r *Repo) Create(username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if r.Exists(username) {
		return nil, ErrUsernameTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	result, err := r.db.Exec(`INSERT INTO users (username, password_hash) VALUES (?, ?)`, username, hash)
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get user id: %w", err)
	}
	return r.GetByID(int(id))
}

// Authenticate checks username and password and records the login.
func (r *Repo) Authenticate(username, password string) (*User, error) {
	u, err := r.GetByUsername(username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if _, err := r.db.Exec(`
		UPDATE users SET last_login_at = ?, total_logins = total_logins + 1, updated_at = ?
		WHERE id = ?
	`, now, now, u.ID); err != nil {
		return nil, fmt.Errorf("record login for %s: %w", u.Username, err)
	}
	u.LastLoginAt = &now
	u.TotalLogins++
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *Repo) GetByID(id int) (*User, error) {
	u, err := scanUser(r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// GetByUsername retrieves a user by username, ignoring case.
func (r *Repo) GetByUsername(username string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ? COLLATE NOCASE`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return u, nil
}

// Exists reports whether a username is taken.
func (r *Repo) Exists(username string) bool {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM users WHERE username = ? COLLATE NOCASE", username).Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// UpdatePassword changes a user's password.
func (r *Repo) UpdatePassword(id int, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update password for user %d: %w", id, err)
	}
	return nil
}

// Delete removes a login. The game account it played under is kept.
func (r *Repo) Delete(id int) error {
	res, err := r.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete user %d: %w", id, ErrNotFound)
	}
	return nil
}

// List returns all users ordered by username.
func (r *Repo) List() ([]*User, error) {
	rows, err := r.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY username COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
