package user

import (
	"errors"
	"fmt"
	"time"
)

// User is a login for the chat front end. Game state lives in the account
// store under AccountID.
type User struct {
	ID           int
	Username     string
	PasswordHash string
	TotalLogins  int
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountID is the stable game account identifier for this user.
func (u *User) AccountID() string {
	return fmt.Sprintf("u%d", u.ID)
}

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("username must be 3-20 letters, digits, '-' or '_'")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

const (
	minUsername = 3
	maxUsername = 20
	minPassword = 6
)

// ValidateUsername checks that name is usable as a login and chat handle.
func ValidateUsername(name string) error {
	if len(name) < minUsername || len(name) > maxUsername {
		return ErrInvalidUsername
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}

// ValidatePassword checks a new password.
func ValidatePassword(pw string) error {
	if len(pw) < minPassword {
		return ErrWeakPassword
	}
	return nil
}
