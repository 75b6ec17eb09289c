package account

import (
	"errors"
	"fmt"
)

// Error categories. Operations wrap these with detail; callers test with
// errors.Is. None of them leaves an account partially updated.
var (
	// ErrValidation covers malformed requests: bad amounts, self-transfer,
	// missing reply target.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds is returned when a debit would take score below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrRateLimited is returned when a cooldown has not yet elapsed.
	ErrRateLimited = errors.New("rate limited")

	// ErrSpamBlocked is returned while a sender is throttled.
	ErrSpamBlocked = errors.New("spam blocked")

	// ErrNotFound is returned for an identifier that has no account.
	ErrNotFound = errors.New("account not found")

	// ErrPersistence marks snapshot load/save failures.
	ErrPersistence = errors.New("persistence failure")

	// ErrDelivery marks an outbound message that could not be sent.
	ErrDelivery = errors.New("delivery failure")
)

// Validation failures.
var (
	ErrInvalidAmount = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrSelfTransfer  = fmt.Errorf("%w: cannot transfer to yourself", ErrValidation)
	ErrNoTarget      = fmt.Errorf("%w: no transfer target", ErrValidation)
)
