package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks empty or malformed user input. Callers re-prompt.
	ErrValidation = errors.New("invalid input")
	// ErrUnauthorized marks an admin-only action attempted by someone else.
	ErrUnauthorized = errors.New("not allowed")
	// ErrNotFound marks a missing invoice, gift or user.
	ErrNotFound = errors.New("not found")
	// ErrUnresolved is returned when a target token matches no identity.
	ErrUnresolved = fmt.Errorf("target %w", ErrNotFound)
	// ErrRecipientUnavailable is an expected delivery failure, e.g. the user blocked the bot.
	ErrRecipientUnavailable = errors.New("recipient unavailable")
	// ErrPaymentsDisabled is returned when no gateway token is configured.
	ErrPaymentsDisabled = errors.New("payments are not configured")
)

// ExternalError wraps a failure of the payment gateway or the messaging platform.
type ExternalError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
