package auth

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a core operation wraps exactly one
// of these, so callers classify with errors.Is or KindOf.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrForbidden         = errors.New("forbidden")
)

// Package-specific errors, each wrapping a kind.
var (
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	ErrTokenInvalid = fmt.Errorf("%w: invalid token", ErrInvalidCredential)
	ErrTokenRevoked = fmt.Errorf("%w: token revoked", ErrInvalidCredential)
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindDuplicateUsername
	KindNotFound
	KindInvalidCredential
	KindForbidden
)

var kindNames = map[Kind]string{
	KindInternal:          "internal",
	KindInvalidInput:      "invalid_input",
	KindDuplicateUsername: "duplicate_username",
	KindNotFound:          "not_found",
	KindInvalidCredential: "invalid_credential",
	KindForbidden:         "forbidden",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// KindOf returns the kind wrapped by err, or KindInternal when err wraps
// none of the sentinels (storage and other infrastructure failures).
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrDuplicateUsername):
		return KindDuplicateUsername
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidCredential):
		return KindInvalidCredential
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindInternal
	}
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func forbidden(action Action) error {
	return fmt.Errorf("%w: %s requires a higher role", ErrForbidden, action)
}
