package harbor_errors

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAlreadyExists  = errors.New("already exists")
	ErrEmptyMessage   = errors.New("message has no content or attachments")
	ErrNoThread       = errors.New("no destination thread")
	ErrBlocked        = errors.New("participant is blocked")
	ErrLoadInFlight   = errors.New("load already in flight")
	ErrURLUnavailable = errors.New("signed url unavailable")
)

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
