package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/ropeline/internal/logger"
)

// Completion and ownership outcomes
var (
	// ErrDuplicateCompletion is returned when a habit was already completed on the same calendar day
	ErrDuplicateCompletion = errors.New("habit already completed today")
	// ErrHabitNotFound is returned for unknown or stale habit references
	ErrHabitNotFound = errors.New("habit not found")
	// ErrUnauthorized is returned when the caller does not own the resource or lacks the role
	ErrUnauthorized = errors.New("not authorized")
	// ErrHabitInactive is returned when completing a habit that is paused, archived or deleted
	ErrHabitInactive = errors.New("habit is not active")
	// ErrInvalidTransition is returned for disallowed habit status changes
	ErrInvalidTransition = errors.New("invalid habit status transition")
	// ErrConflict is returned when an optimistic version check fails
	ErrConflict = errors.New("concurrent modification detected")
)

// Collaborator failures
var (
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrCatalogUnavailable = errors.New("achievement catalog unavailable")
)

// Lookup failures
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrNotSpecial          = errors.New("achievement is not a special achievement")
	ErrAlreadyFriends      = errors.New("users are already friends")
	ErrAlreadyJoined       = errors.New("challenge already joined")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrHabitNameTaken      = errors.New("habit name already in use")
	// ErrInvalidInput wraps request validation failures
	ErrInvalidInput = errors.New("invalid input")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Store wraps a collaborator I/O failure so callers can match ErrStoreUnavailable.
// Sentinels already present in err's tree are preserved.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// Retryable reports whether err is a collaborator failure worth retrying with backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrCatalogUnavailable) || errors.Is(err, ErrConflict)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

var exit = os.Exit

// Fatal logs err, closes the log file and exits with code 1. A nil err is a no-op.
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		logger.Close()
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		exit(1)
	}
}
