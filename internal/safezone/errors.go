package safezone

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied means the OS/user refused location access.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrUnavailable means a position fix could not be obtained in time.
	// Retryable; distinct from ErrPermissionDenied.
	ErrUnavailable = errors.New("location unavailable")

	// ErrNoZone means classification was requested before a safe zone exists.
	ErrNoZone = errors.New("no safe zone configured")

	// ErrNoSelection means an edit was attempted with no person selected.
	ErrNoSelection = errors.New("no monitored person selected")

	// ErrNotEditing means an edit-session operation ran outside edit mode.
	ErrNotEditing = errors.New("not in edit mode")

	// ErrLookupFailed marks reverse-geocode failures. Cosmetic only; the
	// monitor swallows it and leaves the address display blank.
	ErrLookupFailed = errors.New("reverse geocode lookup failed")
)

// ValidationError names the field that blocked an edit or save.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthorizationError is returned when a non-caregiver tries to author a zone.
type AuthorizationError struct {
	Role string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %q is not allowed to edit safe zones", e.Role)
}

// PersistenceError wraps a failed safe-zone save. The edit session is
// retained so the caregiver can retry without re-entering data.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save safe zone: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
