package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wavevms/wave-backend/internal/database"
)

var (
	// ErrNotFound indicates an unknown ticket number or QR token
	ErrNotFound = fmt.Errorf("not found")

	// ErrNotAuthorized indicates the actor has no pending approval on the request
	ErrNotAuthorized = fmt.Errorf("actor is not a pending approver for this request")

	// ErrInvalidState indicates the requested transition is not legal from the
	// record's current state (e.g. check-out before check-in, decision on a
	// terminal request)
	ErrInvalidState = fmt.Errorf("operation not valid in current state")

	// ErrConflict indicates a concurrent write won the race; the caller should
	// reload the record and retry
	ErrConflict = fmt.Errorf("request was modified concurrently, retry with fresh data")

	// ErrAuditWrite indicates a state change persisted but its history entry
	// did not. The mutation survives; only the audit trail is incomplete.
	ErrAuditWrite = fmt.Errorf("state change saved but audit trail write failed")
)

// ValidationError reports missing or invalid input fields. The field list is
// surfaced to the caller so the form can highlight what to fix.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

// TooEarlyError reports a check-out attempted before the minimum dwell time
// elapsed. It is retryable: the caller can try again after Remaining.
type TooEarlyError struct {
	Remaining time.Duration
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("minimum dwell time not elapsed, retry in %s", e.Remaining.Round(time.Second))
}

// mapStoreErr translates store-level errors into the service taxonomy
func mapStoreErr(err error) error {
	if errors.Is(err, database.ErrVersionConflict) {
		return ErrConflict
	}
	return err
}
