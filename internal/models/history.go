package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionType tags a history entry with the transition that produced it
// Matches PostgreSQL ENUM: history_action_type
type ActionType string

const (
	ActionCreate   ActionType = "CREATE"
	ActionEdit     ActionType = "EDIT"
	ActionApprove  ActionType = "APPROVE"
	ActionDecline  ActionType = "DECLINE"
	ActionCheckIn  ActionType = "CHECK_IN"
	ActionCheckOut ActionType = "CHECK_OUT"
)

// StateLabel is the closed set of before/after labels a history entry may
// carry. Free-text labels are deliberately not accepted so the audit trail
// stays machine-checkable.
type StateLabel string

const (
	StateNone       StateLabel = "none"
	StatePending    StateLabel = "pending"
	StateApproved   StateLabel = "approved"
	StateDeclined   StateLabel = "declined"
	StateCheckedIn  StateLabel = "checked_in"
	StateCheckedOut StateLabel = "checked_out"
)

// StatusLabel maps a request status to its audit state label
func StatusLabel(status VisitStatus) StateLabel {
	switch status {
	case VisitStatusApproved:
		return StateApproved
	case VisitStatusDeclined:
		return StateDeclined
	default:
		return StatePending
	}
}

// HistoryEntry is one immutable row of the visit audit trail. Entries are
// append-only; nothing in the system updates or deletes them.
type HistoryEntry struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TicketNumber string     `json:"ticket_number" db:"ticket_number"`
	UserID       string     `json:"user_id" db:"user_id"`
	Comment      string     `json:"comment" db:"comment"`
	ActionType   ActionType `json:"action_type" db:"action_type"`
	BeforeState  StateLabel `json:"before_state" db:"before_state"`
	AfterState   StateLabel `json:"after_state" db:"after_state"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
