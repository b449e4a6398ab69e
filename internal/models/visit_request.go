package models

import (
	"fmt"
	"time"
)

// ============================================================================
// VISIT REQUEST TYPES & STATUSES (matches DB ENUMs)
// ============================================================================

// VisitStatus represents the overall status of a visit request
// Matches PostgreSQL ENUM: visit_status
type VisitStatus string

const (
	VisitStatusPending  VisitStatus = "pending"  // Waiting on one or more approvers
	VisitStatusApproved VisitStatus = "approved" // Every approver in the chain approved
	VisitStatusDeclined VisitStatus = "declined" // At least one approver declined (terminal)
)

// ApprovalStatus represents the status of a single approval step
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusDeclined ApprovalStatus = "declined"
)

// LocationType represents the kind of site a visit targets
type LocationType string

const (
	LocationTypeOffice LocationType = "Office"
	LocationTypePlant  LocationType = "Plant"
)

// ============================================================================
// JSONB DOCUMENT TYPES
// ============================================================================

// Guest represents one visitor on a request. Stored as a JSONB array element
// on the visit_requests row. The QR token is assigned once at creation and is
// stable across edits; it is the identifier printed on the guest badge.
type Guest struct {
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	Company      string     `json:"company"`
	Designation  string     `json:"designation"`
	QRToken      string     `json:"qr_token"`
	CheckedIn    bool       `json:"checked_in"`
	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
}

// Approval represents one step of a request's approval chain. Stored as a
// JSONB array element on the visit_requests row, in chain order.
type Approval struct {
	ApproverID    string         `json:"approver_id"`
	ApproverEmail string         `json:"approver_email"`
	Status        ApprovalStatus `json:"status"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty"`
	Reason        *string        `json:"reason,omitempty"`
}

// ============================================================================
// VISIT REQUEST
// ============================================================================

// VisitRequest is the unit of mutation for the whole workflow: the requester
// snapshot, the guest list and the approval chain live on one row. The version
// column backs optimistic concurrency; every update must pass the version it
// read.
type VisitRequest struct {
	TicketNumber         string       `json:"ticket_number" db:"ticket_number"`
	Requester            Employee     `json:"requester" db:"-"`
	VisitorCategory      string       `json:"visitor_category" db:"visitor_category"`
	VisitorCategoryOther NullString   `json:"visitor_category_other,omitempty" db:"visitor_category_other"`
	NumberOfGuests       int          `json:"number_of_guests" db:"number_of_guests"`
	Guests               []Guest      `json:"guests" db:"-"`
	Purpose              string       `json:"purpose" db:"purpose"`
	TentativeArrival     time.Time    `json:"tentative_arrival" db:"tentative_arrival"`
	TentativeDuration    string       `json:"tentative_duration" db:"tentative_duration"`
	LunchRequired        bool         `json:"lunch_required" db:"lunch_required"`
	LunchCategory        NullString   `json:"lunch_category,omitempty" db:"lunch_category"`
	DietaryRequirements  NullString   `json:"dietary_requirements,omitempty" db:"dietary_requirements"`
	MeetingWith          string       `json:"meeting_with" db:"meeting_with"`
	LocationType         LocationType `json:"location_type" db:"location_type"`
	LocationToVisit      string       `json:"location_to_visit" db:"location_to_visit"`
	AreaToVisit          string       `json:"area_to_visit" db:"area_to_visit"`
	CellLineVisit        bool         `json:"cell_line_visit" db:"cell_line_visit"`
	Notes                NullString   `json:"notes,omitempty" db:"notes"`
	Status               VisitStatus  `json:"status" db:"status"`
	Approvals            []Approval   `json:"approvals" db:"-"`
	Version              int          `json:"version" db:"version"`
	CreatedAt            time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at" db:"updated_at"`
}

// DeriveStatus computes the request status from an approval list. The status
// column is never a source of truth on its own; it is recomputed after every
// decision and on every edit.
//
// An empty chain derives to pending: such a request can never become approved.
// Chain construction logs a warning when it produces one (see the approval
// chain builder).
func DeriveStatus(approvals []Approval) VisitStatus {
	for _, a := range approvals {
		if a.Status == ApprovalStatusDeclined {
			return VisitStatusDeclined
		}
	}
	if len(approvals) == 0 {
		return VisitStatusPending
	}
	for _, a := range approvals {
		if a.Status != ApprovalStatusApproved {
			return VisitStatusPending
		}
	}
	return VisitStatusApproved
}

// CurrentApprover returns the first approval still pending, in chain order,
// or nil when every step is decided. Derived on every read, never stored.
func CurrentApprover(approvals []Approval) *Approval {
	for i := range approvals {
		if approvals[i].Status == ApprovalStatusPending {
			return &approvals[i]
		}
	}
	return nil
}

// IsApprover reports whether the given email has at least one pending step in
// the chain. Used as the authorization gate for decisions.
func IsApprover(approvals []Approval, email string) bool {
	for _, a := range approvals {
		if a.ApproverEmail == email && a.Status == ApprovalStatusPending {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the request can accept further approval decisions
func (r *VisitRequest) IsTerminal() bool {
	return r.Status == VisitStatusApproved || r.Status == VisitStatusDeclined
}

// GuestByQRToken returns the index of the guest carrying the token, or -1
func (r *VisitRequest) GuestByQRToken(token string) int {
	for i := range r.Guests {
		if r.Guests[i].QRToken == token {
			return i
		}
	}
	return -1
}

// ============================================================================
// IDENTIFIER FORMATS (bit-exact wire contracts, embedded in scanned codes)
// ============================================================================

// FormatTicketNumber renders a ticket number: WAVE-YYYYMMDD-NNN
func FormatTicketNumber(day time.Time, sequence int) string {
	return fmt.Sprintf("WAVE-%s-%03d", day.Format("20060102"), sequence)
}

// FormatGuestQRToken renders a guest QR token: WAVE-<ticket>-GUEST-<index>.
// The ticket number already starts with "WAVE-", so tokens carry a doubled
// prefix (WAVE-WAVE-...). Badges in the field are printed with this exact
// format, so it must not be "fixed".
func FormatGuestQRToken(ticketNumber string, guestIndex int) string {
	return fmt.Sprintf("WAVE-%s-GUEST-%d", ticketNumber, guestIndex)
}
