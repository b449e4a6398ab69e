package services

import (
	"fmt"

	"github.com/wavevms/wave-backend/internal/models"
)

// AuditService records workflow transitions into the append-only visit
// history. Every state-changing operation appends exactly one entry; rejected
// operations append nothing.
type AuditService struct {
	history HistoryStore
}

// NewAuditService creates a new audit service
func NewAuditService(history HistoryStore) *AuditService {
	return &AuditService{history: history}
}

// LogCreate records a request creation (none -> pending)
func (s *AuditService) LogCreate(ticket, userID string) error {
	return s.append(ticket, userID, "Request created", models.ActionCreate, models.StateNone, models.StatePending)
}

// LogEdit records an edit/resubmission (prior status -> pending)
func (s *AuditService) LogEdit(ticket, userID string, before models.StateLabel) error {
	return s.append(ticket, userID, "Request edited and resubmitted", models.ActionEdit, before, models.StatePending)
}

// LogApprove records one approver's approval. The after label reflects the
// derived request status: pending while approvers remain, approved on the
// last one.
func (s *AuditService) LogApprove(ticket, userID, approverEmail string, after models.StateLabel) error {
	comment := fmt.Sprintf("Approved by %s", approverEmail)
	return s.append(ticket, userID, comment, models.ActionApprove, models.StatePending, after)
}

// LogDecline records a decline with the approver's reason
func (s *AuditService) LogDecline(ticket, userID, approverEmail, reason string) error {
	comment := fmt.Sprintf("Declined by %s: %s", approverEmail, reason)
	return s.append(ticket, userID, comment, models.ActionDecline, models.StatePending, models.StateDeclined)
}

// LogCheckIn records a guest check-in
func (s *AuditService) LogCheckIn(ticket, userID, guestName string) error {
	comment := fmt.Sprintf("Guest %s checked in", guestName)
	return s.append(ticket, userID, comment, models.ActionCheckIn, models.StateApproved, models.StateCheckedIn)
}

// LogCheckOut records a guest check-out
func (s *AuditService) LogCheckOut(ticket, userID, guestName string) error {
	comment := fmt.Sprintf("Guest %s checked out", guestName)
	return s.append(ticket, userID, comment, models.ActionCheckOut, models.StateCheckedIn, models.StateCheckedOut)
}

// History returns the full trail for a ticket, oldest first
func (s *AuditService) History(ticket string) ([]models.HistoryEntry, error) {
	return s.history.ListByTicket(ticket)
}

// Recent returns the newest entries across all tickets, newest first, for the
// dashboard activity feed. A non-positive limit falls back to 20; limits above
// 100 are capped.
func (s *AuditService) Recent(limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.history.ListRecent(limit)
}

func (s *AuditService) append(ticket, userID, comment string, action models.ActionType, before, after models.StateLabel) error {
	entry := &models.HistoryEntry{
		TicketNumber: ticket,
		UserID:       userID,
		Comment:      comment,
		ActionType:   action,
		BeforeState:  before,
		AfterState:   after,
	}
	if err := s.history.AppendEntry(entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}
