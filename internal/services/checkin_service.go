package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wavevms/wave-backend/internal/models"
)

// CheckInService tracks physical guest presence at the security desk. Guests
// move NotCheckedIn -> CheckedIn -> CheckedOut, never skipping or reversing a
// state, and only while their request is approved.
type CheckInService struct {
	requests VisitStore
	audit    *AuditService
	dwell    time.Duration
	logger   *logrus.Logger

	now func() time.Time
}

// NewCheckInService creates a new check-in service. dwell is the minimum time
// a guest must remain checked in before check-out is accepted.
func NewCheckInService(requests VisitStore, audit *AuditService, dwell time.Duration, logger *logrus.Logger) *CheckInService {
	return &CheckInService{
		requests: requests,
		audit:    audit,
		dwell:    dwell,
		logger:   logger,
		now:      time.Now,
	}
}

// LookupGuest resolves a scanned QR token to its guest and owning request.
// Only guests of approved requests are discoverable; tokens on pending or
// declined requests resolve to ErrNotFound.
func (s *CheckInService) LookupGuest(qrToken string) (*models.Guest, *models.VisitRequest, error) {
	req, err := s.requests.GetApprovedRequestByGuestToken(qrToken)
	if err != nil {
		return nil, nil, err
	}
	if req == nil {
		return nil, nil, ErrNotFound
	}

	idx := req.GuestByQRToken(qrToken)
	if idx < 0 {
		return nil, nil, ErrNotFound
	}
	return &req.Guests[idx], req, nil
}

// CheckIn marks the guest as physically present. Requires the owning request
// to be approved and the guest not yet checked in.
func (s *CheckInService) CheckIn(qrToken string, operatorID string) (*models.Guest, error) {
	req, err := s.requests.GetApprovedRequestByGuestToken(qrToken)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}

	idx := req.GuestByQRToken(qrToken)
	if idx < 0 {
		return nil, ErrNotFound
	}

	guest := &req.Guests[idx]
	if guest.CheckedIn {
		return nil, ErrInvalidState
	}

	now := s.now()
	guest.CheckedIn = true
	guest.CheckInTime = &now

	if err := s.requests.UpdateRequest(req, req.Version); err != nil {
		return nil, mapStoreErr(err)
	}

	if err := s.audit.LogCheckIn(req.TicketNumber, operatorID, guest.Name); err != nil {
		s.logger.WithError(err).WithField("ticket", req.TicketNumber).Error("Failed to write CHECK_IN history entry")
		return nil, fmt.Errorf("%w: %v", ErrAuditWrite, err)
	}

	s.logger.WithFields(logrus.Fields{
		"ticket": req.TicketNumber,
		"guest":  guest.Name,
	}).Info("Guest checked in")

	return guest, nil
}

// CheckOut marks the guest as departed. Requires the guest to be checked in,
// not yet checked out, and past the minimum dwell time. A too-early attempt
// returns TooEarlyError with the remaining wait and mutates nothing; the
// operator simply retries later.
func (s *CheckInService) CheckOut(qrToken string, operatorID string) (*models.Guest, error) {
	req, err := s.requests.GetApprovedRequestByGuestToken(qrToken)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}

	idx := req.GuestByQRToken(qrToken)
	if idx < 0 {
		return nil, ErrNotFound
	}

	guest := &req.Guests[idx]
	if !guest.CheckedIn || guest.CheckInTime == nil {
		return nil, ErrInvalidState
	}
	if guest.CheckOutTime != nil {
		return nil, ErrInvalidState
	}

	now := s.now()
	elapsed := now.Sub(*guest.CheckInTime)
	if elapsed < s.dwell {
		return nil, &TooEarlyError{Remaining: s.dwell - elapsed}
	}

	guest.CheckOutTime = &now

	if err := s.requests.UpdateRequest(req, req.Version); err != nil {
		return nil, mapStoreErr(err)
	}

	if err := s.audit.LogCheckOut(req.TicketNumber, operatorID, guest.Name); err != nil {
		s.logger.WithError(err).WithField("ticket", req.TicketNumber).Error("Failed to write CHECK_OUT history entry")
		return nil, fmt.Errorf("%w: %v", ErrAuditWrite, err)
	}

	s.logger.WithFields(logrus.Fields{
		"ticket": req.TicketNumber,
		"guest":  guest.Name,
	}).Info("Guest checked out")

	return guest, nil
}

// RosterEntry is one row of the security-desk roster: a guest plus the ticket
// that brought them in.
type RosterEntry struct {
	TicketNumber string       `json:"ticket_number"`
	MeetingWith  string       `json:"meeting_with"`
	Guest        models.Guest `json:"guest"`
}

// Roster lists all guests of approved requests with their check-in state,
// for the security-desk table.
func (s *CheckInService) Roster() ([]RosterEntry, error) {
	approved, err := s.requests.ListRequestsByStatus(models.VisitStatusApproved)
	if err != nil {
		return nil, err
	}

	roster := []RosterEntry{}
	for _, req := range approved {
		for _, guest := range req.Guests {
			roster = append(roster, RosterEntry{
				TicketNumber: req.TicketNumber,
				MeetingWith:  req.MeetingWith,
				Guest:        guest,
			})
		}
	}
	return roster, nil
}
