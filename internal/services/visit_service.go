package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wavevms/wave-backend/internal/config"
	"github.com/wavevms/wave-backend/internal/models"
)

// GuestDraft is the caller-supplied data for one guest. All five fields are
// required.
type GuestDraft struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Company     string `json:"company"`
	Designation string `json:"designation"`
}

// VisitDraft is the caller-supplied data for creating or editing a visit
// request. Guest QR tokens and the approval chain are never taken from the
// draft; the engine owns those.
type VisitDraft struct {
	VisitorCategory      string              `json:"visitor_category"`
	VisitorCategoryOther string              `json:"visitor_category_other,omitempty"`
	Guests               []GuestDraft        `json:"guests"`
	Purpose              string              `json:"purpose"`
	TentativeArrival     time.Time           `json:"tentative_arrival"`
	TentativeDuration    string              `json:"tentative_duration"`
	LunchRequired        bool                `json:"lunch_required"`
	LunchCategory        string              `json:"lunch_category,omitempty"`
	DietaryRequirements  string              `json:"dietary_requirements,omitempty"`
	MeetingWith          string              `json:"meeting_with"`
	LocationType         models.LocationType `json:"location_type"`
	LocationToVisit      string              `json:"location_to_visit"`
	AreaToVisit          string              `json:"area_to_visit"`
	CellLineVisit        bool                `json:"cell_line_visit"`
	Notes                string              `json:"notes,omitempty"`
}

// VisitService owns the request lifecycle: creation with ticket allocation,
// edits with chain rebuild, and read paths for the overview screens.
type VisitService struct {
	requests VisitStore
	chain    *ApprovalChainBuilder
	audit    *AuditService
	policy   config.WorkflowConfig
	logger   *logrus.Logger

	now func() time.Time
}

// NewVisitService creates a new visit service
func NewVisitService(requests VisitStore, chain *ApprovalChainBuilder, audit *AuditService, policy config.WorkflowConfig, logger *logrus.Logger) *VisitService {
	return &VisitService{
		requests: requests,
		chain:    chain,
		audit:    audit,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateRequest validates the draft, allocates a ticket number, assigns guest
// QR tokens, builds the approval chain and persists the new request. Appends a
// CREATE history entry on success.
func (s *VisitService) CreateRequest(draft VisitDraft, requester *models.Employee) (*models.VisitRequest, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	now := s.now()
	seq, err := s.requests.NextTicketSequence(now)
	if err != nil {
		return nil, err
	}
	ticket := models.FormatTicketNumber(now, seq)

	guests := make([]models.Guest, len(draft.Guests))
	for i, g := range draft.Guests {
		guests[i] = models.Guest{
			Name:        g.Name,
			Phone:       g.Phone,
			Email:       g.Email,
			Company:     g.Company,
			Designation: g.Designation,
			QRToken:     models.FormatGuestQRToken(ticket, i),
		}
	}

	approvals, err := s.chain.Build(draft.LocationType, draft.CellLineVisit, requester)
	if err != nil {
		return nil, err
	}

	req := &models.VisitRequest{
		TicketNumber:         ticket,
		Requester:            *requester,
		VisitorCategory:      draft.VisitorCategory,
		VisitorCategoryOther: models.NewNullString(draft.VisitorCategoryOther),
		NumberOfGuests:       len(guests),
		Guests:               guests,
		Purpose:              draft.Purpose,
		TentativeArrival:     draft.TentativeArrival,
		TentativeDuration:    draft.TentativeDuration,
		LunchRequired:        draft.LunchRequired,
		LunchCategory:        lunchField(draft.LunchRequired, draft.LunchCategory),
		DietaryRequirements:  lunchField(draft.LunchRequired, draft.DietaryRequirements),
		MeetingWith:          draft.MeetingWith,
		LocationType:         draft.LocationType,
		LocationToVisit:      draft.LocationToVisit,
		AreaToVisit:          draft.AreaToVisit,
		CellLineVisit:        draft.CellLineVisit,
		Notes:                models.NewNullString(draft.Notes),
		Status:               models.VisitStatusPending,
		Approvals:            approvals,
		CreatedAt:            now,
	}

	if err := s.requests.CreateRequest(req); err != nil {
		return nil, err
	}

	if err := s.audit.LogCreate(ticket, requester.ID); err != nil {
		s.logger.WithError(err).WithField("ticket", ticket).Error("Failed to write CREATE history entry")
		return nil, fmt.Errorf("%w: %v", ErrAuditWrite, err)
	}

	s.logger.WithFields(logrus.Fields{
		"ticket":    ticket,
		"requester": requester.ID,
		"approvers": len(approvals),
		"guests":    len(guests),
	}).Info("Visit request created")

	return req, nil
}

// EditRequest re-validates the draft, rebuilds the approval chain from
// scratch (discarding prior decisions) and resets the request to pending. The
// creation timestamp and the QR tokens of guests that survive the edit (by
// position) are preserved; new guests get fresh tokens. Appends an EDIT
// history entry on success.
//
// Editing an already-approved or declined request is permitted by default
// (AllowEditAfterDecision), matching the historical behavior; flip the flag
// to make terminal requests read-only.
func (s *VisitService) EditRequest(ticket string, draft VisitDraft, actor *models.Employee) (*models.VisitRequest, error) {
	existing, err := s.requests.GetRequestByTicket(ticket)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	if existing.IsTerminal() && !s.policy.AllowEditAfterDecision {
		return nil, ErrInvalidState
	}

	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	guests := make([]models.Guest, len(draft.Guests))
	for i, g := range draft.Guests {
		token := models.FormatGuestQRToken(ticket, i)
		if i < len(existing.Guests) && existing.Guests[i].QRToken != "" {
			token = existing.Guests[i].QRToken
		}
		guests[i] = models.Guest{
			Name:        g.Name,
			Phone:       g.Phone,
			Email:       g.Email,
			Company:     g.Company,
			Designation: g.Designation,
			QRToken:     token,
		}
	}

	approvals, err := s.chain.Build(draft.LocationType, draft.CellLineVisit, &existing.Requester)
	if err != nil {
		return nil, err
	}

	beforeLabel := models.StatusLabel(existing.Status)

	updated := *existing
	updated.VisitorCategory = draft.VisitorCategory
	updated.VisitorCategoryOther = models.NewNullString(draft.VisitorCategoryOther)
	updated.NumberOfGuests = len(guests)
	updated.Guests = guests
	updated.Purpose = draft.Purpose
	updated.TentativeArrival = draft.TentativeArrival
	updated.TentativeDuration = draft.TentativeDuration
	updated.LunchRequired = draft.LunchRequired
	updated.LunchCategory = lunchField(draft.LunchRequired, draft.LunchCategory)
	updated.DietaryRequirements = lunchField(draft.LunchRequired, draft.DietaryRequirements)
	updated.MeetingWith = draft.MeetingWith
	updated.LocationType = draft.LocationType
	updated.LocationToVisit = draft.LocationToVisit
	updated.AreaToVisit = draft.AreaToVisit
	updated.CellLineVisit = draft.CellLineVisit
	updated.Notes = models.NewNullString(draft.Notes)
	updated.Status = models.VisitStatusPending
	updated.Approvals = approvals

	if err := s.requests.UpdateRequest(&updated, existing.Version); err != nil {
		return nil, mapStoreErr(err)
	}

	if err := s.audit.LogEdit(ticket, actor.ID, beforeLabel); err != nil {
		s.logger.WithError(err).WithField("ticket", ticket).Error("Failed to write EDIT history entry")
		return nil, fmt.Errorf("%w: %v", ErrAuditWrite, err)
	}

	s.logger.WithFields(logrus.Fields{
		"ticket": ticket,
		"actor":  actor.ID,
	}).Info("Visit request edited and reset to pending")

	return &updated, nil
}

// GetRequest retrieves one request by ticket number
func (s *VisitService) GetRequest(ticket string) (*models.VisitRequest, error) {
	req, err := s.requests.GetRequestByTicket(ticket)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	return req, nil
}

// ListRequests retrieves all requests, newest first
func (s *VisitService) ListRequests() ([]*models.VisitRequest, error) {
	return s.requests.ListRequests()
}

// ListRequestsForRequester retrieves requests raised by the given employee
func (s *VisitService) ListRequestsForRequester(empID string) ([]*models.VisitRequest, error) {
	return s.requests.ListRequestsByRequester(empID)
}

// ListPendingForApprover retrieves pending requests where the given email is
// the chain's current approver
func (s *VisitService) ListPendingForApprover(email string) ([]*models.VisitRequest, error) {
	pending, err := s.requests.ListRequestsByStatus(models.VisitStatusPending)
	if err != nil {
		return nil, err
	}

	var result []*models.VisitRequest
	for _, req := range pending {
		if current := models.CurrentApprover(req.Approvals); current != nil && current.ApproverEmail == email {
			result = append(result, req)
		}
	}
	return result, nil
}

// validateDraft checks required fields per the intake form rules. Guest rows
// must be complete: a half-filled guest cannot be badged.
func validateDraft(draft VisitDraft) error {
	var missing []string

	if draft.Purpose == "" {
		missing = append(missing, "purpose")
	}
	if draft.TentativeArrival.IsZero() {
		missing = append(missing, "tentative_arrival")
	}
	if draft.TentativeDuration == "" {
		missing = append(missing, "tentative_duration")
	}
	if draft.MeetingWith == "" {
		missing = append(missing, "meeting_with")
	}
	if draft.LocationType != models.LocationTypeOffice && draft.LocationType != models.LocationTypePlant {
		missing = append(missing, "location_type")
	}
	if draft.LocationToVisit == "" {
		missing = append(missing, "location_to_visit")
	}
	if draft.AreaToVisit == "" {
		missing = append(missing, "area_to_visit")
	}

	for i, g := range draft.Guests {
		if g.Name == "" {
			missing = append(missing, fmt.Sprintf("guests[%d].name", i))
		}
		if g.Phone == "" {
			missing = append(missing, fmt.Sprintf("guests[%d].phone", i))
		}
		if g.Email == "" {
			missing = append(missing, fmt.Sprintf("guests[%d].email", i))
		}
		if g.Company == "" {
			missing = append(missing, fmt.Sprintf("guests[%d].company", i))
		}
		if g.Designation == "" {
			missing = append(missing, fmt.Sprintf("guests[%d].designation", i))
		}
	}

	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// lunchField keeps lunch-related fields null when lunch is not requested
func lunchField(lunchRequired bool, value string) models.NullString {
	if !lunchRequired {
		return models.NullString{}
	}
	return models.NewNullString(value)
}
