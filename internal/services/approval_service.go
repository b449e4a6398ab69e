package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wavevms/wave-backend/internal/models"
)

// Decision is an approver's verdict on a request
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

// ApprovalService advances a request's approval chain one decision at a time.
// The request status is always recomputed from the chain after a decision; no
// separate cursor is stored.
type ApprovalService struct {
	requests VisitStore
	audit    *AuditService
	logger   *logrus.Logger

	now func() time.Time
}

// NewApprovalService creates a new approval service
func NewApprovalService(requests VisitStore, audit *AuditService, logger *logrus.Logger) *ApprovalService {
	return &ApprovalService{
		requests: requests,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordDecision applies one approver's decision to the request.
//
// A decline requires a reason and is terminal for the whole request. Late
// decisions on an already-terminal request are rejected with ErrInvalidState
// and mutate nothing. Matching is by approver email across the whole chain:
// when the same person holds two pending steps (duplicate-approver chains are
// legal), one call decides both steps.
func (s *ApprovalService) RecordDecision(ticket string, actor *models.Employee, decision Decision, reason string) (*models.VisitRequest, error) {
	if decision != DecisionApprove && decision != DecisionDecline {
		return nil, &ValidationError{Fields: []string{"decision"}}
	}
	if decision == DecisionDecline && reason == "" {
		return nil, &ValidationError{Fields: []string{"reason"}}
	}

	req, err := s.requests.GetRequestByTicket(ticket)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}

	if req.IsTerminal() {
		// Late decision after another approver already settled the request.
		// Not a crash: surfaced as an ignored-state error, nothing mutated.
		return nil, ErrInvalidState
	}

	if !models.IsApprover(req.Approvals, actor.Email) {
		return nil, ErrNotAuthorized
	}

	decidedAt := s.now()
	newStatus := models.ApprovalStatusApproved
	if decision == DecisionDecline {
		newStatus = models.ApprovalStatusDeclined
	}

	for i := range req.Approvals {
		a := &req.Approvals[i]
		if a.ApproverEmail != actor.Email || a.Status != models.ApprovalStatusPending {
			continue
		}
		a.Status = newStatus
		a.DecidedAt = &decidedAt
		if decision == DecisionDecline {
			r := reason
			a.Reason = &r
		}
	}

	req.Status = models.DeriveStatus(req.Approvals)

	if err := s.requests.UpdateRequest(req, req.Version); err != nil {
		return nil, mapStoreErr(err)
	}

	if decision == DecisionApprove {
		err = s.audit.LogApprove(ticket, actor.ID, actor.Email, models.StatusLabel(req.Status))
	} else {
		err = s.audit.LogDecline(ticket, actor.ID, actor.Email, reason)
	}
	if err != nil {
		// The decision itself is already persisted at this point. Tell the
		// caller the trail is incomplete instead of pretending all is well.
		s.logger.WithError(err).WithField("ticket", ticket).Error("Failed to write decision history entry")
		return nil, fmt.Errorf("%w: %v", ErrAuditWrite, err)
	}

	s.logger.WithFields(logrus.Fields{
		"ticket":   ticket,
		"approver": actor.Email,
		"decision": decision,
		"status":   req.Status,
	}).Info("Approval decision recorded")

	return req, nil
}
