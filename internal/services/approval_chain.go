package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wavevms/wave-backend/internal/config"
	"github.com/wavevms/wave-backend/internal/models"
)

// ApprovalChainBuilder computes the ordered approver list for a draft request.
// The rules run in a fixed order and each appends at most one step, so the
// result is deterministic for a given requester and draft:
//
//  1. The requester's manager, when one is on file.
//  2. The designated plant approver, for Plant visits that are not cell-line.
//  3. The designated cell-line approver, for cell-line visits. Rules 2 and 3
//     are mutually exclusive by construction.
//
// Approvers are not de-duplicated: if the manager happens to also be the
// plant approver they appear twice and must act twice.
type ApprovalChainBuilder struct {
	directory EmployeeDirectory
	policy    config.WorkflowConfig
	logger    *logrus.Logger
}

// NewApprovalChainBuilder creates a new approval chain builder
func NewApprovalChainBuilder(directory EmployeeDirectory, policy config.WorkflowConfig, logger *logrus.Logger) *ApprovalChainBuilder {
	return &ApprovalChainBuilder{
		directory: directory,
		policy:    policy,
		logger:    logger,
	}
}

// Build computes the approval chain for the given draft and requester. All
// steps start pending. An empty chain is returned as-is when the policy
// allows it (the request will then sit pending forever, which matches the
// historical behavior); otherwise it is rejected.
func (b *ApprovalChainBuilder) Build(locationType models.LocationType, cellLineVisit bool, requester *models.Employee) ([]models.Approval, error) {
	approvals := []models.Approval{}

	// Rule 1: manager approval, when the requester has a manager on file
	if requester.HasManager() {
		manager, err := b.directory.GetEmployeeByID(requester.ManagerID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve manager %s: %w", requester.ManagerID.String, err)
		}
		if manager != nil {
			approvals = append(approvals, models.Approval{
				ApproverID:    manager.ID,
				ApproverEmail: manager.Email,
				Status:        models.ApprovalStatusPending,
			})
		} else {
			b.logger.WithFields(logrus.Fields{
				"requester":  requester.ID,
				"manager_id": requester.ManagerID.String,
			}).Warn("Requester's manager not found in directory, skipping manager approval")
		}
	}

	// Rule 2: plant visits need the designated plant approver, unless the
	// visit is a cell-line visit (rule 3 takes over in that case)
	if locationType == models.LocationTypePlant && !cellLineVisit {
		approvals = append(approvals, models.Approval{
			ApproverID:    b.policy.PlantApproverID,
			ApproverEmail: b.policy.PlantApproverEmail,
			Status:        models.ApprovalStatusPending,
		})
	}

	// Rule 3: cell-line visits need the designated cell-line approver
	if cellLineVisit {
		approvals = append(approvals, models.Approval{
			ApproverID:    b.policy.CellLineApproverID,
			ApproverEmail: b.policy.CellLineApproverEmail,
			Status:        models.ApprovalStatusPending,
		})
	}

	if len(approvals) == 0 {
		if !b.policy.AllowZeroApprovers {
			return nil, &ValidationError{Fields: []string{"approvers"}}
		}
		// A zero-approver request can never reach approved status. Kept for
		// parity with the historical behavior, behind the AllowZeroApprovers
		// policy flag.
		b.logger.WithField("requester", requester.ID).
			Warn("Approval chain is empty, request will remain pending indefinitely")
	}

	return approvals, nil
}
