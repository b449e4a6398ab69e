package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/wavevms/wave-backend/internal/middleware"
	"github.com/wavevms/wave-backend/internal/models"
	"github.com/wavevms/wave-backend/internal/services"
)

// ApprovalHandler handles approval decision endpoints
type ApprovalHandler struct {
	approvalService *services.ApprovalService
	employees       services.EmployeeDirectory
	logger          *logrus.Logger
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(
	approvalService *services.ApprovalService,
	employees services.EmployeeDirectory,
	logger *logrus.Logger,
) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService: approvalService,
		employees:       employees,
		logger:          logger,
	}
}

// DecisionRequest represents the decision request body
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Reason   string `json:"reason,omitempty"`
}

// RecordDecision handles POST /api/v1/visits/:ticket/decision
func (h *ApprovalHandler) RecordDecision(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}
	ticket := c.Param("ticket")

	var body DecisionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "decision is required",
		})
		return
	}

	req, err := h.approvalService.RecordDecision(ticket, actor, services.Decision(body.Decision), body.Reason)
	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"ticket":   req.TicketNumber,
		"approver": actor.Email,
		"decision": body.Decision,
		"status":   req.Status,
	}).Info("Approval decision recorded")

	c.JSON(http.StatusOK, gin.H{"request": req})
}

func (h *ApprovalHandler) resolveActor(c *gin.Context) (*models.Employee, bool) {
	empCtx, exists := middleware.GetEmployeeContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Employee context not found",
		})
		return nil, false
	}

	emp, err := h.employees.GetEmployeeByID(empCtx.EmployeeID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve acting employee")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong",
		})
		return nil, false
	}
	if emp == nil || !emp.Active {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Employee no longer active",
		})
		return nil, false
	}
	return emp, true
}
