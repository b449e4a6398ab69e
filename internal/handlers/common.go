package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/wavevms/wave-backend/internal/services"
)

// ErrorResponse is the standard error body for all endpoints
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// respondWorkflowError maps the engine's error taxonomy onto HTTP responses.
// Anything outside the taxonomy is a server fault and logged as such.
func respondWorkflowError(c *gin.Context, logger *logrus.Logger, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Error(),
			Fields:  validationErr.Fields,
		})
		return
	}

	var tooEarly *services.TooEarlyError
	if errors.As(err, &tooEarly) {
		c.JSON(http.StatusConflict, gin.H{
			"error":               "too_early",
			"message":             tooEarly.Error(),
			"retry_after_seconds": int(tooEarly.Remaining.Seconds()) + 1,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Ticket or QR token not found",
		})
	case errors.Is(err, services.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "not_authorized",
			Message: "You are not a pending approver for this request",
		})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "invalid_state",
			Message: "Operation is not valid in the request's current state",
		})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: "The request was modified concurrently, reload and retry",
		})
	case errors.Is(err, services.ErrAuditWrite):
		logger.WithError(err).Error("State change saved without audit entry")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "audit_write_failed",
			Message: "The change was saved but could not be recorded in the audit trail",
		})
	default:
		logger.WithError(err).Error("Unexpected workflow error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong",
		})
	}
}
