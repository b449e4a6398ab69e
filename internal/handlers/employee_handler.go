package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/wavevms/wave-backend/internal/services"
	"github.com/wavevms/wave-backend/pkg/validator"
)

// EmployeeHandler handles employee directory lookups
type EmployeeHandler struct {
	employees        services.EmployeeDirectory
	contactValidator *validator.ContactValidator
	logger           *logrus.Logger
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(
	employees services.EmployeeDirectory,
	contactValidator *validator.ContactValidator,
	logger *logrus.Logger,
) *EmployeeHandler {
	return &EmployeeHandler{
		employees:        employees,
		contactValidator: contactValidator,
		logger:           logger,
	}
}

// GetByID handles GET /api/v1/employees/:id
func (h *EmployeeHandler) GetByID(c *gin.Context) {
	emp, err := h.employees.GetEmployeeByID(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up employee by ID")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong",
		})
		return
	}
	if emp == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Employee not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"employee": emp})
}

// List handles GET /api/v1/employees
//
// Without a filter it returns the active directory (for approver and
// meeting-with pickers); with ?email=... it resolves a single employee.
func (h *EmployeeHandler) List(c *gin.Context) {
	raw := c.Query("email")
	if raw == "" {
		employees, err := h.employees.ListActiveEmployees()
		if err != nil {
			h.logger.WithError(err).Error("Failed to list employees")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Something went wrong",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"employees": employees,
			"count":     len(employees),
		})
		return
	}

	email, err := h.contactValidator.ValidateEmail(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_email",
			Message: err.Error(),
		})
		return
	}

	emp, err := h.employees.GetEmployeeByEmail(email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up employee by email")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong",
		})
		return
	}
	if emp == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Employee not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"employee": emp})
}
