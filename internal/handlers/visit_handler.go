package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/wavevms/wave-backend/internal/middleware"
	"github.com/wavevms/wave-backend/internal/models"
	"github.com/wavevms/wave-backend/internal/services"
)

// VisitHandler handles visit request lifecycle endpoints
type VisitHandler struct {
	visitService *services.VisitService
	auditService *services.AuditService
	employees    services.EmployeeDirectory
	logger       *logrus.Logger
}

// NewVisitHandler creates a new visit handler
func NewVisitHandler(
	visitService *services.VisitService,
	auditService *services.AuditService,
	employees services.EmployeeDirectory,
	logger *logrus.Logger,
) *VisitHandler {
	return &VisitHandler{
		visitService: visitService,
		auditService: auditService,
		employees:    employees,
		logger:       logger,
	}
}

// CreateRequest handles POST /api/v1/visits
func (h *VisitHandler) CreateRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	var draft services.VisitDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Malformed request body",
		})
		return
	}

	req, err := h.visitService.CreateRequest(draft, actor)
	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"ticket":    req.TicketNumber,
		"requester": actor.ID,
		"guests":    len(req.Guests),
	}).Info("Visit request created")

	c.JSON(http.StatusCreated, gin.H{"request": req})
}

// EditRequest handles PUT /api/v1/visits/:ticket
func (h *VisitHandler) EditRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}
	ticket := c.Param("ticket")

	var draft services.VisitDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Malformed request body",
		})
		return
	}

	req, err := h.visitService.EditRequest(ticket, draft, actor)
	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"ticket": req.TicketNumber,
		"editor": actor.ID,
	}).Info("Visit request edited")

	c.JSON(http.StatusOK, gin.H{"request": req})
}

// GetRequest handles GET /api/v1/visits/:ticket
func (h *VisitHandler) GetRequest(c *gin.Context) {
	req, err := h.visitService.GetRequest(c.Param("ticket"))
	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}

// ListRequests handles GET /api/v1/visits
//
// Supported filters: ?scope=mine returns the caller's own requests,
// ?scope=pending-approval returns requests waiting on the caller's
// decision. Without a scope all requests are returned.
func (h *VisitHandler) ListRequests(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	var (
		requests []*models.VisitRequest
		err      error
	)

	switch scope := c.Query("scope"); scope {
	case "mine":
		requests, err = h.visitService.ListRequestsForRequester(actor.ID)
	case "pending-approval":
		requests, err = h.visitService.ListPendingForApprover(actor.Email)
	case "":
		requests, err = h.visitService.ListRequests()
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: fmt.Sprintf("unknown scope %q", scope),
		})
		return
	}

	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"count":    len(requests),
	})
}

// GetHistory handles GET /api/v1/visits/:ticket/history
func (h *VisitHandler) GetHistory(c *gin.Context) {
	ticket := c.Param("ticket")

	// 404 for unknown tickets rather than an empty trail
	if _, err := h.visitService.GetRequest(ticket); err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	entries, err := h.auditService.History(ticket)
	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticket_number": ticket,
		"history":       entries,
	})
}

// RecentActivity handles GET /api/v1/visits/activity
//
// Returns the newest audit entries across all tickets for the dashboard
// activity feed. ?limit bounds the page size.
func (h *VisitHandler) RecentActivity(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	entries, err := h.auditService.Recent(limit)
	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": entries,
		"count":    len(entries),
	})
}

// ExportCSV handles GET /api/v1/visits/export
//
// Streams all visit requests as a CSV report, one row per guest so the
// sheet can be filtered by individual visitor.
func (h *VisitHandler) ExportCSV(c *gin.Context) {
	requests, err := h.visitService.ListRequests()
	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("visit-requests-%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)

	w := csv.NewWriter(c.Writer)
	header := []string{
		"ticket_number", "status", "requester_id", "requester_name",
		"visitor_category", "guest_name", "guest_company", "qr_token",
		"checked_in", "check_in_time", "check_out_time",
		"purpose", "meeting_with", "location_type", "location_to_visit",
		"area_to_visit", "tentative_arrival", "created_at",
	}
	if err := w.Write(header); err != nil {
		h.logger.WithError(err).Error("Failed to write CSV header")
		return
	}

	for _, req := range requests {
		for _, guest := range req.Guests {
			row := []string{
				req.TicketNumber,
				string(req.Status),
				req.Requester.ID,
				req.Requester.Name,
				req.VisitorCategory,
				guest.Name,
				guest.Company,
				guest.QRToken,
				strconv.FormatBool(guest.CheckedIn),
				formatCSVTime(guest.CheckInTime),
				formatCSVTime(guest.CheckOutTime),
				req.Purpose,
				req.MeetingWith,
				string(req.LocationType),
				req.LocationToVisit,
				req.AreaToVisit,
				req.TentativeArrival.Format(time.RFC3339),
				req.CreatedAt.Format(time.RFC3339),
			}
			if err := w.Write(row); err != nil {
				h.logger.WithError(err).WithField("ticket", req.TicketNumber).Error("Failed to write CSV row")
				return
			}
		}
	}
	w.Flush()
}

func formatCSVTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// resolveActor loads the full employee record for the authenticated caller.
func (h *VisitHandler) resolveActor(c *gin.Context) (*models.Employee, bool) {
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
