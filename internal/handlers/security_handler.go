package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/wavevms/wave-backend/internal/middleware"
	"github.com/wavevms/wave-backend/internal/services"
)

// SecurityHandler handles the gate desk endpoints: QR lookup, check-in,
// check-out and the on-site roster.
type SecurityHandler struct {
	checkInService *services.CheckInService
	visitService   *services.VisitService
	logger         *logrus.Logger
}

// NewSecurityHandler creates a new security handler
func NewSecurityHandler(
	checkInService *services.CheckInService,
	visitService *services.VisitService,
	logger *logrus.Logger,
) *SecurityHandler {
	return &SecurityHandler{
		checkInService: checkInService,
		visitService:   visitService,
		logger:         logger,
	}
}

// LookupGuest handles GET /api/v1/security/guests/:token
func (h *SecurityHandler) LookupGuest(c *gin.Context) {
	guest, req, err := h.checkInService.LookupGuest(c.Param("token"))
	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"guest":         guest,
		"ticket_number": req.TicketNumber,
		"meeting_with":  req.MeetingWith,
		"requester":     req.Requester.Name,
		"purpose":       req.Purpose,
	})
}

// CheckIn handles POST /api/v1/security/guests/:token/check-in
func (h *SecurityHandler) CheckIn(c *gin.Context) {
	operatorID := h.operatorID(c)
	guest, err := h.checkInService.CheckIn(c.Param("token"), operatorID)
	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"guest":    guest.Name,
		"operator": operatorID,
	}).Info("Guest checked in")

	c.JSON(http.StatusOK, gin.H{"guest": guest})
}

// CheckOut handles POST /api/v1/security/guests/:token/check-out
func (h *SecurityHandler) CheckOut(c *gin.Context) {
	operatorID := h.operatorID(c)
	guest, err := h.checkInService.CheckOut(c.Param("token"), operatorID)
	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"guest":    guest.Name,
		"operator": operatorID,
	}).Info("Guest checked out")

	c.JSON(http.StatusOK, gin.H{"guest": guest})
}

// Roster handles GET /api/v1/security/roster
func (h *SecurityHandler) Roster(c *gin.Context) {
	entries, err := h.checkInService.Roster()
	if err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roster": entries,
		"count":  len(entries),
	})
}

// GuestQRCode handles GET /api/v1/security/guests/:token/qr
//
// Renders the guest token as a PNG so badges can be printed straight
// from the browser.
func (h *SecurityHandler) GuestQRCode(c *gin.Context) {
	token := c.Param("token")

	// Only tokens on approved requests are printable
	if _, _, err := h.checkInService.LookupGuest(token); err != nil {
		respondWorkflowError(c, h.logger, err)
		return
	}

	png, err := qrcode.Encode(token, qrcode.Medium, 256)
	if err != nil {
		h.logger.WithError(err).Error("Failed to render QR code")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to render QR code",
		})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (h *SecurityHandler) operatorID(c *gin.Context) string {
	if empCtx, exists := middleware.GetEmployeeContext(c); exists {
		return empCtx.EmployeeID
	}
	return "security-desk"
}
