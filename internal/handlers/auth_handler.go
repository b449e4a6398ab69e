package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/wavevms/wave-backend/internal/config"
	"github.com/wavevms/wave-backend/internal/middleware"
	"github.com/wavevms/wave-backend/internal/services"
	"github.com/wavevms/wave-backend/internal/utils"
	"github.com/wavevms/wave-backend/pkg/jwt"
	"github.com/wavevms/wave-backend/pkg/mailer"
	"github.com/wavevms/wave-backend/pkg/validator"
)

// AuthHandler handles OTP login and token refresh
type AuthHandler struct {
	jwtService       *jwt.Service
	otpService       *services.OTPService
	rateLimitService *services.RateLimitService
	employees        services.EmployeeDirectory
	mailGateway      mailer.MailGateway
	contactValidator *validator.ContactValidator
	cfg              *config.Config
	logger           *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	jwtService *jwt.Service,
	otpService *services.OTPService,
	rateLimitService *services.RateLimitService,
	employees services.EmployeeDirectory,
	mailGateway mailer.MailGateway,
	contactValidator *validator.ContactValidator,
	cfg *config.Config,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		jwtService:       jwtService,
		otpService:       otpService,
		rateLimitService: rateLimitService,
		employees:        employees,
		mailGateway:      mailGateway,
		contactValidator: contactValidator,
		cfg:              cfg,
		logger:           logger,
	}
}

// SendOTPRequest represents the send-otp request body
type SendOTPRequest struct {
	Email string `json:"email" binding:"required"`
}

// SendOTP handles POST /api/v1/auth/send-otp
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "email is required",
		})
		return
	}

	email, err := h.contactValidator.ValidateEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_email",
			Message: err.Error(),
		})
		return
	}

	device := utils.ParseUserAgent(c.Request.UserAgent())

	// Only active directory employees may log in. The response is the same
	// for unknown addresses so the endpoint cannot be used to probe the
	// directory.
	emp, err := h.employees.GetEmployeeByEmail(email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up employee for OTP")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong",
		})
		return
	}
	if emp == nil || !emp.Active {
		h.logger.WithFields(logrus.Fields{
			"email":       email,
			"ip":          c.ClientIP(),
			"device_type": device.DeviceType,
		}).Warn("OTP requested for unknown or inactive employee")
		c.JSON(http.StatusOK, gin.H{
			"message": "If the address belongs to an active employee, a login code has been sent",
		})
		return
	}

	rateCfg := services.RateLimitConfig{
		MaxEmailRequests: h.cfg.OTP.RateLimit,
		EmailWindow:      time.Duration(h.cfg.OTP.RateWindowMinutes) * time.Minute,
		MaxIPRequests:    services.DefaultRateLimitConfig().MaxIPRequests,
		IPWindow:         services.DefaultRateLimitConfig().IPWindow,
	}

	if err := h.rateLimitService.CheckEmailRateLimit(email, rateCfg); err != nil {
		h.respondRateLimit(c, err, email, device)
		return
	}
	if err := h.rateLimitService.CheckIPRateLimit(c.ClientIP(), rateCfg); err != nil {
		h.respondRateLimit(c, err, email, device)
		return
	}

	code, err := h.otpService.GenerateOTP(email, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate OTP")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to generate login code",
		})
		return
	}

	if err := h.mailGateway.SendOTP(email, code, h.cfg.OTP.ExpiryMinutes); err != nil {
		h.logger.WithError(err).WithField("gateway", h.mailGateway.GetName()).Error("Failed to send OTP mail")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "delivery_failed",
			Message: "Failed to deliver login code",
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"email":       email,
		"ip":          c.ClientIP(),
		"device_type": device.DeviceType,
		"os":          device.OS,
		"browser":     device.Browser,
	}).Info("Login code sent")

	response := gin.H{
		"message": "If the address belongs to an active employee, a login code has been sent",
	}
	// Development convenience: surface the code so the frontend can be
	// exercised without a mailbox.
	if h.cfg.Mail.Mode == "dev" {
		response["dev_otp"] = code
	}

	c.JSON(http.StatusOK, response)
}

// VerifyOTPRequest represents the verify-otp request body
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyOTP handles POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "email and otp are required",
		})
		return
	}

	email, err := h.contactValidator.ValidateEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_email",
			Message: err.Error(),
		})
		return
	}

	valid, err := h.otpService.ValidateOTP(email, req.OTP)
	if err != nil || !valid {
		status, body := otpFailureResponse(err)
		device := utils.ParseUserAgent(c.Request.UserAgent())
		h.logger.WithFields(logrus.Fields{
			"email":       email,
			"ip":          c.ClientIP(),
			"device_type": device.DeviceType,
			"reason":      body.Error,
		}).Warn("OTP verification failed")
		c.JSON(status, body)
		return
	}

	emp, err := h.employees.GetEmployeeByEmail(email)
	if err != nil || emp == nil {
		h.logger.WithError(err).WithField("email", email).Error("Verified OTP but employee lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong",
		})
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(emp.ID, emp.Email, emp.Name)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create session",
		})
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(emp.ID, emp.Email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate refresh token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create session",
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"employee": emp.ID,
		"email":    emp.Email,
		"ip":       c.ClientIP(),
	}).Info("Employee logged in")

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"employee":      emp,
	})
}

// RefreshTokenRequest represents the refresh-token request body
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken handles POST /api/v1/auth/refresh-token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "refresh_token is required",
		})
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired refresh token",
		})
		return
	}

	emp, err := h.employees.GetEmployeeByID(claims.EmployeeID)
	if err != nil || emp == nil || !emp.Active {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Employee no longer active",
		})
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(emp.ID, emp.Email, emp.Name)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to refresh session",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
	})
}

// GetProfile handles GET /api/v1/auth/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	empCtx, exists := middleware.GetEmployeeContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Employee context not found",
		})
		return
	}

	emp, err := h.employees.GetEmployeeByID(empCtx.EmployeeID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load employee profile")
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

func (h *AuthHandler) respondRateLimit(c *gin.Context, err error, email string, device utils.DeviceInfo) {
	var rateErr *services.RateLimitError
	if errors.As(err, &rateErr) {
		h.logger.WithFields(logrus.Fields{
			"email":       email,
			"ip":          c.ClientIP(),
			"limit_type":  rateErr.Type,
			"retry_after": rateErr.RetryAfter,
			"device_type": device.DeviceType,
		}).Warn("OTP rate limit exceeded")
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate_limited",
			"message":     rateErr.Message,
			"retry_after": rateErr.RetryAfter,
		})
		return
	}

	h.logger.WithError(err).Error("Rate limit check failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Something went wrong",
	})
}

func otpFailureResponse(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, services.ErrOTPExpired):
		return http.StatusUnauthorized, ErrorResponse{Error: "otp_expired", Message: "Login code has expired, request a new one"}
	case errors.Is(err, services.ErrMaxAttemptsExceeded):
		return http.StatusUnauthorized, ErrorResponse{Error: "otp_attempts_exceeded", Message: "Too many attempts, request a new code"}
	case errors.Is(err, services.ErrNoOTPFound):
		return http.StatusUnauthorized, ErrorResponse{Error: "otp_not_found", Message: "No login code found for this address"}
	case errors.Is(err, services.ErrOTPAlreadyUsed):
		return http.StatusUnauthorized, ErrorResponse{Error: "otp_used", Message: "Login code already used, request a new one"}
	default:
		return http.StatusUnauthorized, ErrorResponse{Error: "otp_invalid", Message: "Invalid login code"}
	}
}
