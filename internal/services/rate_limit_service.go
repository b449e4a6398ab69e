package services

import (
	"fmt"
	"time"

	"github.com/wavevms/wave-backend/internal/database"
)

// RateLimitService handles OTP request rate limiting
type RateLimitService struct {
	db database.DB
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB) *RateLimitService {
	return &RateLimitService{
		db: db,
	}
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxEmailRequests int           // Max OTP requests per email address
	EmailWindow      time.Duration // Time window for email rate limit
	MaxIPRequests    int           // Max OTP requests per IP
	IPWindow         time.Duration // Time window for IP rate limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxEmailRequests: 3,                // 3 requests
		EmailWindow:      10 * time.Minute, // per 10 minutes
		MaxIPRequests:    10,               // 10 requests
		IPWindow:         1 * time.Hour,    // per hour
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "email" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// CheckEmailRateLimit verifies the email address has not exceeded its OTP
// request budget within the window
func (s *RateLimitService) CheckEmailRateLimit(email string, cfg RateLimitConfig) error {
	windowStart := time.Now().Add(-cfg.EmailWindow)

	var count int
	query := `
		SELECT COUNT(*) FROM otp_verifications
		WHERE email = $1 AND created_at > $2
	`
	if err := s.db.Get(&count, query, email, windowStart); err != nil {
		return fmt.Errorf("failed to check email rate limit: %w", err)
	}

	if count >= cfg.MaxEmailRequests {
		oldest, err := s.oldestRequestInWindow(`email = $1`, email, windowStart)
		if err != nil {
			return fmt.Errorf("failed to resolve rate limit retry time: %w", err)
		}
		return &RateLimitError{
			Message:    "Too many OTP requests for this email address",
			RetryAfter: oldest.Add(cfg.EmailWindow),
			Type:       "email",
		}
	}

	return nil
}

// CheckIPRateLimit verifies the client IP has not exceeded its OTP request
// budget within the window
func (s *RateLimitService) CheckIPRateLimit(ipAddress string, cfg RateLimitConfig) error {
	windowStart := time.Now().Add(-cfg.IPWindow)

	var count int
	query := `
		SELECT COUNT(*) FROM otp_verifications
		WHERE ip_address = $1 AND created_at > $2
	`
	if err := s.db.Get(&count, query, ipAddress, windowStart); err != nil {
		return fmt.Errorf("failed to check IP rate limit: %w", err)
	}

	if count >= cfg.MaxIPRequests {
		oldest, err := s.oldestRequestInWindow(`ip_address = $1`, ipAddress, windowStart)
		if err != nil {
			return fmt.Errorf("failed to resolve rate limit retry time: %w", err)
		}
		return &RateLimitError{
			Message:    "Too many OTP requests from this IP address",
			RetryAfter: oldest.Add(cfg.IPWindow),
			Type:       "ip",
		}
	}

	return nil
}

func (s *RateLimitService) oldestRequestInWindow(where, arg string, windowStart time.Time) (time.Time, error) {
	var oldest time.Time
	query := `
		SELECT MIN(created_at) FROM otp_verifications
		WHERE ` + where + ` AND created_at > $2
	`
	if err := s.db.Get(&oldest, query, arg, windowStart); err != nil {
		return time.Time{}, err
	}
	return oldest, nil
}
