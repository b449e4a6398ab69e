package services

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wavevms/wave-backend/internal/config"
	"github.com/wavevms/wave-backend/internal/database"
)

const (
	// OTPLength is the default number of digits in a login code
	OTPLength = 6

	// OTPExpiryDuration is the default lifetime of a login code
	OTPExpiryDuration = 10 * time.Minute

	// MaxOTPAttempts is the default validation attempt budget per code
	MaxOTPAttempts = 3
)

var (
	// ErrOTPExpired indicates the OTP has expired
	ErrOTPExpired = fmt.Errorf("OTP has expired")

	// ErrOTPInvalid indicates the OTP is incorrect
	ErrOTPInvalid = fmt.Errorf("invalid OTP code")

	// ErrMaxAttemptsExceeded indicates too many failed validation attempts
	ErrMaxAttemptsExceeded = fmt.Errorf("maximum OTP validation attempts exceeded")

	// ErrNoOTPFound indicates no OTP exists for the email address
	ErrNoOTPFound = fmt.Errorf("no OTP found for this email address")

	// ErrOTPAlreadyUsed indicates the OTP has already been successfully validated
	ErrOTPAlreadyUsed = fmt.Errorf("OTP has already been used")
)

// OTPService handles login code generation and validation. Codes are stored
// bcrypt-hashed; the plaintext exists only in the mail that delivers it.
type OTPService struct {
	db          database.DB
	length      int
	expiry      time.Duration
	maxAttempts int
}

// NewOTPService creates a new OTP service. Zero-valued config fields fall
// back to the package defaults.
func NewOTPService(db database.DB, cfg config.OTPConfig) *OTPService {
	s := &OTPService{
		db:          db,
		length:      cfg.Length,
		expiry:      time.Duration(cfg.ExpiryMinutes) * time.Minute,
		maxAttempts: cfg.MaxAttempts,
	}
	if s.length <= 0 {
		s.length = OTPLength
	}
	if s.expiry <= 0 {
		s.expiry = OTPExpiryDuration
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = MaxOTPAttempts
	}
	return s
}

// otpRecord mirrors one row of otp_verifications
type otpRecord struct {
	ID          int        `db:"id"`
	Email       string     `db:"email"`
	OTPHash     string     `db:"otp_hash"`
	ExpiresAt   time.Time  `db:"expires_at"`
	Attempts    int        `db:"attempts"`
	MaxAttempts int        `db:"max_attempts"`
	Verified    bool       `db:"verified"`
	CreatedAt   time.Time  `db:"created_at"`
	VerifiedAt  *time.Time `db:"verified_at"`
}

// GenerateOTP generates a new 6-digit login code for the given email address.
// It invalidates any existing codes for the address and stores IP/User-Agent
// for security tracking. Returns the plaintext code for delivery.
func (s *OTPService) GenerateOTP(email, ipAddress, userAgent string) (string, error) {
	// Invalidate any existing codes for this address
	if err := s.InvalidateOTP(email); err != nil {
		return "", fmt.Errorf("failed to invalidate existing OTP: %w", err)
	}

	otp, err := generateRandomOTP(s.length)
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash OTP: %w", err)
	}

	expiresAt := time.Now().Add(s.expiry)

	query := `
		INSERT INTO otp_verifications (email, otp_hash, purpose, expires_at, attempts, max_attempts, ip_address, user_agent)
		VALUES ($1, $2, 'authentication', $3, 0, $4, $5, $6)
	`

	_, err = s.db.Exec(query, email, string(hash), expiresAt, s.maxAttempts, ipAddress, userAgent)
	if err != nil {
		return "", fmt.Errorf("failed to store OTP: %w", err)
	}

	return otp, nil
}

// ValidateOTP validates a login code for the given email address.
// Returns true if valid, false if invalid, and error if something went wrong
func (s *OTPService) ValidateOTP(email, otp string) (bool, error) {
	record, err := s.getOTPRecord(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, ErrNoOTPFound
		}
		return false, fmt.Errorf("failed to get OTP record: %w", err)
	}

	// Check if already verified
	if record.Verified {
		return false, ErrOTPAlreadyUsed
	}

	// Check expiry
	if time.Now().After(record.ExpiresAt) {
		return false, ErrOTPExpired
	}

	// Check attempt budget before comparing
	if record.Attempts >= record.MaxAttempts {
		return false, ErrMaxAttemptsExceeded
	}

	// Count the attempt regardless of outcome
	if err := s.incrementAttempts(record.ID); err != nil {
		return false, fmt.Errorf("failed to increment OTP attempts: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.OTPHash), []byte(otp)); err != nil {
		if record.Attempts+1 >= record.MaxAttempts {
			return false, ErrMaxAttemptsExceeded
		}
		return false, ErrOTPInvalid
	}

	// Mark verified so the code cannot be replayed
	if err := s.markVerified(record.ID); err != nil {
		return false, fmt.Errorf("failed to mark OTP as verified: %w", err)
	}

	return true, nil
}

// InvalidateOTP expires all outstanding codes for an email address
func (s *OTPService) InvalidateOTP(email string) error {
	query := `
		UPDATE otp_verifications
		SET expires_at = NOW()
		WHERE email = $1 AND verified = FALSE AND expires_at > NOW()
	`
	_, err := s.db.Exec(query, email)
	return err
}

// GetOTPStatus returns whether an active code exists for the address and when
// it expires (for resend UX)
func (s *OTPService) GetOTPStatus(email string) (bool, time.Time, error) {
	record, err := s.getOTPRecord(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, time.Time{}, nil
		}
		return false, time.Time{}, fmt.Errorf("failed to get OTP record: %w", err)
	}

	active := !record.Verified && time.Now().Before(record.ExpiresAt)
	return active, record.ExpiresAt, nil
}

func (s *OTPService) getOTPRecord(email string) (*otpRecord, error) {
	var record otpRecord
	query := `
		SELECT id, email, otp_hash, expires_at, attempts, max_attempts, verified, created_at, verified_at
		FROM otp_verifications
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := s.db.Get(&record, query, email)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *OTPService) incrementAttempts(id int) error {
	query := `UPDATE otp_verifications SET attempts = attempts + 1 WHERE id = $1`
	_, err := s.db.Exec(query, id)
	return err
}

func (s *OTPService) markVerified(id int) error {
	query := `UPDATE otp_verifications SET verified = TRUE, verified_at = NOW() WHERE id = $1`
	_, err := s.db.Exec(query, id)
	return err
}

// generateRandomOTP generates a cryptographically random numeric code
func generateRandomOTP(length int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", length, n), nil
}
