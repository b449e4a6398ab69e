package services

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wavevms/wave-backend/internal/config"
)

// mockDatabase implements the database.DB interface over sqlmock, via sqlx so
// Get and Select work too
type mockDatabase struct {
	db *sqlx.DB
}

func newMockDatabase(db *sql.DB) *mockDatabase {
	return &mockDatabase{db: sqlx.NewDb(db, "sqlmock")}
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return m.db.Get(dest, query, args...)
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return m.db.Select(dest, query, args...)
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}

func otpRecordRows(hash string, expiresAt time.Time, attempts int, verified bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "otp_hash", "expires_at", "attempts", "max_attempts",
		"verified", "created_at", "verified_at",
	}).AddRow(
		1, "user@corp.com", hash, expiresAt, attempts, MaxOTPAttempts,
		verified, time.Now(), nil,
	)
}

func TestGenerateOTP(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewOTPService(newMockDatabase(db), config.OTPConfig{})
	email := "user@corp.com"

	// Expect invalidate of outstanding codes, then the insert
	mock.ExpectExec("UPDATE otp_verifications").
		WithArgs(email).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO otp_verifications").
		WithArgs(email, sqlmock.AnyArg(), sqlmock.AnyArg(), MaxOTPAttempts, "10.0.0.1", "test-agent").
		WillReturnResult(sqlmock.NewResult(1, 1))

	otp, err := service.GenerateOTP(email, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Len(t, otp, OTPLength)
	assert.Regexp(t, "^[0-9]{6}$", otp)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// expiresWithin matches a timestamp argument that falls inside the window
type expiresWithin struct {
	min, max time.Duration
}

func (m expiresWithin) Match(v driver.Value) bool {
	ts, ok := v.(time.Time)
	if !ok {
		return false
	}
	d := time.Until(ts)
	return d >= m.min && d <= m.max
}

func TestGenerateOTP_ConfiguredKnobs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewOTPService(newMockDatabase(db), config.OTPConfig{
		Length:        4,
		ExpiryMinutes: 5,
		MaxAttempts:   5,
	})
	email := "user@corp.com"

	mock.ExpectExec("UPDATE otp_verifications").
		WithArgs(email).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// The stored expiry must honour the configured five minutes, matching
	// what the delivery mail tells the user
	mock.ExpectExec("INSERT INTO otp_verifications").
		WithArgs(email, sqlmock.AnyArg(),
			expiresWithin{min: 4 * time.Minute, max: 6 * time.Minute},
			5, "10.0.0.1", "test-agent").
		WillReturnResult(sqlmock.NewResult(1, 1))

	otp, err := service.GenerateOTP(email, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Len(t, otp, 4)
	assert.Regexp(t, "^[0-9]{4}$", otp)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateOTP(t *testing.T) {
	code := "123456"
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewOTPService(newMockDatabase(db), config.OTPConfig{})

		mock.ExpectQuery("SELECT id, email, otp_hash").
			WithArgs("user@corp.com").
			WillReturnRows(otpRecordRows(string(hash), time.Now().Add(5*time.Minute), 0, false))
		mock.ExpectExec("UPDATE otp_verifications SET attempts").
			WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE otp_verifications SET verified").
			WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		valid, err := service.ValidateOTP("user@corp.com", code)
		require.NoError(t, err)
		assert.True(t, valid)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Wrong Code", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewOTPService(newMockDatabase(db), config.OTPConfig{})

		mock.ExpectQuery("SELECT id, email, otp_hash").
			WithArgs("user@corp.com").
			WillReturnRows(otpRecordRows(string(hash), time.Now().Add(5*time.Minute), 0, false))
		mock.ExpectExec("UPDATE otp_verifications SET attempts").
			WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		valid, err := service.ValidateOTP("user@corp.com", "999999")
		assert.False(t, valid)
		assert.ErrorIs(t, err, ErrOTPInvalid)
	})

	t.Run("Expired Code", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewOTPService(newMockDatabase(db), config.OTPConfig{})

		mock.ExpectQuery("SELECT id, email, otp_hash").
			WithArgs("user@corp.com").
			WillReturnRows(otpRecordRows(string(hash), time.Now().Add(-time.Minute), 0, false))

		valid, err := service.ValidateOTP("user@corp.com", code)
		assert.False(t, valid)
		assert.ErrorIs(t, err, ErrOTPExpired)
	})

	t.Run("Already Used", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewOTPService(newMockDatabase(db), config.OTPConfig{})

		mock.ExpectQuery("SELECT id, email, otp_hash").
			WithArgs("user@corp.com").
			WillReturnRows(otpRecordRows(string(hash), time.Now().Add(5*time.Minute), 1, true))

		valid, err := service.ValidateOTP("user@corp.com", code)
		assert.False(t, valid)
		assert.ErrorIs(t, err, ErrOTPAlreadyUsed)
	})

	t.Run("Attempt Budget Exhausted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewOTPService(newMockDatabase(db), config.OTPConfig{})

		mock.ExpectQuery("SELECT id, email, otp_hash").
			WithArgs("user@corp.com").
			WillReturnRows(otpRecordRows(string(hash), time.Now().Add(5*time.Minute), MaxOTPAttempts, false))

		valid, err := service.ValidateOTP("user@corp.com", code)
		assert.False(t, valid)
		assert.ErrorIs(t, err, ErrMaxAttemptsExceeded)
	})

	t.Run("No Code On File", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewOTPService(newMockDatabase(db), config.OTPConfig{})

		mock.ExpectQuery("SELECT id, email, otp_hash").
			WithArgs("nobody@corp.com").
			WillReturnError(sql.ErrNoRows)

		valid, err := service.ValidateOTP("nobody@corp.com", code)
		assert.False(t, valid)
		assert.ErrorIs(t, err, ErrNoOTPFound)
	})
}

func TestGenerateRandomOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		otp, err := generateRandomOTP(OTPLength)
		require.NoError(t, err)
		assert.Len(t, otp, OTPLength)
		assert.Regexp(t, "^[0-9]{6}$", otp)
		seen[otp] = true
	}
	// Overwhelmingly unique in practice
	assert.Greater(t, len(seen), 80)
}
