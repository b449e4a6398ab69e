package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEmailRateLimit(t *testing.T) {
	cfg := DefaultRateLimitConfig()

	t.Run("Under The Limit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewRateLimitService(newMockDatabase(db))

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM otp_verifications`).
			WithArgs("user@corp.com", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		err = service.CheckEmailRateLimit("user@corp.com", cfg)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("At The Limit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewRateLimitService(newMockDatabase(db))
		oldest := time.Now().Add(-5 * time.Minute)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM otp_verifications`).
			WithArgs("user@corp.com", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(cfg.MaxEmailRequests))
		mock.ExpectQuery(`SELECT MIN\(created_at\) FROM otp_verifications`).
			WithArgs("user@corp.com", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(oldest))

		err = service.CheckEmailRateLimit("user@corp.com", cfg)
		var rateErr *RateLimitError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, "email", rateErr.Type)
		assert.WithinDuration(t, oldest.Add(cfg.EmailWindow), rateErr.RetryAfter, time.Second)
	})
}

func TestCheckIPRateLimit(t *testing.T) {
	cfg := DefaultRateLimitConfig()

	t.Run("Under The Limit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewRateLimitService(newMockDatabase(db))

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM otp_verifications`).
			WithArgs("10.0.0.1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err = service.CheckIPRateLimit("10.0.0.1", cfg)
		assert.NoError(t, err)
	})

	t.Run("Over The Limit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewRateLimitService(newMockDatabase(db))
		oldest := time.Now().Add(-30 * time.Minute)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM otp_verifications`).
			WithArgs("10.0.0.1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(cfg.MaxIPRequests + 5))
		mock.ExpectQuery(`SELECT MIN\(created_at\) FROM otp_verifications`).
			WithArgs("10.0.0.1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(oldest))

		err = service.CheckIPRateLimit("10.0.0.1", cfg)
		var rateErr *RateLimitError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, "ip", rateErr.Type)
	})
}
