package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavevms/wave-backend/internal/models"
)

// mockDatabase implements the DB interface over sqlmock, via sqlx so Get and
// Select work too
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

func sampleRequest() *models.VisitRequest {
	return &models.VisitRequest{
		TicketNumber:    "WAVE-20250307-001",
		Requester:       models.Employee{ID: "EMP-001", Email: "requester@corp.com", Name: "Ravi Requester"},
		VisitorCategory: "Supplier",
		NumberOfGuests:  1,
		Guests: []models.Guest{
			{Name: "Alice Auditor", Phone: "+94771234567", Email: "alice@visitor.com",
				Company: "Visitor Co", Designation: "Auditor",
				QRToken: "WAVE-WAVE-20250307-001-GUEST-0"},
		},
		Purpose:           "Quarterly quality audit",
		TentativeArrival:  time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		TentativeDuration: "3 hours",
		MeetingWith:       "Quality Team",
		LocationType:      models.LocationTypePlant,
		LocationToVisit:   "Plant 2",
		AreaToVisit:       "Packaging line",
		Status:            models.VisitStatusPending,
		Approvals: []models.Approval{
			{ApproverID: "EMP-MGR", ApproverEmail: "manager@corp.com",
				Status: models.ApprovalStatusPending},
		},
	}
}

func visitRequestRows(req *models.VisitRequest) *sqlmock.Rows {
	requesterJSON, guestsJSON, approvalsJSON, err := marshalRequestDocs(req)
	if err != nil {
		panic(err)
	}
	now := time.Now()
	return sqlmock.NewRows([]string{
		"ticket_number", "requester", "visitor_category", "visitor_category_other",
		"number_of_guests", "guests", "purpose", "tentative_arrival", "tentative_duration",
		"lunch_required", "lunch_category", "dietary_requirements", "meeting_with",
		"location_type", "location_to_visit", "area_to_visit", "cell_line_visit",
		"notes", "status", "approvals", "version", "created_at", "updated_at",
	}).AddRow(
		req.TicketNumber, requesterJSON, req.VisitorCategory, nil,
		req.NumberOfGuests, guestsJSON, req.Purpose, req.TentativeArrival, req.TentativeDuration,
		req.LunchRequired, nil, nil, req.MeetingWith,
		string(req.LocationType), req.LocationToVisit, req.AreaToVisit, req.CellLineVisit,
		nil, string(req.Status), approvalsJSON, 1, now, now,
	)
}

func TestNextTicketSequence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVisitRequestRepository(newMockDatabase(db))
	day := time.Date(2025, 3, 7, 9, 30, 0, 0, time.UTC)

	t.Run("Allocates Next Number", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO ticket_sequences").
			WithArgs("2025-03-07").
			WillReturnRows(sqlmock.NewRows([]string{"last_seq"}).AddRow(7))

		seq, err := repo.NextTicketSequence(day)
		require.NoError(t, err)
		assert.Equal(t, 7, seq)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO ticket_sequences").
			WithArgs("2025-03-07").
			WillReturnError(fmt.Errorf("database error"))

		_, err := repo.NextTicketSequence(day)
		assert.Error(t, err)
	})
}

func TestCreateVisitRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVisitRequestRepository(newMockDatabase(db))

	t.Run("Success Sets Version One", func(t *testing.T) {
		req := sampleRequest()

		mock.ExpectExec("INSERT INTO visit_requests").
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.CreateRequest(req)
		require.NoError(t, err)
		assert.Equal(t, 1, req.Version)
		assert.False(t, req.CreatedAt.IsZero())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO visit_requests").
			WillReturnError(fmt.Errorf("database error"))

		err := repo.CreateRequest(sampleRequest())
		assert.Error(t, err)
	})
}

func TestGetRequestByTicket(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVisitRequestRepository(newMockDatabase(db))

	t.Run("Found", func(t *testing.T) {
		want := sampleRequest()

		mock.ExpectQuery("SELECT (.+) FROM visit_requests").
			WithArgs(want.TicketNumber).
			WillReturnRows(visitRequestRows(want))

		got, err := repo.GetRequestByTicket(want.TicketNumber)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.TicketNumber, got.TicketNumber)
		assert.Equal(t, want.Requester.ID, got.Requester.ID)
		require.Len(t, got.Guests, 1)
		assert.Equal(t, want.Guests[0].QRToken, got.Guests[0].QRToken)
		require.Len(t, got.Approvals, 1)
		assert.Equal(t, models.ApprovalStatusPending, got.Approvals[0].Status)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("Not Found Returns Nil", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM visit_requests").
			WithArgs("WAVE-19990101-001").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetRequestByTicket("WAVE-19990101-001")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestGetApprovedRequestByGuestToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVisitRequestRepository(newMockDatabase(db))

	t.Run("Found", func(t *testing.T) {
		want := sampleRequest()
		want.Status = models.VisitStatusApproved

		mock.ExpectQuery("SELECT (.+) FROM visit_requests").
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(visitRequestRows(want))

		got, err := repo.GetApprovedRequestByGuestToken(want.Guests[0].QRToken)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.TicketNumber, got.TicketNumber)
	})

	t.Run("Not Found Returns Nil", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM visit_requests").
			WithArgs(sqlmock.AnyArg()).
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetApprovedRequestByGuestToken("bogus-token")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestUpdateRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVisitRequestRepository(newMockDatabase(db))

	t.Run("Success Bumps Version", func(t *testing.T) {
		req := sampleRequest()
		req.Version = 2

		mock.ExpectExec("UPDATE visit_requests").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateRequest(req, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, req.Version)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Version Mismatch Returns Conflict", func(t *testing.T) {
		req := sampleRequest()
		req.Version = 2

		// CAS predicate matched no row: someone else already bumped the version
		mock.ExpectExec("UPDATE visit_requests").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateRequest(req, 2)
		assert.ErrorIs(t, err, ErrVersionConflict)
		assert.Equal(t, 2, req.Version)
	})
}

func TestListRequests(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVisitRequestRepository(newMockDatabase(db))
	want := sampleRequest()

	mock.ExpectQuery("SELECT ticket_number FROM visit_requests").
		WillReturnRows(sqlmock.NewRows([]string{"ticket_number"}).AddRow(want.TicketNumber))
	mock.ExpectQuery("SELECT (.+) FROM visit_requests").
		WithArgs(want.TicketNumber).
		WillReturnRows(visitRequestRows(want))

	requests, err := repo.ListRequests()
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, want.TicketNumber, requests[0].TicketNumber)

	assert.NoError(t, mock.ExpectationsWereMet())
}
