package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wavevms/wave-backend/internal/models"
)

// ErrVersionConflict indicates a compare-and-swap update lost the race: the
// row's version no longer matches the version the caller read. The caller must
// reload and retry.
var ErrVersionConflict = fmt.Errorf("visit request was modified concurrently")

// VisitRequestRepository handles visit request database operations. A request
// row is the unit of mutation: the requester snapshot, guest list and approval
// chain are JSONB documents on the row, and every update is guarded by the
// version column.
type VisitRequestRepository struct {
	db DB
}

// NewVisitRequestRepository creates a new VisitRequestRepository
func NewVisitRequestRepository(db DB) *VisitRequestRepository {
	return &VisitRequestRepository{db: db}
}

// ============================================================================
// TICKET SEQUENCE ALLOCATION
// ============================================================================

// NextTicketSequence atomically allocates the next per-day ticket sequence
// number. The UPSERT serializes concurrent creators on the same day row, so
// two callers can never be handed the same number.
func (r *VisitRequestRepository) NextTicketSequence(day time.Time) (int, error) {
	var seq int
	query := `
		INSERT INTO ticket_sequences (seq_date, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (seq_date)
		DO UPDATE SET last_seq = ticket_sequences.last_seq + 1
		RETURNING last_seq`

	err := r.db.Get(&seq, query, day.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to allocate ticket sequence: %w", err)
	}
	return seq, nil
}

// ============================================================================
// VISIT REQUEST CRUD OPERATIONS
// ============================================================================

// CreateRequest inserts a new visit request at version 1
func (r *VisitRequestRepository) CreateRequest(req *models.VisitRequest) error {
	req.Version = 1
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	req.UpdatedAt = time.Now()

	requesterJSON, guestsJSON, approvalsJSON, err := marshalRequestDocs(req)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO visit_requests (
			ticket_number, requester, visitor_category, visitor_category_other,
			number_of_guests, guests, purpose, tentative_arrival, tentative_duration,
			lunch_required, lunch_category, dietary_requirements, meeting_with,
			location_type, location_to_visit, area_to_visit, cell_line_visit,
			notes, status, approvals, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23
		)`

	_, err = r.db.Exec(query,
		req.TicketNumber, requesterJSON, req.VisitorCategory, req.VisitorCategoryOther,
		req.NumberOfGuests, guestsJSON, req.Purpose, req.TentativeArrival, req.TentativeDuration,
		req.LunchRequired, req.LunchCategory, req.DietaryRequirements, req.MeetingWith,
		req.LocationType, req.LocationToVisit, req.AreaToVisit, req.CellLineVisit,
		req.Notes, req.Status, approvalsJSON, req.Version, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create visit request: %w", err)
	}
	return nil
}

const visitRequestColumns = `
	ticket_number, requester, visitor_category, visitor_category_other,
	number_of_guests, guests, purpose, tentative_arrival, tentative_duration,
	lunch_required, lunch_category, dietary_requirements, meeting_with,
	location_type, location_to_visit, area_to_visit, cell_line_visit,
	notes, status, approvals, version, created_at, updated_at`

// GetRequestByTicket retrieves a visit request by its ticket number
func (r *VisitRequestRepository) GetRequestByTicket(ticket string) (*models.VisitRequest, error) {
	query := `
		SELECT ` + visitRequestColumns + `
		FROM visit_requests
		WHERE ticket_number = $1`

	return r.scanRequest(r.db.QueryRow(query, ticket))
}

// GetApprovedRequestByGuestToken finds the approved request owning the guest
// with the given QR token. Guests of pending or declined requests are not
// discoverable by token: the security desk must only see approved visits.
func (r *VisitRequestRepository) GetApprovedRequestByGuestToken(token string) (*models.VisitRequest, error) {
	tokenDoc, err := json.Marshal([]map[string]string{{"qr_token": token}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token filter: %w", err)
	}

	query := `
		SELECT ` + visitRequestColumns + `
		FROM visit_requests
		WHERE status = 'approved' AND guests @> $1`

	return r.scanRequest(r.db.QueryRow(query, tokenDoc))
}

// ListRequests retrieves all visit requests, newest first
func (r *VisitRequestRepository) ListRequests() ([]*models.VisitRequest, error) {
	query := `SELECT ticket_number FROM visit_requests ORDER BY created_at DESC`
	return r.listByTicketQuery(query)
}

// ListRequestsByRequester retrieves all requests raised by the given employee
func (r *VisitRequestRepository) ListRequestsByRequester(empID string) ([]*models.VisitRequest, error) {
	query := `
		SELECT ticket_number FROM visit_requests
		WHERE requester->>'emp_id' = $1
		ORDER BY created_at DESC`
	return r.listByTicketQuery(query, empID)
}

// ListRequestsByStatus retrieves all requests with the given status
func (r *VisitRequestRepository) ListRequestsByStatus(status models.VisitStatus) ([]*models.VisitRequest, error) {
	query := `
		SELECT ticket_number FROM visit_requests
		WHERE status = $1
		ORDER BY created_at DESC`
	return r.listByTicketQuery(query, status)
}

// UpdateRequest persists the request with compare-and-swap on the version
// column. On success the in-memory version is bumped to the stored value.
// Returns ErrVersionConflict when the row changed under the caller.
func (r *VisitRequestRepository) UpdateRequest(req *models.VisitRequest, expectedVersion int) error {
	req.UpdatedAt = time.Now()

	requesterJSON, guestsJSON, approvalsJSON, err := marshalRequestDocs(req)
	if err != nil {
		return err
	}

	query := `
		UPDATE visit_requests SET
			requester = $3,
			visitor_category = $4,
			visitor_category_other = $5,
			number_of_guests = $6,
			guests = $7,
			purpose = $8,
			tentative_arrival = $9,
			tentative_duration = $10,
			lunch_required = $11,
			lunch_category = $12,
			dietary_requirements = $13,
			meeting_with = $14,
			location_type = $15,
			location_to_visit = $16,
			area_to_visit = $17,
			cell_line_visit = $18,
			notes = $19,
			status = $20,
			approvals = $21,
			version = version + 1,
			updated_at = $22
		WHERE ticket_number = $1 AND version = $2`

	result, err := r.db.Exec(query,
		req.TicketNumber, expectedVersion, requesterJSON,
		req.VisitorCategory, req.VisitorCategoryOther, req.NumberOfGuests, guestsJSON,
		req.Purpose, req.TentativeArrival, req.TentativeDuration,
		req.LunchRequired, req.LunchCategory, req.DietaryRequirements, req.MeetingWith,
		req.LocationType, req.LocationToVisit, req.AreaToVisit, req.CellLineVisit,
		req.Notes, req.Status, approvalsJSON, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update visit request: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrVersionConflict
	}

	req.Version = expectedVersion + 1
	return nil
}

// ============================================================================
// ROW SCANNING
// ============================================================================

// rowScanner is satisfied by *sql.Row
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *VisitRequestRepository) scanRequest(row rowScanner) (*models.VisitRequest, error) {
	var req models.VisitRequest
	var requesterJSON, guestsJSON, approvalsJSON []byte

	err := row.Scan(
		&req.TicketNumber, &requesterJSON, &req.VisitorCategory, &req.VisitorCategoryOther,
		&req.NumberOfGuests, &guestsJSON, &req.Purpose, &req.TentativeArrival, &req.TentativeDuration,
		&req.LunchRequired, &req.LunchCategory, &req.DietaryRequirements, &req.MeetingWith,
		&req.LocationType, &req.LocationToVisit, &req.AreaToVisit, &req.CellLineVisit,
		&req.Notes, &req.Status, &approvalsJSON, &req.Version, &req.CreatedAt, &req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan visit request: %w", err)
	}

	if err := json.Unmarshal(requesterJSON, &req.Requester); err != nil {
		return nil, fmt.Errorf("failed to unmarshal requester: %w", err)
	}
	if err := json.Unmarshal(guestsJSON, &req.Guests); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guests: %w", err)
	}
	if err := json.Unmarshal(approvalsJSON, &req.Approvals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approvals: %w", err)
	}

	return &req, nil
}

func (r *VisitRequestRepository) listByTicketQuery(query string, args ...interface{}) ([]*models.VisitRequest, error) {
	var tickets []string
	if err := r.db.Select(&tickets, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list visit requests: %w", err)
	}

	requests := make([]*models.VisitRequest, 0, len(tickets))
	for _, ticket := range tickets {
		req, err := r.GetRequestByTicket(ticket)
		if err != nil {
			return nil, err
		}
		if req != nil {
			requests = append(requests, req)
		}
	}
	return requests, nil
}

func marshalRequestDocs(req *models.VisitRequest) (requester, guests, approvals []byte, err error) {
	requester, err = json.Marshal(req.Requester)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal requester: %w", err)
	}

	// Empty slices marshal as [] rather than null so JSONB containment
	// queries behave on guestless rows.
	if req.Guests == nil {
		req.Guests = []models.Guest{}
	}
	guests, err = json.Marshal(req.Guests)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal guests: %w", err)
	}

	if req.Approvals == nil {
		req.Approvals = []models.Approval{}
	}
	approvals, err = json.Marshal(req.Approvals)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal approvals: %w", err)
	}

	return requester, guests, approvals, nil
}
