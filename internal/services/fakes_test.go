package services

import (
	"encoding/json"
	"time"

	"github.com/wavevms/wave-backend/internal/database"
	"github.com/wavevms/wave-backend/internal/models"
)

// fakeVisitStore is an in-memory VisitStore with the same version semantics
// as the real repository: reads hand out copies, writes compare-and-swap on
// the version column.
type fakeVisitStore struct {
	requests  map[string]*models.VisitRequest
	sequences map[string]int
}

func newFakeVisitStore() *fakeVisitStore {
	return &fakeVisitStore{
		requests:  make(map[string]*models.VisitRequest),
		sequences: make(map[string]int),
	}
}

// cloneRequest round-trips through JSON so callers never share slices with
// the stored copy, same isolation a DB read gives.
func cloneRequest(req *models.VisitRequest) *models.VisitRequest {
	raw, err := json.Marshal(req)
	if err != nil {
		panic(err)
	}
	var out models.VisitRequest
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

func (s *fakeVisitStore) NextTicketSequence(day time.Time) (int, error) {
	key := day.Format("2006-01-02")
	s.sequences[key]++
	return s.sequences[key], nil
}

func (s *fakeVisitStore) CreateRequest(req *models.VisitRequest) error {
	req.Version = 1
	s.requests[req.TicketNumber] = cloneRequest(req)
	return nil
}

func (s *fakeVisitStore) GetRequestByTicket(ticket string) (*models.VisitRequest, error) {
	req, ok := s.requests[ticket]
	if !ok {
		return nil, nil
	}
	return cloneRequest(req), nil
}

func (s *fakeVisitStore) GetApprovedRequestByGuestToken(token string) (*models.VisitRequest, error) {
	for _, req := range s.requests {
		if req.Status != models.VisitStatusApproved {
			continue
		}
		if req.GuestByQRToken(token) >= 0 {
			return cloneRequest(req), nil
		}
	}
	return nil, nil
}

func (s *fakeVisitStore) ListRequests() ([]*models.VisitRequest, error) {
	out := []*models.VisitRequest{}
	for _, req := range s.requests {
		out = append(out, cloneRequest(req))
	}
	return out, nil
}

func (s *fakeVisitStore) ListRequestsByRequester(empID string) ([]*models.VisitRequest, error) {
	out := []*models.VisitRequest{}
	for _, req := range s.requests {
		if req.Requester.ID == empID {
			out = append(out, cloneRequest(req))
		}
	}
	return out, nil
}

func (s *fakeVisitStore) ListRequestsByStatus(status models.VisitStatus) ([]*models.VisitRequest, error) {
	out := []*models.VisitRequest{}
	for _, req := range s.requests {
		if req.Status == status {
			out = append(out, cloneRequest(req))
		}
	}
	return out, nil
}

func (s *fakeVisitStore) UpdateRequest(req *models.VisitRequest, expectedVersion int) error {
	stored, ok := s.requests[req.TicketNumber]
	if !ok || stored.Version != expectedVersion {
		return database.ErrVersionConflict
	}
	req.Version = expectedVersion + 1
	s.requests[req.TicketNumber] = cloneRequest(req)
	return nil
}

// fakeHistoryStore collects audit entries in order. Setting appendErr makes
// every append fail, for exercising degraded-trail paths.
type fakeHistoryStore struct {
	entries   []models.HistoryEntry
	appendErr error
}

func (s *fakeHistoryStore) AppendEntry(entry *models.HistoryEntry) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *fakeHistoryStore) ListByTicket(ticket string) ([]models.HistoryEntry, error) {
	out := []models.HistoryEntry{}
	for _, e := range s.entries {
		if e.TicketNumber == ticket {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListRecent returns the newest entries first, matching the repository
func (s *fakeHistoryStore) ListRecent(limit int) ([]models.HistoryEntry, error) {
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]models.HistoryEntry, 0, limit)
	for i := len(s.entries) - 1; i >= len(s.entries)-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// fakeDirectory is an in-memory EmployeeDirectory keyed by ID and email
type fakeDirectory struct {
	employees []models.Employee
}

func (d *fakeDirectory) GetEmployeeByID(id string) (*models.Employee, error) {
	for i := range d.employees {
		if d.employees[i].ID == id {
			emp := d.employees[i]
			return &emp, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) GetEmployeeByEmail(email string) (*models.Employee, error) {
	for i := range d.employees {
		if d.employees[i].Email == email {
			emp := d.employees[i]
			return &emp, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) ListActiveEmployees() ([]models.Employee, error) {
	out := []models.Employee{}
	for _, emp := range d.employees {
		if emp.Active {
			out = append(out, emp)
		}
	}
	return out, nil
}
