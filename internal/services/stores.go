package services

import (
	"time"

	"github.com/wavevms/wave-backend/internal/models"
)

// VisitStore is the persistence surface the workflow services need for visit
// requests. *database.VisitRequestRepository satisfies it; tests use an
// in-memory implementation.
type VisitStore interface {
	NextTicketSequence(day time.Time) (int, error)
	CreateRequest(req *models.VisitRequest) error
	GetRequestByTicket(ticket string) (*models.VisitRequest, error)
	GetApprovedRequestByGuestToken(token string) (*models.VisitRequest, error)
	ListRequests() ([]*models.VisitRequest, error)
	ListRequestsByRequester(empID string) ([]*models.VisitRequest, error)
	ListRequestsByStatus(status models.VisitStatus) ([]*models.VisitRequest, error)
	UpdateRequest(req *models.VisitRequest, expectedVersion int) error
}

// HistoryStore is the persistence surface for the append-only audit trail.
// *database.HistoryRepository satisfies it.
type HistoryStore interface {
	AppendEntry(entry *models.HistoryEntry) error
	ListByTicket(ticket string) ([]models.HistoryEntry, error)
	ListRecent(limit int) ([]models.HistoryEntry, error)
}

// EmployeeDirectory resolves employee identities. *database.EmployeeRepository
// satisfies it. Lookups return (nil, nil) for unknown identifiers.
type EmployeeDirectory interface {
	GetEmployeeByID(id string) (*models.Employee, error)
	GetEmployeeByEmail(email string) (*models.Employee, error)
	ListActiveEmployees() ([]models.Employee, error)
}
