package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wavevms/wave-backend/internal/models"
)

// HistoryRepository handles the append-only visit audit trail. Entries are
// inserted and read back; there is deliberately no update or delete path.
type HistoryRepository struct {
	db DB
}

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(db DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// AppendEntry appends one history entry
func (r *HistoryRepository) AppendEntry(entry *models.HistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO visit_history (
			id, ticket_number, user_id, comment, action_type,
			before_state, after_state, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		entry.ID, entry.TicketNumber, entry.UserID, entry.Comment,
		entry.ActionType, entry.BeforeState, entry.AfterState, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

const historyColumns = `
	id, ticket_number, user_id, comment, action_type,
	before_state, after_state, created_at`

// ListByTicket retrieves all history entries for a ticket, oldest first
func (r *HistoryRepository) ListByTicket(ticket string) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	query := `
		SELECT ` + historyColumns + `
		FROM visit_history
		WHERE ticket_number = $1
		ORDER BY created_at ASC`

	if err := r.db.Select(&entries, query, ticket); err != nil {
		return nil, fmt.Errorf("failed to list history for ticket: %w", err)
	}
	return entries, nil
}

// ListRecent retrieves the most recent history entries across all tickets
func (r *HistoryRepository) ListRecent(limit int) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	query := `
		SELECT ` + historyColumns + `
		FROM visit_history
		ORDER BY created_at DESC
		LIMIT $1`

	if err := r.db.Select(&entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent history: %w", err)
	}
	return entries, nil
}
