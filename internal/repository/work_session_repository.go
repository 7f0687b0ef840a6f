package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// WorkSessionRepository stores the current work session per (ticket, technician).
type WorkSessionRepository interface {
	Upsert(ctx context.Context, session *domain.WorkSession) error
	GetByTicketAndTechnicianUser(ctx context.Context, ticketID, technicianUserID string) (*domain.WorkSession, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.WorkSession, error)
}

type workSessionRepository struct {
	db DB
}

// NewWorkSessionRepository instantiates the repository.
func NewWorkSessionRepository(db DB) WorkSessionRepository {
	return &workSessionRepository{db: db}
}

const workSessionColumns = `id, ticket_id, technician_id, technician_user_id, working_on, note, state, started_at, updated_at`

// Upsert overwrites the session row for (ticket, technician user). Sessions
// are a current status, not a log.
func (r *workSessionRepository) Upsert(ctx context.Context, session *domain.WorkSession) error {
	const query = `
        INSERT INTO ticket_work_sessions (ticket_id, technician_id, technician_user_id, working_on, note, state)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (ticket_id, technician_user_id)
        DO UPDATE SET working_on=EXCLUDED.working_on, note=EXCLUDED.note, state=EXCLUDED.state, updated_at=NOW()
        RETURNING id, started_at, updated_at`
	return r.db.QueryRow(ctx, query,
		session.TicketID,
		session.TechnicianID,
		session.TechnicianUserID,
		session.WorkingOn,
		session.Note,
		session.State,
	).Scan(&session.ID, &session.StartedAt, &session.UpdatedAt)
}

func (r *workSessionRepository) GetByTicketAndTechnicianUser(ctx context.Context, ticketID, technicianUserID string) (*domain.WorkSession, error) {
	query := `SELECT ` + workSessionColumns + ` FROM ticket_work_sessions WHERE ticket_id=$1 AND technician_user_id=$2`
	var session domain.WorkSession
	if err := scanWorkSession(r.db.QueryRow(ctx, query, ticketID, technicianUserID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *workSessionRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.WorkSession, error) {
	query := `SELECT ` + workSessionColumns + ` FROM ticket_work_sessions WHERE ticket_id=$1 ORDER BY updated_at DESC NULLS LAST, started_at DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkSession
	for rows.Next() {
		var session domain.WorkSession
		if err := scanWorkSession(rows, &session); err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, rows.Err()
}

func scanWorkSession(row pgx.Row, session *domain.WorkSession) error {
	return row.Scan(
		&session.ID,
		&session.TicketID,
		&session.TechnicianID,
		&session.TechnicianUserID,
		&session.WorkingOn,
		&session.Note,
		&session.State,
		&session.StartedAt,
		&session.UpdatedAt,
	)
}
