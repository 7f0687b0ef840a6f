package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AssignmentRepository handles the ticket-technician relation rows.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) error
	Update(ctx context.Context, assignment *domain.Assignment) error
	Delete(ctx context.Context, ticketID, technicianID string) error
	GetByTicketAndTechnician(ctx context.Context, ticketID, technicianID string) (*domain.Assignment, error)
	GetByTicketAndTechnicianUser(ctx context.Context, ticketID, technicianUserID string) (*domain.Assignment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error)
	ListByTechnicianUser(ctx context.Context, technicianUserID string) ([]domain.Assignment, error)
}

type assignmentRepository struct {
	db DB
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(db DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

const assignmentColumns = `id, ticket_id, technician_id, technician_user_id, is_lead, state, assigned_at, updated_at`

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	const query = `
        INSERT INTO ticket_assignments (ticket_id, technician_id, technician_user_id, is_lead, state)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, assigned_at`
	return r.db.QueryRow(ctx, query,
		assignment.TicketID,
		assignment.TechnicianID,
		assignment.TechnicianUserID,
		assignment.IsLead,
		assignment.State,
	).Scan(&assignment.ID, &assignment.AssignedAt)
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *domain.Assignment) error {
	const query = `
        UPDATE ticket_assignments SET is_lead=$1, state=$2, updated_at=NOW()
        WHERE ticket_id=$3 AND technician_id=$4`
	cmd, err := r.db.Exec(ctx, query,
		assignment.IsLead,
		assignment.State,
		assignment.TicketID,
		assignment.TechnicianID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assignmentRepository) Delete(ctx context.Context, ticketID, technicianID string) error {
	const query = `DELETE FROM ticket_assignments WHERE ticket_id=$1 AND technician_id=$2`
	cmd, err := r.db.Exec(ctx, query, ticketID, technicianID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assignmentRepository) GetByTicketAndTechnician(ctx context.Context, ticketID, technicianID string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM ticket_assignments WHERE ticket_id=$1 AND technician_id=$2`
	return r.fetchSingle(ctx, query, ticketID, technicianID)
}

func (r *assignmentRepository) GetByTicketAndTechnicianUser(ctx context.Context, ticketID, technicianUserID string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM ticket_assignments WHERE ticket_id=$1 AND technician_user_id=$2`
	return r.fetchSingle(ctx, query, ticketID, technicianUserID)
}

func (r *assignmentRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Assignment, error) {
	var assignment domain.Assignment
	if err := scanAssignment(r.db.QueryRow(ctx, query, args...), &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM ticket_assignments WHERE ticket_id=$1 ORDER BY assigned_at ASC, id ASC`
	return r.list(ctx, query, ticketID)
}

func (r *assignmentRepository) ListByTechnicianUser(ctx context.Context, technicianUserID string) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM ticket_assignments WHERE technician_user_id=$1 ORDER BY assigned_at DESC`
	return r.list(ctx, query, technicianUserID)
}

func (r *assignmentRepository) list(ctx context.Context, query string, args ...any) ([]domain.Assignment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		var assignment domain.Assignment
		if err := scanAssignment(rows, &assignment); err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	return result, rows.Err()
}

func scanAssignment(row pgx.Row, assignment *domain.Assignment) error {
	return row.Scan(
		&assignment.ID,
		&assignment.TicketID,
		&assignment.TechnicianID,
		&assignment.TechnicianUserID,
		&assignment.IsLead,
		&assignment.State,
		&assignment.AssignedAt,
		&assignment.UpdatedAt,
	)
}
