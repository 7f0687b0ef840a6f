package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TechnicianRepository handles persistence for technician profiles.
type TechnicianRepository interface {
	Create(ctx context.Context, technician *domain.Technician) error
	GetByID(ctx context.Context, id string) (*domain.Technician, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Technician, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Technician, error)
	ListActive(ctx context.Context) ([]domain.Technician, error)
}

type technicianRepository struct {
	db DB
}

// NewTechnicianRepository instantiates the repository.
func NewTechnicianRepository(db DB) TechnicianRepository {
	return &technicianRepository{db: db}
}

const technicianColumns = `id, full_name, email, phone, user_id, is_active, created_at, updated_at`

func (r *technicianRepository) Create(ctx context.Context, technician *domain.Technician) error {
	const query = `
        INSERT INTO technicians (full_name, email, phone, user_id, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		technician.FullName,
		technician.Email,
		technician.Phone,
		technician.UserID,
		technician.IsActive,
	).Scan(&technician.ID, &technician.CreatedAt, &technician.UpdatedAt)
}

func (r *technicianRepository) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *technicianRepository) GetByUserID(ctx context.Context, userID string) (*domain.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE user_id=$1`
	return r.fetchSingle(ctx, query, userID)
}

func (r *technicianRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Technician, error) {
	var technician domain.Technician
	if err := scanTechnician(r.db.QueryRow(ctx, query, arg), &technician); err != nil {
		return nil, err
	}
	return &technician, nil
}

func (r *technicianRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Technician, error) {
	if len(ids) == 0 {
		return []domain.Technician{}, nil
	}
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE id = ANY($1) ORDER BY id ASC`
	return r.list(ctx, query, ids)
}

// ListActive returns active technicians ordered by id so that callers doing
// deterministic tie-breaking see a stable sequence.
func (r *technicianRepository) ListActive(ctx context.Context) ([]domain.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE is_active ORDER BY id ASC`
	return r.list(ctx, query)
}

func (r *technicianRepository) list(ctx context.Context, query string, args ...any) ([]domain.Technician, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Technician
	for rows.Next() {
		var technician domain.Technician
		if err := scanTechnician(rows, &technician); err != nil {
			return nil, err
		}
		result = append(result, technician)
	}
	return result, rows.Err()
}

func scanTechnician(row pgx.Row, technician *domain.Technician) error {
	return row.Scan(
		&technician.ID,
		&technician.FullName,
		&technician.Email,
		&technician.Phone,
		&technician.UserID,
		&technician.IsActive,
		&technician.CreatedAt,
		&technician.UpdatedAt,
	)
}
