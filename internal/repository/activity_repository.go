package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ActivityRepository stores the append-only audit trail. Records are never
// updated or deleted once written.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.ActivityRecord) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityRecord, error)
	ListRecentByTicket(ctx context.Context, ticketID string, limit int) ([]domain.ActivityRecord, error)
}

type activityRepository struct {
	db DB
}

// NewActivityRepository builds the repository.
func NewActivityRepository(db DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.ActivityRecord) error {
	const query = `
        INSERT INTO ticket_activities (ticket_id, actor_user_id, activity_type, message)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		activity.TicketID,
		activity.ActorUserID,
		activity.Type,
		activity.Message,
	).Scan(&activity.ID, &activity.CreatedAt)
}

// ListByTicket returns the full timeline oldest-first. Insertion order (id)
// breaks created_at ties.
func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityRecord, error) {
	const query = `
        SELECT id, ticket_id, actor_user_id, activity_type, message, created_at
        FROM ticket_activities WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, ticketID)
}

// ListRecentByTicket returns up to limit records, most recent first.
func (r *activityRepository) ListRecentByTicket(ctx context.Context, ticketID string, limit int) ([]domain.ActivityRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
        SELECT id, ticket_id, actor_user_id, activity_type, message, created_at
        FROM ticket_activities WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`
	return r.list(ctx, query, ticketID, limit)
}

func (r *activityRepository) list(ctx context.Context, query string, args ...any) ([]domain.ActivityRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActivityRecord
	for rows.Next() {
		var activity domain.ActivityRecord
		if err := scanActivity(rows, &activity); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}

func scanActivity(row pgx.Row, activity *domain.ActivityRecord) error {
	return row.Scan(
		&activity.ID,
		&activity.TicketID,
		&activity.ActorUserID,
		&activity.Type,
		&activity.Message,
		&activity.CreatedAt,
	)
}
