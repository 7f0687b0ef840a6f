package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Notifier delivers user-facing notifications. Every call is fire-and-forget
// from the engine's perspective: implementations may fail, callers log and
// move on, and a failure never affects the primary operation.
type Notifier interface {
	NotifyCreated(ctx context.Context, ticketID, title, createdByUserID string) error
	NotifyAssigned(ctx context.Context, ticketID, title string, userIDs []string) error
	NotifyMessage(ctx context.Context, ticketID, authorUserID, title string, leadUserID *string, createdByUserID string) error
	NotifyClosed(ctx context.Context, ticketID, createdByUserID, title string, status domain.TicketStatus) error
	NotifyActivityToAssigned(ctx context.Context, ticketID, actorUserID, text string) error
}

// Broadcaster pushes a payload to every listener of a named group channel.
// Best-effort: failures are logged at the call site and swallowed.
type Broadcaster interface {
	SendToGroup(ctx context.Context, group, event string, payload any) error
}

const collaborationEvent = "ticket:collaborationUpdated"

func ticketGroup(ticketID string) string {
	return "ticket:" + ticketID
}

// displayName resolves a user id for audit messages; absent users resolve to
// the "Unknown" placeholder instead of failing the write.
func displayName(ctx context.Context, users repository.UserRepository, userID string) string {
	user, err := users.GetByID(ctx, userID)
	if err != nil || user == nil {
		return "Unknown"
	}
	return user.FullName
}

func technicianName(ctx context.Context, technicians repository.TechnicianRepository, technicianID string) string {
	technician, err := technicians.GetByID(ctx, technicianID)
	if err != nil || technician == nil {
		return "Unknown"
	}
	return technician.FullName
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
