package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TechnicianListMode selects which tickets a technician listing returns.
type TechnicianListMode string

const (
	TechnicianListAssigned    TechnicianListMode = "assigned"
	TechnicianListResponsible TechnicianListMode = "responsible"
	TechnicianListAll         TechnicianListMode = "all"
)

// CreateTicketInput carries the fields a requester controls on creation.
type CreateTicketInput struct {
	Title       string
	Description string
	Priority    *domain.TicketPriority
	DueDate     *time.Time
}

// UpdateTicketInput carries optional patch fields; nil means unchanged.
type UpdateTicketInput struct {
	Description  *string
	Priority     *domain.TicketPriority
	Status       *domain.TicketStatus
	DueDate      *time.Time
	ClearDueDate bool
	AssigneeID   *string
}

// MessageView is a ticket message enriched with the author's name.
type MessageView struct {
	ID           string              `json:"id"`
	TicketID     string              `json:"ticket_id"`
	AuthorUserID string              `json:"author_user_id"`
	AuthorName   string              `json:"author_name"`
	Body         string              `json:"body"`
	Status       domain.TicketStatus `json:"status"`
	CreatedAt    string              `json:"created_at"`
}

// TicketService coordinates the ticket lifecycle: creation, viewing,
// role-gated status transitions, messaging, and listings.
type TicketService struct {
	store    repository.TxManager
	repos    repository.Repositories
	engine   *AssignmentEngine
	manager  *AssignmentManager
	collab   *CollaborationTracker
	notifier Notifier
	logger   *zap.Logger
}

// TicketServiceDependencies bundles collaborators.
type TicketServiceDependencies struct {
	Store    repository.TxManager
	Repos    repository.Repositories
	Engine   *AssignmentEngine
	Manager  *AssignmentManager
	Collab   *CollaborationTracker
	Notifier Notifier
	Logger   *zap.Logger
}

// NewTicketService creates the service.
func NewTicketService(deps TicketServiceDependencies) *TicketService {
	return &TicketService{
		store:    deps.Store,
		repos:    deps.Repos,
		engine:   deps.Engine,
		manager:  deps.Manager,
		collab:   deps.Collab,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
}

// CreateTicket records a new ticket as SUBMITTED and then attempts
// auto-assignment. Assignment failure never fails creation.
func (s *TicketService) CreateTicket(ctx context.Context, creatorUserID string, input CreateTicketInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	priority := domain.TicketPriorityMedium
	if input.Priority != nil {
		priority = *input.Priority
	}

	ticket := &domain.Ticket{
		ExternalKey:     "TCK-" + strings.ToUpper(uuid.NewString()[:8]),
		Title:           title,
		Description:     input.Description,
		Status:          domain.TicketStatusSubmitted,
		Priority:        priority,
		CreatedByUserID: creatorUserID,
		DueDate:         input.DueDate,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if err := r.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return r.Activities.Create(ctx, &domain.ActivityRecord{
			TicketID:    ticket.ID,
			ActorUserID: creatorUserID,
			Type:        domain.ActivityCreated,
			Message:     "Ticket created: " + title,
		})
	})
	if err != nil {
		return nil, err
	}

	if _, aerr := s.engine.AssignTicket(ctx, ticket.ID, creatorUserID); aerr != nil {
		s.logger.Warn("auto-assignment after creation failed",
			zap.String("ticket_id", ticket.ID), zap.Error(aerr))
	}
	if nerr := s.notifier.NotifyCreated(ctx, ticket.ID, ticket.Title, creatorUserID); nerr != nil {
		s.logger.Warn("failed to send creation notification",
			zap.String("ticket_id", ticket.ID), zap.Error(nerr))
	}

	// Re-read so the caller sees the post-assignment state.
	fresh, gerr := s.repos.Tickets.GetByID(ctx, ticket.ID)
	if gerr != nil {
		return ticket, nil
	}
	return fresh, nil
}

// GetTicket returns a ticket the requester may see, or nil, nil otherwise.
// The first view of a SUBMITTED ticket by anyone other than its creator
// flips it to VIEWED; the accompanying activity write is best-effort.
func (s *TicketService) GetTicket(ctx context.Context, ticketID, requesterUserID string, role domain.UserRole) (*domain.Ticket, error) {
	ticket, err := s.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}

	visible, err := s.canSee(ctx, ticket, requesterUserID, role)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, nil
	}

	if ticket.Status == domain.TicketStatusSubmitted && requesterUserID != ticket.CreatedByUserID {
		ticket.Status = domain.TicketStatusViewed
		if uerr := s.repos.Tickets.Update(ctx, ticket); uerr != nil {
			return nil, uerr
		}
		if aerr := s.repos.Activities.Create(ctx, &domain.ActivityRecord{
			TicketID:    ticket.ID,
			ActorUserID: requesterUserID,
			Type:        domain.ActivityStatusChanged,
			Message:     "Ticket viewed for the first time",
		}); aerr != nil {
			s.logger.Warn("failed to record first-view activity",
				zap.String("ticket_id", ticket.ID), zap.Error(aerr))
		}
	}
	return ticket, nil
}

// ListTickets lists tickets scoped to the requester's role: clients see only
// their own, technicians only tickets they are assigned to, admins anything
// the filter matches.
func (s *TicketService) ListTickets(ctx context.Context, requesterUserID string, role domain.UserRole, filter repository.TicketFilter) ([]domain.Ticket, error) {
	switch role {
	case domain.RoleAdmin:
	case domain.RoleTechnician:
		filter.AssignedUserID = &requesterUserID
	default:
		filter.CreatedByUserID = &requesterUserID
	}
	return s.repos.Tickets.ListWithFilter(ctx, filter)
}

// ListTechnicianTickets lists tickets for a technician. Every mode is scoped
// to the technician's own assignments; the mode only narrows within that set:
// assigned and all return every assigned ticket, responsible keeps only those
// where the technician is the responsible one.
func (s *TicketService) ListTechnicianTickets(ctx context.Context, technicianUserID string, mode TechnicianListMode, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter.AssignedUserID = &technicianUserID
	tickets, err := s.repos.Tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	if mode != TechnicianListResponsible {
		return tickets, nil
	}
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.ResponsibleUserID != nil && *t.ResponsibleUserID == technicianUserID {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListAssignmentQueue returns unassigned tickets in the optional creation
// date range, oldest first. Admin-only at the transport layer.
func (s *TicketService) ListAssignmentQueue(ctx context.Context, createdFrom, createdTo *time.Time) ([]domain.Ticket, error) {
	return s.repos.Tickets.ListUnassigned(ctx, createdFrom, createdTo)
}

// UpdateTicket applies a role-gated patch. Status changes go through the
// transition table: forbidden transitions error, ignored ones are dropped
// silently. Assignee changes route through the assignment manager so the
// lead projection stays consistent with the assignment set.
func (s *TicketService) UpdateTicket(ctx context.Context, ticketID, actorUserID string, role domain.UserRole, input UpdateTicketInput) (*domain.Ticket, error) {
	var (
		result        *domain.Ticket
		statusChanged bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		ticket, err := r.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}

		visible, err := s.canSeeWithin(ctx, r, ticket, actorUserID, role)
		if err != nil {
			return err
		}
		if !visible {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}

		if input.Description != nil && role != domain.RoleTechnician {
			ticket.Description = *input.Description
		}
		if input.Priority != nil && role != domain.RoleTechnician {
			ticket.Priority = *input.Priority
		}
		if role == domain.RoleAdmin {
			if input.ClearDueDate {
				ticket.DueDate = nil
			} else if input.DueDate != nil {
				ticket.DueDate = input.DueDate
			}
		}

		var previousStatus domain.TicketStatus
		if input.Status != nil && *input.Status != ticket.Status {
			decision := DecideTransition(role, ticket.Status, *input.Status)
			switch decision.Outcome {
			case TransitionForbidden:
				return apperrors.NewStatusChangeForbidden(decision.Reason)
			case TransitionIgnored:
				s.logger.Info("status change request ignored",
					zap.String("ticket_id", ticketID),
					zap.String("requested", string(*input.Status)),
					zap.String("role", string(role)))
			default:
				previousStatus = ticket.Status
				ticket.Status = *input.Status
				statusChanged = true
				if ticket.Status == domain.TicketStatusClosed {
					now := time.Now().UTC()
					ticket.ClosedAt = &now
				}
			}
		}

		if err := r.Tickets.Update(ctx, ticket); err != nil {
			return err
		}

		if statusChanged {
			if err := r.Activities.Create(ctx, &domain.ActivityRecord{
				TicketID:    ticketID,
				ActorUserID: actorUserID,
				Type:        domain.ActivityStatusChanged,
				Message:     fmt.Sprintf("Status changed from %s to %s", previousStatus, ticket.Status),
			}); err != nil {
				return err
			}
		}

		result = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.AssigneeID != nil && role == domain.RoleAdmin {
		leadID := *input.AssigneeID
		if _, serr := s.manager.SetAssignments(ctx, ticketID, []string{leadID}, &leadID, actorUserID); serr != nil {
			return nil, serr
		}
		if fresh, gerr := s.repos.Tickets.GetByID(ctx, ticketID); gerr == nil {
			result = fresh
		}
	}

	if statusChanged && result.IsClosedOut() {
		if nerr := s.notifier.NotifyClosed(ctx, result.ID, result.CreatedByUserID, result.Title, result.Status); nerr != nil {
			s.logger.Warn("failed to send close notification",
				zap.String("ticket_id", ticketID), zap.Error(nerr))
		}
	}
	s.collab.broadcastSnapshot(ctx, ticketID)
	return result, nil
}

// AddMessage appends a message to the ticket thread, optionally carrying a
// status change that goes through the same transition table as UpdateTicket.
func (s *TicketService) AddMessage(ctx context.Context, ticketID, authorUserID string, role domain.UserRole, body string, requestedStatus *domain.TicketStatus) (*domain.TicketMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is required", nil)
	}

	var (
		message      *domain.TicketMessage
		closedStatus *domain.TicketStatus
		ticketTitle  string
		leadUserID   *string
		creatorID    string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		ticket, err := r.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		visible, err := s.canSeeWithin(ctx, r, ticket, authorUserID, role)
		if err != nil {
			return err
		}
		if !visible {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		ticketTitle = ticket.Title
		leadUserID = ticket.LeadUserID
		creatorID = ticket.CreatedByUserID

		if requestedStatus != nil && *requestedStatus != ticket.Status {
			decision := DecideTransition(role, ticket.Status, *requestedStatus)
			switch decision.Outcome {
			case TransitionForbidden:
				return apperrors.NewStatusChangeForbidden(decision.Reason)
			case TransitionIgnored:
			default:
				previous := ticket.Status
				ticket.Status = *requestedStatus
				if ticket.Status == domain.TicketStatusClosed {
					now := time.Now().UTC()
					ticket.ClosedAt = &now
					st := ticket.Status
					closedStatus = &st
				}
				if err := r.Tickets.Update(ctx, ticket); err != nil {
					return err
				}
				if err := r.Activities.Create(ctx, &domain.ActivityRecord{
					TicketID:    ticketID,
					ActorUserID: authorUserID,
					Type:        domain.ActivityStatusChanged,
					Message:     fmt.Sprintf("Status changed from %s to %s", previous, ticket.Status),
				}); err != nil {
					return err
				}
			}
		}

		message = &domain.TicketMessage{
			TicketID:     ticketID,
			AuthorUserID: authorUserID,
			Body:         body,
			Status:       ticket.Status,
		}
		if err := r.Messages.Create(ctx, message); err != nil {
			return err
		}

		authorName := displayName(ctx, r.Users, authorUserID)
		return r.Activities.Create(ctx, &domain.ActivityRecord{
			TicketID:    ticketID,
			ActorUserID: authorUserID,
			Type:        domain.ActivityCommentAdded,
			Message:     authorName + " added a message",
		})
	})
	if err != nil {
		return nil, err
	}

	if closedStatus != nil {
		if nerr := s.notifier.NotifyClosed(ctx, ticketID, creatorID, ticketTitle, *closedStatus); nerr != nil {
			s.logger.Warn("failed to send close notification",
				zap.String("ticket_id", ticketID), zap.Error(nerr))
		}
	}
	if nerr := s.notifier.NotifyMessage(ctx, ticketID, authorUserID, ticketTitle, leadUserID, creatorID); nerr != nil {
		s.logger.Warn("failed to send message notification",
			zap.String("ticket_id", ticketID), zap.Error(nerr))
	}
	s.collab.broadcastSnapshot(ctx, ticketID)
	return message, nil
}

// ListMessages returns the ticket thread for an authorized requester, or an
// empty slice otherwise.
func (s *TicketService) ListMessages(ctx context.Context, ticketID, requesterUserID string, role domain.UserRole) ([]MessageView, error) {
	ticket, err := s.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if isNoRows(err) {
			return []MessageView{}, nil
		}
		return nil, err
	}
	visible, err := s.canSee(ctx, ticket, requesterUserID, role)
	if err != nil {
		return nil, err
	}
	if !visible {
		return []MessageView{}, nil
	}

	messages, err := s.repos.Messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, MessageView{
			ID:           m.ID,
			TicketID:     m.TicketID,
			AuthorUserID: m.AuthorUserID,
			AuthorName:   displayName(ctx, s.repos.Users, m.AuthorUserID),
			Body:         m.Body,
			Status:       m.Status,
			CreatedAt:    m.CreatedAt.Format(time.RFC3339),
		})
	}
	return views, nil
}

// ListActivities returns the full audit trail for an authorized requester,
// oldest first, or an empty slice otherwise.
func (s *TicketService) ListActivities(ctx context.Context, ticketID, requesterUserID string, role domain.UserRole) ([]ActivityView, error) {
	ticket, err := s.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if isNoRows(err) {
			return []ActivityView{}, nil
		}
		return nil, err
	}
	visible, err := s.canSee(ctx, ticket, requesterUserID, role)
	if err != nil {
		return nil, err
	}
	if !visible {
		return []ActivityView{}, nil
	}

	records, err := s.repos.Activities.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	views := make([]ActivityView, 0, len(records))
	for _, record := range records {
		views = append(views, ActivityView{
			ID:          record.ID,
			TicketID:    record.TicketID,
			ActorUserID: record.ActorUserID,
			ActorName:   displayName(ctx, s.repos.Users, record.ActorUserID),
			Type:        record.Type,
			Message:     record.Message,
			CreatedAt:   record.CreatedAt.Format(time.RFC3339),
		})
	}
	return views, nil
}

func (s *TicketService) canSee(ctx context.Context, ticket *domain.Ticket, requesterUserID string, role domain.UserRole) (bool, error) {
	return s.canSeeWithin(ctx, s.repos, ticket, requesterUserID, role)
}

func (s *TicketService) canSeeWithin(ctx context.Context, r repository.Repositories, ticket *domain.Ticket, requesterUserID string, role domain.UserRole) (bool, error) {
	switch role {
	case domain.RoleAdmin:
		return true, nil
	case domain.RoleTechnician:
		if ticket.LeadUserID != nil && *ticket.LeadUserID == requesterUserID {
			return true, nil
		}
		_, err := r.Assignments.GetByTicketAndTechnicianUser(ctx, ticket.ID, requesterUserID)
		if err != nil {
			if isNoRows(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	default:
		return ticket.CreatedByUserID == requesterUserID, nil
	}
}
