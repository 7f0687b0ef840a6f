package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AssignmentEngine computes the least-loaded eligible technician for a
// ticket and performs batch auto-assignment of unassigned tickets.
type AssignmentEngine struct {
	store    repository.TxManager
	repos    repository.Repositories
	notifier Notifier
	logger   *zap.Logger
}

// AssignmentEngineDependencies bundles collaborators.
type AssignmentEngineDependencies struct {
	Store    repository.TxManager
	Repos    repository.Repositories
	Notifier Notifier
	Logger   *zap.Logger
}

// NewAssignmentEngine creates the engine.
func NewAssignmentEngine(deps AssignmentEngineDependencies) *AssignmentEngine {
	return &AssignmentEngine{
		store:    deps.Store,
		repos:    deps.Repos,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
}

// SelectAssignee picks the technician with minimum load from the eligible
// set. Ties break by ascending technician id so repeated runs over the same
// input are deterministic. Returns nil when no technician is eligible.
// Technicians that are inactive or lack a linked user are never selectable.
func SelectAssignee(eligible []domain.Technician, loads map[string]int) *domain.Technician {
	candidates := make([]domain.Technician, 0, len(eligible))
	for _, tech := range eligible {
		if !tech.IsActive || tech.UserID == nil {
			continue
		}
		candidates = append(candidates, tech)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		li, lj := loads[candidates[i].ID], loads[candidates[j].ID]
		if li != lj {
			return li < lj
		}
		return candidates[i].ID < candidates[j].ID
	})
	selected := candidates[0]
	return &selected
}

// AssignTicket assigns the least-loaded active technician to an unassigned
// ticket. Returns the selected technician id, or nil when the ticket is
// already assigned or no technician is eligible — both are non-errors.
//
// Loads are read at selection time without locking technicians, so two
// concurrent creations can both pick the same least-loaded technician. That
// race is accepted: the goal is best-effort balancing, not strict fairness.
func (e *AssignmentEngine) AssignTicket(ctx context.Context, ticketID, actorUserID string) (*string, error) {
	var selectedID *string
	err := e.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		ticket, err := r.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		if ticket.LeadTechnicianID != nil {
			return nil
		}

		eligible, err := r.Technicians.ListActive(ctx)
		if err != nil {
			return err
		}
		loads := make(map[string]int, len(eligible))
		for _, tech := range eligible {
			count, err := r.Tickets.CountActiveByTechnician(ctx, tech.ID, tech.UserID)
			if err != nil {
				return err
			}
			loads[tech.ID] = count
		}

		selected := SelectAssignee(eligible, loads)
		if selected == nil {
			e.logger.Info("no eligible technicians; ticket remains unassigned",
				zap.String("ticket_id", ticketID))
			return nil
		}

		assignment := &domain.Assignment{
			TicketID:         ticket.ID,
			TechnicianID:     selected.ID,
			TechnicianUserID: *selected.UserID,
			IsLead:           true,
			State:            domain.AssignmentStateAssigned,
		}
		if err := r.Assignments.Create(ctx, assignment); err != nil {
			return err
		}

		ticket.LeadTechnicianID = &selected.ID
		ticket.LeadUserID = selected.UserID
		ticket.Status = domain.TicketStatusOpen
		if err := r.Tickets.Update(ctx, ticket); err != nil {
			return err
		}

		if err := r.Activities.Create(ctx, &domain.ActivityRecord{
			TicketID:    ticket.ID,
			ActorUserID: actorUserID,
			Type:        domain.ActivityAssigned,
			Message:     "Auto-assigned to " + selected.FullName,
		}); err != nil {
			return err
		}

		selectedID = &selected.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if selectedID != nil {
		ticket, terr := e.repos.Tickets.GetByID(ctx, ticketID)
		if terr == nil && ticket.LeadUserID != nil {
			if nerr := e.notifier.NotifyAssigned(ctx, ticket.ID, ticket.Title, []string{*ticket.LeadUserID}); nerr != nil {
				e.logger.Warn("failed to notify assigned technician",
					zap.String("ticket_id", ticketID), zap.Error(nerr))
			}
		}
	}
	return selectedID, nil
}

// AssignAllUnassigned assigns every unassigned ticket in the optional
// creation date range. Tickets are processed independently: a failure on one
// is logged and the batch continues. Returns the number assigned.
func (e *AssignmentEngine) AssignAllUnassigned(ctx context.Context, createdFrom, createdTo *time.Time) (int, error) {
	tickets, err := e.repos.Tickets.ListUnassigned(ctx, createdFrom, createdTo)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, ticket := range tickets {
		selected, err := e.AssignTicket(ctx, ticket.ID, ticket.CreatedByUserID)
		if err != nil {
			e.logger.Warn("batch auto-assignment failed for ticket",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if selected != nil {
			assigned++
		}
	}
	return assigned, nil
}
