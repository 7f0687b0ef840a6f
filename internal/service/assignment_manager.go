package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AssignmentManager maintains the ticket-technician assignment set and the
// single-lead invariant over it.
type AssignmentManager struct {
	store    repository.TxManager
	repos    repository.Repositories
	notifier Notifier
	collab   *CollaborationTracker
	logger   *zap.Logger
}

// AssignmentManagerDependencies bundles collaborators.
type AssignmentManagerDependencies struct {
	Store    repository.TxManager
	Repos    repository.Repositories
	Notifier Notifier
	Collab   *CollaborationTracker
	Logger   *zap.Logger
}

// NewAssignmentManager creates the manager.
func NewAssignmentManager(deps AssignmentManagerDependencies) *AssignmentManager {
	return &AssignmentManager{
		store:    deps.Store,
		repos:    deps.Repos,
		notifier: deps.Notifier,
		collab:   deps.Collab,
		logger:   deps.Logger,
	}
}

// SetAssignments replaces the ticket's assignment set with the requested
// technicians. Existing assignments for technicians still in the list keep
// their state; removed technicians are deleted; new technicians start as
// INVITED. Lead resolution order: the requested lead if present in the final
// set, else the surviving current lead, else the first technician in the
// requested list. The whole diff is applied atomically.
func (m *AssignmentManager) SetAssignments(ctx context.Context, ticketID string, technicianIDs []string, requestedLeadID *string, actorUserID string) ([]domain.Assignment, error) {
	var (
		result       []domain.Assignment
		addedUserIDs []string
		ticketTitle  string
	)
	err := m.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		ticket, err := r.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		ticketTitle = ticket.Title

		// Dedupe while preserving request order; order drives the lead
		// fallback below.
		requested := make([]string, 0, len(technicianIDs))
		seen := make(map[string]bool, len(technicianIDs))
		for _, id := range technicianIDs {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			requested = append(requested, id)
		}

		technicians := map[string]domain.Technician{}
		if len(requested) > 0 {
			found, err := r.Technicians.ListByIDs(ctx, requested)
			if err != nil {
				return err
			}
			for _, tech := range found {
				if tech.IsActive && tech.UserID != nil {
					technicians[tech.ID] = tech
				}
			}
		}
		if len(technicians) != len(requested) {
			return apperrors.NewValidationError("one or more technicians not found or inactive", map[string]any{
				"ticket_id": ticketID,
			})
		}

		current, err := r.Assignments.ListByTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		currentByTech := make(map[string]domain.Assignment, len(current))
		for _, a := range current {
			currentByTech[a.TechnicianID] = a
		}

		for _, a := range current {
			if !seen[a.TechnicianID] {
				if err := r.Assignments.Delete(ctx, ticketID, a.TechnicianID); err != nil {
					return err
				}
			}
		}

		leadID := ""
		if requestedLeadID != nil && seen[*requestedLeadID] {
			leadID = *requestedLeadID
		} else if prev, ok := currentLead(current); ok && seen[prev.TechnicianID] {
			leadID = prev.TechnicianID
		} else if len(requested) > 0 {
			leadID = requested[0]
		}

		names := make([]string, 0, len(requested))
		for _, techID := range requested {
			tech := technicians[techID]
			names = append(names, tech.FullName)
			if existing, ok := currentByTech[techID]; ok {
				if existing.IsLead != (techID == leadID) {
					existing.IsLead = techID == leadID
					if err := r.Assignments.Update(ctx, &existing); err != nil {
						return err
					}
				}
				result = append(result, existing)
				continue
			}
			assignment := domain.Assignment{
				TicketID:         ticketID,
				TechnicianID:     techID,
				TechnicianUserID: *tech.UserID,
				IsLead:           techID == leadID,
				State:            domain.AssignmentStateInvited,
			}
			if err := r.Assignments.Create(ctx, &assignment); err != nil {
				return err
			}
			result = append(result, assignment)
			if *tech.UserID != actorUserID {
				addedUserIDs = append(addedUserIDs, *tech.UserID)
			}
		}

		if leadID != "" {
			lead := technicians[leadID]
			ticket.LeadTechnicianID = &lead.ID
			ticket.LeadUserID = lead.UserID
		} else {
			ticket.LeadTechnicianID = nil
			ticket.LeadUserID = nil
		}
		if err := r.Tickets.Update(ctx, ticket); err != nil {
			return err
		}

		message := "All technicians unassigned"
		if len(names) > 0 {
			message = "Technicians assigned: " + strings.Join(names, ", ")
		}
		return r.Activities.Create(ctx, &domain.ActivityRecord{
			TicketID:    ticketID,
			ActorUserID: actorUserID,
			Type:        domain.ActivityAssignmentChanged,
			Message:     message,
		})
	})
	if err != nil {
		return nil, err
	}

	if len(addedUserIDs) > 0 {
		if nerr := m.notifier.NotifyAssigned(ctx, ticketID, ticketTitle, addedUserIDs); nerr != nil {
			m.logger.Warn("failed to notify newly assigned technicians",
				zap.String("ticket_id", ticketID), zap.Error(nerr))
		}
	}
	m.collab.broadcastSnapshot(ctx, ticketID)
	return result, nil
}

// RemoveAssignment removes one technician from the ticket. Removing the lead
// promotes the first remaining assignment (by assignment order) to lead;
// removing the last assignment clears the lead projection entirely. Removing
// the responsible technician clears the responsible fields. Returns false
// when the technician was not assigned in the first place.
func (m *AssignmentManager) RemoveAssignment(ctx context.Context, ticketID, technicianID, actorUserID string) (bool, error) {
	removed := false
	err := m.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		ticket, err := r.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}

		target, err := r.Assignments.GetByTicketAndTechnician(ctx, ticketID, technicianID)
		if err != nil {
			if isNoRows(err) {
				return nil
			}
			return err
		}

		if err := r.Assignments.Delete(ctx, ticketID, technicianID); err != nil {
			return err
		}
		removed = true

		ticketDirty := false
		if target.IsLead {
			remaining, err := r.Assignments.ListByTicket(ctx, ticketID)
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				next := remaining[0]
				next.IsLead = true
				if err := r.Assignments.Update(ctx, &next); err != nil {
					return err
				}
				ticket.LeadTechnicianID = &next.TechnicianID
				ticket.LeadUserID = &next.TechnicianUserID
			} else {
				ticket.LeadTechnicianID = nil
				ticket.LeadUserID = nil
			}
			ticketDirty = true
		}
		if ticket.ResponsibleTechnicianID != nil && *ticket.ResponsibleTechnicianID == technicianID {
			ticket.ResponsibleTechnicianID = nil
			ticket.ResponsibleUserID = nil
			ticket.ResponsibleSetByUserID = nil
			ticket.ResponsibleSetAt = nil
			ticketDirty = true
		}
		if ticketDirty {
			if err := r.Tickets.Update(ctx, ticket); err != nil {
				return err
			}
		}

		name := technicianName(ctx, r.Technicians, technicianID)
		return r.Activities.Create(ctx, &domain.ActivityRecord{
			TicketID:    ticketID,
			ActorUserID: actorUserID,
			Type:        domain.ActivityAssignmentChanged,
			Message:     "Technician removed: " + name,
		})
	})
	if err != nil {
		return false, err
	}
	if removed {
		m.collab.broadcastSnapshot(ctx, ticketID)
	}
	return removed, nil
}

// ListAssignments returns the ticket's assignment set. Technicians only see
// the set when they belong to it; clients and admins are gated by the ticket
// handlers before reaching here.
func (m *AssignmentManager) ListAssignments(ctx context.Context, ticketID, requesterUserID string, role domain.UserRole) ([]domain.Assignment, error) {
	assignments, err := m.repos.Assignments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleTechnician {
		return assignments, nil
	}
	for _, a := range assignments {
		if a.TechnicianUserID == requesterUserID {
			return assignments, nil
		}
	}
	return []domain.Assignment{}, nil
}

func currentLead(assignments []domain.Assignment) (domain.Assignment, bool) {
	for _, a := range assignments {
		if a.IsLead {
			return a, true
		}
	}
	return domain.Assignment{}, false
}
