package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// ResponsibleManager handles delegation of the responsible technician, the
// single point of accountability within the assignment set.
type ResponsibleManager struct {
	store  repository.TxManager
	collab *CollaborationTracker
	logger *zap.Logger
}

// NewResponsibleManager creates the manager.
func NewResponsibleManager(store repository.TxManager, collab *CollaborationTracker, logger *zap.Logger) *ResponsibleManager {
	return &ResponsibleManager{store: store, collab: collab, logger: logger}
}

// SetResponsible delegates responsibility for a ticket to a technician.
// Only an admin or the ticket's lead technician may delegate, and the target
// must currently be in the assignment set. Returns false, nil when the
// ticket does not exist or the conditions are not met; the caller cannot
// distinguish the cases and is not supposed to.
func (m *ResponsibleManager) SetResponsible(ctx context.Context, ticketID, technicianID, actorUserID string, actorRole domain.UserRole) (bool, error) {
	done := false
	err := m.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		ticket, err := r.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if isNoRows(err) {
				return nil
			}
			return err
		}

		assignments, err := r.Assignments.ListByTicket(ctx, ticketID)
		if err != nil {
			return err
		}

		if actorRole != domain.RoleAdmin {
			isLead := false
			for _, a := range assignments {
				if a.TechnicianUserID == actorUserID && a.IsLead {
					isLead = true
					break
				}
			}
			if !isLead {
				return nil
			}
		}

		var target *domain.Assignment
		for i := range assignments {
			if assignments[i].TechnicianID == technicianID {
				target = &assignments[i]
				break
			}
		}
		if target == nil {
			return nil
		}

		previousName := "None"
		if ticket.ResponsibleTechnicianID != nil {
			previousName = technicianName(ctx, r.Technicians, *ticket.ResponsibleTechnicianID)
		}
		newName := technicianName(ctx, r.Technicians, technicianID)
		actorName := displayName(ctx, r.Users, actorUserID)

		now := time.Now().UTC()
		ticket.ResponsibleTechnicianID = &target.TechnicianID
		ticket.ResponsibleUserID = &target.TechnicianUserID
		ticket.ResponsibleSetByUserID = &actorUserID
		ticket.ResponsibleSetAt = &now
		if err := r.Tickets.Update(ctx, ticket); err != nil {
			return err
		}

		message := actorName + " set " + newName + " as responsible technician"
		if previousName != "None" {
			message = actorName + " changed responsible technician from " + previousName + " to " + newName
		}
		if err := r.Activities.Create(ctx, &domain.ActivityRecord{
			TicketID:    ticketID,
			ActorUserID: actorUserID,
			Type:        domain.ActivityResponsibleChanged,
			Message:     message,
		}); err != nil {
			return err
		}

		done = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if done {
		m.collab.broadcastSnapshot(ctx, ticketID)
	}
	return done, nil
}
