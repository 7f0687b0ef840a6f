package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const recentActivityLimit = 10

// ActivityView is an activity record enriched with the actor's name.
type ActivityView struct {
	ID          string              `json:"id"`
	TicketID    string              `json:"ticket_id"`
	ActorUserID string              `json:"actor_user_id"`
	ActorName   string              `json:"actor_name"`
	Type        domain.ActivityType `json:"type"`
	Message     string              `json:"message"`
	CreatedAt   string              `json:"created_at"`
}

// ActiveTechnician is one currently assigned technician plus their latest
// self-reported work session, when present.
type ActiveTechnician struct {
	TechnicianID   string                  `json:"technician_id"`
	TechnicianName string                  `json:"technician_name"`
	UserID         string                  `json:"user_id"`
	IsLead         bool                    `json:"is_lead"`
	State          domain.AssignmentState  `json:"state"`
	WorkingOn      *string                 `json:"working_on,omitempty"`
	Note           *string                 `json:"note,omitempty"`
	SessionState   *domain.AssignmentState `json:"session_state,omitempty"`
	UpdatedAt      *string                 `json:"updated_at,omitempty"`
}

// CollaborationSnapshot is a point-in-time read model of who is working on a
// ticket and what happened recently. Work sessions from technicians no longer
// in the assignment set never appear, even when their rows still exist.
type CollaborationSnapshot struct {
	TicketID          string              `json:"ticket_id"`
	Status            domain.TicketStatus `json:"status"`
	LastActivity      *ActivityView       `json:"last_activity"`
	RecentActivities  []ActivityView      `json:"recent_activities"`
	ActiveTechnicians []ActiveTechnician  `json:"active_technicians"`
}

// CollaborationTracker records technician work sessions and state changes
// and serves collaboration snapshots.
type CollaborationTracker struct {
	store       repository.TxManager
	repos       repository.Repositories
	notifier    Notifier
	broadcaster Broadcaster
	logger      *zap.Logger
}

// CollaborationTrackerDependencies bundles collaborators.
type CollaborationTrackerDependencies struct {
	Store       repository.TxManager
	Repos       repository.Repositories
	Notifier    Notifier
	Broadcaster Broadcaster
	Logger      *zap.Logger
}

// NewCollaborationTracker creates the tracker.
func NewCollaborationTracker(deps CollaborationTrackerDependencies) *CollaborationTracker {
	return &CollaborationTracker{
		store:       deps.Store,
		repos:       deps.Repos,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		logger:      deps.Logger,
	}
}

// RecordWork upserts the calling technician's work session on a ticket.
// There is one session per technician per ticket; posting again overwrites.
// Rejected with an authorization error when the caller is not assigned.
func (t *CollaborationTracker) RecordWork(ctx context.Context, ticketID, technicianUserID, workingOn string, note *string, state *domain.AssignmentState) error {
	var techName string
	err := t.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		assignment, err := r.Assignments.GetByTicketAndTechnicianUser(ctx, ticketID, technicianUserID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewUnauthorized("technician is not assigned to this ticket")
			}
			return err
		}

		session := &domain.WorkSession{
			TicketID:         ticketID,
			TechnicianID:     assignment.TechnicianID,
			TechnicianUserID: technicianUserID,
			WorkingOn:        workingOn,
			Note:             note,
			State:            state,
		}
		if err := r.WorkSessions.Upsert(ctx, session); err != nil {
			return err
		}

		techName = technicianName(ctx, r.Technicians, assignment.TechnicianID)
		stateLabel := string(assignment.State)
		if state != nil {
			stateLabel = string(*state)
		}
		return r.Activities.Create(ctx, &domain.ActivityRecord{
			TicketID:    ticketID,
			ActorUserID: technicianUserID,
			Type:        domain.ActivityWorkNoteAdded,
			Message:     fmt.Sprintf("%s is now %s: %s", techName, stateLabel, workingOn),
		})
	})
	if err != nil {
		return err
	}

	text := fmt.Sprintf("%s updated their work on the ticket: %s", techName, workingOn)
	if nerr := t.notifier.NotifyActivityToAssigned(ctx, ticketID, technicianUserID, text); nerr != nil {
		t.logger.Warn("failed to notify assigned technicians of work update",
			zap.String("ticket_id", ticketID), zap.Error(nerr))
	}
	t.broadcastSnapshot(ctx, ticketID)
	return nil
}

// UpdateTechnicianState moves the calling technician's assignment to a new
// state and applies the ticket-level consequences: any technician entering
// IN_PROGRESS pulls a non-closed ticket to IN_PROGRESS, and the last
// technician completing pulls it to RESOLVED.
func (t *CollaborationTracker) UpdateTechnicianState(ctx context.Context, ticketID, technicianUserID string, newState domain.AssignmentState) (*domain.Assignment, error) {
	var updated *domain.Assignment
	err := t.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		assignment, err := r.Assignments.GetByTicketAndTechnicianUser(ctx, ticketID, technicianUserID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewUnauthorized("technician is not assigned to this ticket")
			}
			return err
		}

		assignment.State = newState
		if err := r.Assignments.Update(ctx, assignment); err != nil {
			return err
		}
		updated = assignment

		techName := technicianName(ctx, r.Technicians, assignment.TechnicianID)
		if err := r.Activities.Create(ctx, &domain.ActivityRecord{
			TicketID:    ticketID,
			ActorUserID: technicianUserID,
			Type:        domain.ActivityTechnicianStateChanged,
			Message:     fmt.Sprintf("%s changed their state to %s", techName, newState),
		}); err != nil {
			return err
		}

		ticket, err := r.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}

		if newState == domain.AssignmentStateInProgress && !ticket.IsClosedOut() &&
			ticket.Status != domain.TicketStatusInProgress {
			ticket.Status = domain.TicketStatusInProgress
			if err := r.Tickets.Update(ctx, ticket); err != nil {
				return err
			}
			return nil
		}

		if !ticket.IsClosedOut() {
			all, err := r.Assignments.ListByTicket(ctx, ticketID)
			if err != nil {
				return err
			}
			allCompleted := len(all) > 0
			for _, a := range all {
				if a.State != domain.AssignmentStateCompleted {
					allCompleted = false
					break
				}
			}
			if allCompleted {
				ticket.Status = domain.TicketStatusResolved
				if err := r.Tickets.Update(ctx, ticket); err != nil {
					return err
				}
				if err := r.Activities.Create(ctx, &domain.ActivityRecord{
					TicketID:    ticketID,
					ActorUserID: technicianUserID,
					Type:        domain.ActivityStatusChanged,
					Message:     "Ticket resolved (all technicians completed their work)",
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Technician state changed to %s", newState)
	if nerr := t.notifier.NotifyActivityToAssigned(ctx, ticketID, technicianUserID, text); nerr != nil {
		t.logger.Warn("failed to notify assigned technicians of state change",
			zap.String("ticket_id", ticketID), zap.Error(nerr))
	}
	t.broadcastSnapshot(ctx, ticketID)
	return updated, nil
}

// GetSnapshot builds the collaboration snapshot for a requester. Admins see
// any ticket; technicians only tickets they are assigned to; clients only
// tickets they created. Returns nil, nil for both missing tickets and
// unauthorized requesters.
func (t *CollaborationTracker) GetSnapshot(ctx context.Context, ticketID, requesterUserID string, role domain.UserRole) (*CollaborationSnapshot, error) {
	ticket, err := t.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}

	assignments, err := t.repos.Assignments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	switch role {
	case domain.RoleAdmin:
	case domain.RoleTechnician:
		allowed := ticket.LeadUserID != nil && *ticket.LeadUserID == requesterUserID
		for _, a := range assignments {
			if a.TechnicianUserID == requesterUserID {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, nil
		}
	default:
		if ticket.CreatedByUserID != requesterUserID {
			return nil, nil
		}
	}

	return t.buildSnapshot(ctx, ticket, assignments)
}

func (t *CollaborationTracker) buildSnapshot(ctx context.Context, ticket *domain.Ticket, assignments []domain.Assignment) (*CollaborationSnapshot, error) {
	recent, err := t.repos.Activities.ListRecentByTicket(ctx, ticket.ID, recentActivityLimit)
	if err != nil {
		return nil, err
	}

	views := make([]ActivityView, 0, len(recent))
	for _, record := range recent {
		views = append(views, ActivityView{
			ID:          record.ID,
			TicketID:    record.TicketID,
			ActorUserID: record.ActorUserID,
			ActorName:   displayName(ctx, t.repos.Users, record.ActorUserID),
			Type:        record.Type,
			Message:     record.Message,
			CreatedAt:   record.CreatedAt.Format(time.RFC3339),
		})
	}
	var last *ActivityView
	if len(views) > 0 {
		last = &views[0]
	}

	sessions, err := t.repos.WorkSessions.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	sessionByUser := make(map[string]domain.WorkSession, len(sessions))
	for _, s := range sessions {
		sessionByUser[s.TechnicianUserID] = s
	}

	active := make([]ActiveTechnician, 0, len(assignments))
	for _, a := range assignments {
		entry := ActiveTechnician{
			TechnicianID:   a.TechnicianID,
			TechnicianName: technicianName(ctx, t.repos.Technicians, a.TechnicianID),
			UserID:         a.TechnicianUserID,
			IsLead:         a.IsLead,
			State:          a.State,
		}
		if s, ok := sessionByUser[a.TechnicianUserID]; ok {
			workingOn := s.WorkingOn
			entry.WorkingOn = &workingOn
			entry.Note = s.Note
			entry.SessionState = s.State
			if s.UpdatedAt != nil {
				formatted := s.UpdatedAt.Format(time.RFC3339)
				entry.UpdatedAt = &formatted
			}
		}
		active = append(active, entry)
	}

	return &CollaborationSnapshot{
		TicketID:          ticket.ID,
		Status:            ticket.Status,
		LastActivity:      last,
		RecentActivities:  views,
		ActiveTechnicians: active,
	}, nil
}

// broadcastSnapshot pushes the latest snapshot to the ticket's group
// channel. Best-effort on every level: failures are logged and dropped so
// the write that triggered the broadcast always stands.
func (t *CollaborationTracker) broadcastSnapshot(ctx context.Context, ticketID string) {
	ticket, err := t.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		t.logger.Warn("broadcast skipped: ticket lookup failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	assignments, err := t.repos.Assignments.ListByTicket(ctx, ticketID)
	if err != nil {
		t.logger.Warn("broadcast skipped: assignment lookup failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	snapshot, err := t.buildSnapshot(ctx, ticket, assignments)
	if err != nil {
		t.logger.Warn("broadcast skipped: snapshot build failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	if err := t.broadcaster.SendToGroup(ctx, ticketGroup(ticketID), collaborationEvent, snapshot); err != nil {
		t.logger.Warn("collaboration broadcast failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
}
