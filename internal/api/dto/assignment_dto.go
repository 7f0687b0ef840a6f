package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SetAssignmentsRequest replaces a ticket's assignment set.
type SetAssignmentsRequest struct {
	TechnicianIDs []string `json:"technician_ids"`
	LeadID        *string  `json:"lead_id,omitempty"`
}

// SetResponsibleRequest delegates responsibility to a technician.
type SetResponsibleRequest struct {
	TechnicianID string `json:"technician_id"`
}

// AssignBatchRequest bounds a batch auto-assignment run.
type AssignBatchRequest struct {
	CreatedFrom *time.Time `json:"created_from,omitempty"`
	CreatedTo   *time.Time `json:"created_to,omitempty"`
}

// AssignmentView is the public projection of an assignment.
type AssignmentView struct {
	ID               string                 `json:"id"`
	TicketID         string                 `json:"ticket_id"`
	TechnicianID     string                 `json:"technician_id"`
	TechnicianUserID string                 `json:"technician_user_id"`
	IsLead           bool                   `json:"is_lead"`
	State            domain.AssignmentState `json:"state"`
	AssignedAt       time.Time              `json:"assigned_at"`
}

// RecordWorkRequest upserts the caller's work session.
type RecordWorkRequest struct {
	WorkingOn string                  `json:"working_on"`
	Note      *string                 `json:"note,omitempty"`
	State     *domain.AssignmentState `json:"state,omitempty"`
}

// UpdateStateRequest moves the caller's assignment to a new state.
type UpdateStateRequest struct {
	State domain.AssignmentState `json:"state"`
}
