package domain

import "time"

// AssignmentState tracks a technician's own progress on a ticket.
type AssignmentState string

const (
	AssignmentStateInvited    AssignmentState = "INVITED"
	AssignmentStateAssigned   AssignmentState = "ASSIGNED"
	AssignmentStateInProgress AssignmentState = "IN_PROGRESS"
	AssignmentStateOnHold     AssignmentState = "ON_HOLD"
	AssignmentStateCompleted  AssignmentState = "COMPLETED"
	AssignmentStateRejected   AssignmentState = "REJECTED"
)

// Assignment is one row of the ticket-technician many-to-many relation.
// Invariant: at most one assignment per (ticket, technician), and exactly
// one row with IsLead=true whenever a ticket has assignments at all.
type Assignment struct {
	ID               string
	TicketID         string
	TechnicianID     string
	TechnicianUserID string
	IsLead           bool
	State            AssignmentState
	AssignedAt       time.Time
	UpdatedAt        *time.Time
}
