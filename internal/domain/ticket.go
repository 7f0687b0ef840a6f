package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusSubmitted  TicketStatus = "SUBMITTED"
	TicketStatusViewed     TicketStatus = "VIEWED"
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate root for support requests.
//
// LeadTechnicianID/LeadUserID are a denormalized projection of the lead row
// in the assignment set, kept for single-assignee consumers. They are only
// written when the assignment set changes, never independently.
// ResponsibleTechnicianID, when set, must reference a technician currently
// present in the assignment set.
type Ticket struct {
	ID              string
	ExternalKey     string
	Title           string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	CreatedByUserID string

	LeadTechnicianID *string
	LeadUserID       *string

	ResponsibleTechnicianID *string
	ResponsibleUserID       *string
	ResponsibleSetByUserID  *string
	ResponsibleSetAt        *time.Time

	DueDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// IsClosedOut reports whether the ticket is in a terminal-ish state that
// system-driven transitions must not silently reopen.
func (t *Ticket) IsClosedOut() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}
