package domain

import "time"

// WorkSession is a technician's current self-reported focus on a ticket.
// One row per (ticket, technician); updates overwrite, this is not a log.
type WorkSession struct {
	ID               string
	TicketID         string
	TechnicianID     string
	TechnicianUserID string
	WorkingOn        string
	Note             *string
	State            *AssignmentState
	StartedAt        time.Time
	UpdatedAt        *time.Time
}
