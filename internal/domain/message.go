package domain

import "time"

// TicketMessage captures one entry of a ticket's conversation thread.
// Status records the ticket status at the time the message was posted.
type TicketMessage struct {
	ID           string
	TicketID     string
	AuthorUserID string
	Body         string
	Status       TicketStatus
	CreatedAt    time.Time
}
