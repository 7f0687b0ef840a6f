package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketAssigned     EventType = "ticket_assigned"
	EventTicketMessageAdded EventType = "ticket_message_added"
	EventTicketClosed       EventType = "ticket_closed"
	EventTicketActivity     EventType = "ticket_activity"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string          `json:"user_id"`
	Role   domain.UserRole `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title           string `json:"title"`
	CreatedByUserID string `json:"created_by_user_id"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Title   string   `json:"title"`
	UserIDs []string `json:"user_ids"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	AuthorUserID    string  `json:"author_user_id"`
	Title           string  `json:"title"`
	LeadUserID      *string `json:"lead_user_id,omitempty"`
	CreatedByUserID string  `json:"created_by_user_id"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	CreatedByUserID string              `json:"created_by_user_id"`
	Title           string              `json:"title"`
	Status          domain.TicketStatus `json:"status"`
}

// TicketActivityPayload payload for activity fan-out to assigned technicians.
type TicketActivityPayload struct {
	ActorUserID string `json:"actor_user_id"`
	Text        string `json:"text"`
}
