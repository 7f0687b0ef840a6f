package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    *domain.TicketPriority `json:"priority,omitempty"`
	DueDate     *time.Time             `json:"due_date,omitempty"`
}

// UpdateTicketRequest is a partial patch; absent fields are unchanged.
type UpdateTicketRequest struct {
	Description  *string                `json:"description,omitempty"`
	Priority     *domain.TicketPriority `json:"priority,omitempty"`
	Status       *domain.TicketStatus   `json:"status,omitempty"`
	DueDate      *time.Time             `json:"due_date,omitempty"`
	ClearDueDate bool                   `json:"clear_due_date,omitempty"`
	AssigneeID   *string                `json:"assignee_id,omitempty"`
}

// CreateMessageRequest payload. Status optionally requests a transition
// alongside the message.
type CreateMessageRequest struct {
	Body   string               `json:"body"`
	Status *domain.TicketStatus `json:"status,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                      string                `json:"id"`
	ExternalKey             string                `json:"external_key"`
	Title                   string                `json:"title"`
	Status                  domain.TicketStatus   `json:"status"`
	Priority                domain.TicketPriority `json:"priority"`
	CreatedByUserID         string                `json:"created_by_user_id"`
	LeadTechnicianID        *string               `json:"lead_technician_id"`
	ResponsibleTechnicianID *string               `json:"responsible_technician_id"`
	DueDate                 *time.Time            `json:"due_date,omitempty"`
	CreatedAt               time.Time             `json:"created_at"`
	UpdatedAt               time.Time             `json:"updated_at"`
}

// TicketDetail provides full ticket info.
type TicketDetail struct {
	TicketSummary
	Description            string     `json:"description"`
	LeadUserID             *string    `json:"lead_user_id"`
	ResponsibleUserID      *string    `json:"responsible_user_id"`
	ResponsibleSetByUserID *string    `json:"responsible_set_by_user_id"`
	ResponsibleSetAt       *time.Time `json:"responsible_set_at"`
	ClosedAt               *time.Time `json:"closed_at"`
}
