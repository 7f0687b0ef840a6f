package service

import (
	"fmt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TransitionOutcome classifies a requested status change.
type TransitionOutcome int

const (
	// TransitionAllowed applies the requested status.
	TransitionAllowed TransitionOutcome = iota
	// TransitionIgnored leaves the status unchanged without raising an
	// error. Intentional UX behavior for irrelevant client requests; not
	// interchangeable with TransitionForbidden.
	TransitionIgnored
	// TransitionForbidden rejects the request with a user-facing denial.
	TransitionForbidden
)

// TransitionDecision is the outcome plus the denial reason when forbidden.
type TransitionDecision struct {
	Outcome TransitionOutcome
	Reason  string
}

var technicianSettable = map[domain.TicketStatus]bool{
	domain.TicketStatusOpen:       true,
	domain.TicketStatusInProgress: true,
	domain.TicketStatusResolved:   true,
	domain.TicketStatusViewed:     true,
}

// DecideTransition is the single role/status transition table.
//
//   - Admin: any transition allowed.
//   - Technician: Open/InProgress/Resolved/Viewed allowed; Closed and
//     Submitted explicitly forbidden; anything else forbidden.
//   - Client: Open allowed only as a reopen of a Resolved/Closed ticket;
//     Resolved/Closed explicitly forbidden; every other request ignored.
func DecideTransition(role domain.UserRole, current, requested domain.TicketStatus) TransitionDecision {
	switch role {
	case domain.RoleAdmin:
		return TransitionDecision{Outcome: TransitionAllowed}

	case domain.RoleTechnician:
		if requested == domain.TicketStatusClosed {
			return TransitionDecision{
				Outcome: TransitionForbidden,
				Reason:  "technicians cannot close tickets; only admins can set status to CLOSED",
			}
		}
		if requested == domain.TicketStatusSubmitted {
			return TransitionDecision{
				Outcome: TransitionForbidden,
				Reason:  "technicians cannot set status to SUBMITTED; only the system assigns the initial status",
			}
		}
		if technicianSettable[requested] {
			return TransitionDecision{Outcome: TransitionAllowed}
		}
		return TransitionDecision{
			Outcome: TransitionForbidden,
			Reason:  fmt.Sprintf("technicians cannot set status to %s", requested),
		}

	default: // client
		if requested == domain.TicketStatusResolved || requested == domain.TicketStatusClosed {
			return TransitionDecision{
				Outcome: TransitionForbidden,
				Reason:  "clients cannot close tickets; only admins can set status to RESOLVED or CLOSED",
			}
		}
		if requested == domain.TicketStatusOpen &&
			(current == domain.TicketStatusResolved || current == domain.TicketStatusClosed) {
			return TransitionDecision{Outcome: TransitionAllowed}
		}
		return TransitionDecision{Outcome: TransitionIgnored}
	}
}
