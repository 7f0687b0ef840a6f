package domain

import "time"

// ActivityType captures what kind of event an activity record describes.
type ActivityType string

const (
	ActivityCreated                ActivityType = "CREATED"
	ActivityStatusChanged          ActivityType = "STATUS_CHANGED"
	ActivityAssigned               ActivityType = "ASSIGNED"
	ActivityAssignmentChanged      ActivityType = "ASSIGNMENT_CHANGED"
	ActivityCommentAdded           ActivityType = "COMMENT_ADDED"
	ActivityTechnicianStateChanged ActivityType = "TECHNICIAN_STATE_CHANGED"
	ActivityResponsibleChanged     ActivityType = "RESPONSIBLE_CHANGED"
	ActivityWorkNoteAdded          ActivityType = "WORK_NOTE_ADDED"
)

// ActivityRecord is an append-only audit entry. Immutable once written;
// ordered by CreatedAt with insertion order breaking ties.
type ActivityRecord struct {
	ID          string
	TicketID    string
	ActorUserID string
	Type        ActivityType
	Message     string
	CreatedAt   time.Time
}
