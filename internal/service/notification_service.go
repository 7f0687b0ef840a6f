package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// NotificationService implements Notifier by publishing domain events to the
// dispatcher. Delivery work (logging, email, webhooks) happens in the
// subscribed handlers, see internal/worker.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, logger: logger}
}

func (s *NotificationService) publish(ctx context.Context, eventType events.EventType, ticketID, actorUserID string, payload any) error {
	return s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     events.Actor{UserID: actorUserID},
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

func (s *NotificationService) NotifyCreated(ctx context.Context, ticketID, title, createdByUserID string) error {
	return s.publish(ctx, events.EventTicketCreated, ticketID, createdByUserID, events.TicketCreatedPayload{
		Title:           title,
		CreatedByUserID: createdByUserID,
	})
}

func (s *NotificationService) NotifyAssigned(ctx context.Context, ticketID, title string, userIDs []string) error {
	return s.publish(ctx, events.EventTicketAssigned, ticketID, "", events.TicketAssignedPayload{
		Title:   title,
		UserIDs: userIDs,
	})
}

func (s *NotificationService) NotifyMessage(ctx context.Context, ticketID, authorUserID, title string, leadUserID *string, createdByUserID string) error {
	return s.publish(ctx, events.EventTicketMessageAdded, ticketID, authorUserID, events.TicketMessageAddedPayload{
		AuthorUserID:    authorUserID,
		Title:           title,
		LeadUserID:      leadUserID,
		CreatedByUserID: createdByUserID,
	})
}

func (s *NotificationService) NotifyClosed(ctx context.Context, ticketID, createdByUserID, title string, status domain.TicketStatus) error {
	return s.publish(ctx, events.EventTicketClosed, ticketID, "", events.TicketClosedPayload{
		CreatedByUserID: createdByUserID,
		Title:           title,
		Status:          status,
	})
}

func (s *NotificationService) NotifyActivityToAssigned(ctx context.Context, ticketID, actorUserID, text string) error {
	return s.publish(ctx, events.EventTicketActivity, ticketID, actorUserID, events.TicketActivityPayload{
		ActorUserID: actorUserID,
		Text:        text,
	})
}
