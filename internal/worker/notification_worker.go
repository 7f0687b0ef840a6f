package worker

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// NotificationWorker consumes notification events and performs delivery.
// Email and webhook delivery are stubs gated on configuration; the log line
// is the delivery record in development.
type NotificationWorker struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationWorker creates the worker.
func NewNotificationWorker(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationWorker {
	return &NotificationWorker{dispatcher: dispatcher, logger: logger, cfg: cfg}
}

// Start subscribes the worker's handlers to the dispatcher.
func (w *NotificationWorker) Start() {
	if w.dispatcher == nil {
		return
	}
	w.dispatcher.Subscribe(events.EventTicketCreated, w.handleTicketCreated)
	w.dispatcher.Subscribe(events.EventTicketAssigned, w.handleTicketAssigned)
	w.dispatcher.Subscribe(events.EventTicketMessageAdded, w.handleTicketMessageAdded)
	w.dispatcher.Subscribe(events.EventTicketClosed, w.handleTicketClosed)
	w.dispatcher.Subscribe(events.EventTicketActivity, w.handleTicketActivity)
}

func (w *NotificationWorker) handleTicketCreated(ctx context.Context, event events.Event) error {
	w.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	w.sendEmailStub(ctx, event)
	w.sendWebhookStub(ctx, event)
	return nil
}

func (w *NotificationWorker) handleTicketAssigned(ctx context.Context, event events.Event) error {
	w.logger.Info("TicketAssigned", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	w.sendWebhookStub(ctx, event)
	return nil
}

func (w *NotificationWorker) handleTicketMessageAdded(ctx context.Context, event events.Event) error {
	w.logger.Info("TicketMessageAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	w.sendEmailStub(ctx, event)
	return nil
}

func (w *NotificationWorker) handleTicketClosed(ctx context.Context, event events.Event) error {
	w.logger.Info("TicketClosed", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	w.sendEmailStub(ctx, event)
	w.sendWebhookStub(ctx, event)
	return nil
}

func (w *NotificationWorker) handleTicketActivity(ctx context.Context, event events.Event) error {
	w.logger.Info("TicketActivity", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (w *NotificationWorker) sendEmailStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(w.cfg.EmailFrom) == "" {
		return
	}
	w.logger.Debug("sendEmailStub",
		zap.String("from", w.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (w *NotificationWorker) sendWebhookStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(w.cfg.WebhookURL) == "" {
		return
	}
	w.logger.Debug("sendWebhookStub",
		zap.String("url", w.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
