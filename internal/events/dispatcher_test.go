package events

import (
	"context"
	"errors"
	"testing"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var first, second bool
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		first = true
		return nil
	})
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		second = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !first || !second {
		t.Errorf("handlers called = (%v, %v), want both", first, second)
	}
}

func TestHandlerErrorDoesNotStopDelivery(t *testing.T) {
	d := NewInMemoryDispatcher()
	var reached bool
	d.Subscribe(EventTicketClosed, func(ctx context.Context, e Event) error {
		return errors.New("delivery failed")
	})
	d.Subscribe(EventTicketClosed, func(ctx context.Context, e Event) error {
		reached = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketClosed}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !reached {
		t.Error("later handler should run despite earlier failure")
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	d := NewInMemoryDispatcher()
	if err := d.Publish(context.Background(), Event{Type: EventTicketActivity}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
