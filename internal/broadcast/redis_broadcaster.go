package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// envelope is the wire shape published to listeners on a group channel.
type envelope struct {
	Group   string `json:"group"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// RedisBroadcaster pushes group events over Redis pub/sub. Delivery is
// best-effort: subscribers that are not listening at publish time miss the
// message, which is acceptable for collaboration snapshots since clients can
// always poll the snapshot endpoint.
type RedisBroadcaster struct {
	client        *redis.Client
	channelPrefix string
	logger        *zap.Logger
}

// NewRedisBroadcaster builds a broadcaster over the given client.
func NewRedisBroadcaster(client *redis.Client, channelPrefix string, logger *zap.Logger) *RedisBroadcaster {
	if channelPrefix == "" {
		channelPrefix = "broadcast:"
	}
	return &RedisBroadcaster{client: client, channelPrefix: channelPrefix, logger: logger}
}

// SendToGroup publishes an event to every subscriber of the group channel.
func (b *RedisBroadcaster) SendToGroup(ctx context.Context, group, event string, payload any) error {
	if b == nil || b.client == nil {
		return nil
	}
	body, err := json.Marshal(envelope{Group: group, Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal broadcast payload: %w", err)
	}
	channel := b.channelPrefix + group
	if err := b.client.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	b.logger.Debug("broadcast published",
		zap.String("channel", channel),
		zap.String("event", event))
	return nil
}
