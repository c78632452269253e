package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EventRepository publishes JSON events on a redis pub/sub channel for external consumers.
type EventRepository struct {
	client  *redis.Client
	channel string
}

// NewEventRepository constructs the publisher for the given channel.
func NewEventRepository(client *redis.Client, channel string) *EventRepository {
	return &EventRepository{client: client, channel: channel}
}

// Publish encodes the payload and sends it. It returns the number of subscribers that received it.
func (r *EventRepository) Publish(ctx context.Context, payload interface{}) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("publish event: redis client not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal event: %w", err)
	}
	receivers, err := r.client.Publish(ctx, r.channel, body).Result()
	if err != nil {
		return 0, fmt.Errorf("publish event to %s: %w", r.channel, err)
	}
	return receivers, nil
}
