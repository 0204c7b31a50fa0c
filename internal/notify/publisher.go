package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"file-access-ledger-go/internal/models"
	"file-access-ledger-go/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ store.EventPublisher = (*RedisPublisher)(nil)

const (
	DefaultChannel = "file-access-ledger:events"
	DefaultBacklog = int64(1000)
)

// RedisPublisher fans committed ledger events out on a pub/sub channel and
// keeps the most recent ones in a capped list for late subscribers.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	backlog int64
}

func NewRedisPublisher(client *redis.Client, channel string, backlog int64) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &RedisPublisher{client: client, channel: channel, backlog: backlog}
}

func (p *RedisPublisher) backlogKey() string {
	return p.channel + ":backlog"
}

func (p *RedisPublisher) Publish(ctx context.Context, events ...models.LedgerEvent) error {
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("unable to encode event %d: %w", event.Seq, err)
		}

		if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
			return fmt.Errorf("unable to publish event %d: %w", event.Seq, err)
		}
		if err := p.client.RPush(ctx, p.backlogKey(), payload).Err(); err != nil {
			return fmt.Errorf("unable to append event %d to backlog: %w", event.Seq, err)
		}
		if err := p.client.LTrim(ctx, p.backlogKey(), -p.backlog, -1).Err(); err != nil {
			return fmt.Errorf("unable to trim backlog: %w", err)
		}

		zap.L().Debug("Event published",
			zap.String("channel", p.channel),
			zap.Int64("seq", event.Seq),
			zap.String("type", event.Type))
	}
	return nil
}

// Recent returns up to n of the newest backlog events, oldest first.
func (p *RedisPublisher) Recent(ctx context.Context, n int64) ([]models.LedgerEvent, error) {
	if n <= 0 || n > p.backlog {
		n = p.backlog
	}

	raw, err := p.client.LRange(ctx, p.backlogKey(), -n, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.LedgerEvent{}, nil
		}
		return nil, fmt.Errorf("unable to read backlog: %w", err)
	}

	events := make([]models.LedgerEvent, 0, len(raw))
	for _, r := range raw {
		var event models.LedgerEvent
		if err := json.Unmarshal([]byte(r), &event); err != nil {
			zap.L().Warn("Skipping malformed backlog entry", zap.Error(err))
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Watch delivers events from the channel to fn until ctx is cancelled or fn
// returns an error.
func (p *RedisPublisher) Watch(ctx context.Context, fn func(models.LedgerEvent) error) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			zap.L().Warn("Failed to close subscription", zap.Error(err))
		}
	}()

	// Wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("unable to subscribe to %s: %w", p.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.LedgerEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				zap.L().Warn("Skipping malformed event", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			if err := fn(event); err != nil {
				return err
			}
		}
	}
}
