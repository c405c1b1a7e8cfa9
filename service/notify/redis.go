package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	defaultChannel  = "signoff:events"
	defaultInbox    = "signoff:inbox:"
	defaultInboxCap = 500
)

// RedisSink publishes events on a pub/sub channel and keeps a capped
// per-recipient inbox list, newest first.
type RedisSink struct {
	client      redis.UniversalClient
	channel     string
	inboxPrefix string
	inboxCap    int64
}

// RedisOption configures a RedisSink.
type RedisOption func(s *RedisSink)

// WithChannel sets the pub/sub channel.
func WithChannel(channel string) RedisOption {
	return func(s *RedisSink) { s.channel = channel }
}

// WithInbox sets the inbox key prefix and capacity; a zero capacity disables inboxes.
func WithInbox(prefix string, capacity int) RedisOption {
	return func(s *RedisSink) {
		s.inboxPrefix = prefix
		s.inboxCap = int64(capacity)
	}
}

// InboxKey returns the list key holding recipient's events.
func (s *RedisSink) InboxKey(recipient string) string {
	return s.inboxPrefix + recipient
}

func (s *RedisSink) Notify(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Publish(ctx, s.channel, data)
	if s.inboxCap > 0 && event.Recipient != "" {
		key := s.InboxKey(event.Recipient)
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, s.inboxCap-1)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}
	return nil
}

// Inbox returns up to limit of recipient's most recent events.
func (s *RedisSink) Inbox(ctx context.Context, recipient string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = int(s.inboxCap)
	}
	items, err := s.client.LRange(ctx, s.InboxKey(recipient), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	ret := make([]*Event, 0, len(items))
	for _, item := range items {
		event := &Event{}
		if err := json.Unmarshal([]byte(item), event); err != nil {
			return nil, err
		}
		ret = append(ret, event)
	}
	return ret, nil
}

// NewRedisSink creates a RedisSink over client.
func NewRedisSink(client redis.UniversalClient, options ...RedisOption) *RedisSink {
	ret := &RedisSink{client: client, channel: defaultChannel, inboxPrefix: defaultInbox, inboxCap: defaultInboxCap}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
