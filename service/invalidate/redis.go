package invalidate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

// Default key templates; placeholders are ${businessType}, ${entityId}, ${instanceId}.
var defaultEntityKeys = []string{
	"signoff:entity:${businessType}:${entityId}",
	"signoff:instance:${instanceId}",
}

const (
	defaultAssigneeKey = "signoff:tasks:${assignee}"
	defaultChannel     = "signoff:invalidate"
)

// Redis deletes cache keys derived from a change and publishes the change
// so that other processes can drop local caches.
type Redis struct {
	client      redis.UniversalClient
	keys        []string
	assigneeKey string
	channel     string
}

// Option configures Redis.
type Option func(r *Redis)

// WithKeys replaces the per-change key templates.
func WithKeys(templates ...string) Option {
	return func(r *Redis) { r.keys = templates }
}

// WithAssigneeKey sets the per-assignee key template; empty disables it.
func WithAssigneeKey(template string) Option {
	return func(r *Redis) { r.assigneeKey = template }
}

// WithChannel sets the publish channel; empty disables publishing.
func WithChannel(channel string) Option {
	return func(r *Redis) { r.channel = channel }
}

// Keys returns the cache keys evicted for change.
func (r *Redis) Keys(change Change) []string {
	replacer := strings.NewReplacer(
		"${businessType}", change.BusinessType,
		"${entityId}", change.EntityID,
		"${instanceId}", change.InstanceID,
	)
	ret := make([]string, 0, len(r.keys)+len(change.Assignees))
	for _, template := range r.keys {
		ret = append(ret, replacer.Replace(template))
	}
	if r.assigneeKey != "" {
		for _, assignee := range change.Assignees {
			ret = append(ret, strings.ReplaceAll(r.assigneeKey, "${assignee}", assignee))
		}
	}
	return ret
}

func (r *Redis) Invalidate(ctx context.Context, change Change) error {
	pipe := r.client.TxPipeline()
	if keys := r.Keys(change); len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	if r.channel != "" {
		data, err := json.Marshal(change)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, r.channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate %s/%s: %w", change.BusinessType, change.EntityID, err)
	}
	return nil
}

// NewRedis creates a Redis invalidator.
func NewRedis(client redis.UniversalClient, options ...Option) *Redis {
	ret := &Redis{client: client, keys: defaultEntityKeys, assigneeKey: defaultAssigneeKey, channel: defaultChannel}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
