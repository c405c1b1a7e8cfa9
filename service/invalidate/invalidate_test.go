package invalidate

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/signoff/model"
)

func TestChangeOf(t *testing.T) {
	instance := &model.Instance{ID: "i1", BusinessType: "quote", EntityID: "q1", Status: model.InstancePending}
	change := ChangeOf(instance, "bob", "", "bob", "carol")
	assert.Equal(t, []string{"bob", "carol"}, change.Assignees)
	assert.Equal(t, "q1", change.EntityID)
}

func TestMulti(t *testing.T) {
	var calls int
	counting := Func(func(context.Context, Change) error { calls++; return nil })
	failing := Func(func(context.Context, Change) error { return errors.New("down") })
	err := Multi{counting, nil, failing, counting}.Invalidate(context.Background(), Change{})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, Nop.Invalidate(context.Background(), Change{}))
}

func TestRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()
	ctx := context.Background()

	change := Change{BusinessType: "contract", EntityID: "c1", InstanceID: "i9", Status: model.InstanceApproved, Assignees: []string{"bob"}}
	invalidator := NewRedis(client)
	assert.Equal(t, []string{"signoff:entity:contract:c1", "signoff:instance:i9", "signoff:tasks:bob"}, invalidator.Keys(change))

	for _, key := range invalidator.Keys(change) {
		require.NoError(t, server.Set(key, "cached"))
	}
	require.NoError(t, server.Set("signoff:entity:contract:c2", "cached"))

	subscription := client.Subscribe(ctx, defaultChannel)
	defer subscription.Close()
	_, err = subscription.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, invalidator.Invalidate(ctx, change))
	assert.False(t, server.Exists("signoff:entity:contract:c1"))
	assert.False(t, server.Exists("signoff:tasks:bob"))
	assert.True(t, server.Exists("signoff:entity:contract:c2"))

	message, err := subscription.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, message.Payload, `"status":"APPROVED"`)

	custom := NewRedis(client, WithKeys("k:${entityId}"), WithAssigneeKey(""), WithChannel(""))
	assert.Equal(t, []string{"k:c1"}, custom.Keys(change))
	require.NoError(t, custom.Invalidate(ctx, change))
}
