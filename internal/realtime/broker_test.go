package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/config"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/realtime"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, sub *realtime.Subscription) realtime.Event {
	t.Helper()
	select {
	case event, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return realtime.Event{}
	}
}

func TestLocalBroker_PublishSubscribe(t *testing.T) {
	broker := realtime.NewLocalBroker(zap.NewNop())
	defer broker.Close()
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, realtime.UserTopic("landlord-1"))
	require.NoError(t, err)
	other, err := broker.Subscribe(ctx, realtime.UserTopic("tenant-1"))
	require.NoError(t, err)
	defer other.Close()

	event, err := realtime.NewEvent(realtime.EventMaintenanceUpdated, map[string]string{"id": "req-1"})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, realtime.UserTopic("landlord-1"), event))

	got := receive(t, sub)
	assert.Equal(t, realtime.EventMaintenanceUpdated, got.Type)
	assert.JSONEq(t, `{"id":"req-1"}`, string(got.Data))

	select {
	case <-other.C:
		t.Fatal("event leaked to another topic")
	default:
	}

	sub.Close()
	assert.Equal(t, 0, broker.SubscriberCount(realtime.UserTopic("landlord-1")))
	_, ok := <-sub.C
	assert.False(t, ok)
}

func TestLocalBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	broker := realtime.NewLocalBroker(zap.NewNop())
	defer broker.Close()
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "user:slow")
	require.NoError(t, err)
	defer sub.Close()

	event, err := realtime.NewEvent(realtime.EventMessageCreated, "x")
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		require.NoError(t, broker.Publish(ctx, "user:slow", event))
	}
	assert.Len(t, sub.C, 64)
}

func TestLocalBroker_Closed(t *testing.T) {
	broker := realtime.NewLocalBroker(zap.NewNop())
	require.NoError(t, broker.Close())

	_, err := broker.Subscribe(context.Background(), "user:x")
	assert.ErrorIs(t, err, realtime.ErrBrokerClosed)
}

func TestPublishToUsers_Deduplicates(t *testing.T) {
	broker := realtime.NewLocalBroker(zap.NewNop())
	defer broker.Close()
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, realtime.UserTopic("landlord-1"))
	require.NoError(t, err)
	defer sub.Close()

	realtime.PublishToUsers(ctx, broker, zap.NewNop(), realtime.EventMaintenanceUpdated, map[string]int{"v": 2}, "landlord-1", "", "landlord-1")

	receive(t, sub)
	assert.Len(t, sub.C, 0)
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	s := miniredis.RunT(t)

	broker, err := realtime.NewBroker(&config.RealtimeConfig{RedisURL: "redis://" + s.Addr()}, zap.NewNop())
	require.NoError(t, err)
	defer broker.Close()
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, realtime.UserTopic("staff-1"))
	require.NoError(t, err)
	defer sub.Close()

	event, err := realtime.NewEvent(realtime.EventNotificationCreated, map[string]string{"title": "Assigned"})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, realtime.UserTopic("staff-1"), event))

	got := receive(t, sub)
	assert.Equal(t, realtime.EventNotificationCreated, got.Type)
	assert.JSONEq(t, `{"title":"Assigned"}`, string(got.Data))
}

func TestNewBroker_InvalidRedisURL(t *testing.T) {
	_, err := realtime.NewBroker(&config.RealtimeConfig{RedisURL: "not a url"}, zap.NewNop())
	assert.Error(t, err)
}
