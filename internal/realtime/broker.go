// Package realtime fans out change events to connected clients.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/config"
	"go.uber.org/zap"
)

// Event types published by the services
const (
	EventMaintenanceUpdated  = "maintenance.updated"
	EventMessageCreated      = "message.created"
	EventConversationDeleted = "conversation.deleted"
	EventNotificationCreated = "notification.created"
)

// subscriberBuffer is the per-subscriber queue; events beyond it are dropped
const subscriberBuffer = 64

// Event is one message on a topic
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	At   time.Time       `json:"at"`
}

// NewEvent marshals payload into an event of the given type
func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Data: data, At: time.Now().UTC()}, nil
}

// UserTopic is the topic carrying events for one user
func UserTopic(userID string) string {
	return "user:" + userID
}

// Publisher is the write side used by services
type Publisher interface {
	Publish(ctx context.Context, topic string, event Event) error
}

// Broker publishes events and hands out subscriptions
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
	Close() error
}

// Subscription delivers events for one topic until closed
type Subscription struct {
	C      <-chan Event
	cancel func()
}

// Close stops delivery and releases the subscription
func (s *Subscription) Close() {
	s.cancel()
}

// NewBroker returns a Redis broker when a URL is configured, otherwise an
// in-process broker
func NewBroker(cfg *config.RealtimeConfig, logger *zap.Logger) (Broker, error) {
	if cfg.RedisURL == "" {
		logger.Info("Realtime broker: in-process")
		return NewLocalBroker(logger), nil
	}

	broker, err := NewRedisBroker(cfg.RedisURL, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Realtime broker: redis")
	return broker, nil
}

// PublishToUsers publishes the event to each distinct, non-empty user topic.
// Failures are logged and skipped.
func PublishToUsers(ctx context.Context, pub Publisher, logger *zap.Logger, eventType string, payload interface{}, userIDs ...string) {
	if pub == nil {
		return
	}
	event, err := NewEvent(eventType, payload)
	if err != nil {
		logger.Warn("failed to build realtime event", zap.String("type", eventType), zap.Error(err))
		return
	}

	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if err := pub.Publish(ctx, UserTopic(id), event); err != nil {
			logger.Warn("failed to publish realtime event",
				zap.String("type", eventType),
				zap.String("userID", id),
				zap.Error(err),
			)
		}
	}
}
