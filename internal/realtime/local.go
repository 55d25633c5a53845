package realtime

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrBrokerClosed is returned after Close
var ErrBrokerClosed = errors.New("broker closed")

type localSub struct {
	ch   chan Event
	once sync.Once
}

// LocalBroker fans out events to subscribers inside this process
type LocalBroker struct {
	mu     sync.RWMutex
	topics map[string]map[*localSub]struct{}
	closed bool
	logger *zap.Logger
}

func NewLocalBroker(logger *zap.Logger) *LocalBroker {
	return &LocalBroker{
		topics: make(map[string]map[*localSub]struct{}),
		logger: logger,
	}
}

// Publish delivers to every subscriber of the topic without blocking.
// A subscriber whose buffer is full misses the event.
func (b *LocalBroker) Publish(_ context.Context, topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}
	for sub := range b.topics[topic] {
		select {
		case sub.ch <- event:
		default:
			b.logger.Debug("dropping realtime event for slow subscriber",
				zap.String("topic", topic),
				zap.String("type", event.Type),
			)
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &localSub{ch: make(chan Event, subscriberBuffer)}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*localSub]struct{})
	}
	b.topics[topic][sub] = struct{}{}

	return &Subscription{
		C:      sub.ch,
		cancel: func() { b.remove(topic, sub) },
	}, nil
}

func (b *LocalBroker) remove(topic string, sub *localSub) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.topics[topic]; ok {
		if _, ok := subs[sub]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(b.topics, topic)
			}
		}
	}
	sub.once.Do(func() { close(sub.ch) })
}

// SubscriberCount returns the number of live subscriptions on a topic
func (b *LocalBroker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.topics {
		for sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
		delete(b.topics, topic)
	}
	return nil
}
