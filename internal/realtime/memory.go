package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const subscriptionBuffer = 64

// MemoryBroker fans out events inside one process. It is used when no Redis
// is configured, so every connection must be served by this instance.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	logger *zap.Logger
}

// NewMemoryBroker creates a new in-process broker
func NewMemoryBroker(logger *zap.Logger) *MemoryBroker {
	return &MemoryBroker{
		subs:   make(map[string]map[*memorySubscription]struct{}),
		logger: logger,
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[channel] {
		data := make([]byte, len(payload))
		copy(data, payload)
		select {
		case sub.events <- data:
		default:
			b.logger.Warn("Dropping realtime event for slow subscriber", zap.String("channel", channel))
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := &memorySubscription{
		broker:  b,
		channel: channel,
		events:  make(chan []byte, subscriptionBuffer),
	}

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySubscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.mu.Unlock()

	return sub, nil
}

// Subscribers returns the number of open subscriptions on channel
func (b *MemoryBroker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[sub.channel]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.channel)
		}
	}
	close(sub.events)
}

type memorySubscription struct {
	broker  *MemoryBroker
	channel string
	events  chan []byte
	once    sync.Once
}

func (s *memorySubscription) Events() <-chan []byte {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.broker.remove(s)
	})
	return nil
}
