// Package bus provides the in-process publish/subscribe fabric the relay
// and notification dispatcher ride on. Topics are dot-separated; a
// subscriber may use "*" segments to match a family of topics. Delivery is
// per-subscriber buffered with a bounded wait, so one stalled websocket
// cannot wedge a publisher.
package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Message is a single published unit. Payload is an encoded wire frame;
// the bus never inspects it.
type Message struct {
	Topic   string
	Event   string
	Payload []byte
}

type subscriber struct {
	id      string
	topic   string
	channel chan Message
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// timedSend delivers with a bounded wait; a full channel past the timeout
// drops the message for this subscriber only.
func (s *subscriber) timedSend(msg Message, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.channel <- msg:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.cancel()
		close(s.channel)
	}
}

// Bus routes messages from publishers to topic subscribers.
type Bus struct {
	sync.RWMutex
	subscribers map[string]map[string]*subscriber // topic -> id -> subscriber
	counter     uint64
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string]map[string]*subscriber),
	}
}

// Subscribe registers interest in a topic pattern and returns the delivery
// channel plus an unsubscribe function. Unsubscribe closes the channel.
func (b *Bus) Subscribe(topic string, bufferSize int) (<-chan Message, func()) {
	id := fmt.Sprintf("sub-%d", atomic.AddUint64(&b.counter, 1))

	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscriber{
		id:      id,
		topic:   topic,
		channel: make(chan Message, bufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	b.Lock()
	defer b.Unlock()

	if _, ok := b.subscribers[topic]; !ok {
		b.subscribers[topic] = make(map[string]*subscriber)
	}
	b.subscribers[topic][id] = sub

	unsubscribe := func() {
		b.Lock()
		defer b.Unlock()

		if subMap, ok := b.subscribers[topic]; ok {
			if s, ok := subMap[id]; ok {
				s.close()
				delete(subMap, id)
				if len(subMap) == 0 {
					delete(b.subscribers, topic)
				}
			}
		}
	}

	return sub.channel, unsubscribe
}

// Publish delivers the message to every subscriber whose pattern matches
// the topic. Slow subscribers are dropped after the timeout; publishing
// never fails.
func (b *Bus) Publish(msg Message, timeout time.Duration) {
	b.RLock()
	defer b.RUnlock()

	for pattern, subMap := range b.subscribers {
		if !matchTopic(pattern, msg.Topic) {
			continue
		}
		for _, sub := range subMap {
			select {
			case <-sub.ctx.Done():
			default:
				sub.timedSend(msg, timeout)
			}
		}
	}
}

// CloseTopic closes and removes every subscriber on the exact topic.
func (b *Bus) CloseTopic(topic string) {
	b.Lock()
	defer b.Unlock()

	if subs, ok := b.subscribers[topic]; ok {
		for _, sub := range subs {
			sub.close()
		}
		delete(b.subscribers, topic)
	}
}

// Shutdown closes every subscriber and resets the bus.
func (b *Bus) Shutdown() {
	b.Lock()
	defer b.Unlock()

	for _, subs := range b.subscribers {
		for _, sub := range subs {
			sub.close()
		}
	}
	b.subscribers = make(map[string]map[string]*subscriber)
}

// matchTopic matches dot-separated topics with "*" wildcard segments.
func matchTopic(pattern, topic string) bool {
	if pattern == "" || topic == "" {
		return false
	}
	if pattern == "*" || pattern == topic {
		return true
	}
	patternParts := strings.Split(pattern, ".")
	topicParts := strings.Split(topic, ".")

	if len(patternParts) != len(topicParts) {
		return false
	}
	for i := range patternParts {
		if patternParts[i] == "*" {
			continue
		}
		if patternParts[i] != topicParts[i] {
			return false
		}
	}
	return true
}

// UserTopic is the per-user delivery topic.
func UserTopic(userID string) string {
	return "user." + userID
}

// SessionTopic is the per-session room topic.
func SessionTopic(sessionID string) string {
	return "session." + sessionID
}
