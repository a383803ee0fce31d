// Package livefeed fans order status updates out to connected SSE
// clients. Topics are keyed by the canonical order ID; each topic keeps
// a short replay buffer so late subscribers see what they missed.
package livefeed

import (
	"errors"
	"sync"
	"time"
)

const defaultBufferSize = 16

// ErrTopicAtCapacity is returned by Subscribe when a topic already has
// the maximum number of concurrent subscribers.
var ErrTopicAtCapacity = errors.New("live_feed_at_capacity")

// Event is one envelope on the feed.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

type stream struct {
	mu      sync.Mutex
	buffer  []Event
	subs    map[uint64]chan Event
	nextID  uint64
	maxSubs int
}

// Hub routes events to per-topic subscribers. Slow subscribers never
// block Publish: when a subscriber's channel is full the event is
// dropped for that subscriber and counted.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]*stream

	bufferSize int
	maxSubs    int
}

// New returns a hub allowing up to maxSubs concurrent subscribers per
// topic. maxSubs <= 0 means unlimited.
func New(maxSubs int) *Hub {
	return &Hub{
		streams:    make(map[string]*stream),
		bufferSize: defaultBufferSize,
		maxSubs:    maxSubs,
	}
}

func (h *Hub) getOrCreate(topic string) *stream {
	h.mu.RLock()
	st, ok := h.streams[topic]
	h.mu.RUnlock()
	if ok {
		return st
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok = h.streams[topic]; ok {
		return st
	}
	st = &stream{
		subs:    make(map[uint64]chan Event),
		maxSubs: h.maxSubs,
	}
	h.streams[topic] = st
	return st
}

// Publish delivers the event to every subscriber of the topic and
// appends it to the replay buffer. It returns the number of subscribers
// the event was dropped for because their channel was full.
func (h *Hub) Publish(topic string, event Event) int {
	st := h.getOrCreate(topic)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.buffer = append(st.buffer, event)
	if len(st.buffer) > h.bufferSize {
		st.buffer = st.buffer[len(st.buffer)-h.bufferSize:]
	}

	dropped := 0
	for _, ch := range st.subs {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	return dropped
}

// Subscription is one subscriber's handle on a topic feed.
type Subscription struct {
	hub   *Hub
	topic string
	id    uint64
	ch    chan Event

	backlog []Event
	once    sync.Once
}

// Subscribe attaches a new subscriber to the topic, capturing a snapshot
// of the replay buffer. It fails when the topic is at capacity.
func (h *Hub) Subscribe(topic string) (*Subscription, error) {
	for {
		st := h.getOrCreate(topic)

		// Membership is re-checked under the hub lock: the delete-on-empty
		// pass in unsubscribe may have dropped this stream after
		// getOrCreate returned, and registering on a dropped stream would
		// orphan the subscription.
		h.mu.RLock()
		if h.streams[topic] != st {
			h.mu.RUnlock()
			continue
		}

		st.mu.Lock()
		if st.maxSubs > 0 && len(st.subs) >= st.maxSubs {
			st.mu.Unlock()
			h.mu.RUnlock()
			return nil, ErrTopicAtCapacity
		}

		st.nextID++
		id := st.nextID
		ch := make(chan Event, h.bufferSize)
		st.subs[id] = ch

		backlog := make([]Event, len(st.buffer))
		copy(backlog, st.buffer)
		st.mu.Unlock()
		h.mu.RUnlock()

		return &Subscription{
			hub:     h,
			topic:   topic,
			id:      id,
			ch:      ch,
			backlog: backlog,
		}, nil
	}
}

// Backlog returns the events published before this subscription started.
func (s *Subscription) Backlog() []Event { return s.backlog }

// Events is the live channel for this subscription.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s.topic, s.id)
	})
}

func (h *Hub) unsubscribe(topic string, id uint64) {
	h.mu.RLock()
	st, ok := h.streams[topic]
	h.mu.RUnlock()
	if !ok {
		return
	}

	st.mu.Lock()
	delete(st.subs, id)
	empty := len(st.subs) == 0
	st.mu.Unlock()

	if !empty {
		return
	}

	// Drop the idle stream. Re-check under both locks: a new subscriber
	// may have raced in between the unlock above and here.
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok = h.streams[topic]; ok {
		st.mu.Lock()
		if len(st.subs) == 0 {
			delete(h.streams, topic)
		}
		st.mu.Unlock()
	}
}

// SubscriberCount reports the number of live subscribers on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	st, ok := h.streams[topic]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.subs)
}
