// Package stream fans journal change events out to live subscribers.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names a journal change.
type Kind string

const (
	TradeCreated    Kind = "trade.created"
	TradeUpdated    Kind = "trade.updated"
	TradeClosed     Kind = "trade.closed"
	TradeAnalyzed   Kind = "trade.analyzed"
	TradeDeleted    Kind = "trade.deleted"
	DateSelected    Kind = "date.selected"
	JournalReset    Kind = "journal.reset"
	JournalImported Kind = "journal.imported"
)

// Event describes one change to the journal.
type Event struct {
	Kind    Kind      `json:"kind"`
	TradeID string    `json:"tradeId,omitempty"`
	Date    string    `json:"date,omitempty"`
	At      time.Time `json:"at"`
}

// HubConfig holds buffer sizes for the hub.
type HubConfig struct {
	// BufferSize is the size of the inbound event buffer.
	BufferSize int
	// SubscriberBufferSize is the size of each subscriber's channel.
	SubscriberBufferSize int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BufferSize:           256,
		SubscriberBufferSize: 32,
	}
}

// Metrics contains hub counters.
type Metrics struct {
	Received    uint64 `json:"received"`
	Delivered   uint64 `json:"delivered"`
	Dropped     uint64 `json:"dropped"`
	Subscribers int    `json:"subscribers"`
}

type subscriber struct {
	id      string
	ch      chan Event
	dropped int
}

// Hub distributes events from publishers to every subscriber. Slow
// subscribers lose events instead of blocking the journal.
type Hub struct {
	config HubConfig
	now    func() time.Time

	mu          sync.RWMutex
	subscribers map[string]*subscriber
	events      chan Event
	done        chan struct{}
	started     bool

	metricsMu sync.Mutex
	metrics   Metrics
}

// NewHub creates a hub with the default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a hub with custom buffer sizes.
func NewHubWithConfig(config HubConfig) *Hub {
	if config.BufferSize < 1 {
		config.BufferSize = 1
	}
	if config.SubscriberBufferSize < 1 {
		config.SubscriberBufferSize = 1
	}
	return &Hub{
		config:      config,
		now:         time.Now,
		subscribers: make(map[string]*subscriber),
		events:      make(chan Event, config.BufferSize),
	}
}

// Start begins the distribution loop. It returns immediately; the loop ends
// when ctx is cancelled or Stop is called.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return
	}
	h.started = true
	h.done = make(chan struct{})
	go h.loop(ctx, h.done)
}

func (h *Hub) loop(ctx context.Context, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case ev := <-h.events:
			h.broadcast(ev)
		}
	}
}

// Stop ends the loop and closes every subscriber channel.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return
	}
	close(h.done)
	h.started = false
	for id, sub := range h.subscribers {
		close(sub.ch)
		delete(h.subscribers, id)
	}
}

// Subscribe registers a subscriber and returns its id and channel.
func (h *Hub) Subscribe() (string, <-chan Event) {
	sub := &subscriber{
		id: uuid.NewString(),
		ch: make(chan Event, h.config.SubscriberBufferSize),
	}
	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()
	return sub.id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		close(sub.ch)
		delete(h.subscribers, id)
	}
}

// Publish queues ev for distribution without blocking. A zero At is set to
// the current time. When the buffer is full the event is dropped.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = h.now()
	}
	select {
	case h.events <- ev:
		h.count(func(m *Metrics) { m.Received++ })
	default:
		h.count(func(m *Metrics) { m.Dropped++ })
	}
}

func (h *Hub) broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		select {
		case sub.ch <- ev:
			h.count(func(m *Metrics) { m.Delivered++ })
		default:
			sub.dropped++
			h.count(func(m *Metrics) { m.Dropped++ })
		}
	}
}

func (h *Hub) count(fn func(*Metrics)) {
	h.metricsMu.Lock()
	fn(&h.metrics)
	h.metricsMu.Unlock()
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Metrics returns a snapshot of the hub counters.
func (h *Hub) Metrics() Metrics {
	h.metricsMu.Lock()
	m := h.metrics
	h.metricsMu.Unlock()
	m.Subscribers = h.SubscriberCount()
	return m
}
