// Package events carries the notifications the ledger emits to external
// observers. Events land in a thread-safe ring buffer; observers either poll
// the recent window or subscribe for live delivery.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Type classifies a notification.
type Type string

const (
	TypePostCreated Type = "post.created"
	TypePostTipped  Type = "post.tipped"
)

// Event is one notification. PostCreated carries the initial zero tip total;
// PostTipped carries the accumulated total after the tip.
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	PostID      uint64    `json:"post_id"`
	ContentHash string    `json:"content_hash"`
	TipAmount   int64     `json:"tip_amount"`
	Author      string    `json:"author"`
}

// String returns a human-readable representation.
func (e Event) String() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// PostCreated builds the notification for a freshly uploaded post.
func PostCreated(postID uint64, contentHash, author string) Event {
	return Event{
		Type:        TypePostCreated,
		Timestamp:   time.Now().UTC(),
		PostID:      postID,
		ContentHash: contentHash,
		TipAmount:   0,
		Author:      author,
	}
}

// PostTipped builds the notification for a recorded tip. total is the post's
// accumulated tip amount after this tip.
func PostTipped(postID uint64, contentHash string, total int64, author string) Event {
	return Event{
		Type:        TypePostTipped,
		Timestamp:   time.Now().UTC(),
		PostID:      postID,
		ContentHash: contentHash,
		TipAmount:   total,
		Author:      author,
	}
}

// Handler processes events as they occur.
type Handler func(Event)

// Filter decides whether an event should be delivered to a handler.
type Filter func(Event) bool

// Log is the interface services emit through.
type Log interface {
	// Emit records an event and notifies subscribers.
	Emit(event Event)

	// Subscribe registers a handler for every event. The returned function
	// unsubscribes.
	Subscribe(handler Handler) func()

	// SubscribeFiltered registers a handler gated by a filter.
	SubscribeFiltered(filter Filter, handler Handler) func()

	// Recent returns the most recent n events, newest first.
	Recent(n int) []Event

	// RecentByType returns recent events of one type, newest first.
	RecentByType(eventType Type, n int) []Event
}

// RingBuffer is a thread-safe circular buffer of events.
type RingBuffer struct {
	mu       sync.RWMutex
	events   []Event
	size     int
	head     int
	count    int
	handlers []handlerEntry
	nextSub  int64
}

type handlerEntry struct {
	id      int64
	filter  Filter
	handler Handler
}

var _ Log = (*RingBuffer)(nil)

// DefaultBufferSize is the event capacity used when none is configured.
const DefaultBufferSize = 1000

// NewRingBuffer creates an event buffer holding up to size events.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &RingBuffer{
		events: make([]Event, size),
		size:   size,
	}
}

// Emit adds an event to the buffer and notifies subscribers.
func (rb *RingBuffer) Emit(event Event) {
	rb.mu.Lock()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = generateEventID()
	}

	rb.events[rb.head] = event
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}

	handlers := make([]handlerEntry, len(rb.handlers))
	copy(handlers, rb.handlers)
	rb.mu.Unlock()

	// Notify handlers outside the lock
	for _, h := range handlers {
		if h.filter == nil || h.filter(event) {
			h.handler(event)
		}
	}
}

// Subscribe registers a handler for all events.
func (rb *RingBuffer) Subscribe(handler Handler) func() {
	return rb.SubscribeFiltered(nil, handler)
}

// SubscribeFiltered registers a handler with a filter.
func (rb *RingBuffer) SubscribeFiltered(filter Filter, handler Handler) func() {
	rb.mu.Lock()
	id := rb.nextSub
	rb.nextSub++
	rb.handlers = append(rb.handlers, handlerEntry{
		id:      id,
		filter:  filter,
		handler: handler,
	})
	rb.mu.Unlock()

	return func() {
		rb.mu.Lock()
		defer rb.mu.Unlock()
		for i, h := range rb.handlers {
			if h.id == id {
				rb.handlers = append(rb.handlers[:i], rb.handlers[i+1:]...)
				return
			}
		}
	}
}

// Recent returns the most recent n events in reverse chronological order.
func (rb *RingBuffer) Recent(n int) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n <= 0 || rb.count == 0 {
		return nil
	}
	if n > rb.count {
		n = rb.count
	}

	result := make([]Event, n)
	for i := 0; i < n; i++ {
		idx := (rb.head - 1 - i + rb.size) % rb.size
		result[i] = rb.events[idx]
	}
	return result
}

// RecentByType returns recent events of a specific type.
func (rb *RingBuffer) RecentByType(eventType Type, n int) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n <= 0 || rb.count == 0 {
		return nil
	}

	var result []Event
	for i := 0; i < rb.count && len(result) < n; i++ {
		idx := (rb.head - 1 - i + rb.size) % rb.size
		if rb.events[idx].Type == eventType {
			result = append(result, rb.events[idx])
		}
	}
	return result
}

// Count returns the number of buffered events.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// generateEventID generates a unique event ID.
func generateEventID() string {
	return time.Now().UTC().Format("20060102150405.000000000")
}

// NoOpLog discards every event. Services fall back to it when no buffer is
// attached.
type NoOpLog struct{}

func (NoOpLog) Emit(Event)                               {}
func (NoOpLog) Subscribe(Handler) func()                 { return func() {} }
func (NoOpLog) SubscribeFiltered(Filter, Handler) func() { return func() {} }
func (NoOpLog) Recent(int) []Event                       { return nil }
func (NoOpLog) RecentByType(Type, int) []Event           { return nil }
