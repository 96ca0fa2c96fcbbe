package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event types published by clitask components.
const (
	TypeTaskStarted    = "task.started"
	TypeTaskEnded      = "task.ended"
	TypeDryRunDeferred = "dryrun.deferred"
	TypeDryRunReplayed = "dryrun.replayed"
)

type Event struct {
	ID   int64     `json:"id"`
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data []byte    `json:"data"` // JSON payload
}

// Hub is an in-memory pub/sub for observers (API stream, CLI progress).
// Delivery is best effort: a subscriber whose buffer is full misses events.
// Recent events are kept in a ring so late subscribers can catch up.
type Hub struct {
	mu     sync.Mutex
	lastID int64
	ring   []Event
	next   int
	filled bool

	subs      map[int]chan Event
	nextSubID int
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 100
	}
	return &Hub{
		ring: make([]Event, capacity),
		subs: make(map[int]chan Event),
	}
}

// Publish marshals data as the event payload and fans it out.
func (h *Hub) Publish(eventType string, data any) {
	payload := []byte("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	ev := Event{
		ID:   h.lastID,
		Type: eventType,
		At:   time.Now().UTC(),
		Data: payload,
	}

	h.ring[h.next] = ev
	h.next = (h.next + 1) % len(h.ring)
	if h.next == 0 {
		h.filled = true
	}

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a buffered event channel and a cancel func that closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSubID
	h.nextSubID++
	ch := make(chan Event, 128)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// SnapshotSince returns buffered events with ID > lastID, oldest first.
func (h *Hub) SnapshotSince(lastID int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	var ordered []Event
	if h.filled {
		ordered = append(ordered, h.ring[h.next:]...)
	}
	ordered = append(ordered, h.ring[:h.next]...)

	out := make([]Event, 0, len(ordered))
	for _, ev := range ordered {
		if ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}
