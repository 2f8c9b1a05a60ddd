package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/domain"
	"github.com/KayraNafi/TouchGrass/internal/infra/metrics"
)

// ─── Event Hub ──────────────────────────────────────────────────────────────
// The hub fans scheduler events out to SSE clients. It implements
// domain.StatusPublisher and domain.ReminderPublisher so the engine can
// push into it directly.

// Event types streamed to clients.
const (
	EventStatus   = "status"
	EventReminder = "reminder"
)

// Event is one SSE message.
type Event struct {
	Type string
	Data any
}

const subscriberBuffer = 16

// Hub broadcasts status changes and reminders to subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	latest *domain.StatusSnapshot

	heartbeat time.Duration
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:      make(map[chan Event]struct{}),
		heartbeat: 30 * time.Second,
	}
}

// Publish records s as the latest status and broadcasts it.
func (h *Hub) Publish(s domain.StatusSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = &s
	h.broadcast(Event{Type: EventStatus, Data: s})
}

// PublishReminder broadcasts a fired reminder.
func (h *Hub) PublishReminder(r domain.ReminderRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast(Event{Type: EventReminder, Data: r})
}

// Subscribe registers a client. The latest status, if any, is queued
// first. Call cancel when done.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.latest != nil {
		ch <- Event{Type: EventStatus, Data: *h.latest}
	}
	n := len(h.subs)
	h.mu.Unlock()
	metrics.EventSubscribers.Set(float64(n))

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			n := len(h.subs)
			h.mu.Unlock()
			metrics.EventSubscribers.Set(float64(n))
		})
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// broadcast never blocks the publisher. A full client buffer drops the
// event for that client only. Caller holds h.mu.
func (h *Hub) broadcast(ev Event) {
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[api] event subscriber is slow; dropped %s event", ev.Type)
		}
	}
}

// HandleEvents streams events as Server-Sent Events until the client
// disconnects.
func (h *Hub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.Subscribe()
	defer cancel()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			data, err := json.Marshal(ev.Data)
			if err != nil {
				log.Printf("[api] encode %s event: %v", ev.Type, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
