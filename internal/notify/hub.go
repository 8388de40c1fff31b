// Package notify delivers user-visible notifications from sessions to the page.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/excel-to-json/backend/internal/models"
)

// DefaultBufferSize is the number of undelivered notifications kept per session.
const DefaultBufferSize = 32

// subscriberQueue is the channel capacity of a live subscriber.
const subscriberQueue = 16

// Notifier receives notifications from the session controller.
type Notifier interface {
	Notify(n models.Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n models.Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n models.Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(models.Notification) {})

// Hub buffers notifications per session and fans them out to live subscribers.
// A notification delivered to at least one subscriber is not buffered.
type Hub struct {
	mu         sync.Mutex
	bufferSize int
	pending    map[string][]models.Notification
	subs       map[string]map[int]chan models.Notification
	nextSubID  int
}

// NewHub creates a hub keeping up to bufferSize pending notifications per session.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		bufferSize: bufferSize,
		pending:    make(map[string][]models.Notification),
		subs:       make(map[string]map[int]chan models.Notification),
	}
}

// Notify implements Notifier.
func (h *Hub) Notify(n models.Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	fmt.Printf("[Notify %s] %s: %s\n", shortID(n.SessionID), n.Kind, n.Message)

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := false
	for _, ch := range h.subs[n.SessionID] {
		select {
		case ch <- n:
			delivered = true
		default:
			// Slow subscriber, drop rather than block the controller
		}
	}
	if delivered {
		return
	}

	queue := append(h.pending[n.SessionID], n)
	if len(queue) > h.bufferSize {
		queue = queue[len(queue)-h.bufferSize:]
	}
	h.pending[n.SessionID] = queue
}

// Drain returns and clears the pending notifications of a session, oldest first.
func (h *Hub) Drain(sessionID string) []models.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	queue := h.pending[sessionID]
	delete(h.pending, sessionID)
	if queue == nil {
		return []models.Notification{}
	}
	return queue
}

// Subscribe registers a live listener for a session. Pending notifications are
// replayed into the channel first. The cancel func must be called to release it.
func (h *Hub) Subscribe(sessionID string) (<-chan models.Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan models.Notification, subscriberQueue)
	for _, n := range h.pending[sessionID] {
		select {
		case ch <- n:
		default:
		}
	}
	delete(h.pending, sessionID)

	id := h.nextSubID
	h.nextSubID++
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[int]chan models.Notification)
	}
	h.subs[sessionID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[sessionID]; ok {
				if c, ok := set[id]; ok {
					delete(set, id)
					close(c)
				}
				if len(set) == 0 {
					delete(h.subs, sessionID)
				}
			}
		})
	}
	return ch, cancel
}

// Forget drops buffered notifications and closes subscribers of a session.
func (h *Hub) Forget(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.pending, sessionID)
	for id, ch := range h.subs[sessionID] {
		close(ch)
		delete(h.subs[sessionID], id)
	}
	delete(h.subs, sessionID)
}

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
