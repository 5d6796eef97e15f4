// Package events is an in-process publish/subscribe hub keyed by report
// id.  Subscribers own their subscription through the disposer returned
// by Subscribe; there is no global listener registry.
package events

import (
	"sync"
	"time"
)

// Kind names what happened to a report.
type Kind string

const (
	KindCreated       Kind = "created"
	KindUpdated       Kind = "updated"
	KindStatusChanged Kind = "status_changed"
	KindDeleted       Kind = "deleted"
	KindSynced        Kind = "synced"
)

// Event is delivered to subscribers of ReportID.  Payload is whatever the
// publisher attached, typically the resulting *model.Report.
type Event struct {
	Kind     Kind      `json:"kind"`
	ReportID uint64    `json:"report_id"`
	At       time.Time `json:"at"`
	Payload  any       `json:"payload,omitempty"`
}

// Handler receives events.  It runs on the publisher's goroutine and
// must not block.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Hub fans events out to the subscribers of a subject.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64][]subscription
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: map[uint64][]subscription{}}
}

// Subscribe registers h for events about reportID and returns the
// disposer that removes it.  Calling the disposer more than once is safe.
func (h *Hub) Subscribe(reportID uint64, handler Handler) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[reportID] = append(h.subs[reportID], subscription{id: id, handler: handler})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(reportID, id) })
	}
}

func (h *Hub) remove(reportID, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.subs[reportID]
	for i, s := range list {
		if s.id == id {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(h.subs, reportID)
		return
	}
	h.subs[reportID] = list
}

// Publish delivers ev to every current subscriber of ev.ReportID.  A nil
// hub drops the event.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.RLock()
	list := append([]subscription(nil), h.subs[ev.ReportID]...)
	h.mu.RUnlock()
	for _, s := range list {
		s.handler(ev)
	}
}

// Subscribers returns the number of live subscriptions for reportID.
func (h *Hub) Subscribers(reportID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[reportID])
}
