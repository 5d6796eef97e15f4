package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_DeliversToSubjectOnly(t *testing.T) {
	h := NewHub()
	var got []Event
	stop := h.Subscribe(1, func(e Event) { got = append(got, e) })
	defer stop()

	h.Publish(Event{Kind: KindUpdated, ReportID: 1})
	h.Publish(Event{Kind: KindUpdated, ReportID: 2})

	assert.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].ReportID)
	assert.False(t, got[0].At.IsZero())
}

func TestHub_DisposerRemovesSubscription(t *testing.T) {
	h := NewHub()
	calls := 0
	stopA := h.Subscribe(1, func(Event) { calls++ })
	stopB := h.Subscribe(1, func(Event) { calls += 10 })
	assert.Equal(t, 2, h.Subscribers(1))

	stopA()
	stopA()
	assert.Equal(t, 1, h.Subscribers(1))

	h.Publish(Event{ReportID: 1})
	assert.Equal(t, 10, calls)

	stopB()
	assert.Equal(t, 0, h.Subscribers(1))
	h.Publish(Event{ReportID: 1})
	assert.Equal(t, 10, calls)
}

func TestHub_UnsubscribeDuringPublish(t *testing.T) {
	h := NewHub()
	var stop func()
	calls := 0
	stop = h.Subscribe(3, func(Event) { calls++; stop() })
	h.Publish(Event{ReportID: 3})
	h.Publish(Event{ReportID: 3})
	assert.Equal(t, 1, calls)
}

func TestHub_NilPublish(t *testing.T) {
	var h *Hub
	assert.NotPanics(t, func() { h.Publish(Event{ReportID: 1}) })
}
