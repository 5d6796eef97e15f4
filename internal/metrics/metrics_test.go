package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSync_RemoteCall(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.RemoteCall("put", nil)
	m.RemoteCall("put", nil)
	m.RemoteCall("put", errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.remoteCalls.WithLabelValues("put", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCalls.WithLabelValues("put", "error")))
}

func TestSync_SweepLifecycle(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	done := m.StartSweep()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inProgress))
	m.SweepRecord("created", nil)
	m.SweepRecord("deleted", errors.New("boom"))
	done()

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inProgress))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepRecords.WithLabelValues("created", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepRecords.WithLabelValues("deleted", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sweepDuration))
}

func TestSync_NilIsNoop(t *testing.T) {
	var m *Sync
	assert.NotPanics(t, func() {
		m.RemoteCall("put", nil)
		m.MutationState("create", "synced")
		m.SweepRecord("created", nil)
		m.StartSweep()()
	})
}
