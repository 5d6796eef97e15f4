package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/razherana/s5-web-4-carte/internal/logger"
	"github.com/razherana/s5-web-4-carte/internal/model"
	"github.com/razherana/s5-web-4-carte/internal/repository"
)

type fakeStore struct {
	reports   map[uint64]*model.Report
	histories map[uint64][]model.StatusHistoryEntry
}

func (f *fakeStore) GetReport(_ context.Context, id uint64) (*model.Report, error) {
	r, ok := f.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) History(_ context.Context, id uint64) ([]model.StatusHistoryEntry, error) {
	return f.histories[id], nil
}

func (f *fakeStore) AllHistories(context.Context) ([]model.ReportHistory, error) {
	var out []model.ReportHistory
	for id, h := range f.histories {
		out = append(out, model.ReportHistory{ReportID: id, Status: f.reports[id].Status, History: h})
	}
	return out, nil
}

func TestLedger_History(t *testing.T) {
	store := &fakeStore{
		reports: map[uint64]*model.Report{
			1: {ID: 1, Status: model.StatusResolved, SyncState: model.SyncSynced},
			2: {ID: 2, Status: model.StatusPending, SyncState: model.SyncUpdated},
			3: {ID: 3, Status: model.StatusPending, SyncState: model.SyncDeleted},
		},
		histories: map[uint64][]model.StatusHistoryEntry{
			1: {entry(model.StatusPending, "2025-01-01 00:00:00"), entry(model.StatusResolved, "2025-01-02 00:00:00")},
			2: {entry(model.StatusPending, "2025-01-01 00:00:00"), entry(model.StatusResolved, "2025-01-02 00:00:00")},
		},
	}
	l := New(store, logger.Nop())
	ctx := context.Background()

	got, err := l.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = l.History(ctx, 2)
	assert.ErrorIs(t, err, repository.ErrInconsistentStatus)

	_, err = l.History(ctx, 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = l.History(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLedger_Statistics(t *testing.T) {
	store := &fakeStore{
		reports: map[uint64]*model.Report{1: {ID: 1, Status: model.StatusResolved}},
		histories: map[uint64][]model.StatusHistoryEntry{
			1: {entry(model.StatusPending, "2025-01-01 00:00:00"), entry(model.StatusResolved, "2025-01-01 05:00:00")},
		},
	}
	stats, err := New(store, logger.Nop()).Statistics(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats.Summary.AvgResolutionHours)
	assert.Equal(t, 5.0, *stats.Summary.AvgResolutionHours)
}

func TestCheckCoherence(t *testing.T) {
	rep := &model.Report{ID: 1, Status: model.StatusInProgress}
	assert.NoError(t, CheckCoherence(rep, nil))

	// equal timestamps: the later entry wins
	tie := []model.StatusHistoryEntry{
		entry(model.StatusPending, "2025-01-01 00:00:00"),
		entry(model.StatusInProgress, "2025-01-01 00:00:00"),
	}
	assert.NoError(t, CheckCoherence(rep, tie))

	backfilled := []model.StatusHistoryEntry{
		entry(model.StatusInProgress, "2025-01-02 00:00:00"),
		entry(model.StatusPending, "2025-01-01 00:00:00"),
	}
	assert.NoError(t, CheckCoherence(rep, backfilled))

	rep.Status = model.StatusPending
	assert.ErrorIs(t, CheckCoherence(rep, backfilled), repository.ErrInconsistentStatus)
}
