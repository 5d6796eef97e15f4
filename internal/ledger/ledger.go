// Package ledger reads the append-only status history and turns it into
// processing-time statistics.  Appending happens in the record store
// transaction driven by the reconciler, which keeps report.status aligned
// with the latest entry.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/razherana/s5-web-4-carte/internal/logger"
	"github.com/razherana/s5-web-4-carte/internal/model"
	"github.com/razherana/s5-web-4-carte/internal/repository"
)

// Store is the slice of the record store the ledger reads from.
type Store interface {
	GetReport(ctx context.Context, id uint64) (*model.Report, error)
	History(ctx context.Context, reportID uint64) ([]model.StatusHistoryEntry, error)
	AllHistories(ctx context.Context) ([]model.ReportHistory, error)
}

type Ledger struct {
	store Store
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Ledger {
	if store == nil || log == nil {
		panic("nil dependency passed to ledger.New")
	}
	return &Ledger{store: store, log: log.With("service", "Ledger")}
}

// History returns the transitions of a live report in changed_at order
// after checking that the report's status matches the latest one.
func (l *Ledger) History(ctx context.Context, reportID uint64) ([]model.StatusHistoryEntry, error) {
	rep, err := l.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if rep.SyncState == model.SyncDeleted {
		return nil, repository.ErrNotFound
	}
	entries, err := l.store.History(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("load history of report %d: %w", reportID, err)
	}
	if err := CheckCoherence(rep, entries); err != nil {
		l.log.Error("status history invariant broken", "report_id", reportID, "status", rep.Status)
		return nil, err
	}
	return entries, nil
}

// Statistics loads every history and computes the aggregate view.
func (l *Ledger) Statistics(ctx context.Context) (Statistics, error) {
	histories, err := l.store.AllHistories(ctx)
	if err != nil {
		return Statistics{}, fmt.Errorf("load histories: %w", err)
	}
	return ComputeStatistics(histories), nil
}

// CheckCoherence verifies that rep.Status equals the status of the entry
// with the greatest changed_at (ties go to the later element).  Reports
// without history are always coherent.
func CheckCoherence(rep *model.Report, entries []model.StatusHistoryEntry) error {
	var (
		latest   *model.StatusHistoryEntry
		latestAt time.Time
	)
	for i := range entries {
		t, err := ParseChangedAt(entries[i].ChangedAt)
		if err != nil {
			continue
		}
		if latest == nil || !t.Before(latestAt) {
			latest, latestAt = &entries[i], t
		}
	}
	if latest == nil {
		return nil
	}
	if rep.Status != latest.Status {
		return fmt.Errorf("report %d is %q but latest entry is %q: %w", rep.ID, rep.Status, latest.Status, repository.ErrInconsistentStatus)
	}
	return nil
}
