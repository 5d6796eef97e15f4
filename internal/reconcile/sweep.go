package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/razherana/s5-web-4-carte/internal/events"
	"github.com/razherana/s5-web-4-carte/internal/model"
)

// RecordError is one record a sweep could not reconcile.
type RecordError struct {
	RecordID uint64 `json:"record_id"`
	Error    string `json:"error"`
}

// SweepResult counts the records whose sync state a sweep actually
// advanced, per kind.  A record rewritten locally while its remote call
// was in flight is not counted; the next sweep picks it up.  Errors is
// sorted by record id and never nil.
type SweepResult struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Deleted int           `json:"deleted"`
	Errors  []RecordError `json:"errors"`
}

// SyncPending pushes every created, updated or deleted record to the
// mirror.  Records are independent: one failure is reported in Errors
// and leaves that record's state untouched, the others proceed.  When the
// probe says offline the sweep fails with ErrNoConnectivity before any
// record is read.
func (r *Reconciler) SyncPending(ctx context.Context) (*SweepResult, error) {
	if !r.probe.IsOnline(ctx) {
		return nil, ErrNoConnectivity
	}
	if r.lock != nil {
		release, err := r.lock.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	done := r.metrics.StartSweep()
	defer done()

	pending, err := r.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending reports: %w", err)
	}

	var (
		mu   sync.Mutex
		res  = &SweepResult{Errors: []RecordError{}}
		seen = make(map[uint64]struct{}, len(pending))
		g    errgroup.Group
	)
	g.SetLimit(r.workers)
	for i := range pending {
		rep := pending[i]
		if _, dup := seen[rep.ID]; dup {
			continue
		}
		seen[rep.ID] = struct{}{}

		g.Go(func() error {
			advanced, err := r.syncOne(ctx, &rep)
			r.metrics.SweepRecord(string(rep.SyncState), err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors = append(res.Errors, RecordError{RecordID: rep.ID, Error: err.Error()})
				return nil
			}
			if !advanced {
				return nil
			}
			switch rep.SyncState {
			case model.SyncCreated:
				res.Created++
			case model.SyncUpdated:
				res.Updated++
			case model.SyncDeleted:
				res.Deleted++
			}
			return nil
		})
	}
	// workers never return errors; failures are data
	_ = g.Wait()

	sort.Slice(res.Errors, func(i, j int) bool { return res.Errors[i].RecordID < res.Errors[j].RecordID })
	r.log.Info("sweep finished",
		"pending", len(seen), "created", res.Created, "updated", res.Updated,
		"deleted", res.Deleted, "errors", len(res.Errors))
	return res, nil
}

// syncOne performs the remote action matching rep's state and then
// advances the local row if nobody wrote it since it was listed.  It
// reports whether the row advanced.  rep is not modified.
func (r *Reconciler) syncOne(ctx context.Context, rep *model.Report) (bool, error) {
	var (
		op    string
		write func(ctx context.Context) error
	)
	switch rep.SyncState {
	case model.SyncCreated:
		op = "put"
		doc := rep.Document()
		write = func(ctx context.Context) error { return r.mirror.Put(ctx, rep.ExternalID, doc, false) }
	case model.SyncUpdated:
		op = "merge"
		doc := rep.Document()
		write = func(ctx context.Context) error { return r.mirror.Put(ctx, rep.ExternalID, doc, true) }
	case model.SyncDeleted:
		op = "delete"
		write = func(ctx context.Context) error { return r.mirror.Delete(ctx, rep.ExternalID) }
	default:
		return false, fmt.Errorf("report %d is not pending (sync state %q)", rep.ID, rep.SyncState)
	}

	if err := r.remote(ctx, op, write); err != nil {
		r.log.Warn("sweep remote call failed", "report_id", rep.ID, "operation", op, "error", err)
		return false, fmt.Errorf("remote %s: %w", op, err)
	}

	out := Next(TriggerSweep, rep.SyncState, true)
	if out.Purge {
		purged, err := r.store.PurgeIfState(ctx, rep.ID, rep.SyncRev, model.SyncDeleted)
		if err != nil {
			return false, fmt.Errorf("purge: %w", err)
		}
		return purged, nil
	}
	moved, err := r.store.SetSyncState(ctx, rep.ID, rep.SyncRev, rep.SyncState, out.State)
	if err != nil {
		return false, fmt.Errorf("advance sync state: %w", err)
	}
	if !moved {
		r.log.Debug("record changed during sweep", "report_id", rep.ID)
		if err := r.retractIfGone(ctx, rep); err != nil {
			return false, fmt.Errorf("remove remote copy of deleted report: %w", err)
		}
		return false, nil
	}
	synced := *rep
	synced.SyncState = out.State
	synced.RefreshBudget()
	r.publish(events.KindSynced, &synced)
	return true, nil
}
