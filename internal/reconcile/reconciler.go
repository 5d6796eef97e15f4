// Package reconcile keeps the local record store and the remote mirror
// in step.  Every mutation is written locally first with the sync state
// it would have if the remote call failed, then the remote call is
// attempted and, on success, the row is promoted to synced with a
// compare-and-set.  Local durability therefore never depends on the
// remote side, and synced is only ever set after a verified remote write.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/razherana/s5-web-4-carte/internal/connectivity"
	"github.com/razherana/s5-web-4-carte/internal/events"
	"github.com/razherana/s5-web-4-carte/internal/logger"
	"github.com/razherana/s5-web-4-carte/internal/metrics"
	"github.com/razherana/s5-web-4-carte/internal/mirror"
	"github.com/razherana/s5-web-4-carte/internal/model"
	"github.com/razherana/s5-web-4-carte/internal/repository"
	"github.com/razherana/s5-web-4-carte/internal/service"
)

// ErrNoConnectivity is returned by SyncPending when the probe reports
// the network as unreachable.  No record is touched in that case.
var ErrNoConnectivity = errors.New("no connectivity")

// ErrSweepInProgress is returned by SyncPending when another sweep,
// possibly on another instance, holds the sweep lock.
var ErrSweepInProgress = errors.New("sweep already in progress")

// SweepLocker serialises sweeps.  Acquire returns the func releasing the
// lock, or ErrSweepInProgress.
type SweepLocker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Store is the part of the record store the reconciler drives.
type Store interface {
	CreateReport(ctx context.Context, rep *model.Report) error
	GetReport(ctx context.Context, id uint64) (*model.Report, error)
	ListReports(ctx context.Context, f model.ReportFilter) ([]model.Report, error)
	ListPending(ctx context.Context) ([]model.Report, error)
	UpdateReport(ctx context.Context, rep *model.Report) error
	SetSyncState(ctx context.Context, id, rev uint64, from, to model.SyncState) (bool, error)
	PurgeIfState(ctx context.Context, id, rev uint64, state model.SyncState) (bool, error)
	ApplyStatus(ctx context.Context, reportID uint64, status model.Status, changedAt time.Time, notes *string, state model.SyncState) (*model.Report, *model.StatusHistoryEntry, error)
	CompanyByID(ctx context.Context, id uint64) (*model.Company, error)
	CompanyByName(ctx context.Context, name string) (*model.Company, error)
}

// Options tune a Reconciler.  Zero values pick the defaults.
type Options struct {
	// CallTimeout bounds every remote call; expiry counts as a failure.
	CallTimeout time.Duration
	// Workers caps concurrent remote calls during a sweep.
	Workers int

	Metrics  *metrics.Sync
	Hub      *events.Hub
	Notifier service.Notifier
	// Lock, when set, keeps sweeps from overlapping.
	Lock SweepLocker
	Now      func() time.Time
}

const (
	DefaultCallTimeout = 3 * time.Second
	DefaultWorkers     = 4
)

type Reconciler struct {
	store    Store
	mirror   mirror.Client
	probe    connectivity.Prober
	log      *logger.Logger
	metrics  *metrics.Sync
	hub      *events.Hub
	notifier service.Notifier
	lock     SweepLocker
	timeout  time.Duration
	workers  int
	now      func() time.Time
}

func New(store Store, mc mirror.Client, probe connectivity.Prober, log *logger.Logger, opts Options) *Reconciler {
	if store == nil || mc == nil || probe == nil || log == nil {
		panic("nil dependency passed to reconcile.New")
	}
	r := &Reconciler{
		store:    store,
		mirror:   mc,
		probe:    probe,
		log:      log.With("service", "Reconciler"),
		metrics:  opts.Metrics,
		hub:      opts.Hub,
		notifier: opts.Notifier,
		lock:     opts.Lock,
		timeout:  opts.CallTimeout,
		workers:  opts.Workers,
		now:      opts.Now,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultCallTimeout
	}
	if r.workers <= 0 {
		r.workers = DefaultWorkers
	}
	if r.now == nil {
		r.now = func() time.Time { return time.Now().UTC() }
	}
	return r
}

// remote runs one mirror call under the per-call timeout.
func (r *Reconciler) remote(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	err := fn(cctx)
	r.metrics.RemoteCall(op, err)
	return err
}

// promote attempts the remote write for a record already stored in its
// pessimistic state and moves it to synced when the write succeeds.  A
// failed write or an offline probe leaves the row as it is; the next
// sweep retries it.
func (r *Reconciler) promote(ctx context.Context, rep *model.Report, t Trigger, pre model.SyncState, op string, write func(ctx context.Context) error) {
	if !r.probe.IsOnline(ctx) {
		r.log.Debug("offline, remote write deferred", "report_id", rep.ID, "trigger", t)
		return
	}
	if err := r.remote(ctx, op, write); err != nil {
		r.log.Warn("remote write failed, record left for sweep",
			"report_id", rep.ID, "trigger", t, "sync_state", rep.SyncState, "error", err)
		return
	}
	target := Next(t, pre, true).State
	ok, err := r.store.SetSyncState(ctx, rep.ID, rep.SyncRev, rep.SyncState, target)
	if err != nil {
		r.log.Error("remote write succeeded but local state not advanced",
			"report_id", rep.ID, "trigger", t, "error", err)
		return
	}
	if !ok {
		r.log.Info("record changed concurrently, keeping its sync state", "report_id", rep.ID)
		if err := r.retractIfGone(ctx, rep); err != nil {
			r.log.Error("remote document may outlive its record", "report_id", rep.ID, "error", err)
		}
		return
	}
	rep.SyncState = target
}

// retractIfGone runs after a remote write whose compare-and-set missed.
// When the row was purged or tagged deleted meanwhile, the write may have
// recreated a document nobody will delete, so the remote copy is removed
// again.  Any other concurrent change is left for the next sweep.
func (r *Reconciler) retractIfGone(ctx context.Context, rep *model.Report) error {
	cur, err := r.store.GetReport(ctx, rep.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return fmt.Errorf("reload report %d: %w", rep.ID, err)
	case cur.SyncState != model.SyncDeleted:
		return nil
	}
	r.log.Info("record deleted during remote write, removing remote copy", "report_id", rep.ID)
	return r.remote(ctx, "delete", func(ctx context.Context) error {
		return r.mirror.Delete(ctx, rep.ExternalID)
	})
}

func (r *Reconciler) publish(kind events.Kind, rep *model.Report) {
	r.hub.Publish(events.Event{Kind: kind, ReportID: rep.ID, At: r.now(), Payload: rep})
}
