package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/razherana/s5-web-4-carte/internal/events"
	"github.com/razherana/s5-web-4-carte/internal/model"
	"github.com/razherana/s5-web-4-carte/internal/queue"
	"github.com/razherana/s5-web-4-carte/internal/repository"
)

// maxDeleteAttempts bounds how often Delete re-reads a row whose sync
// state moved under it.
const maxDeleteAttempts = 3

// Get returns a live report.  Rows tagged deleted are reported as not
// found: they only wait for their remote deletion.
func (r *Reconciler) Get(ctx context.Context, id uint64) (*model.Report, error) {
	rep, err := r.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.SyncState == model.SyncDeleted {
		return nil, repository.ErrNotFound
	}
	rep.RefreshBudget()
	return rep, nil
}

// List returns the reports matching f.
func (r *Reconciler) List(ctx context.Context, f model.ReportFilter) ([]model.Report, error) {
	reps, err := r.store.ListReports(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range reps {
		reps[i].RefreshBudget()
	}
	return reps, nil
}

// Create validates in, stores a new report owned by p and mirrors it.
// The result reflects the sync state actually reached.
func (r *Reconciler) Create(ctx context.Context, p model.Principal, in ReportInput) (*model.Report, error) {
	verr := validateCreate(in)
	if !verr.Empty() {
		return nil, verr
	}
	rep := &model.Report{
		ExternalID: uuid.NewString(),
		UserID:     p.ID,
		Date:       r.now(),
		Status:     model.StatusPending,
		SyncState:  Next(TriggerCreate, "", false).State,
	}
	in.apply(rep)
	if err := r.resolveCompany(ctx, in, rep); err != nil {
		return nil, err
	}
	if err := r.store.CreateReport(ctx, rep); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	doc := rep.Document()
	r.promote(ctx, rep, TriggerCreate, "", "put", func(ctx context.Context) error {
		return r.mirror.Put(ctx, rep.ExternalID, doc, false)
	})
	rep.RefreshBudget()
	r.metrics.MutationState(string(TriggerCreate), string(rep.SyncState))
	r.log.Info("report created", "report_id", rep.ID, "external_id", rep.ExternalID, "sync_state", rep.SyncState)
	r.publish(events.KindCreated, rep)
	return rep, nil
}

// Update applies the present fields of in to a live report.  The remote
// document is merged with the full business view of the report.
func (r *Reconciler) Update(ctx context.Context, id uint64, in ReportInput) (*model.Report, error) {
	verr := validateUpdate(in)
	if !verr.Empty() {
		return nil, verr
	}
	rep, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	pre := rep.SyncState
	in.apply(rep)
	if err := r.resolveCompany(ctx, in, rep); err != nil {
		return nil, err
	}
	rep.SyncState = Next(TriggerUpdate, pre, false).State
	if err := r.store.UpdateReport(ctx, rep); err != nil {
		return nil, fmt.Errorf("update report %d: %w", id, err)
	}

	doc := rep.Document()
	r.promote(ctx, rep, TriggerUpdate, pre, "merge", func(ctx context.Context) error {
		return r.mirror.Put(ctx, rep.ExternalID, doc, true)
	})
	rep.RefreshBudget()
	r.metrics.MutationState(string(TriggerUpdate), string(rep.SyncState))
	r.log.Info("report updated", "report_id", rep.ID, "sync_state", rep.SyncState)
	r.publish(events.KindUpdated, rep)
	return rep, nil
}

// ChangeStatus appends a transition and realigns the report's status on
// the latest one.  Only status and notes are merged remotely, unless the
// record was never mirrored.  The notifier hears about it when the status
// actually changed.
func (r *Reconciler) ChangeStatus(ctx context.Context, id uint64, in StatusInput) (*model.Report, *model.StatusHistoryEntry, error) {
	at, err := parseStatusInput(in, r.now())
	if err != nil {
		return nil, nil, err
	}
	before, err := r.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	pre := before.SyncState
	rep, entry, err := r.store.ApplyStatus(ctx, id, in.Status, at, in.Notes, Next(TriggerStatus, pre, false).State)
	if err != nil {
		return nil, nil, fmt.Errorf("apply status to report %d: %w", id, err)
	}

	// a record never mirrored needs its whole document, not a patch
	op, doc, merge := "merge", rep.StatusDocument(), true
	if pre == model.SyncCreated {
		op, doc, merge = "put", rep.Document(), false
	}
	r.promote(ctx, rep, TriggerStatus, pre, op, func(ctx context.Context) error {
		return r.mirror.Put(ctx, rep.ExternalID, doc, merge)
	})
	rep.RefreshBudget()
	r.metrics.MutationState(string(TriggerStatus), string(rep.SyncState))
	r.log.Info("status transition appended",
		"report_id", rep.ID, "entry_status", entry.Status, "status", rep.Status, "sync_state", rep.SyncState)

	if rep.Status != before.Status {
		r.notify(queue.StatusChangedEvent{
			ReportID:   rep.ID,
			ExternalID: rep.ExternalID,
			UserID:     rep.UserID,
			OldStatus:  string(before.Status),
			NewStatus:  string(rep.Status),
			ChangedAt:  entry.ChangedAt,
		})
		r.publish(events.KindStatusChanged, rep)
	} else {
		r.publish(events.KindUpdated, rep)
	}
	return rep, entry, nil
}

// DeleteResult describes what Delete achieved.  Purged means the row is
// gone; otherwise Report is still stored, tagged deleted, and the next
// sweep retries the remote deletion.
type DeleteResult struct {
	Report *model.Report `json:"report"`
	Purged bool          `json:"purged"`
}

// Delete removes a report.  A record never mirrored is purged at once;
// otherwise it is tagged deleted and purged when the remote deletion
// succeeds.  Deleting a row already tagged deleted retries the remote
// call.
func (r *Reconciler) Delete(ctx context.Context, id uint64) (*DeleteResult, error) {
	for attempt := 0; attempt < maxDeleteAttempts; attempt++ {
		rep, err := r.store.GetReport(ctx, id)
		if err != nil {
			return nil, err
		}
		res, retry, err := r.deleteOnce(ctx, rep)
		if err != nil {
			return nil, err
		}
		if retry {
			continue
		}
		r.metrics.MutationState(string(TriggerDelete), purgedLabel(res))
		r.log.Info("report deleted", "report_id", id, "purged", res.Purged, "sync_state", res.Report.SyncState)
		r.publish(events.KindDeleted, res.Report)
		return res, nil
	}
	return nil, fmt.Errorf("delete report %d: sync state kept changing: %w", id, repository.ErrConflict)
}

func purgedLabel(res *DeleteResult) string {
	if res.Purged {
		return "purged"
	}
	return string(res.Report.SyncState)
}

// deleteOnce reports retry when the row moved between read and write.
func (r *Reconciler) deleteOnce(ctx context.Context, rep *model.Report) (*DeleteResult, bool, error) {
	pre := rep.SyncState
	if Next(TriggerDelete, pre, false).Purge {
		ok, err := r.store.PurgeIfState(ctx, rep.ID, rep.SyncRev, pre)
		if err != nil {
			return nil, false, fmt.Errorf("purge report %d: %w", rep.ID, err)
		}
		if !ok {
			return nil, true, nil
		}
		return &DeleteResult{Report: rep, Purged: true}, false, nil
	}

	ok, err := r.store.SetSyncState(ctx, rep.ID, rep.SyncRev, pre, model.SyncDeleted)
	if err != nil {
		return nil, false, fmt.Errorf("tag report %d deleted: %w", rep.ID, err)
	}
	if !ok {
		return nil, true, nil
	}
	rep.SyncState = model.SyncDeleted

	if !r.probe.IsOnline(ctx) {
		return &DeleteResult{Report: rep}, false, nil
	}
	err = r.remote(ctx, "delete", func(ctx context.Context) error {
		return r.mirror.Delete(ctx, rep.ExternalID)
	})
	if err != nil {
		r.log.Warn("remote delete failed, record left for sweep", "report_id", rep.ID, "error", err)
		return &DeleteResult{Report: rep}, false, nil
	}
	purged, err := r.store.PurgeIfState(ctx, rep.ID, rep.SyncRev, model.SyncDeleted)
	if err != nil {
		// the remote copy is gone; the tagged row is purged by the next sweep
		r.log.Error("remote delete succeeded but local purge failed", "report_id", rep.ID, "error", err)
		return &DeleteResult{Report: rep}, false, nil
	}
	return &DeleteResult{Report: rep, Purged: purged}, false, nil
}

// resolveCompany points rep at the referenced company.  An unknown id is
// a validation error; a name is looked up or created.
func (r *Reconciler) resolveCompany(ctx context.Context, in ReportInput, rep *model.Report) error {
	switch {
	case in.CompanyID != nil:
		c, err := r.store.CompanyByID(ctx, *in.CompanyID)
		if errors.Is(err, repository.ErrNotFound) {
			verr := model.NewValidationError()
			verr.Add("company_id", "unknown company")
			return verr
		}
		if err != nil {
			return fmt.Errorf("lookup company %d: %w", *in.CompanyID, err)
		}
		rep.CompanyID, rep.CompanyName = &c.ID, &c.Name
	case in.CompanyName != nil:
		c, err := r.store.CompanyByName(ctx, strings.TrimSpace(*in.CompanyName))
		if err != nil {
			return fmt.Errorf("resolve company %q: %w", *in.CompanyName, err)
		}
		rep.CompanyID, rep.CompanyName = &c.ID, &c.Name
	}
	return nil
}

// notify informs the notifier without blocking the caller.  The request
// context may be gone by the time the broker answers, so the call runs
// on its own deadline.
func (r *Reconciler) notify(ev queue.StatusChangedEvent) {
	if r.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout+2*time.Second)
		defer cancel()
		if err := r.notifier.StatusChanged(ctx, ev); err != nil {
			r.log.Warn("status notification failed", "report_id", ev.ReportID, "error", err)
		}
	}()
}
