package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/razherana/s5-web-4-carte/internal/mirror"
	"github.com/razherana/s5-web-4-carte/internal/model"
)

// AuditResult compares the record store with the mirror.  Missing holds
// the ids of synced reports the mirror has no document for; Orphaned the
// mirror keys no local row refers to.  Both are sorted and never nil.
type AuditResult struct {
	Local    int      `json:"local"`
	Remote   int      `json:"remote"`
	Pending  int      `json:"pending"`
	Missing  []uint64 `json:"missing"`
	Orphaned []string `json:"orphaned"`
}

// Audit lists the whole mirrored collection and reports where it
// disagrees with the local rows.  Rows still pending are expected to
// disagree and are only counted.  Nothing is written on either side.
func (r *Reconciler) Audit(ctx context.Context) (*AuditResult, error) {
	if !r.probe.IsOnline(ctx) {
		return nil, ErrNoConnectivity
	}
	live, err := r.store.ListReports(ctx, model.ReportFilter{})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	deleted := model.SyncDeleted
	tagged, err := r.store.ListReports(ctx, model.ReportFilter{SyncState: &deleted})
	if err != nil {
		return nil, fmt.Errorf("list deleted reports: %w", err)
	}

	var docs map[string]mirror.Document
	err = r.remote(ctx, "list", func(ctx context.Context) error {
		var lerr error
		docs, lerr = r.mirror.List(ctx)
		return lerr
	})
	if err != nil {
		return nil, fmt.Errorf("list remote documents: %w", err)
	}

	res := &AuditResult{Remote: len(docs), Missing: []uint64{}, Orphaned: []string{}}
	known := make(map[string]struct{}, len(live)+len(tagged))
	for _, rep := range append(live, tagged...) {
		known[rep.ExternalID] = struct{}{}
		res.Local++
		if rep.SyncState.Pending() {
			res.Pending++
			continue
		}
		if _, ok := docs[rep.ExternalID]; !ok {
			res.Missing = append(res.Missing, rep.ID)
		}
	}
	for key := range docs {
		if _, ok := known[key]; !ok {
			res.Orphaned = append(res.Orphaned, key)
		}
	}
	sort.Slice(res.Missing, func(i, j int) bool { return res.Missing[i] < res.Missing[j] })
	sort.Strings(res.Orphaned)
	r.log.Info("audit finished", "local", res.Local, "remote", res.Remote,
		"missing", len(res.Missing), "orphaned", len(res.Orphaned))
	return res, nil
}

// RemoteCopy returns the mirror document of a live report.  A report the
// mirror has no document for yields mirror.ErrNotFound.
func (r *Reconciler) RemoteCopy(ctx context.Context, id uint64) (mirror.Document, error) {
	rep, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.probe.IsOnline(ctx) {
		return nil, ErrNoConnectivity
	}
	var doc mirror.Document
	err = r.remote(ctx, "get", func(ctx context.Context) error {
		var gerr error
		doc, gerr = r.mirror.Get(ctx, rep.ExternalID)
		return gerr
	})
	if err != nil && !errors.Is(err, mirror.ErrNotFound) {
		return nil, fmt.Errorf("get remote copy of report %d: %w", id, err)
	}
	return doc, err
}
