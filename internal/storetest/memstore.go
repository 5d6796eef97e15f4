// Package storetest provides an in-memory stand-in for the MySQL record
// store.  It mirrors RecordStore's observable behaviour (deleted rows
// hidden from listings, compare-and-set sync states, status realigned on
// the latest history entry) so reconciler and handler tests can run
// without a database.
package storetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/razherana/s5-web-4-carte/internal/model"
	"github.com/razherana/s5-web-4-carte/internal/repository"
)

type historyRow struct {
	entry model.StatusHistoryEntry
	at    time.Time
}

type MemStore struct {
	mu        sync.Mutex
	now       func() time.Time
	nextID    uint64
	nextHist  uint64
	reports   map[uint64]model.Report
	history   map[uint64][]historyRow
	companies []model.Company

	// FailSetSyncState makes every SetSyncState/PurgeIfState call fail.
	FailSetSyncState error
	// PendingHook, when set, rewrites what ListPending returns.
	PendingHook func([]model.Report) []model.Report
}

func New() *MemStore {
	return &MemStore{
		now:     func() time.Time { return time.Now().UTC() },
		reports: map[uint64]model.Report{},
		history: map[uint64][]historyRow{},
	}
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) withCompany(rep model.Report) *model.Report {
	rep.CompanyName = nil
	if rep.CompanyID != nil {
		for _, c := range s.companies {
			if c.ID == *rep.CompanyID {
				name := c.Name
				rep.CompanyName = &name
			}
		}
	}
	rep.RefreshBudget()
	return &rep
}

func (s *MemStore) CreateReport(_ context.Context, rep *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ExternalID == rep.ExternalID {
			return repository.ErrConflict
		}
	}
	s.nextID++
	rep.ID = s.nextID
	rep.CreatedAt = s.now()
	rep.UpdatedAt = rep.CreatedAt
	s.reports[rep.ID] = *rep
	*rep = *s.withCompany(*rep)
	return nil
}

func (s *MemStore) GetReport(_ context.Context, id uint64) (*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.withCompany(rep), nil
}

func (s *MemStore) ListReports(_ context.Context, f model.ReportFilter) ([]model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Report{}
	for _, rep := range s.sorted() {
		if f.SyncState != nil {
			if rep.SyncState != *f.SyncState {
				continue
			}
		} else if rep.SyncState == model.SyncDeleted {
			continue
		}
		if f.UserID != nil && rep.UserID != *f.UserID {
			continue
		}
		if f.CompanyID != nil && (rep.CompanyID == nil || *rep.CompanyID != *f.CompanyID) {
			continue
		}
		if f.Status != nil && rep.Status != *f.Status {
			continue
		}
		out = append(out, *s.withCompany(rep))
	}
	return out, nil
}

func (s *MemStore) ListPending(context.Context) ([]model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Report{}
	for _, rep := range s.sorted() {
		if rep.SyncState.Pending() {
			out = append(out, *s.withCompany(rep))
		}
	}
	if s.PendingHook != nil {
		out = s.PendingHook(out)
	}
	return out, nil
}

func (s *MemStore) sorted() []model.Report {
	out := make([]model.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) UpdateReport(_ context.Context, rep *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reports[rep.ID]
	if !ok || cur.SyncState == model.SyncDeleted {
		return repository.ErrNotFound
	}
	// status is only written through ApplyStatus
	next := *rep
	next.Status = cur.Status
	next.ExternalID = cur.ExternalID
	next.UserID = cur.UserID
	next.CreatedAt = cur.CreatedAt
	next.SyncRev = cur.SyncRev + 1
	next.UpdatedAt = s.now()
	s.reports[rep.ID] = next
	*rep = *s.withCompany(next)
	return nil
}

func (s *MemStore) SetSyncState(_ context.Context, id, rev uint64, from, to model.SyncState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSetSyncState != nil {
		return false, s.FailSetSyncState
	}
	rep, ok := s.reports[id]
	if !ok || rep.SyncState != from || rep.SyncRev != rev {
		return false, nil
	}
	rep.SyncState = to
	s.reports[id] = rep
	return true, nil
}

func (s *MemStore) PurgeIfState(_ context.Context, id, rev uint64, state model.SyncState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSetSyncState != nil {
		return false, s.FailSetSyncState
	}
	rep, ok := s.reports[id]
	if !ok || rep.SyncState != state || rep.SyncRev != rev {
		return false, nil
	}
	delete(s.reports, id)
	delete(s.history, id)
	return true, nil
}

func (s *MemStore) ApplyStatus(_ context.Context, reportID uint64, status model.Status, changedAt time.Time, notes *string, state model.SyncState) (*model.Report, *model.StatusHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.reports[reportID]
	if !ok || rep.SyncState == model.SyncDeleted {
		return nil, nil, repository.ErrNotFound
	}
	changedAt = changedAt.UTC().Truncate(time.Microsecond)
	s.nextHist++
	entry := model.StatusHistoryEntry{
		ID:        s.nextHist,
		ReportID:  reportID,
		Status:    status,
		ChangedAt: changedAt.Format(time.RFC3339Nano),
		Notes:     notes,
	}
	rows := append(s.history[reportID], historyRow{entry: entry, at: changedAt})
	s.history[reportID] = rows

	latest := rows[0]
	for _, r := range rows[1:] {
		if !r.at.Before(latest.at) {
			latest = r
		}
	}
	rep.Status = latest.entry.Status
	if notes != nil {
		rep.Notes = notes
	}
	rep.SyncState = state
	rep.SyncRev++
	rep.UpdatedAt = s.now()
	s.reports[reportID] = rep
	return s.withCompany(rep), &entry, nil
}

func (s *MemStore) History(_ context.Context, reportID uint64) ([]model.StatusHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries(reportID), nil
}

func (s *MemStore) entries(reportID uint64) []model.StatusHistoryEntry {
	rows := append([]historyRow(nil), s.history[reportID]...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })
	out := make([]model.StatusHistoryEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry)
	}
	return out
}

func (s *MemStore) AllHistories(context.Context) ([]model.ReportHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.ReportHistory{}
	for _, rep := range s.sorted() {
		if rep.SyncState == model.SyncDeleted || len(s.history[rep.ID]) == 0 {
			continue
		}
		out = append(out, model.ReportHistory{ReportID: rep.ID, Status: rep.Status, History: s.entries(rep.ID)})
	}
	return out, nil
}

func (s *MemStore) CompanyByID(_ context.Context, id uint64) (*model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.companies {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemStore) CompanyByName(_ context.Context, name string) (*model.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("empty company name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.companies {
		if c.Name == name {
			cp := c
			return &cp, nil
		}
	}
	c := model.Company{ID: uint64(len(s.companies) + 1), Name: name, CreatedAt: s.now()}
	s.companies = append(s.companies, c)
	return &c, nil
}

func (s *MemStore) ListCompanies(context.Context) ([]model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Company{}, s.companies...), nil
}

// SyncStateOf returns the stored sync state of id and whether the row
// still exists.
func (s *MemStore) SyncStateOf(id uint64) (model.SyncState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.reports[id]
	return rep.SyncState, ok
}
