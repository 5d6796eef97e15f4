package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/razherana/s5-web-4-carte/internal/model"
)

// RecordStore is the relational source of truth used by the reconciler,
// the ledger and the HTTP layer.  It groups the per-table repositories
// and owns the transactions that must touch several tables at once.
type RecordStore struct {
	db        *sql.DB
	Reports   *ReportRepo
	Histories *StatusHistoryRepo
	Companies *CompanyRepo
}

// NewRecordStore wires the repositories around a single pool.
func NewRecordStore(db *sql.DB) *RecordStore {
	if db == nil {
		panic("nil db passed to NewRecordStore")
	}
	return &RecordStore{
		db:        db,
		Reports:   NewReportRepo(db),
		Histories: NewStatusHistoryRepo(db),
		Companies: NewCompanyRepo(db),
	}
}

// Ping checks that the database answers.
func (s *RecordStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *RecordStore) CreateReport(ctx context.Context, rep *model.Report) error {
	return s.Reports.Create(ctx, rep)
}

func (s *RecordStore) GetReport(ctx context.Context, id uint64) (*model.Report, error) {
	return s.Reports.GetByID(ctx, id)
}

func (s *RecordStore) ListReports(ctx context.Context, f model.ReportFilter) ([]model.Report, error) {
	return s.Reports.List(ctx, f)
}

func (s *RecordStore) ListPending(ctx context.Context) ([]model.Report, error) {
	return s.Reports.ListPending(ctx)
}

func (s *RecordStore) UpdateReport(ctx context.Context, rep *model.Report) error {
	return s.Reports.Update(ctx, rep)
}

func (s *RecordStore) SetSyncState(ctx context.Context, id, rev uint64, from, to model.SyncState) (bool, error) {
	return s.Reports.SetSyncState(ctx, id, rev, from, to)
}

func (s *RecordStore) PurgeIfState(ctx context.Context, id, rev uint64, state model.SyncState) (bool, error) {
	return s.Reports.DeleteIfState(ctx, id, rev, state)
}

func (s *RecordStore) History(ctx context.Context, reportID uint64) ([]model.StatusHistoryEntry, error) {
	return s.Histories.ListByReport(ctx, reportID)
}

func (s *RecordStore) AllHistories(ctx context.Context) ([]model.ReportHistory, error) {
	return s.Histories.ListAllByReport(ctx)
}

func (s *RecordStore) CompanyByID(ctx context.Context, id uint64) (*model.Company, error) {
	return s.Companies.GetByID(ctx, id)
}

func (s *RecordStore) CompanyByName(ctx context.Context, name string) (*model.Company, error) {
	return s.Companies.FirstOrCreate(ctx, name)
}

func (s *RecordStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	return s.Companies.List(ctx)
}

// ApplyStatus appends a transition and realigns the parent report in one
// transaction: report.status becomes the status of the latest entry by
// changed_at (which is not the appended one when backfilling), notes are
// replaced when given, and the sync state is set to state.  The report
// row is locked for the duration so concurrent appends serialize.
func (s *RecordStore) ApplyStatus(ctx context.Context, reportID uint64, status model.Status, changedAt time.Time, notes *string, state model.SyncState) (*model.Report, *model.StatusHistoryEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin status tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cur, err := s.Reports.GetByIDForUpdateTx(ctx, tx, reportID)
	if err != nil {
		return nil, nil, err
	}
	if cur.SyncState == model.SyncDeleted {
		return nil, nil, ErrNotFound
	}
	entry, err := s.Histories.AppendTx(ctx, tx, reportID, status, changedAt, notes)
	if err != nil {
		return nil, nil, fmt.Errorf("append history: %w", err)
	}
	latest, err := s.Histories.LatestStatusTx(ctx, tx, reportID)
	if err != nil {
		return nil, nil, fmt.Errorf("latest history: %w", err)
	}
	if err := s.Reports.UpdateStatusTx(ctx, tx, reportID, latest, notes, state); err != nil {
		return nil, nil, fmt.Errorf("update report status: %w", err)
	}
	rep, err := s.Reports.get(ctx, tx, reportID, false)
	if err != nil {
		return nil, nil, err
	}
	if rep.Status != latest {
		return nil, nil, ErrInconsistentStatus
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit status tx: %w", err)
	}
	committed = true
	return rep, entry, nil
}
