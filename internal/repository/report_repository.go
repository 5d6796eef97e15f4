package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/razherana/s5-web-4-carte/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so that the same
// statements can run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReportRepo provides CRUD operations on the reports table.  The budget
// is never stored: every read path recomputes it from unit_price, level
// and surface before returning the row.
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo returns a new ReportRepo bound to the given database.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

const reportColumns = `r.id, r.external_id, r.user_id, r.lat, r.lng, r.date, r.description, r.category,
       r.surface, r.level, r.unit_price, r.company_id, c.name, r.status, r.notes,
       r.sync_state, r.sync_rev, r.images_count, r.created_at, r.updated_at`

const reportFrom = ` FROM reports r LEFT JOIN companies c ON c.id = r.company_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(s rowScanner) (*model.Report, error) {
	var (
		rep         model.Report
		companyID   sql.NullInt64
		companyName sql.NullString
		notes       sql.NullString
		status      string
		syncState   string
	)
	err := s.Scan(
		&rep.ID, &rep.ExternalID, &rep.UserID, &rep.Lat, &rep.Lng, &rep.Date, &rep.Description, &rep.Category,
		&rep.Surface, &rep.Level, &rep.UnitPrice, &companyID, &companyName, &status, &notes,
		&syncState, &rep.SyncRev, &rep.ImagesCount, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if companyID.Valid {
		id := uint64(companyID.Int64)
		rep.CompanyID = &id
	}
	if companyName.Valid {
		n := companyName.String
		rep.CompanyName = &n
	}
	if notes.Valid {
		n := notes.String
		rep.Notes = &n
	}
	rep.Status = model.Status(status)
	rep.SyncState = model.SyncState(syncState)
	rep.RefreshBudget()
	return &rep, nil
}

// Create inserts a new report.  On success ID and the default timestamp
// columns are populated on rep.  A duplicate external id yields
// ErrConflict.
func (r *ReportRepo) Create(ctx context.Context, rep *model.Report) error {
	return r.create(ctx, r.db, rep)
}

func (r *ReportRepo) create(ctx context.Context, q querier, rep *model.Report) error {
	const ins = `INSERT INTO reports (external_id, user_id, lat, lng, date, description, category,
                 surface, level, unit_price, company_id, status, notes, sync_state, images_count)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, ins,
		rep.ExternalID, rep.UserID, rep.Lat, rep.Lng, rep.Date.UTC(), rep.Description, rep.Category,
		rep.Surface, rep.Level, rep.UnitPrice, nullableID(rep.CompanyID), string(rep.Status), nullableString(rep.Notes),
		string(rep.SyncState), rep.ImagesCount,
	)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	// Query back the full row to populate timestamps and the company name
	saved, err := r.get(ctx, q, uint64(id), false)
	if err != nil {
		return err
	}
	*rep = *saved
	return nil
}

// GetByID returns a single report or ErrNotFound.
func (r *ReportRepo) GetByID(ctx context.Context, id uint64) (*model.Report, error) {
	return r.get(ctx, r.db, id, false)
}

// GetByIDForUpdateTx reads a report and locks its row until tx ends.
func (r *ReportRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Report, error) {
	return r.get(ctx, tx, id, true)
}

func (r *ReportRepo) get(ctx context.Context, q querier, id uint64, lock bool) (*model.Report, error) {
	query := `SELECT ` + reportColumns + reportFrom + ` WHERE r.id = ?`
	if lock {
		query += ` FOR UPDATE`
	}
	rep, err := scanReport(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rep, nil
}

// List returns reports matching the filter ordered by id.  Rows tagged
// deleted are hidden unless the filter explicitly asks for them.
func (r *ReportRepo) List(ctx context.Context, f model.ReportFilter) ([]model.Report, error) {
	var (
		where []string
		args  []any
	)
	if f.SyncState != nil {
		where = append(where, "r.sync_state = ?")
		args = append(args, string(*f.SyncState))
	} else {
		where = append(where, "r.sync_state <> ?")
		args = append(args, string(model.SyncDeleted))
	}
	if f.UserID != nil {
		where = append(where, "r.user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.CompanyID != nil {
		where = append(where, "r.company_id = ?")
		args = append(args, *f.CompanyID)
	}
	if f.Status != nil {
		where = append(where, "r.status = ?")
		args = append(args, string(*f.Status))
	}
	query := `SELECT ` + reportColumns + reportFrom + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY r.id`
	return r.list(ctx, query, args...)
}

// ListPending returns every report a sweep still has to reconcile.
func (r *ReportRepo) ListPending(ctx context.Context) ([]model.Report, error) {
	query := `SELECT ` + reportColumns + reportFrom + ` WHERE r.sync_state IN (?, ?, ?) ORDER BY r.id`
	return r.list(ctx, query, string(model.SyncCreated), string(model.SyncUpdated), string(model.SyncDeleted))
}

func (r *ReportRepo) list(ctx context.Context, query string, args ...any) ([]model.Report, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes every mutable column of rep, including its sync state,
// bumps sync_rev and reloads the row so rep reflects what is stored.  A
// row already tagged deleted is left alone and reported as ErrNotFound.
func (r *ReportRepo) Update(ctx context.Context, rep *model.Report) error {
	const upd = `UPDATE reports SET lat = ?, lng = ?, date = ?, description = ?, category = ?, surface = ?,
                 level = ?, unit_price = ?, company_id = ?, notes = ?, sync_state = ?, images_count = ?,
                 sync_rev = sync_rev + 1
                 WHERE id = ? AND sync_state <> ?`
	res, err := r.db.ExecContext(ctx, upd,
		rep.Lat, rep.Lng, rep.Date.UTC(), rep.Description, rep.Category, rep.Surface,
		rep.Level, rep.UnitPrice, nullableID(rep.CompanyID), nullableString(rep.Notes), string(rep.SyncState), rep.ImagesCount,
		rep.ID, string(model.SyncDeleted),
	)
	if err != nil {
		return translate(err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	saved, err := r.get(ctx, r.db, rep.ID, false)
	if err != nil {
		return err
	}
	*rep = *saved
	return nil
}

// UpdateStatusTx sets status, notes and sync state inside tx and bumps
// sync_rev.  Rows tagged deleted yield ErrNotFound.
func (r *ReportRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.Status, notes *string, state model.SyncState) error {
	const upd = `UPDATE reports SET status = ?, notes = COALESCE(?, notes), sync_state = ?, sync_rev = sync_rev + 1
                 WHERE id = ? AND sync_state <> ?`
	res, err := tx.ExecContext(ctx, upd, string(status), nullableString(notes), string(state), id, string(model.SyncDeleted))
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSyncState moves a report from one sync state to another only while
// it still holds the state and revision the caller read.  It reports
// whether the row changed; false means a concurrent mutation wrote the
// row in between and its own sync state must be kept.
func (r *ReportRepo) SetSyncState(ctx context.Context, id, rev uint64, from, to model.SyncState) (bool, error) {
	if from == to {
		return true, nil
	}
	const upd = `UPDATE reports SET sync_state = ? WHERE id = ? AND sync_state = ? AND sync_rev = ?`
	res, err := r.db.ExecContext(ctx, upd, string(to), id, string(from), rev)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteIfState purges a report only while it is still at state and
// rev.  Its history rows go with it through the ON DELETE CASCADE
// foreign key.
func (r *ReportRepo) DeleteIfState(ctx context.Context, id, rev uint64, state model.SyncState) (bool, error) {
	const del = `DELETE FROM reports WHERE id = ? AND sync_state = ? AND sync_rev = ?`
	res, err := r.db.ExecContext(ctx, del, id, string(state), rev)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
