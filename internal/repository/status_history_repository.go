package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/razherana/s5-web-4-carte/internal/model"
)

// StatusHistoryRepo appends to and reads the status_history table.  Rows
// are never updated; they only disappear with their parent report.
type StatusHistoryRepo struct {
	db *sql.DB
}

// NewStatusHistoryRepo returns a new StatusHistoryRepo bound to db.
func NewStatusHistoryRepo(db *sql.DB) *StatusHistoryRepo { return &StatusHistoryRepo{db: db} }

// changedAtLayout is the DATETIME(6) literal layout used when writing
// changed_at.  Values are always converted to UTC first.
const changedAtLayout = "2006-01-02 15:04:05.000000"

// AppendTx inserts one transition inside tx and returns the stored
// entry.  changedAt is caller supplied; entries may arrive out of
// chronological order.
func (r *StatusHistoryRepo) AppendTx(ctx context.Context, tx *sql.Tx, reportID uint64, status model.Status, changedAt time.Time, notes *string) (*model.StatusHistoryEntry, error) {
	const ins = `INSERT INTO status_history (report_id, status, changed_at, notes) VALUES (?, ?, ?, ?)`
	changedAt = changedAt.UTC().Truncate(time.Microsecond)
	stamp := changedAt.Format(changedAtLayout)
	res, err := tx.ExecContext(ctx, ins, reportID, string(status), stamp, nullableString(notes))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.StatusHistoryEntry{
		ID:        uint64(id),
		ReportID:  reportID,
		Status:    status,
		ChangedAt: changedAt.Format(time.RFC3339Nano),
		Notes:     notes,
	}, nil
}

// LatestStatusTx returns the status of the entry with the greatest
// changed_at.  Ties go to the entry inserted last.
func (r *StatusHistoryRepo) LatestStatusTx(ctx context.Context, tx *sql.Tx, reportID uint64) (model.Status, error) {
	const q = `SELECT status FROM status_history WHERE report_id = ? ORDER BY changed_at DESC, id DESC LIMIT 1`
	var s string
	if err := tx.QueryRowContext(ctx, q, reportID).Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return model.Status(s), nil
}

// ListByReport returns the transitions of one report in changed_at order.
func (r *StatusHistoryRepo) ListByReport(ctx context.Context, reportID uint64) ([]model.StatusHistoryEntry, error) {
	const q = `SELECT id, report_id, status, changed_at, notes FROM status_history
               WHERE report_id = ? ORDER BY changed_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.StatusHistoryEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListAllByReport loads every live report that has at least one
// transition, grouped per report in insertion order.  The statistics
// engine sorts by changed_at itself.
func (r *StatusHistoryRepo) ListAllByReport(ctx context.Context) ([]model.ReportHistory, error) {
	const q = `SELECT r.id, r.status, h.id, h.report_id, h.status, h.changed_at, h.notes
               FROM reports r
               JOIN status_history h ON h.report_id = r.id
               WHERE r.sync_state <> ?
               ORDER BY r.id, h.id`
	rows, err := r.db.QueryContext(ctx, q, string(model.SyncDeleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ReportHistory{}
	for rows.Next() {
		var (
			reportID     uint64
			reportStatus string
			e            model.StatusHistoryEntry
			status       string
			changedAt    sql.NullString
			notes        sql.NullString
		)
		if err := rows.Scan(&reportID, &reportStatus, &e.ID, &e.ReportID, &status, &changedAt, &notes); err != nil {
			return nil, err
		}
		e.Status = model.Status(status)
		e.ChangedAt = changedAt.String
		if notes.Valid {
			n := notes.String
			e.Notes = &n
		}
		if len(out) == 0 || out[len(out)-1].ReportID != reportID {
			out = append(out, model.ReportHistory{ReportID: reportID, Status: model.Status(reportStatus)})
		}
		last := &out[len(out)-1]
		last.History = append(last.History, e)
	}
	return out, rows.Err()
}

func scanEntry(s rowScanner) (model.StatusHistoryEntry, error) {
	var (
		e         model.StatusHistoryEntry
		status    string
		changedAt sql.NullString
		notes     sql.NullString
	)
	if err := s.Scan(&e.ID, &e.ReportID, &status, &changedAt, &notes); err != nil {
		return e, err
	}
	e.Status = model.Status(status)
	e.ChangedAt = changedAt.String
	if notes.Valid {
		n := notes.String
		e.Notes = &n
	}
	return e, nil
}
