package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncState is the reconciliation marker of a report.  It says how the
// local row relates to the remote mirror document and is independent
// from the business Status.
type SyncState string

const (
	SyncCreated SyncState = "created" // exists locally only
	SyncSynced  SyncState = "synced"  // local and remote agree
	SyncUpdated SyncState = "updated" // local changed after the last successful sync
	SyncDeleted SyncState = "deleted" // waiting for remote deletion before purge
)

// Valid reports whether s is one of the four known sync states.
func (s SyncState) Valid() bool {
	switch s {
	case SyncCreated, SyncSynced, SyncUpdated, SyncDeleted:
		return true
	}
	return false
}

// Pending reports whether a sweep has work to do for a row in state s.
func (s SyncState) Pending() bool {
	return s == SyncCreated || s == SyncUpdated || s == SyncDeleted
}

// Status is the business lifecycle value of a report.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Report records one citizen-submitted road incident.  It is stored in
// the `reports` table and mirrored to the remote document store under
// ExternalID.
//
// Fields:
//
//	ID          – reports.id, local primary key.
//	ExternalID  – reports.external_id, UUID used as the remote document key.
//	UserID      – creator of the report.
//	Lat, Lng    – coordinates of the incident.
//	Date        – when the incident was reported.
//	Surface     – affected surface in square metres.
//	Level       – severity level, used as a budget multiplier.
//	UnitPrice   – repair price per unit of surface and level.
//	CompanyID   – company in charge of the repair.
//	Status      – business lifecycle value.
//	SyncState   – reconciliation marker.
//	SyncRev     – bumped on every local write; sync-state changes compare it.
//	ImagesCount – number of attachments referenced as (id, index).
//	Budget      – computed on read, never persisted.
type Report struct {
	ID          uint64    `json:"id"`
	ExternalID  string    `json:"external_id"`
	UserID      uint64    `json:"user_id"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Surface     float64   `json:"surface"`
	Level       int       `json:"level"`
	UnitPrice   float64   `json:"unit_price"`
	CompanyID   *uint64   `json:"company_id,omitempty"`
	CompanyName *string   `json:"company_name,omitempty"`
	Status      Status    `json:"status"`
	Notes       *string   `json:"notes,omitempty"`
	SyncState   SyncState `json:"sync_state"`
	SyncRev     uint64    `json:"-"`
	ImagesCount int       `json:"images_count"`
	Budget      float64   `json:"budget"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ComputeBudget returns unit_price × level × surface rounded to two
// decimals.  Decimal arithmetic keeps the result independent of the
// order the factors are multiplied in.
func (r *Report) ComputeBudget() decimal.Decimal {
	return decimal.NewFromFloat(r.UnitPrice).
		Mul(decimal.NewFromInt(int64(r.Level))).
		Mul(decimal.NewFromFloat(r.Surface)).
		Round(2)
}

// RefreshBudget recomputes Budget from the three stored factors.  Every
// read path calls it so that Budget never drifts from its inputs.
func (r *Report) RefreshBudget() {
	r.Budget = r.ComputeBudget().InexactFloat64()
}

// Document converts the report into the plain key/value form stored in
// the remote mirror.  Only business fields are mirrored; SyncState is a
// local concern.
func (r *Report) Document() map[string]any {
	doc := map[string]any{
		"id":           r.ID,
		"external_id":  r.ExternalID,
		"user_id":      r.UserID,
		"lat":          r.Lat,
		"lng":          r.Lng,
		"date":         r.Date.UTC().Format(time.RFC3339),
		"description":  r.Description,
		"category":     r.Category,
		"surface":      r.Surface,
		"level":        r.Level,
		"unit_price":   r.UnitPrice,
		"budget":       r.ComputeBudget().InexactFloat64(),
		"status":       string(r.Status),
		"images_count": r.ImagesCount,
		"updated_at":   r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.CompanyID != nil {
		doc["company_id"] = *r.CompanyID
	}
	if r.CompanyName != nil {
		doc["company_name"] = *r.CompanyName
	}
	if r.Notes != nil {
		doc["notes"] = *r.Notes
	}
	return doc
}

// StatusDocument is the partial document written when only the status
// and notes of a report change.
func (r *Report) StatusDocument() map[string]any {
	doc := map[string]any{
		"status":     string(r.Status),
		"updated_at": r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.Notes != nil {
		doc["notes"] = *r.Notes
	}
	return doc
}

// ReportFilter narrows a report listing.  Nil fields are ignored.
type ReportFilter struct {
	SyncState *SyncState
	UserID    *uint64
	CompanyID *uint64
	Status    *Status
}
