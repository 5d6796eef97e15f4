package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/razherana/s5-web-4-carte/internal/model"
)

// CompanyRepo looks up and creates companies.
type CompanyRepo struct {
	db *sql.DB
}

// NewCompanyRepo constructs a CompanyRepo with the provided DB handle.
func NewCompanyRepo(db *sql.DB) *CompanyRepo { return &CompanyRepo{db: db} }

// GetByID returns a company or ErrNotFound.
func (r *CompanyRepo) GetByID(ctx context.Context, id uint64) (*model.Company, error) {
	const q = `SELECT id, name, created_at FROM companies WHERE id = ?`
	var c model.Company
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FirstOrCreate returns the oldest company whose name equals the trimmed
// name exactly (case sensitive), creating one when none exists.
func (r *CompanyRepo) FirstOrCreate(ctx context.Context, name string) (*model.Company, error) {
	name = strings.TrimSpace(name)
	const sel = `SELECT id, name, created_at FROM companies WHERE name = BINARY ? ORDER BY id LIMIT 1`
	var c model.Company
	err := r.db.QueryRowContext(ctx, sel, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO companies (name) VALUES (?)`, name)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// List returns every company ordered by name.
func (r *CompanyRepo) List(ctx context.Context) ([]model.Company, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM companies ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Company{}
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
