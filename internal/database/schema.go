package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the DDL statements applied by Migrate, in dependency
// order.  Each statement is idempotent so Migrate can run on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(255)    NOT NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_companies_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reports (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		external_id  CHAR(36)        NOT NULL,
		user_id      BIGINT UNSIGNED NOT NULL,
		lat          DOUBLE          NOT NULL,
		lng          DOUBLE          NOT NULL,
		date         DATETIME        NOT NULL,
		description  TEXT            NOT NULL,
		category     VARCHAR(64)     NOT NULL,
		surface      DOUBLE          NOT NULL DEFAULT 0,
		level        INT             NOT NULL DEFAULT 0,
		unit_price   DOUBLE          NOT NULL DEFAULT 0,
		company_id   BIGINT UNSIGNED NULL,
		status       ENUM('pending','in_progress','resolved','rejected') NOT NULL DEFAULT 'pending',
		notes        TEXT            NULL,
		sync_state   ENUM('created','synced','updated','deleted') NOT NULL DEFAULT 'created',
		sync_rev     BIGINT UNSIGNED NOT NULL DEFAULT 0,
		images_count INT             NOT NULL DEFAULT 0,
		created_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_reports_external_id (external_id),
		KEY idx_reports_sync_state (sync_state),
		KEY idx_reports_user (user_id),
		CONSTRAINT fk_reports_company FOREIGN KEY (company_id) REFERENCES companies (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS status_history (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		report_id  BIGINT UNSIGNED NOT NULL,
		status     ENUM('pending','in_progress','resolved','rejected') NOT NULL,
		changed_at DATETIME(6)     NOT NULL,
		notes      TEXT            NULL,
		KEY idx_status_history_report_changed (report_id, changed_at),
		CONSTRAINT fk_status_history_report FOREIGN KEY (report_id) REFERENCES reports (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables used by the service if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
