// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// reconciler and the HTTP handlers to distinguish between different
// failure scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a report, company or history entry does
// not exist.  Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with a unique key,
// such as a report submitted twice with the same external id.  Handlers
// translate it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrInconsistentStatus signals that a report's status no longer equals
// the status of its latest history entry.  It is a programming error and
// is never repaired at runtime.
var ErrInconsistentStatus = errors.New("report status diverges from latest history entry")

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

// translate maps driver errors onto the sentinels above.
func translate(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrConflict
	}
	return err
}
