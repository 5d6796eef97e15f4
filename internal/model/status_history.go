package model

// StatusHistoryEntry is one row of the append-only `status_history`
// table.  ChangedAt is supplied by the caller so that transitions can be
// backfilled; it is kept as the raw timestamp string read from storage
// or from the request so that the statistics engine can skip values it
// cannot parse instead of failing the whole computation.
//
// Fields:
//
//	ID        – status_history.id.
//	ReportID  – parent report (cascade delete).
//	Status    – status entered by this transition.
//	ChangedAt – when the transition happened.
//	Notes     – optional free text.
type StatusHistoryEntry struct {
	ID        uint64  `json:"id"`
	ReportID  uint64  `json:"report_id"`
	Status    Status  `json:"status"`
	ChangedAt string  `json:"changed_at"`
	Notes     *string `json:"notes,omitempty"`
}

// ReportHistory pairs a report's current status with its transitions.
// It is the input unit of the statistics engine.
type ReportHistory struct {
	ReportID uint64
	Status   Status
	History  []StatusHistoryEntry
}
