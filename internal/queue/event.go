// Package queue defines message payloads exchanged over the message broker.
package queue

// StatusChangedQueue is the durable queue status change notifications are
// published to.
const StatusChangedQueue = "report.status_changed"

// StatusChangedEvent is published when a report's status actually changes.
// It carries enough information for downstream consumers to notify the
// reporter or keep an audit trail without querying the primary database.
type StatusChangedEvent struct {
    ReportID   uint64 `json:"report_id"`
    ExternalID string `json:"external_id"`
    UserID     uint64 `json:"user_id"`
    OldStatus  string `json:"old_status"`
    NewStatus  string `json:"new_status"`
    ChangedAt  string `json:"changed_at"`
}
