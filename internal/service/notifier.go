// Package service holds adapters to collaborators the reconciler informs
// but does not depend on for correctness.
package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/razherana/s5-web-4-carte/internal/logger"
    "github.com/razherana/s5-web-4-carte/internal/queue"
)

// Notifier is informed whenever a report's status changes.  Callers
// treat it as fire-and-forget: an error is logged, never surfaced.
type Notifier interface {
    StatusChanged(ctx context.Context, ev queue.StatusChangedEvent) error
}

// RabbitNotifier publishes status changes to the durable
// report.status_changed queue.  It dials per publish, which keeps it
// stateless and tolerant of broker restarts.
type RabbitNotifier struct {
    url string
    log *logger.Logger
}

func NewRabbitNotifier(url string, log *logger.Logger) *RabbitNotifier {
    if log == nil {
        panic("nil logger passed to NewRabbitNotifier")
    }
    return &RabbitNotifier{url: url, log: log.With("service", "RabbitNotifier")}
}

// StatusChanged marshals ev and publishes it as a persistent message.
func (n *RabbitNotifier) StatusChanged(ctx context.Context, ev queue.StatusChangedEvent) error {
    conn, err := amqp.Dial(n.url)
    if err != nil {
        n.log.Warn("dial failed", "error", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        n.log.Warn("channel open failed", "error", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        queue.StatusChangedQueue, // name
        true,                     // durable
        false,                    // autoDelete
        false,                    // exclusive
        false,                    // noWait
        nil,                      // args
    ); err != nil {
        n.log.Warn("queue declare failed", "error", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue.StatusChangedQueue, false, false, pub); err != nil {
        n.log.Warn("publish failed", "error", err, "report_id", ev.ReportID)
        return err
    }
    return nil
}

// LogNotifier only logs.  It is used when no broker is configured.
type LogNotifier struct {
    log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
    return &LogNotifier{log: log.With("service", "LogNotifier")}
}

func (n *LogNotifier) StatusChanged(_ context.Context, ev queue.StatusChangedEvent) error {
    n.log.Info("report status changed",
        "report_id", ev.ReportID, "old_status", ev.OldStatus, "new_status", ev.NewStatus, "changed_at", ev.ChangedAt)
    return nil
}
