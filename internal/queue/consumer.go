package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// AuditLogFile is the file the consumer appends to inside its directory.
const AuditLogFile = "audit.log"

// Consumer drains the audit queue into a line-oriented log file.
type Consumer struct {
    url    string
    queue  string
    dir    string
    logger *zap.Logger
}

// NewConsumer returns a consumer writing to dir/audit.log.
func NewConsumer(url, queue, dir string, logger *zap.Logger) *Consumer {
    if queue == "" {
        queue = DefaultQueue
    }
    if dir == "" {
        dir = "logs"
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    return &Consumer{url: url, queue: queue, dir: dir, logger: logger}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff (capped at 30s) when the
// connection drops. Messages that cannot be written are rejected without
// requeue so a bad payload cannot spin the loop.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.logger.Warn("audit-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.logger.Warn("audit-consumer: consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.logger.Warn("audit-consumer: set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handleMessage(d.Body); err != nil {
                c.logger.Error("audit-consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handleMessage(body []byte) error {
    var ev AuditEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Action == "" {
        return errors.New("event without action")
    }
    if err := os.MkdirAll(c.dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", c.dir, err)
    }
    f, err := os.OpenFile(filepath.Join(c.dir, AuditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders one audit event as a single log line.
func FormatLine(ev AuditEvent) string {
    var b strings.Builder
    fmt.Fprintf(&b, "[%s] %s | id=%s | actor_id=%d | %s_id=%d",
        ev.OccurredAt, ev.Action, ev.ID, ev.ActorID, ev.Entity, ev.EntityID)
    if ev.OwnerID != 0 {
        fmt.Fprintf(&b, " | owner_id=%d", ev.OwnerID)
    }
    if ev.SpaceID != 0 && ev.Entity != EntitySpace {
        fmt.Fprintf(&b, " | space_id=%d", ev.SpaceID)
    }
    if ev.UseDate != "" {
        fmt.Fprintf(&b, " | date=%s | window=%s", ev.UseDate, ev.Window)
    }
    if ev.State != "" {
        if ev.PreviousState != "" {
            fmt.Fprintf(&b, " | state=%s->%s", ev.PreviousState, ev.State)
        } else {
            fmt.Fprintf(&b, " | state=%s", ev.State)
        }
    }
    if ev.Reason != "" {
        fmt.Fprintf(&b, " | reason=%q", ev.Reason)
    }
    if ev.Cascade {
        b.WriteString(" | cascade=true")
    }
    b.WriteByte('\n')
    return b.String()
}
