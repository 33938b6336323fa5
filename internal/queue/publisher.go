package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// DefaultQueue is the durable queue audit events are routed to.
const DefaultQueue = "reservation.audit"

// Publisher sends audit events to RabbitMQ. It dials per publish, so a
// broker outage costs only the events emitted while it lasts.
type Publisher struct {
    url    string
    queue  string
    logger *zap.Logger
}

// NewPublisher returns a publisher for the given broker URL and queue.
func NewPublisher(url, queue string, logger *zap.Logger) *Publisher {
    if queue == "" {
        queue = DefaultQueue
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    return &Publisher{url: url, queue: queue, logger: logger}
}

// Publish marshals ev and publishes it as a persistent message. Errors are
// logged and returned so the caller can ignore them.
func (p *Publisher) Publish(ctx context.Context, ev AuditEvent) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.logger.Warn("rabbitmq: dial failed", zap.Error(err))
        return fmt.Errorf("dial broker: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.logger.Warn("rabbitmq: channel open failed", zap.Error(err))
        return fmt.Errorf("open channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // Idempotent; durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        p.queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        p.logger.Warn("rabbitmq: queue declare failed", zap.String("queue", p.queue), zap.Error(err))
        return fmt.Errorf("declare queue: %w", err)
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.ID,
        Type:         ev.Action,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        p.logger.Warn("rabbitmq: publish failed", zap.String("action", ev.Action), zap.Error(err))
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}

// LogAuditor writes events to the application log instead of a broker.
// It is used when AUDIT_ENABLED is off.
type LogAuditor struct {
    Logger *zap.Logger
}

func (a LogAuditor) Publish(_ context.Context, ev AuditEvent) error {
    a.Logger.Info("audit",
        zap.String("id", ev.ID),
        zap.String("action", ev.Action),
        zap.Uint64("actor_id", ev.ActorID),
        zap.String("entity", ev.Entity),
        zap.Uint64("entity_id", ev.EntityID),
        zap.Bool("cascade", ev.Cascade))
    return nil
}
