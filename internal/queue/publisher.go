package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/cineclic/internal/config"
    "github.com/iliyamo/cineclic/internal/logger"
)

// AMQPPublisher publishes notification events to durable RabbitMQ queues.
// Each publish dials its own connection so a broker restart never leaves
// a dead channel behind; booking traffic is low enough for that.
type AMQPPublisher struct {
    url            string
    confirmedQueue string
    cancelledQueue string
    timeout        time.Duration
    log            *slog.Logger
}

// NewAMQPPublisher builds a publisher from the broker settings.
func NewAMQPPublisher(bc config.BrokerConfig, l *slog.Logger) *AMQPPublisher {
    return &AMQPPublisher{
        url:            bc.AMQPURL,
        confirmedQueue: bc.ConfirmedQueue,
        cancelledQueue: bc.CancelledQueue,
        timeout:        bc.PublishTimeout,
        log:            logger.Component(l, "amqp-publisher"),
    }
}

// BookingConfirmed publishes to the confirmed queue.
func (p *AMQPPublisher) BookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
    return p.publish(ctx, p.confirmedQueue, ev.Key(), ev)
}

// BookingCancelled publishes to the cancelled queue.
func (p *AMQPPublisher) BookingCancelled(ctx context.Context, ev BookingCancelledEvent) error {
    return p.publish(ctx, p.cancelledQueue, ev.Key(), ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue, key string, event any) error {
    if p.timeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, p.timeout)
        defer cancel()
    }
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Error("dial failed", "err", err)
        return fmt.Errorf("amqp dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("amqp channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("amqp queue declare %s: %w", queue, err)
    }

    body, err := json.Marshal(event)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    pub := amqp.Publishing{
        ContentType:   "application/json",
        DeliveryMode:  amqp.Persistent,
        CorrelationId: key,
        Timestamp:     time.Now().UTC(),
        Body:          body,
    }
    if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
        p.log.Error("publish failed", "queue", queue, "key", key, "err", err)
        return fmt.Errorf("amqp publish %s: %w", queue, err)
    }
    p.log.Debug("event published", "queue", queue, "key", key)
    return nil
}
