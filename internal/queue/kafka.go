package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "time"

    "github.com/IBM/sarama"

    "github.com/iliyamo/cineclic/internal/config"
    "github.com/iliyamo/cineclic/internal/logger"
)

// KafkaPublisher publishes notification events to Kafka topics, keyed by
// folio so every event of one booking lands on the same partition.
type KafkaPublisher struct {
    producer       sarama.SyncProducer
    confirmedTopic string
    cancelledTopic string
    log            *slog.Logger
}

func newSaramaProducerConfig() *sarama.Config {
    sc := sarama.NewConfig()
    sc.Producer.Return.Successes = true
    sc.Producer.Return.Errors = true
    sc.Producer.RequiredAcks = sarama.WaitForAll
    sc.Producer.Retry.Max = 3
    sc.Producer.Timeout = 10 * time.Second
    sc.Producer.Idempotent = true
    sc.Net.MaxOpenRequests = 1
    sc.Producer.Partitioner = sarama.NewHashPartitioner
    return sc
}

// NewKafkaPublisher connects a synchronous producer to the brokers.
func NewKafkaPublisher(bc config.BrokerConfig, l *slog.Logger) (*KafkaPublisher, error) {
    producer, err := sarama.NewSyncProducer(bc.KafkaBrokers, newSaramaProducerConfig())
    if err != nil {
        return nil, fmt.Errorf("create kafka producer: %w", err)
    }
    return NewKafkaPublisherWithProducer(producer, bc, l), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(p sarama.SyncProducer, bc config.BrokerConfig, l *slog.Logger) *KafkaPublisher {
    return &KafkaPublisher{
        producer:       p,
        confirmedTopic: bc.ConfirmedQueue,
        cancelledTopic: bc.CancelledQueue,
        log:            logger.Component(l, "kafka-publisher"),
    }
}

func (p *KafkaPublisher) BookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
    return p.send(p.confirmedTopic, ev.Key(), ev)
}

func (p *KafkaPublisher) BookingCancelled(ctx context.Context, ev BookingCancelledEvent) error {
    return p.send(p.cancelledTopic, ev.Key(), ev)
}

func (p *KafkaPublisher) send(topic, key string, event any) error {
    body, err := json.Marshal(event)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    msg := &sarama.ProducerMessage{
        Topic: topic,
        Key:   sarama.StringEncoder(key),
        Value: sarama.ByteEncoder(body),
        Headers: []sarama.RecordHeader{
            {Key: []byte("event"), Value: []byte(topic)},
            {Key: []byte("producer"), Value: []byte("cineclic")},
        },
        Timestamp: time.Now().UTC(),
    }
    partition, offset, err := p.producer.SendMessage(msg)
    if err != nil {
        return fmt.Errorf("kafka send %s: %w", topic, err)
    }
    p.log.Debug("event published", "topic", topic, "key", key, "partition", partition, "offset", offset)
    return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
    if p.producer == nil {
        return nil
    }
    return p.producer.Close()
}

// KafkaConsumer feeds both notification topics into a Dispatcher through a
// consumer group.
type KafkaConsumer struct {
    group    sarama.ConsumerGroup
    topics   []string
    dispatch *Dispatcher
    log      *slog.Logger
}

// NewKafkaConsumer joins the configured consumer group.
func NewKafkaConsumer(bc config.BrokerConfig, d *Dispatcher, l *slog.Logger) (*KafkaConsumer, error) {
    sc := sarama.NewConfig()
    sc.Consumer.Return.Errors = true
    sc.Consumer.Offsets.Initial = sarama.OffsetOldest
    sc.Consumer.Offsets.AutoCommit.Enable = true
    sc.Consumer.Offsets.AutoCommit.Interval = time.Second
    sc.Consumer.Group.Session.Timeout = 30 * time.Second
    sc.Consumer.Group.Heartbeat.Interval = 3 * time.Second

    group, err := sarama.NewConsumerGroup(bc.KafkaBrokers, bc.KafkaGroup, sc)
    if err != nil {
        return nil, fmt.Errorf("create consumer group: %w", err)
    }
    return &KafkaConsumer{
        group:    group,
        topics:   []string{bc.ConfirmedQueue, bc.CancelledQueue},
        dispatch: d,
        log:      logger.Component(l, "booking-consumer"),
    }, nil
}

// Run consumes until ctx is cancelled.  Rebalances end a Consume call;
// the loop simply joins again.
func (c *KafkaConsumer) Run(ctx context.Context) error {
    go func() {
        for err := range c.group.Errors() {
            c.log.Error("consumer group error", "err", err)
        }
    }()
    h := &claimHandler{dispatch: c.dispatch, log: c.log}
    for {
        if err := c.group.Consume(ctx, c.topics, h); err != nil {
            if errors.Is(err, sarama.ErrClosedConsumerGroup) {
                return nil
            }
            c.log.Error("consume failed", "err", err)
            select {
            case <-time.After(time.Second):
            case <-ctx.Done():
            }
        }
        if ctx.Err() != nil {
            return ctx.Err()
        }
    }
}

// Close leaves the consumer group.
func (c *KafkaConsumer) Close() error { return c.group.Close() }

type claimHandler struct {
    dispatch *Dispatcher
    log      *slog.Logger
}

func (h *claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim hands every message to the dispatcher.  Undecodable
// messages are marked anyway so one bad payload cannot wedge a partition.
func (h *claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
    for {
        select {
        case msg, ok := <-claim.Messages():
            if !ok {
                return nil
            }
            if err := h.dispatch.Handle(sess.Context(), msg.Topic, msg.Value); err != nil {
                h.log.Error("handle message failed", "topic", msg.Topic, "offset", msg.Offset, "err", err)
            }
            sess.MarkMessage(msg, "")
        case <-sess.Context().Done():
            return nil
        }
    }
}
