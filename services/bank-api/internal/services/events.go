package services

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	kafkautils "github.com/nimeshabuddhika/resilient-banking/pkg/kafka"
	"github.com/nimeshabuddhika/resilient-banking/pkg/realtime"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/configs"
	"go.uber.org/zap"
)

// Notifier announces committed writes: row changes to realtime subscribers and
// bank events to the notification pipeline. Both are called after commit only.
type Notifier interface {
	Changed(ctx context.Context, changes ...views.ChangeEvent)
	Emit(ctx context.Context, ev views.BankEvent)
}

// KafkaPublisher publishes bank events to Kafka.
type KafkaPublisher interface {
	PublishEvent(ev views.BankEvent) error
	Close()
}

type KafkaPublisherImpl struct {
	logger   *zap.Logger
	producer *kafka.Producer
	topic    string
}

// NewKafkaPublisher ensures the events topic exists and creates an idempotent producer.
func NewKafkaPublisher(ctx context.Context, logger *zap.Logger, cnf *configs.Config) (KafkaPublisher, error) {
	topicConfig := kafkautils.KafkaConfig{
		BootstrapServers: cnf.KafkaBrokers,
		Topics: []kafkautils.TopicConfig{
			kafkautils.DeleteTopic(cnf.KafkaEventsTopic, int(cnf.KafkaPartition), cnf.KafkaEventsRetention),
		},
	}
	if err := kafkautils.InitKafkaTopics(ctx, logger, topicConfig); err != nil {
		return nil, err
	}
	p, err := kafkautils.NewProducer(logger, cnf.KafkaBrokers, cnf.KafkaRetry)
	if err != nil {
		return nil, err
	}
	logger.Info("kafka_producer_created", zap.String("brokers", cnf.KafkaBrokers), zap.String("topic", cnf.KafkaEventsTopic))
	return &KafkaPublisherImpl{logger: logger, producer: p, topic: cnf.KafkaEventsTopic}, nil
}

// PublishEvent keys by user id so one user's events stay ordered on a partition.
func (k *KafkaPublisherImpl) PublishEvent(ev views.BankEvent) error {
	return kafkautils.ProduceJSON(k.producer, k.topic, []byte(ev.UserID.String()), ev,
		kafka.Header{Key: pkg.HeaderTraceId, Value: []byte(ev.TraceID)})
}

func (k *KafkaPublisherImpl) Close() {
	k.producer.Flush(5000)
	k.producer.Close()
}

type notifier struct {
	logger    *zap.Logger
	publisher KafkaPublisher
	changes   realtime.Publisher
}

func NewNotifier(logger *zap.Logger, publisher KafkaPublisher, changes realtime.Publisher) Notifier {
	return &notifier{logger: logger, publisher: publisher, changes: changes}
}

func (n *notifier) Changed(ctx context.Context, changes ...views.ChangeEvent) {
	for _, ch := range changes {
		n.changes.PublishChange(ctx, ch)
	}
}

// Emit never fails the caller: the write is already committed.
func (n *notifier) Emit(_ context.Context, ev views.BankEvent) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := n.publisher.PublishEvent(ev); err != nil {
		n.logger.Error("bank_event_publish_failed",
			zap.String(pkg.TraceId, ev.TraceID),
			zap.String("event_type", ev.Type),
			zap.Error(err))
	}
}

func change(table string, action views.ChangeAction, recordID, userID uuid.UUID) views.ChangeEvent {
	return views.ChangeEvent{Table: table, Action: action, RecordID: recordID, UserID: userID}
}

func event(traceID, eventType string, userID, entityID uuid.UUID, title, message string, attrs map[string]string) views.BankEvent {
	return views.BankEvent{
		Type:       eventType,
		UserID:     userID,
		EntityID:   entityID,
		Title:      title,
		Message:    message,
		Attributes: attrs,
		TraceID:    traceID,
	}
}
