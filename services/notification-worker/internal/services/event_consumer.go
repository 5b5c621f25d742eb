package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	kafkautils "github.com/nimeshabuddhika/resilient-banking/pkg/kafka"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	"github.com/nimeshabuddhika/resilient-banking/services/notification-worker/configs"
	"github.com/nimeshabuddhika/resilient-banking/services/notification-worker/internal/observability"
	"go.uber.org/zap"
)

const (
	pollTimeout     = 200 * time.Millisecond
	readBackoffBase = 100 * time.Millisecond
	readBackoffMax  = 5 * time.Second
)

// Failure reasons carried on DLQ records.
const (
	ReasonDecode     = "json_unmarshal_error"
	ReasonValidation = "validation_error"
	ReasonHandler    = "handle_event_error"
)

// DeadLetterPublisher parks events the worker gave up on.
type DeadLetterPublisher interface {
	Publish(dl kafkautils.DeadLetter, key []byte) error
}

// KafkaDeadLetters produces DeadLetter records to the DLQ topic.
type KafkaDeadLetters struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaDeadLetters(producer *kafka.Producer, topic string) *KafkaDeadLetters {
	return &KafkaDeadLetters{producer: producer, topic: topic}
}

func (k *KafkaDeadLetters) Publish(dl kafkautils.DeadLetter, key []byte) error {
	return kafkautils.ProduceJSON(k.producer, k.topic, key, dl,
		kafka.Header{Key: "x-dlq-reason", Value: []byte(dl.FailureReason)})
}

// EventConsumerConfig holds configuration and dependencies for the bank event consumer.
type EventConsumerConfig struct {
	Logger  *zap.Logger
	Config  *configs.Config
	Handler EventHandler
}

type EventConsumer struct {
	logger   *zap.Logger
	topic    string
	consumer *kafka.Consumer
	dlqProd  *kafka.Producer
	dlq      DeadLetterPublisher
	commits  *kafkautils.CommitManager
	handler  EventHandler
	validate *validator.Validate
	sem      chan struct{} // bounds concurrent events
	wg       sync.WaitGroup
}

// NewEventConsumer creates the consumer, ensures the DLQ topic exists and
// builds the DLQ producer.
func NewEventConsumer(ctx context.Context, cfg EventConsumerConfig) (*EventConsumer, error) {
	cnf := cfg.Config
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cnf.KafkaBrokers,
		"group.id":           cnf.KafkaConsumerGroup,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false, // offsets go through the commit manager
	})
	if err != nil {
		return nil, err
	}

	err = kafkautils.InitKafkaTopics(ctx, cfg.Logger, kafkautils.KafkaConfig{
		BootstrapServers: cnf.KafkaBrokers,
		Topics: []kafkautils.TopicConfig{
			kafkautils.DeleteTopic(cnf.KafkaDLQTopic, int(cnf.KafkaPartition), cnf.KafkaDLQRetention),
		},
	})
	if err != nil {
		_ = consumer.Close()
		return nil, err
	}

	dlqProducer, err := kafkautils.NewProducer(cfg.Logger, cnf.KafkaBrokers, cnf.KafkaRetry)
	if err != nil {
		_ = consumer.Close()
		return nil, err
	}

	c := newEventConsumer(cfg.Logger, cnf.KafkaEventsTopic, cnf.MaxConcurrentJobs, cfg.Handler,
		NewKafkaDeadLetters(dlqProducer, cnf.KafkaDLQTopic), consumer)
	c.consumer = consumer
	c.dlqProd = dlqProducer
	return c, nil
}

func newEventConsumer(logger *zap.Logger, topic string, maxJobs int, handler EventHandler, dlq DeadLetterPublisher, committer kafkautils.OffsetCommitter) *EventConsumer {
	return &EventConsumer{
		logger:   logger,
		topic:    topic,
		dlq:      dlq,
		commits:  kafkautils.NewCommitManager(committer, logger),
		handler:  handler,
		validate: validator.New(),
		sem:      make(chan struct{}, maxJobs),
	}
}

// Start subscribes and runs the poll loop until ctx is cancelled. The returned
// func waits for in-flight events, then closes the consumer and DLQ producer.
func (c *EventConsumer) Start(ctx context.Context) (func(), error) {
	if err := c.consumer.SubscribeTopics([]string{c.topic}, c.onRebalance); err != nil {
		return nil, err
	}
	c.logger.Info("listening_to_kafka_topic", zap.String("topic", c.topic))

	done := make(chan struct{})
	go func() {
		defer close(done)
		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msg, err := c.consumer.ReadMessage(pollTimeout)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				failures++
				c.logger.Error("kafka_read_failed", zap.Int("failures", failures), zap.Error(err))
				time.Sleep(utils.PollBackoff(failures, readBackoffBase, readBackoffMax))
				continue
			}
			failures = 0
			c.dispatch(ctx, msg)
		}
	}()

	return func() {
		<-done
		c.wg.Wait()
		if c.dlqProd != nil {
			c.dlqProd.Flush(5000)
			c.dlqProd.Close()
		}
		if err := c.consumer.Close(); err != nil {
			c.logger.Error("kafka_consumer_close_failed", zap.Error(err))
			return
		}
		c.logger.Info("kafka_consumer_closed")
	}, nil
}

// onRebalance resets commit tracking for partitions that change hands, so a
// reassigned partition starts from wherever the group left it.
func (c *EventConsumer) onRebalance(_ *kafka.Consumer, ev kafka.Event) error {
	switch e := ev.(type) {
	case kafka.RevokedPartitions:
		c.logger.Info("kafka_partitions_revoked", zap.Int("count", len(e.Partitions)))
		c.commits.Forget(e.Partitions)
	case kafka.AssignedPartitions:
		c.logger.Info("kafka_partitions_assigned", zap.Int("count", len(e.Partitions)))
		c.commits.Forget(e.Partitions)
	}
	return nil
}

// dispatch tracks msg for ordered commits and hands it to a worker once a
// semaphore slot frees up.
func (c *EventConsumer) dispatch(ctx context.Context, msg *kafka.Message) {
	c.commits.Track(msg)
	observability.EventsReceived.WithLabelValues(kafkautils.TopicOf(msg)).Inc()

	c.sem <- struct{}{}
	observability.InflightJobs.Inc()
	c.wg.Add(1)
	go func() {
		defer func() {
			<-c.sem
			observability.InflightJobs.Dec()
			c.wg.Done()
		}()
		c.processMessage(ctx, msg)
	}()
}

// processMessage decodes, validates and handles one event. Every outcome acks
// the offset: failures are parked on the DLQ instead of blocking the partition.
func (c *EventConsumer) processMessage(ctx context.Context, msg *kafka.Message) {
	start := time.Now()
	topic := kafkautils.TopicOf(msg)
	defer func() {
		observability.ProcessLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}()

	var ev views.BankEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.logger.Error("bank_event_decode_failed", zap.Error(err))
		c.deadLetter(msg, ReasonDecode, err)
		c.commits.Ack(string(msg.Key), msg)
		return
	}
	eventID := ev.ID.String()

	if err := c.validate.Struct(&ev); err != nil {
		c.logger.Error("bank_event_invalid", zap.String("event_id", eventID), zap.Error(err))
		c.deadLetter(msg, ReasonValidation, err)
		c.commits.Ack(eventID, msg)
		return
	}

	if err := c.handler.Handle(ctx, ev); err != nil {
		if ctx.Err() != nil {
			// shutting down: leave the offset uncommitted so the event is redelivered
			c.logger.Warn("bank_event_interrupted", zap.String("event_id", eventID))
			return
		}
		c.logger.Error("bank_event_failed_sending_to_dlq",
			zap.String("event_id", eventID),
			zap.String(pkg.TraceId, ev.TraceID),
			zap.Error(err))
		c.deadLetter(msg, ReasonHandler, err)
		c.commits.Ack(eventID, msg)
		return
	}
	c.commits.Ack(eventID, msg)
}

func (c *EventConsumer) deadLetter(msg *kafka.Message, reason string, cause error) {
	topic := kafkautils.TopicOf(msg)
	if err := c.dlq.Publish(kafkautils.NewDeadLetter(msg, reason, cause), msg.Key); err != nil {
		c.logger.Error("dlq_publish_failed", zap.String("reason", reason), zap.Error(err))
		return
	}
	observability.DLQPublished.WithLabelValues(topic, reason).Inc()
	c.logger.Info("sent_to_dlq", zap.String("topic", topic), zap.String("reason", reason))
}
