package kafkautils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	BootstrapServers string
	Topics           []TopicConfig
}

type TopicConfig struct {
	Topic             string
	NumPartitions     int
	ReplicationFactor int
	Config            map[string]string
}

// DeleteTopic builds a TopicConfig with delete cleanup and the given retention.
func DeleteTopic(name string, partitions int, retention time.Duration) TopicConfig {
	return TopicConfig{
		Topic:             name,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
		Config: map[string]string{
			"cleanup.policy": "delete",
			"retention.ms":   fmt.Sprintf("%d", retention.Milliseconds()),
		},
	}
}

// InitKafkaTopics creates the specified Kafka topics.
// It retries up to 2 minutes in case of failure; existing topics are not an error.
func InitKafkaTopics(ctx context.Context, logger *zap.Logger, cnf KafkaConfig) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": cnf.BootstrapServers})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	topics := make([]kafka.TopicSpecification, 0, len(cnf.Topics))
	for _, topic := range cnf.Topics {
		topics = append(topics, kafka.TopicSpecification{
			Topic:             topic.Topic,
			NumPartitions:     topic.NumPartitions,
			ReplicationFactor: topic.ReplicationFactor,
			Config:            topic.Config,
		})
	}

	operation := func() error {
		results, err := admin.CreateTopics(ctx, topics, kafka.SetAdminOperationTimeout(30*time.Second))
		if err != nil {
			return fmt.Errorf("failed to create topics: %w", err)
		}
		for _, result := range results {
			if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
				return fmt.Errorf("kafka topic %s creation failed: %v", result.Topic, result.Error)
			}
			logger.Info("kafka_topic_ready", zap.String("topic", result.Topic))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// NewProducer creates an idempotent producer and drains its delivery reports
// into the logger.
func NewProducer(logger *zap.Logger, brokers string, retries int) (*kafka.Producer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"acks":               "all",
		"enable.idempotence": true,
		"retries":            retries,
	})
	if err != nil {
		return nil, err
	}
	go handleDeliveryReports(logger, p)
	return p, nil
}

func handleDeliveryReports(logger *zap.Logger, p *kafka.Producer) {
	for e := range p.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logger.Error("kafka_delivery_failed",
					zap.String("topic", TopicOf(ev)),
					zap.Error(ev.TopicPartition.Error))
			}
		}
	}
}

// ProduceJSON serializes v and produces it asynchronously keyed by key.
func ProduceJSON(p *kafka.Producer, topic string, key []byte, v any, headers ...kafka.Header) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
		Headers:        headers,
	}, nil)
}

// DeadLetter wraps a message that could not be processed.
type DeadLetter struct {
	OriginalTopic     string            `json:"originalTopic"`
	OriginalPartition int32             `json:"originalPartition"`
	OriginalOffset    int64             `json:"originalOffset"`
	Key               string            `json:"key,omitempty"`
	Value             string            `json:"value"`
	Headers           map[string]string `json:"headers,omitempty"`
	FailureReason     string            `json:"failureReason"`
	Error             string            `json:"error"`
	FailedAt          time.Time         `json:"failedAt"`
}

// NewDeadLetter captures msg together with why it failed.
func NewDeadLetter(msg *kafka.Message, reason string, cause error) DeadLetter {
	dl := DeadLetter{
		OriginalTopic:     TopicOf(msg),
		OriginalPartition: msg.TopicPartition.Partition,
		OriginalOffset:    int64(msg.TopicPartition.Offset),
		Key:               string(msg.Key),
		Value:             string(msg.Value),
		Headers:           make(map[string]string, len(msg.Headers)),
		FailureReason:     reason,
		FailedAt:          time.Now().UTC(),
	}
	if cause != nil {
		dl.Error = cause.Error()
	}
	for _, h := range msg.Headers {
		dl.Headers[h.Key] = string(h.Value)
	}
	return dl
}

func TopicOf(msg *kafka.Message) string {
	if msg.TopicPartition.Topic == nil {
		return ""
	}
	return *msg.TopicPartition.Topic
}
