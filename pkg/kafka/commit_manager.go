package kafkautils

import (
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// OffsetCommitter is the subset of *kafka.Consumer the CommitManager needs.
type OffsetCommitter interface {
	CommitOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error)
}

type tp struct {
	topic     string
	partition int32
}

// CommitManager commits offsets in order even though messages finish out of
// order: an offset is committed only once every lower offset was acked.
type CommitManager struct {
	mu        sync.Mutex
	high      map[tp]int64              // last committed offset per partition
	done      map[tp]map[int64]struct{} // processed offsets not yet committed
	committer OffsetCommitter
	log       *zap.Logger
}

func NewCommitManager(c OffsetCommitter, l *zap.Logger) *CommitManager {
	return &CommitManager{
		high:      make(map[tp]int64),
		done:      make(map[tp]map[int64]struct{}),
		committer: c,
		log:       l,
	}
}

// Track must be called when msg is read, before it is handed to a worker.
// The first tracked offset of a partition sets its starting watermark.
func (m *CommitManager) Track(msg *kafka.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tp{topic: TopicOf(msg), partition: msg.TopicPartition.Partition}
	if _, ok := m.high[key]; !ok {
		m.high[key] = int64(msg.TopicPartition.Offset) - 1
	}
}

// Ack marks msg processed and commits the contiguous prefix of acked offsets.
func (m *CommitManager) Ack(eventID string, msg *kafka.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tp{topic: TopicOf(msg), partition: msg.TopicPartition.Partition}
	off := int64(msg.TopicPartition.Offset)

	if _, ok := m.high[key]; !ok {
		// partition was revoked while msg was in flight; its new owner commits
		m.log.Warn("offset_ack_for_untracked_partition",
			zap.String("event_id", eventID),
			zap.String("topic", key.topic),
			zap.Int32("partition", key.partition),
			zap.Int64("offset", off))
		return
	}
	if m.done[key] == nil {
		m.done[key] = map[int64]struct{}{}
	}
	m.done[key][off] = struct{}{}

	next := m.high[key]
	for {
		if _, ok := m.done[key][next+1]; !ok {
			break
		}
		next++
		delete(m.done[key], next)
	}
	if next <= m.high[key] {
		return
	}

	tpToCommit := kafka.TopicPartition{Topic: &key.topic, Partition: key.partition, Offset: kafka.Offset(next + 1)}
	if _, err := m.committer.CommitOffsets([]kafka.TopicPartition{tpToCommit}); err != nil {
		m.log.Error("offset_commit_failed",
			zap.String("event_id", eventID),
			zap.String("topic", key.topic),
			zap.Int32("partition", key.partition),
			zap.Int64("attempted_offset", next), zap.Error(err))
		// keep the acks so the next Ack retries the commit
		for o := m.high[key] + 1; o <= next; o++ {
			m.done[key][o] = struct{}{}
		}
		return
	}
	m.high[key] = next
	m.log.Debug("offset_committed",
		zap.String("event_id", eventID),
		zap.String("topic", key.topic),
		zap.Int32("partition", key.partition),
		zap.Int64("offset", next))
}

// Forget drops the watermark and pending acks of partitions, e.g. on
// revocation. The next tracked message of a forgotten partition starts a
// fresh watermark, wherever the group left the partition.
func (m *CommitManager) Forget(partitions []kafka.TopicPartition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range partitions {
		key := tp{topic: TopicOf(&kafka.Message{TopicPartition: p}), partition: p.Partition}
		delete(m.high, key)
		delete(m.done, key)
	}
}

// Committed returns the last committed offset for a partition, or -1.
func (m *CommitManager) Committed(topic string, partition int32) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.high[tp{topic: topic, partition: partition}]; ok {
		return v
	}
	return -1
}
