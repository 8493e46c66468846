package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicLookupAttempts = 5
	topicLookupBackoff  = 2 * time.Second
)

// TopicAdmin is the part of *kafka.Conn needed to provision topics
type TopicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

var _ TopicAdmin = (*kafka.Conn)(nil)

// ensureTopic creates topic when the broker reports no partitions for it.
// Partition lookups are retried because a freshly started broker may not
// answer metadata requests yet.
func ensureTopic(admin TopicAdmin, topic string, partitions, replication int, logger *slog.Logger, backoff time.Duration) error {
	var (
		found   []kafka.Partition
		lastErr error
	)
	for attempt := 1; attempt <= topicLookupAttempts; attempt++ {
		found, lastErr = admin.ReadPartitions(topic)
		if lastErr == nil {
			break
		}
		logger.Warn("Failed to read topic partitions", "topic", topic, "attempt", attempt, "error", lastErr)
		if attempt < topicLookupAttempts {
			time.Sleep(backoff)
		}
	}

	if len(found) > 0 {
		logger.Info("Kafka topic already exists", "topic", topic, "partitions", len(found))
		return nil
	}

	if partitions <= 0 {
		partitions = 1
	}
	if replication <= 0 {
		replication = 1
	}

	logger.Info("Creating Kafka topic", "topic", topic, "partitions", partitions, "replication_factor", replication, "last_lookup_error", lastErr)
	if err := admin.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replication,
	}); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}

	return nil
}

// dialAndEnsureTopic opens a short-lived admin connection to provision topic.
func dialAndEnsureTopic(brokers, topic string, partitions, replication int, logger *slog.Logger) error {
	conn, err := kafka.Dial("tcp", brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	return ensureTopic(conn, topic, partitions, replication, logger, topicLookupBackoff)
}
