// Package events publishes committed votes to Kafka for auditing and
// downstream dashboards.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/config"
	"github.com/gravadigital/campus-awards-api/internal/domain/vote"
	"github.com/gravadigital/campus-awards-api/internal/logger"
)

// KafkaPublisher writes one message per vote, keyed by category so the votes
// of a category stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *log.Logger
}

// NewProducerConfig returns the producer settings used for vote events.
func NewProducerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_0_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Producer.MaxMessageBytes = 1000000
	return cfg
}

// NewKafkaPublisher connects a sync producer to the configured brokers.
func NewKafkaPublisher(cfg *config.Config) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Events.Brokers, NewProducerConfig(cfg.Events.ClientID))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewPublisher(producer, cfg.Events.Topic), nil
}

// NewPublisher wraps an existing producer.
func NewPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		log:      logger.WithContext("component", "events", "topic", topic),
	}
}

// PublishVoteCast sends the event and waits for the broker acknowledgement.
func (p *KafkaPublisher) PublishVoteCast(ctx context.Context, e vote.VoteCast) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode vote event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.CategoryID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte("vote.cast")},
		},
		Timestamp: e.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish vote event: %w", err)
	}

	p.log.Debug("Vote event published", "category_id", e.CategoryID, "partition", partition, "offset", offset)
	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

var _ vote.Publisher = (*KafkaPublisher)(nil)
