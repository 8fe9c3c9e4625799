// Package kafka emits unified company events
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// EventCompanyUnified is emitted once per unified company written by a run
const EventCompanyUnified = "company.unified"

const schemaVersion = "1.0"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles Kafka event emission
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return newProducer(writer, cfg.Topic, logger)
}

func newProducer(writer messageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		topic:  topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// CompanyEvent is the payload of a company.unified event
type CompanyEvent struct {
	EventType      string                `json:"event_type"`
	RunID          string                `json:"run_id"`
	BusinessNumber string                `json:"business_number"`
	Company        models.UnifiedCompany `json:"company"`
	Timestamp      time.Time             `json:"timestamp"`
}

// PublishUnifiedCompanies writes one event per company, keyed by business
// number so every update for a company lands on the same partition.
func (p *Producer) PublishUnifiedCompanies(ctx context.Context, runID string, companies []models.UnifiedCompany) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishUnifiedCompanies")
	defer span.End()

	if len(companies) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	events := ectolinq.Map(companies, func(c models.UnifiedCompany) CompanyEvent {
		return CompanyEvent{
			EventType:      EventCompanyUnified,
			RunID:          runID,
			BusinessNumber: c.BusinessNumber,
			Company:        c,
			Timestamp:      now,
		}
	})

	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return 0, err
		}

		messages[i] = kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.BusinessNumber),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "run_id", Value: []byte(runID)},
				{Key: "schema_version", Value: []byte(schemaVersion)},
			},
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Add(float64(len(messages)))
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"run_id":     runID,
			"batch_size": len(messages),
		}).Error("Failed to publish unified company events")
		return 0, err
	}

	metrics.EventsPublished.WithLabelValues("success").Add(float64(len(messages)))
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":     runID,
		"batch_size": len(messages),
	}).Debug("Published unified company events")

	return len(messages), nil
}
