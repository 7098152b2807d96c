package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"MacroPull/internal/domain/models"
	domrepo "MacroPull/internal/domain/repository"
	pkgkafka "MacroPull/pkg/kafka"
	xlogger "MacroPull/pkg/logger"
)

// TableEnvelope is the Kafka value for one published table.
type TableEnvelope struct {
	RunID string `json:"run_id"`
	*models.Table
}

// KafkaPublisher implements TablePublisher on a Kafka topic. Messages are
// keyed by instrument.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	metrics  domrepo.Metrics
	logger   *xlogger.Logger
	newID    func() string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string, metrics domrepo.Metrics, logger *xlogger.Logger) *KafkaPublisher {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		metrics:  metrics,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

func (p *KafkaPublisher) PublishTable(ctx context.Context, t *models.Table) error {
	if t == nil || t.Len() == 0 {
		return nil
	}
	runID := p.newID()
	err := p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{{
		Key:     []byte(t.Instrument),
		Value:   TableEnvelope{RunID: runID, Table: t},
		Headers: map[string]string{"run_id": runID, "timeframe": t.Timeframe},
	}})
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("publish")
		}
		return fmt.Errorf("publish %s: %w", t.Instrument, err)
	}
	if p.metrics != nil {
		p.metrics.RecordTablePublished(t.Instrument, t.Len())
	}
	p.logger.Info("table published",
		xlogger.String("topic", p.topic),
		xlogger.String("instrument", t.Instrument),
		xlogger.String("run_id", runID),
		xlogger.Int("rows", t.Len()),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher discards tables.
type NopPublisher struct{}

func (NopPublisher) PublishTable(context.Context, *models.Table) error { return nil }
func (NopPublisher) Close() error                                      { return nil }

// NopArchive discards everything.
type NopArchive struct{}

func (NopArchive) StoreTable(context.Context, *models.Table) error  { return nil }
func (NopArchive) StoreSeries(context.Context, models.Series) error { return nil }
func (NopArchive) Health(context.Context) error                     { return nil }
func (NopArchive) Close() error                                     { return nil }
