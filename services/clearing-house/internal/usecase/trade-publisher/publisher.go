package tradepublisher

import (
	"context"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	tradepublisherv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/trade-publisher/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/pkg/config"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes trade events to Kafka, keyed by instrument so each
// instrument's trades stay in order on one partition.
type Publisher struct {
	kafkaWriter messageWriter
	logger      logger.Interface
}

var _ tradepublisherv1.TradePublisher = (*Publisher)(nil)

// NewPublisher creates a publisher on the trade topic.
func NewPublisher(cfg config.KafkaConfig, log logger.Interface) *Publisher {
	kafkaWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TradeTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  cfg.MaxAttempts,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newPublisher(kafkaWriter, log)
}

func newPublisher(w messageWriter, log logger.Interface) *Publisher {
	return &Publisher{kafkaWriter: w, logger: log}
}

// Publish writes events in one batch.
func (p *Publisher) Publish(ctx context.Context, events ...tradepublisherv1.TradeEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := e.ToBytes()
		if err != nil {
			return errors.NewTracer("encode trade event " + e.Trade.ID).Wrap(err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Trade.Instrument),
			Value: value,
			Headers: []kafka.Header{
				{Key: "trade-id", Value: []byte(e.Trade.ID)},
			},
		})
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msgs...); err != nil {
		p.logger.ErrorContext(ctx, err,
			logger.Field{Key: "events", Value: len(events)},
			logger.Field{Key: "firstTradeID", Value: events[0].Trade.ID},
		)
		return errors.NewTracer("failed to publish trade events").Wrap(err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}
