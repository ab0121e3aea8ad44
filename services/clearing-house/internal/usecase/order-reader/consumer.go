package orderreader

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	orderreaderv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/order-reader/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/pkg/config"
	"github.com/segmentio/kafka-go"
)

// messageReader is the part of *kafka.Reader the Reader uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader consumes order intake messages from Kafka. Messages are fetched
// without auto-commit and committed once the engine has applied them.
type Reader struct {
	kafkaReader messageReader
	logger      logger.Interface
}

var _ orderreaderv1.OrderReader = (*Reader)(nil)

// NewReader creates a consumer-group reader on the order topic.
func NewReader(cfg config.KafkaConfig, log logger.Interface) *Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.OrderTopic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return newReader(kafkaReader, log)
}

func newReader(r messageReader, log logger.Interface) *Reader {
	return &Reader{kafkaReader: r, logger: log}
}

func (r *Reader) logError(err error, operation string) {
	r.logger.Error(err, logger.Field{Key: "operation", Value: operation})
}

// ReadMessage fetches the next message and decodes it. Undecodable messages
// are returned with ErrMalformedMessage so the caller can commit past them.
func (r *Reader) ReadMessage(ctx context.Context) (kafka.Message, orderreaderv1.OrderRequest, error) {
	msg, err := r.kafkaReader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logError(err, "FetchMessage")
		}
		return kafka.Message{}, orderreaderv1.OrderRequest{}, err
	}

	var req orderreaderv1.OrderRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		r.logError(err, "UnmarshalOrder")
		return msg, orderreaderv1.OrderRequest{}, errors.NewTracer("decode order message").
			Wrap(fmt.Errorf("%w: offset %d: %v", orderreaderv1.ErrMalformedMessage, msg.Offset, err))
	}
	if req.Action == "" {
		req.Action = orderreaderv1.ActionPlace
	}
	if req.Action != orderreaderv1.ActionPlace && req.Action != orderreaderv1.ActionCancel {
		return msg, req, errors.NewTracer("decode order message").
			Wrap(fmt.Errorf("%w: unknown action %q", orderreaderv1.ErrMalformedMessage, req.Action))
	}
	req.Offset = msg.Offset

	r.logger.DebugContext(ctx, "order message read",
		logger.Field{Key: "action", Value: req.Action},
		logger.Field{Key: "orderID", Value: req.OrderID},
		logger.Field{Key: "instrument", Value: req.Instrument},
		logger.Field{Key: "offset", Value: msg.Offset},
	)
	return msg, req, nil
}

// CommitMessages commits the messages after processing.
func (r *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := r.kafkaReader.CommitMessages(ctx, msgs...); err != nil {
		r.logError(err, "CommitMessages")
		return errors.NewTracer("commit order messages").Wrap(err)
	}
	return nil
}

// Close closes the underlying reader.
func (r *Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}
