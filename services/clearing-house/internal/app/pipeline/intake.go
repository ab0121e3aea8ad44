package pipeline

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	novationv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/novation/v1"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	orderreaderv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/order-reader/v1"
	tradepublisherv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/trade-publisher/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/metrics"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/netting"
	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

// runOrderProcessor reads, applies and commits intake messages one at a time.
func (p *Pipeline) runOrderProcessor() {
	defer p.wg.Done()

	p.logger.Info("Starting order processor")

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Info("Order processor shutting down")
			if err := p.deps.Reader.Close(); err != nil {
				p.logger.Error(err, logger.Field{Key: "action", Value: "close_order_reader"})
			}
			return
		default:
			msg, req, err := p.deps.Reader.ReadMessage(p.ctx)
			if err != nil && !stderrors.Is(err, orderreaderv1.ErrMalformedMessage) {
				if p.ctx.Err() != nil {
					continue
				}
				time.Sleep(100 * time.Millisecond)
				continue
			}

			commit, procErr := p.handleMessage(p.ctx, msg, req, err)
			if procErr != nil {
				p.logger.ErrorContext(p.ctx, procErr,
					logger.Field{Key: "action", Value: "process_order"},
					logger.Field{Key: "offset", Value: msg.Offset},
				)
			}
			if !commit {
				continue
			}
			if err := p.deps.Reader.CommitMessages(p.ctx, msg); err != nil {
				p.logger.ErrorContext(p.ctx, err, logger.Field{Key: "action", Value: "commit_order_message"})
			}
		}
	}
}

// handleMessage applies one intake message and reports whether it may be
// committed. Malformed, replayed and rejected messages are committed; a
// message whose trades could not be journaled is not.
func (p *Pipeline) handleMessage(ctx context.Context, msg kafka.Message, req orderreaderv1.OrderRequest, readErr error) (bool, error) {
	if readErr != nil {
		metrics.IntakeTotal.WithLabelValues("malformed").Inc()
		p.logger.WarnContext(ctx, "Skipping malformed order message",
			logger.Field{Key: "offset", Value: msg.Offset},
			logger.Field{Key: "error", Value: readErr.Error()},
		)
		return true, nil
	}

	if p.replayed(req.Instrument, msg.Offset) {
		metrics.IntakeTotal.WithLabelValues("replayed").Inc()
		return true, nil
	}

	ctx = util.WithMemberID(util.WithRequestID(ctx, req.OrderID), req.MemberID)

	var err error
	switch req.Action {
	case orderreaderv1.ActionCancel:
		_, err = p.deps.Matching.CancelAt(ctx, req.Instrument, req.OrderID, msg.Offset)
		if stderrors.Is(err, orderbookv1.ErrOrderNotFound) {
			p.logger.InfoContext(ctx, "Cancel of unknown order", logger.Field{Key: "orderID", Value: req.OrderID})
			err = nil
		}
	default:
		_, err = p.submit(ctx, req.ToOrder(p.opts.Clock()), msg.Offset)
	}

	switch {
	case err == nil:
		metrics.IntakeTotal.WithLabelValues("processed").Inc()
		return true, nil
	case orderbookv1.IsRejection(err):
		metrics.IntakeTotal.WithLabelValues("rejected").Inc()
		p.logger.InfoContext(ctx, "Order rejected",
			logger.Field{Key: "orderID", Value: req.OrderID},
			logger.Field{Key: "reason", Value: err.Error()},
		)
		return true, nil
	default:
		metrics.IntakeTotal.WithLabelValues("failed").Inc()
		return false, err
	}
}

func (p *Pipeline) replayed(instrument string, offset int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	applied, ok := p.applied[instrument]
	return ok && applied >= 0 && offset <= applied
}

// Submit matches order and clears its trades. It returns once the trades are
// journaled and novated.
func (p *Pipeline) Submit(ctx context.Context, order *orderbookv1.Order) (*orderbookv1.SubmitResult, error) {
	return p.submit(ctx, order, -1)
}

func (p *Pipeline) submit(ctx context.Context, order *orderbookv1.Order, offset int64) (*orderbookv1.SubmitResult, error) {
	result, err := p.deps.Matching.SubmitAt(ctx, order, offset)
	if result == nil || len(result.Trades) == 0 {
		return result, err
	}
	if clearErr := p.handleTrades(ctx, result.Trades); clearErr != nil {
		return result, stderrors.Join(err, clearErr)
	}
	return result, err
}

// handleTrades journals trades, then novates and nets each one, records its
// price and publishes the events. Only a journal failure is returned: a
// journaled trade that fails to clear is retried on the next recovery.
func (p *Pipeline) handleTrades(ctx context.Context, trades []orderbookv1.Trade) error {
	if err := p.journal(ctx, trades); err != nil {
		return err
	}

	events := make([]tradepublisherv1.TradeEvent, 0, len(trades))
	for _, trade := range trades {
		exposures, err := p.clear(ctx, trade)
		if err != nil {
			p.logger.ErrorContext(ctx, err, logger.Field{Key: "tradeID", Value: trade.ID})
			continue
		}

		if p.deps.Prices != nil {
			if err := p.deps.Prices.Record(ctx, trade.Instrument, trade.Price, trade.ExecutedAt); err != nil {
				p.logger.WarnContext(ctx, "Failed to record price",
					logger.Field{Key: "tradeID", Value: trade.ID},
					logger.Field{Key: "error", Value: err.Error()},
				)
			}
		}
		if exposures != nil {
			events = append(events, tradepublisherv1.TradeEvent{Trade: trade, Exposures: exposures})
		}
	}

	if p.deps.Publisher != nil && len(events) > 0 {
		if err := p.deps.Publisher.Publish(ctx, events...); err != nil {
			p.logger.ErrorContext(ctx, err, logger.Field{Key: "action", Value: "publish_trades"})
		}
	}
	return nil
}

func (p *Pipeline) journal(ctx context.Context, trades []orderbookv1.Trade) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.opts.RetryInterval

	op := func() error {
		return p.deps.Journal.Append(ctx, trades...)
	}
	notify := func(err error, wait time.Duration) {
		p.logger.WarnContext(ctx, "Retrying trade journal",
			logger.Field{Key: "trades", Value: len(trades)},
			logger.Field{Key: "wait", Value: wait.String()},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, p.opts.JournalRetries), ctx), notify); err != nil {
		return errors.NewTracer("journal trades").Wrap(err)
	}
	return nil
}

// clear novates trade into the cycle of its settlement date. A trade whose
// cycle already closed moves to the next open cycle. A trade novated before
// returns nil exposures and no error.
func (p *Pipeline) clear(ctx context.Context, trade orderbookv1.Trade) ([]novationv1.NovatedExposure, error) {
	for {
		reservation, err := p.deps.Netting.Reserve(trade.SettlementDate)
		if stderrors.Is(err, nettingv1.ErrCycleClosed) {
			next := p.deps.Netting.NextOpenDate(trade.SettlementDate)
			p.logger.InfoContext(ctx, "Late trade moved to next cycle",
				logger.Field{Key: "tradeID", Value: trade.ID},
				logger.Field{Key: "from", Value: util.DayKey(trade.SettlementDate)},
				logger.Field{Key: "to", Value: util.DayKey(next)},
			)
			trade.SettlementDate = next
			continue
		}
		if err != nil {
			return nil, errors.NewTracer("reserve netting cycle").Wrap(err)
		}

		exposures, err := p.novateAndNet(ctx, reservation, trade)
		reservation.Release()
		return exposures, err
	}
}

func (p *Pipeline) novateAndNet(ctx context.Context, reservation *netting.Reservation, trade orderbookv1.Trade) ([]novationv1.NovatedExposure, error) {
	buyer, seller, err := p.deps.Novation.Novate(ctx, trade)
	if stderrors.Is(err, novationv1.ErrAlreadyNovated) {
		p.logger.DebugContext(ctx, "Trade already novated", logger.Field{Key: "tradeID", Value: trade.ID})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := reservation.Add(ctx, buyer, seller); err != nil {
		return nil, errors.NewTracer("add exposures of " + trade.ID).Wrap(err)
	}
	return []novationv1.NovatedExposure{buyer, seller}, nil
}
