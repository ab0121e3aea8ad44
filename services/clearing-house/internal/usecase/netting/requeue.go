package netting

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	novationv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/novation/v1"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/metrics"
	"github.com/shopspring/decimal"
)

const maxReserveAttempts = 8

// Requeue carries a rolled-back obligation into the next open cycle after its
// own. Every member entry is mirrored by the CCP account so the target cycle
// still nets to zero.
func (e *Engine) Requeue(ctx context.Context, obligation nettingv1.NetObligation, reason string) error {
	if obligation.IsZero() {
		return nil
	}

	reservation, err := e.reserveNextOpen(util.AddDays(obligation.SettlementDate, 1))
	if err != nil {
		return errors.NewTracer("reserve requeue cycle").Wrap(err)
	}
	defer reservation.Release()

	date := reservation.Date()
	exposures := e.requeueExposures(obligation, date)
	if err := e.store.Record(ctx, exposures...); err != nil {
		if !stderrors.Is(err, novationv1.ErrAlreadyNovated) {
			return errors.NewTracer("record requeued obligation").Wrap(err)
		}
		return nil
	}
	if err := reservation.Add(ctx, exposures...); err != nil {
		return errors.NewTracer("add requeued obligation").Wrap(err)
	}

	metrics.ExposuresTotal.WithLabelValues(string(novationv1.KindRequeue)).Add(float64(len(exposures)))
	e.logger.WarnContext(ctx, "obligation requeued",
		logger.Field{Key: "obligationID", Value: obligation.ID},
		logger.Field{Key: "memberID", Value: obligation.MemberID},
		logger.Field{Key: "settlementDate", Value: util.DayKey(date)},
		logger.Field{Key: "reason", Value: reason},
	)
	return nil
}

func (e *Engine) reserveNextOpen(from time.Time) (*Reservation, error) {
	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		date := e.NextOpenDate(from)
		reservation, err := e.Reserve(date)
		if err == nil {
			return reservation, nil
		}
		if !stderrors.Is(err, nettingv1.ErrCycleClosed) {
			return nil, err
		}
		from = date
	}
	return nil, nettingv1.ErrCycleClosed
}

func (e *Engine) requeueExposures(obligation nettingv1.NetObligation, date time.Time) []novationv1.NovatedExposure {
	tradeID := "requeue-" + obligation.ID
	now := e.clock()
	var out []novationv1.NovatedExposure

	mirror := func(x novationv1.NovatedExposure) novationv1.NovatedExposure {
		m := x
		m.ID = x.ID + "-CCP"
		m.MemberID, m.Counterparty = e.ccpAccount, x.MemberID
		m.Side = x.Side.Opposite()
		if x.Direction == novationv1.Payable {
			m.Direction = novationv1.Receivable
		} else {
			m.Direction = novationv1.Payable
		}
		return m
	}

	if !obligation.Amount.IsZero() {
		cash := novationv1.NovatedExposure{
			ID:             tradeID + "-CASH",
			TradeID:        tradeID,
			Kind:           novationv1.KindRequeue,
			MemberID:       obligation.MemberID,
			Counterparty:   e.ccpAccount,
			Side:           orderbookv1.SideBuy,
			Quantity:       decimal.Zero,
			Price:          decimal.Zero,
			Amount:         obligation.Amount.Abs(),
			Currency:       obligation.Currency,
			Direction:      novationv1.Payable,
			SettlementDate: date,
			CreatedAt:      now,
		}
		if obligation.Amount.IsNegative() {
			cash.Direction = novationv1.Receivable
		}
		out = append(out, cash, mirror(cash))
	}

	for _, instrument := range obligation.Instruments() {
		qty := obligation.Deliveries[instrument]
		delivery := novationv1.NovatedExposure{
			ID:             fmt.Sprintf("%s-%s", tradeID, instrument),
			TradeID:        tradeID,
			Kind:           novationv1.KindRequeue,
			MemberID:       obligation.MemberID,
			Counterparty:   e.ccpAccount,
			Instrument:     instrument,
			Side:           orderbookv1.SideBuy,
			Quantity:       qty.Abs(),
			Price:          decimal.Zero,
			Amount:         decimal.Zero,
			Currency:       obligation.Currency,
			Direction:      novationv1.Payable,
			SettlementDate: date,
			CreatedAt:      now,
		}
		if qty.IsPositive() {
			delivery.Side = orderbookv1.SideSell
		}
		out = append(out, delivery, mirror(delivery))
	}

	return out
}
