package netting

import (
	"context"
	"fmt"
	"sort"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	novationv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/novation/v1"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	"github.com/oklog/ulid/v2"
)

const priceScale = 8

// OpenPositions returns the member's positions from trades whose cycle has
// not settled yet.
func (e *Engine) OpenPositions(memberID string) []nettingv1.Position {
	return e.AllOpenPositions()[memberID]
}

// AllOpenPositions returns a snapshot of every member's open positions.
func (e *Engine) AllOpenPositions() map[string][]nettingv1.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	type key struct{ member, instrument string }
	agg := make(map[key]*nettingv1.Position)

	for _, c := range e.cycles {
		if c.status == nettingv1.CycleSettled {
			continue
		}
		for _, x := range c.exposures {
			if !x.Kind.OpensPosition() || x.MemberID == e.ccpAccount {
				continue
			}
			k := key{x.MemberID, x.Instrument}
			p, ok := agg[k]
			if !ok {
				p = &nettingv1.Position{MemberID: x.MemberID, Instrument: x.Instrument, Currency: x.Currency}
				agg[k] = p
			}
			p.Quantity = p.Quantity.Add(x.SignedQuantity())
			p.Cost = p.Cost.Add(x.SignedAmount())
		}
	}

	out := make(map[string][]nettingv1.Position)
	for _, p := range agg {
		if p.Quantity.IsZero() && p.Cost.IsZero() {
			continue
		}
		out[p.MemberID] = append(out[p.MemberID], *p)
	}
	for member := range out {
		sort.Slice(out[member], func(i, j int) bool { return out[member][i].Instrument < out[member][j].Instrument })
	}
	return out
}

// TransferPositions moves every open position of from to to at cost. Both
// sides are booked into the next open cycle so it still nets to zero.
func (e *Engine) TransferPositions(ctx context.Context, from, to string) error {
	positions := e.OpenPositions(from)
	if len(positions) == 0 {
		return nil
	}

	reservation, err := e.reserveNextOpen(util.TruncateDay(e.clock()))
	if err != nil {
		return errors.NewTracer("reserve transfer cycle").Wrap(err)
	}
	defer reservation.Release()
	date := reservation.Date()

	tradeID := fmt.Sprintf("transfer-%s-%s-%s", from, to, ulid.Make().String())
	now := e.clock()
	var exposures []novationv1.NovatedExposure

	for _, p := range positions {
		if p.Quantity.IsZero() {
			continue
		}
		qty := p.Quantity.Abs()
		cost := p.Cost.Abs()
		price := cost.DivRound(qty, priceScale)

		// The defaulter closes out at cost, the winner takes the same side.
		closing := novationv1.NovatedExposure{
			ID:             fmt.Sprintf("%s-%s-%s", tradeID, p.Instrument, from),
			TradeID:        tradeID,
			Kind:           novationv1.KindTransfer,
			MemberID:       from,
			Counterparty:   e.ccpAccount,
			Instrument:     p.Instrument,
			Quantity:       qty,
			Price:          price,
			Amount:         cost,
			Currency:       p.Currency,
			SettlementDate: date,
			CreatedAt:      now,
		}
		opening := closing
		opening.ID = fmt.Sprintf("%s-%s-%s", tradeID, p.Instrument, to)
		opening.MemberID = to

		if p.Quantity.IsPositive() {
			closing.Side, closing.Direction = orderbookv1.SideSell, novationv1.Receivable
			opening.Side, opening.Direction = orderbookv1.SideBuy, novationv1.Payable
		} else {
			closing.Side, closing.Direction = orderbookv1.SideBuy, novationv1.Payable
			opening.Side, opening.Direction = orderbookv1.SideSell, novationv1.Receivable
		}
		if p.Cost.IsNegative() != p.Quantity.IsNegative() {
			// Short positions opened at a credit flip the cash direction.
			closing.Direction, opening.Direction = opening.Direction, closing.Direction
		}
		exposures = append(exposures, closing, opening)
	}
	if len(exposures) == 0 {
		return nil
	}

	if err := e.store.Record(ctx, exposures...); err != nil {
		return errors.NewTracer("record position transfer").Wrap(err)
	}
	if err := reservation.Add(ctx, exposures...); err != nil {
		return errors.NewTracer("add position transfer").Wrap(err)
	}

	e.logger.InfoContext(ctx, "positions transferred",
		logger.Field{Key: "from", Value: from},
		logger.Field{Key: "to", Value: to},
		logger.Field{Key: "positions", Value: len(positions)},
		logger.Field{Key: "settlementDate", Value: util.DayKey(date)},
	)
	return nil
}
