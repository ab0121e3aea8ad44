package orderbook

import (
	"fmt"
	"sort"

	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	snapshotv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/snapshot/v1"
)

// Snapshot captures every resting order in priority order along with the
// ids of orders that already left the book.
func (ob *Orderbook) Snapshot() *snapshotv1.Snapshot {
	snap := &snapshotv1.Snapshot{
		Instrument:    ob.instrument.Symbol,
		OrderOffset:   ob.offset,
		TradeSequence: ob.tradeSequence,
		OrderSequence: ob.orderSequence,
		Halted:        ob.halted,
		Orders:        make([]snapshotv1.BookOrder, 0, len(ob.orders)),
		TakenAt:       ob.clock(),
	}

	collect := func(l *orderbookv1.Limit) bool {
		for _, o := range l.Orders {
			snap.Orders = append(snap.Orders, toBookOrder(o))
		}
		return true
	}
	ob.bids.Ascend(collect)
	ob.asks.Ascend(collect)

	for id := range ob.seen {
		if _, resting := ob.orders[id]; !resting {
			snap.SeenOrderIDs = append(snap.SeenOrderIDs, id)
		}
	}
	sort.Strings(snap.SeenOrderIDs)

	return snap
}

// Restore replaces the book's state with snapshot.
func (ob *Orderbook) Restore(snapshot *snapshotv1.Snapshot) error {
	if snapshot == nil {
		return nil
	}
	if snapshot.Instrument != ob.instrument.Symbol {
		return fmt.Errorf("%w: snapshot of %s", orderbookv1.ErrWrongInstrument, snapshot.Instrument)
	}

	orders := make([]*orderbookv1.Order, 0, len(snapshot.Orders))
	for _, bo := range snapshot.Orders {
		o := fromBookOrder(ob.instrument.Symbol, bo)
		if err := o.Validate(); err != nil {
			return fmt.Errorf("restore order %s: %w", bo.OrderID, err)
		}
		orders = append(orders, o)
	}

	ob.reset()
	for _, o := range orders {
		ob.insert(o)
		ob.seen[o.ID] = struct{}{}
	}
	for _, id := range snapshot.SeenOrderIDs {
		ob.seen[id] = struct{}{}
	}
	ob.tradeSequence = snapshot.TradeSequence
	ob.orderSequence = snapshot.OrderSequence
	ob.offset = snapshot.OrderOffset
	ob.halted = snapshot.Halted
	return nil
}

func toBookOrder(o *orderbookv1.Order) snapshotv1.BookOrder {
	return snapshotv1.BookOrder{
		OrderID:     o.ID,
		MemberID:    o.MemberID,
		Side:        string(o.Side),
		Type:        string(o.Type),
		TimeInForce: string(o.TimeInForce),
		Quantity:    o.Quantity,
		Remaining:   o.Remaining,
		Price:       o.Price,
		Sequence:    o.Sequence,
		Status:      string(o.Status),
		SubmittedAt: o.SubmittedAt,
		ExpiresAt:   o.ExpiresAt,
	}
}

func fromBookOrder(instrument string, bo snapshotv1.BookOrder) *orderbookv1.Order {
	return &orderbookv1.Order{
		ID:          bo.OrderID,
		MemberID:    bo.MemberID,
		Instrument:  instrument,
		Side:        orderbookv1.Side(bo.Side),
		Type:        orderbookv1.OrderType(bo.Type),
		TimeInForce: orderbookv1.TimeInForce(bo.TimeInForce),
		Quantity:    bo.Quantity,
		Remaining:   bo.Remaining,
		Price:       bo.Price,
		Sequence:    bo.Sequence,
		Status:      orderbookv1.OrderStatus(bo.Status),
		SubmittedAt: bo.SubmittedAt,
		ExpiresAt:   bo.ExpiresAt,
	}
}
