package orderbook

import (
	"sort"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/util"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

const btreeDegree = 32

// Options configures an Orderbook.
type Options struct {
	Instrument orderbookv1.Instrument
	SelfMatch  orderbookv1.SelfMatchPolicy
	Clock      func() time.Time
}

// Orderbook is the price-time priority book of one instrument. It owns its
// orders and is not safe for concurrent use: the matching engine serializes
// every call through the instrument's worker.
type Orderbook struct {
	instrument orderbookv1.Instrument
	selfMatch  orderbookv1.SelfMatchPolicy
	clock      func() time.Time

	bids   *btree.BTreeG[*orderbookv1.Limit]
	asks   *btree.BTreeG[*orderbookv1.Limit]
	orders map[string]*orderbookv1.Order
	// seen holds the id of every order the book ever accepted.
	seen map[string]struct{}

	tradeSequence int64
	orderSequence int64
	offset        int64
	halted        bool
}

var _ orderbookv1.Orderbook = (*Orderbook)(nil)

// NewOrderbook creates an empty book.
func NewOrderbook(opts Options) *Orderbook {
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	ob := &Orderbook{
		instrument: opts.Instrument,
		selfMatch:  opts.SelfMatch,
		clock:      opts.Clock,
		offset:     -1,
	}
	ob.reset()
	return ob
}

func (ob *Orderbook) reset() {
	ob.bids = btree.NewG(btreeDegree, func(a, b *orderbookv1.Limit) bool {
		return a.Price.GreaterThan(b.Price)
	})
	ob.asks = btree.NewG(btreeDegree, func(a, b *orderbookv1.Limit) bool {
		return a.Price.LessThan(b.Price)
	})
	ob.orders = make(map[string]*orderbookv1.Order)
	ob.seen = make(map[string]struct{})
}

func (ob *Orderbook) side(side orderbookv1.Side) *btree.BTreeG[*orderbookv1.Limit] {
	if side == orderbookv1.SideBuy {
		return ob.bids
	}
	return ob.asks
}

// Instrument returns the book's instrument.
func (ob *Orderbook) Instrument() orderbookv1.Instrument {
	return ob.instrument
}

type fill struct {
	resting  *orderbookv1.Order
	limit    *orderbookv1.Limit
	quantity decimal.Decimal
}

// Submit matches order against the book. Rejected orders leave the book untouched
// and come back with status rejected alongside the reason.
func (ob *Orderbook) Submit(order *orderbookv1.Order) (*orderbookv1.SubmitResult, error) {
	result := &orderbookv1.SubmitResult{Order: order}

	if order.Instrument != ob.instrument.Symbol {
		return ob.reject(result, orderbookv1.ErrWrongInstrument)
	}
	if err := order.Validate(); err != nil {
		return ob.reject(result, err)
	}
	if ob.halted {
		return ob.reject(result, orderbookv1.ErrInstrumentHalted)
	}
	if _, exists := ob.seen[order.ID]; exists {
		return ob.reject(result, orderbookv1.ErrDuplicateOrder)
	}

	fills, planned, err := ob.plan(order)
	if err != nil {
		return ob.reject(result, err)
	}
	if order.TimeInForce == orderbookv1.FOK && planned.LessThan(order.Remaining) {
		return ob.reject(result, orderbookv1.ErrFillOrKillUnfillable)
	}

	now := ob.clock()
	ob.orderSequence++
	order.Sequence = ob.orderSequence
	if order.SubmittedAt.IsZero() {
		order.SubmittedAt = now
	}
	order.Status = orderbookv1.OrderStatusOpen
	ob.seen[order.ID] = struct{}{}

	result.Trades = ob.execute(order, fills, now)
	result.Accepted = true

	switch {
	case order.IsFilled():
		order.Status = orderbookv1.OrderStatusFilled
	case order.Rests():
		ob.rest(order, now)
	default:
		order.Status = orderbookv1.OrderStatusCancelled
	}

	return result, nil
}

func (ob *Orderbook) reject(result *orderbookv1.SubmitResult, reason error) (*orderbookv1.SubmitResult, error) {
	result.Order.Reject(reason)
	return result, reason
}

// plan walks the opposite side from its best level and lists the fills the
// order would make, without touching the book.
func (ob *Orderbook) plan(order *orderbookv1.Order) ([]fill, decimal.Decimal, error) {
	var (
		fills     []fill
		err       error
		remaining = order.Remaining
	)

	ob.side(order.Side.Opposite()).Ascend(func(l *orderbookv1.Limit) bool {
		if !order.Accepts(l.Price) {
			return false
		}
		for _, resting := range l.Orders {
			if !remaining.IsPositive() {
				return false
			}
			if resting.MemberID == order.MemberID && ob.selfMatch != orderbookv1.SelfMatchAllow {
				err = orderbookv1.ErrSelfMatch
				return false
			}
			qty := decimal.Min(remaining, resting.Remaining)
			fills = append(fills, fill{resting: resting, limit: l, quantity: qty})
			remaining = remaining.Sub(qty)
		}
		return remaining.IsPositive()
	})

	return fills, order.Remaining.Sub(remaining), err
}

func (ob *Orderbook) execute(order *orderbookv1.Order, fills []fill, now time.Time) []orderbookv1.Trade {
	trades := make([]orderbookv1.Trade, 0, len(fills))
	opposite := ob.side(order.Side.Opposite())

	for _, f := range fills {
		f.resting.Fill(f.quantity)
		order.Fill(f.quantity)
		f.limit.Consume(f.quantity)

		if f.resting.IsFilled() {
			delete(ob.orders, f.resting.ID)
		}
		if f.limit.IsEmpty() {
			opposite.Delete(f.limit)
		}

		ob.tradeSequence++
		trade := orderbookv1.Trade{
			ID:             orderbookv1.TradeID(ob.instrument.Symbol, ob.tradeSequence),
			Instrument:     ob.instrument.Symbol,
			Quantity:       f.quantity,
			Price:          f.limit.Price,
			Aggressor:      order.Side,
			Sequence:       ob.tradeSequence,
			Currency:       ob.instrument.Currency,
			SettlementDate: ob.instrument.SettlementDate(now),
			ExecutedAt:     now,
		}
		buy, sell := order, f.resting
		if !order.IsBuy() {
			buy, sell = f.resting, order
		}
		trade.BuyOrderID, trade.BuyerID = buy.ID, buy.MemberID
		trade.SellOrderID, trade.SellerID = sell.ID, sell.MemberID

		trades = append(trades, trade)
	}

	return trades
}

func (ob *Orderbook) rest(order *orderbookv1.Order, now time.Time) {
	if order.TimeInForce == orderbookv1.DAY && order.ExpiresAt == nil {
		order.ExpiresAt = util.TimePointer(util.AddDays(util.TruncateDay(now), 1))
	}
	ob.insert(order)
}

func (ob *Orderbook) insert(order *orderbookv1.Order) {
	tree := ob.side(order.Side)
	limit, ok := tree.Get(&orderbookv1.Limit{Price: order.Price})
	if !ok {
		limit = orderbookv1.NewLimit(order.Price)
		tree.ReplaceOrInsert(limit)
	}
	limit.Append(order)
	ob.orders[order.ID] = order
}

func (ob *Orderbook) remove(order *orderbookv1.Order) {
	tree := ob.side(order.Side)
	if limit, ok := tree.Get(&orderbookv1.Limit{Price: order.Price}); ok {
		limit.Remove(order.ID)
		if limit.IsEmpty() {
			tree.Delete(limit)
		}
	}
	delete(ob.orders, order.ID)
}

// Cancel removes a resting order.
func (ob *Orderbook) Cancel(orderID string) (*orderbookv1.Order, error) {
	order, ok := ob.orders[orderID]
	if !ok {
		return nil, orderbookv1.ErrOrderNotFound
	}
	ob.remove(order)
	order.Status = orderbookv1.OrderStatusCancelled
	return order, nil
}

// Expire removes DAY orders whose expiry is at or before now.
func (ob *Orderbook) Expire(now time.Time) []*orderbookv1.Order {
	var expired []*orderbookv1.Order
	for _, order := range ob.orders {
		if order.Expired(now) {
			expired = append(expired, order)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].Sequence < expired[j].Sequence })

	for _, order := range expired {
		ob.remove(order)
		order.Status = orderbookv1.OrderStatusExpired
	}
	return expired
}

// Halt stops the book from accepting new orders.
func (ob *Orderbook) Halt() { ob.halted = true }

// Resume lifts a halt.
func (ob *Orderbook) Resume() { ob.halted = false }

// Halted reports whether the book is halted.
func (ob *Orderbook) Halted() bool { return ob.halted }

// BestBid returns the highest bid price.
func (ob *Orderbook) BestBid() (decimal.Decimal, bool) {
	limit, ok := ob.bids.Min()
	if !ok {
		return decimal.Zero, false
	}
	return limit.Price, true
}

// BestAsk returns the lowest ask price.
func (ob *Orderbook) BestAsk() (decimal.Decimal, bool) {
	limit, ok := ob.asks.Min()
	if !ok {
		return decimal.Zero, false
	}
	return limit.Price, true
}

// Crossed reports whether the best bid is at or above the best ask.
func (ob *Orderbook) Crossed() bool {
	bid, okBid := ob.BestBid()
	ask, okAsk := ob.BestAsk()
	return okBid && okAsk && bid.GreaterThanOrEqual(ask)
}

// Depth returns the levels of one side, best first.
func (ob *Orderbook) Depth(side orderbookv1.Side) []orderbookv1.Level {
	var levels []orderbookv1.Level
	ob.side(side).Ascend(func(l *orderbookv1.Limit) bool {
		levels = append(levels, orderbookv1.Level{Price: l.Price, Volume: l.TotalVolume, Orders: len(l.Orders)})
		return true
	})
	return levels
}

// Order returns a copy of a resting order.
func (ob *Orderbook) Order(orderID string) (*orderbookv1.Order, bool) {
	order, ok := ob.orders[orderID]
	if !ok {
		return nil, false
	}
	return order.Clone(), true
}

// SetOffset records the last intake offset applied to the book.
func (ob *Orderbook) SetOffset(offset int64) {
	if offset > ob.offset {
		ob.offset = offset
	}
}

// Offset returns the last intake offset applied to the book.
func (ob *Orderbook) Offset() int64 {
	return ob.offset
}
