package orderbook

import (
	"errors"
	"fmt"
	"testing"
	"time"

	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testNow = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

func newTestBook(policy orderbookv1.SelfMatchPolicy) *Orderbook {
	return NewOrderbook(Options{
		Instrument: orderbookv1.Instrument{Symbol: "COPPER", Currency: "USD", SettlementLagDays: 2},
		SelfMatch:  policy,
		Clock:      func() time.Time { return testNow },
	})
}

func limitOrder(id, member string, side orderbookv1.Side, tif orderbookv1.TimeInForce, qty, price int64) *orderbookv1.Order {
	o := orderbookv1.NewOrder(member, "COPPER", side, orderbookv1.OrderTypeLimit, tif,
		decimal.NewFromInt(qty), decimal.NewFromInt(price))
	o.ID = id
	return o
}

func marketOrder(id, member string, side orderbookv1.Side, qty int64) *orderbookv1.Order {
	o := orderbookv1.NewOrder(member, "COPPER", side, orderbookv1.OrderTypeMarket, orderbookv1.IOC,
		decimal.NewFromInt(qty), decimal.Zero)
	o.ID = id
	return o
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestOrderbook_CopperExample(t *testing.T) {
	ob := newTestBook(orderbookv1.SelfMatchReject)

	_, err := ob.Submit(limitOrder("s1", "B", orderbookv1.SideSell, orderbookv1.GTC, 50, 8500))
	require.NoError(t, err)

	result, err := ob.Submit(limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 30, 8550))
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.Len(t, result.Trades, 1)

	trade := result.Trades[0]
	assert.True(t, trade.Quantity.Equal(dec(30)))
	assert.True(t, trade.Price.Equal(dec(8500)))
	assert.Equal(t, "A", trade.BuyerID)
	assert.Equal(t, "B", trade.SellerID)
	assert.Equal(t, orderbookv1.SideBuy, trade.Aggressor)
	assert.Equal(t, "COPPER-T000000000001", trade.ID)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), trade.SettlementDate)
	assert.Equal(t, orderbookv1.OrderStatusFilled, result.Order.Status)

	resting, ok := ob.Order("s1")
	require.True(t, ok)
	assert.True(t, resting.Remaining.Equal(dec(20)))
	assert.Equal(t, orderbookv1.OrderStatusPartiallyFilled, resting.Status)

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(dec(8500)))
	_, ok = ob.BestBid()
	assert.False(t, ok)
}

func TestOrderbook_Submit(t *testing.T) {
	testCases := []struct {
		name     string
		policy   orderbookv1.SelfMatchPolicy
		resting  []*orderbookv1.Order
		incoming *orderbookv1.Order
		assertFn func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error)
	}{
		{
			name: "rests when nothing crosses",
			resting: []*orderbookv1.Order{
				limitOrder("s1", "B", orderbookv1.SideSell, orderbookv1.GTC, 10, 8600),
			},
			incoming: limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 10, 8500),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				require.NoError(t, err)
				assert.Empty(t, result.Trades)
				assert.Equal(t, orderbookv1.OrderStatusOpen, result.Order.Status)
				bid, ok := ob.BestBid()
				require.True(t, ok)
				assert.True(t, bid.Equal(dec(8500)))
			},
		},
		{
			name: "walks levels in price order and stops at the limit",
			resting: []*orderbookv1.Order{
				limitOrder("s1", "B", orderbookv1.SideSell, orderbookv1.GTC, 5, 8500),
				limitOrder("s2", "C", orderbookv1.SideSell, orderbookv1.GTC, 3, 8510),
				limitOrder("s3", "D", orderbookv1.SideSell, orderbookv1.GTC, 7, 8600),
			},
			incoming: limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 12, 8550),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				require.NoError(t, err)
				require.Len(t, result.Trades, 2)
				assert.True(t, result.Trades[0].Price.Equal(dec(8500)))
				assert.True(t, result.Trades[1].Price.Equal(dec(8510)))
				assert.Equal(t, orderbookv1.OrderStatusPartiallyFilled, result.Order.Status)
				assert.True(t, result.Order.Remaining.Equal(dec(4)))

				bid, _ := ob.BestBid()
				ask, _ := ob.BestAsk()
				assert.True(t, bid.Equal(dec(8550)))
				assert.True(t, ask.Equal(dec(8600)))
			},
		},
		{
			name: "time priority within a level",
			resting: []*orderbookv1.Order{
				limitOrder("b1", "B", orderbookv1.SideBuy, orderbookv1.GTC, 5, 8500),
				limitOrder("b2", "C", orderbookv1.SideBuy, orderbookv1.GTC, 5, 8500),
			},
			incoming: limitOrder("s1", "A", orderbookv1.SideSell, orderbookv1.GTC, 6, 8400),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				require.NoError(t, err)
				require.Len(t, result.Trades, 2)
				assert.Equal(t, "b1", result.Trades[0].BuyOrderID)
				assert.True(t, result.Trades[0].Quantity.Equal(dec(5)))
				assert.Equal(t, "b2", result.Trades[1].BuyOrderID)
				assert.True(t, result.Trades[1].Quantity.Equal(dec(1)))
				assert.True(t, result.Trades[1].Price.Equal(dec(8500)))
				assert.Equal(t, orderbookv1.SideSell, result.Trades[0].Aggressor)

				_, stillThere := ob.Order("b1")
				assert.False(t, stillThere)
				b2, ok := ob.Order("b2")
				require.True(t, ok)
				assert.True(t, b2.Remaining.Equal(dec(4)))
			},
		},
		{
			name: "market order cancels unfilled remainder",
			resting: []*orderbookv1.Order{
				limitOrder("s1", "B", orderbookv1.SideSell, orderbookv1.GTC, 4, 8500),
			},
			incoming: marketOrder("b1", "A", orderbookv1.SideBuy, 10),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				require.NoError(t, err)
				require.Len(t, result.Trades, 1)
				assert.Equal(t, orderbookv1.OrderStatusCancelled, result.Order.Status)
				assert.True(t, result.Order.Remaining.Equal(dec(6)))
				assert.Empty(t, ob.Depth(orderbookv1.SideBuy))
				assert.Empty(t, ob.Depth(orderbookv1.SideSell))
			},
		},
		{
			name:     "market order on empty book is accepted and cancelled",
			incoming: marketOrder("b1", "A", orderbookv1.SideBuy, 10),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				require.NoError(t, err)
				assert.True(t, result.Accepted)
				assert.Empty(t, result.Trades)
				assert.Equal(t, orderbookv1.OrderStatusCancelled, result.Order.Status)
			},
		},
		{
			name: "IOC limit never rests",
			resting: []*orderbookv1.Order{
				limitOrder("s1", "B", orderbookv1.SideSell, orderbookv1.GTC, 4, 8500),
			},
			incoming: limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.IOC, 10, 8500),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				require.NoError(t, err)
				require.Len(t, result.Trades, 1)
				assert.Equal(t, orderbookv1.OrderStatusCancelled, result.Order.Status)
				_, ok := ob.BestBid()
				assert.False(t, ok)
			},
		},
		{
			name: "FOK rejected without touching the book",
			resting: []*orderbookv1.Order{
				limitOrder("s1", "B", orderbookv1.SideSell, orderbookv1.GTC, 4, 8500),
				limitOrder("s2", "C", orderbookv1.SideSell, orderbookv1.GTC, 4, 8600),
			},
			incoming: limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.FOK, 6, 8550),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				assert.ErrorIs(t, err, orderbookv1.ErrFillOrKillUnfillable)
				assert.False(t, result.Accepted)
				assert.Equal(t, orderbookv1.OrderStatusRejected, result.Order.Status)
				s1, ok := ob.Order("s1")
				require.True(t, ok)
				assert.True(t, s1.Remaining.Equal(dec(4)))
				assert.Len(t, ob.Depth(orderbookv1.SideSell), 2)
			},
		},
		{
			name: "FOK fills completely across levels",
			resting: []*orderbookv1.Order{
				limitOrder("s1", "B", orderbookv1.SideSell, orderbookv1.GTC, 4, 8500),
				limitOrder("s2", "C", orderbookv1.SideSell, orderbookv1.GTC, 4, 8600),
			},
			incoming: limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.FOK, 6, 8600),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				require.NoError(t, err)
				assert.Len(t, result.Trades, 2)
				assert.Equal(t, orderbookv1.OrderStatusFilled, result.Order.Status)
			},
		},
		{
			name:   "self match rejected under reject policy",
			policy: orderbookv1.SelfMatchReject,
			resting: []*orderbookv1.Order{
				limitOrder("s1", "A", orderbookv1.SideSell, orderbookv1.GTC, 4, 8500),
			},
			incoming: limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 4, 8500),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				assert.ErrorIs(t, err, orderbookv1.ErrSelfMatch)
				assert.Equal(t, orderbookv1.OrderStatusRejected, result.Order.Status)
				assert.Len(t, ob.Depth(orderbookv1.SideSell), 1)
				assert.Empty(t, ob.Depth(orderbookv1.SideBuy))
			},
		},
		{
			name:   "self match allowed under allow policy",
			policy: orderbookv1.SelfMatchAllow,
			resting: []*orderbookv1.Order{
				limitOrder("s1", "A", orderbookv1.SideSell, orderbookv1.GTC, 4, 8500),
			},
			incoming: limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 4, 8500),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				require.NoError(t, err)
				require.Len(t, result.Trades, 1)
				assert.Equal(t, "A", result.Trades[0].BuyerID)
				assert.Equal(t, "A", result.Trades[0].SellerID)
			},
		},
		{
			name: "duplicate order id rejected",
			resting: []*orderbookv1.Order{
				limitOrder("o1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 4, 8400),
			},
			incoming: limitOrder("o1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 4, 8400),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				assert.ErrorIs(t, err, orderbookv1.ErrDuplicateOrder)
				assert.Len(t, ob.Depth(orderbookv1.SideBuy), 1)
			},
		},
		{
			name: "id of a filled order rejected",
			resting: []*orderbookv1.Order{
				limitOrder("s1", "B", orderbookv1.SideSell, orderbookv1.GTC, 4, 8400),
				limitOrder("o1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 4, 8400),
			},
			incoming: limitOrder("o1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 4, 8400),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				assert.ErrorIs(t, err, orderbookv1.ErrDuplicateOrder)
				assert.Empty(t, ob.Depth(orderbookv1.SideBuy))
			},
		},
		{
			name: "id of a cancelled IOC remainder rejected",
			resting: []*orderbookv1.Order{
				limitOrder("o1", "A", orderbookv1.SideBuy, orderbookv1.IOC, 4, 8400),
			},
			incoming: limitOrder("o1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 4, 8400),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				assert.ErrorIs(t, err, orderbookv1.ErrDuplicateOrder)
				assert.Equal(t, orderbookv1.OrderStatusRejected, result.Order.Status)
			},
		},
		{
			name:     "non-positive quantity rejected",
			incoming: limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 0, 8400),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				assert.ErrorIs(t, err, orderbookv1.ErrInvalidQuantity)
				assert.True(t, orderbookv1.IsRejection(err))
			},
		},
		{
			name: "wrong instrument rejected",
			incoming: func() *orderbookv1.Order {
				o := limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 1, 8400)
				o.Instrument = "ZINC"
				return o
			}(),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				assert.ErrorIs(t, err, orderbookv1.ErrWrongInstrument)
			},
		},
		{
			name: "DAY order expires at next midnight",
			incoming: limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.DAY, 1, 8400),
			assertFn: func(t *testing.T, ob *Orderbook, result *orderbookv1.SubmitResult, err error) {
				require.NoError(t, err)
				require.NotNil(t, result.Order.ExpiresAt)
				assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), *result.Order.ExpiresAt)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			policy := tc.policy
			if policy == "" {
				policy = orderbookv1.SelfMatchReject
			}
			ob := newTestBook(policy)
			for _, o := range tc.resting {
				_, err := ob.Submit(o)
				require.NoError(t, err)
			}
			result, err := ob.Submit(tc.incoming)
			tc.assertFn(t, ob, result, err)
		})
	}
}

func TestOrderbook_Halt(t *testing.T) {
	ob := newTestBook(orderbookv1.SelfMatchReject)
	_, err := ob.Submit(limitOrder("b1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 1, 8400))
	require.NoError(t, err)

	ob.Halt()
	assert.True(t, ob.Halted())

	_, err = ob.Submit(limitOrder("b2", "A", orderbookv1.SideBuy, orderbookv1.GTC, 1, 8400))
	assert.ErrorIs(t, err, orderbookv1.ErrInstrumentHalted)

	cancelled, err := ob.Cancel("b1")
	require.NoError(t, err)
	assert.Equal(t, orderbookv1.OrderStatusCancelled, cancelled.Status)

	ob.Resume()
	_, err = ob.Submit(limitOrder("b2", "A", orderbookv1.SideBuy, orderbookv1.GTC, 1, 8400))
	assert.NoError(t, err)
}

func TestOrderbook_Cancel(t *testing.T) {
	ob := newTestBook(orderbookv1.SelfMatchReject)
	_, err := ob.Submit(limitOrder("s1", "B", orderbookv1.SideSell, orderbookv1.GTC, 3, 8500))
	require.NoError(t, err)
	_, err = ob.Submit(limitOrder("s2", "C", orderbookv1.SideSell, orderbookv1.GTC, 4, 8500))
	require.NoError(t, err)

	_, err = ob.Cancel("s1")
	require.NoError(t, err)

	depth := ob.Depth(orderbookv1.SideSell)
	require.Len(t, depth, 1)
	assert.True(t, depth[0].Volume.Equal(dec(4)))
	assert.Equal(t, 1, depth[0].Orders)

	_, err = ob.Cancel("s1")
	assert.ErrorIs(t, err, orderbookv1.ErrOrderNotFound)

	// A cancelled id cannot come back.
	_, err = ob.Submit(limitOrder("s1", "B", orderbookv1.SideSell, orderbookv1.GTC, 3, 8500))
	assert.ErrorIs(t, err, orderbookv1.ErrDuplicateOrder)

	_, err = ob.Cancel("s2")
	require.NoError(t, err)
	assert.Empty(t, ob.Depth(orderbookv1.SideSell))
}

func TestOrderbook_Expire(t *testing.T) {
	ob := newTestBook(orderbookv1.SelfMatchReject)
	_, err := ob.Submit(limitOrder("d1", "A", orderbookv1.SideBuy, orderbookv1.DAY, 1, 8400))
	require.NoError(t, err)
	_, err = ob.Submit(limitOrder("g1", "A", orderbookv1.SideBuy, orderbookv1.GTC, 1, 8400))
	require.NoError(t, err)

	assert.Empty(t, ob.Expire(testNow.Add(time.Hour)))

	expired := ob.Expire(testNow.Add(24 * time.Hour))
	require.Len(t, expired, 1)
	assert.Equal(t, "d1", expired[0].ID)
	assert.Equal(t, orderbookv1.OrderStatusExpired, expired[0].Status)

	depth := ob.Depth(orderbookv1.SideBuy)
	require.Len(t, depth, 1)
	assert.Equal(t, 1, depth[0].Orders)
}

func TestOrderbook_SnapshotRestore(t *testing.T) {
	ob := newTestBook(orderbookv1.SelfMatchReject)
	for i, price := range []int64{8400, 8400, 8300} {
		_, err := ob.Submit(limitOrder(fmt.Sprintf("b%d", i), fmt.Sprintf("M%d", i), orderbookv1.SideBuy, orderbookv1.GTC, 5, price))
		require.NoError(t, err)
	}
	_, err := ob.Submit(limitOrder("s1", "X", orderbookv1.SideSell, orderbookv1.GTC, 5, 8600))
	require.NoError(t, err)
	_, err = ob.Submit(limitOrder("s2", "Y", orderbookv1.SideSell, orderbookv1.IOC, 2, 8400))
	require.NoError(t, err)
	ob.SetOffset(41)

	snap := ob.Snapshot()
	assert.Equal(t, int64(41), snap.OrderOffset)
	assert.Equal(t, int64(1), snap.TradeSequence)
	assert.Equal(t, int64(5), snap.OrderSequence)
	require.Len(t, snap.Orders, 4)
	assert.Equal(t, "b0", snap.Orders[0].OrderID)

	restored := newTestBook(orderbookv1.SelfMatchReject)
	require.NoError(t, restored.Restore(snap))

	assert.Equal(t, ob.Depth(orderbookv1.SideBuy), restored.Depth(orderbookv1.SideBuy))
	assert.Equal(t, ob.Depth(orderbookv1.SideSell), restored.Depth(orderbookv1.SideSell))
	assert.Equal(t, int64(41), restored.Offset())

	// s2 traded out before the snapshot and stays used.
	assert.Equal(t, []string{"s2"}, snap.SeenOrderIDs)
	_, err = restored.Submit(limitOrder("s2", "Y", orderbookv1.SideSell, orderbookv1.GTC, 1, 8600))
	assert.ErrorIs(t, err, orderbookv1.ErrDuplicateOrder)
	_, err = restored.Submit(limitOrder("b1", "M1", orderbookv1.SideBuy, orderbookv1.GTC, 1, 8300))
	assert.ErrorIs(t, err, orderbookv1.ErrDuplicateOrder)

	// The next trade continues the sequence so ids never repeat.
	result, err := restored.Submit(limitOrder("s3", "Z", orderbookv1.SideSell, orderbookv1.GTC, 1, 8400))
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, "COPPER-T000000000002", result.Trades[0].ID)
	assert.Equal(t, "b0", result.Trades[0].BuyOrderID)
	assert.Equal(t, int64(6), result.Order.Sequence)
}

func TestOrderbook_RestoreWrongInstrument(t *testing.T) {
	ob := newTestBook(orderbookv1.SelfMatchReject)
	snap := ob.Snapshot()
	snap.Instrument = "ZINC"

	err := ob.Restore(snap)
	assert.ErrorIs(t, err, orderbookv1.ErrWrongInstrument)
}

func TestOrderbook_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := newTestBook(orderbookv1.SelfMatchAllow)
		submitted := map[string]*orderbookv1.Order{}
		filled := map[string]decimal.Decimal{}

		n := rapid.IntRange(1, 60).Draw(t, "orders")
		for i := 0; i < n; i++ {
			side := rapid.SampledFrom([]orderbookv1.Side{orderbookv1.SideBuy, orderbookv1.SideSell}).Draw(t, "side")
			tif := rapid.SampledFrom([]orderbookv1.TimeInForce{orderbookv1.GTC, orderbookv1.IOC, orderbookv1.FOK}).Draw(t, "tif")
			qty := int64(rapid.IntRange(1, 20).Draw(t, "qty"))
			price := int64(rapid.IntRange(95, 105).Draw(t, "price"))
			member := rapid.SampledFrom([]string{"A", "B", "C"}).Draw(t, "member")

			var order *orderbookv1.Order
			if rapid.IntRange(0, 9).Draw(t, "kind") == 0 {
				order = marketOrder(fmt.Sprintf("o%d", i), member, side, qty)
			} else {
				order = limitOrder(fmt.Sprintf("o%d", i), member, side, tif, qty, price)
			}

			result, err := ob.Submit(order)
			if err != nil {
				if !errors.Is(err, orderbookv1.ErrFillOrKillUnfillable) {
					t.Fatalf("unexpected rejection: %v", err)
				}
				continue
			}
			submitted[order.ID] = order

			last := decimal.Zero
			for j, trade := range result.Trades {
				if !order.Accepts(trade.Price) {
					t.Fatalf("trade at %s outside limit %s", trade.Price, order.Price)
				}
				if j > 0 {
					improving := trade.Price.GreaterThanOrEqual(last)
					if !order.IsBuy() {
						improving = trade.Price.LessThanOrEqual(last)
					}
					if !improving {
						t.Fatalf("fills out of price priority: %s after %s", trade.Price, last)
					}
				}
				last = trade.Price
				filled[trade.BuyOrderID] = filled[trade.BuyOrderID].Add(trade.Quantity)
				filled[trade.SellOrderID] = filled[trade.SellOrderID].Add(trade.Quantity)
			}

			if ob.Crossed() {
				t.Fatalf("book crossed after %s", order.ID)
			}
		}

		for id, order := range submitted {
			if !order.Filled().Equal(filled[id]) {
				t.Fatalf("order %s filled %s but trades sum to %s", id, order.Filled(), filled[id])
			}
			if order.Remaining.IsNegative() {
				t.Fatalf("order %s overfilled", id)
			}
		}
	})
}
