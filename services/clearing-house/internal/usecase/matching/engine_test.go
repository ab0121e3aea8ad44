package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	collaboratorv1_mock "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/collaborator/v1/mock"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	orderbookv1_mock "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1/mock"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

type testFixture struct {
	ctrl     *gomock.Controller
	registry *collaboratorv1_mock.MockMemberRegistry
	gate     *orderbookv1_mock.MockMarginGate
	engine   *Engine
}

func setupTestFixture(t *testing.T) *testFixture {
	ctrl := gomock.NewController(t)
	f := &testFixture{
		ctrl:     ctrl,
		registry: collaboratorv1_mock.NewMockMemberRegistry(ctrl),
		gate:     orderbookv1_mock.NewMockMarginGate(ctrl),
	}
	f.engine = NewEngine(f.registry, f.gate, logger.NewNop(), Options{
		Instruments: []orderbookv1.Instrument{
			{Symbol: "COPPER", Currency: "USD", SettlementLagDays: 2},
			{Symbol: "COBALT", Currency: "USD", SettlementLagDays: 2},
		},
		SelfMatch: orderbookv1.SelfMatchReject,
		Clock:     func() time.Time { return testNow },
	})
	f.engine.Start()
	t.Cleanup(func() {
		_ = f.engine.Stop(context.Background())
	})
	return f
}

func (f *testFixture) allowAll() {
	f.registry.EXPECT().IsEligibleToTrade(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
	f.gate.EXPECT().CanTrade(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
}

func newLimit(member, instrument string, side orderbookv1.Side, qty, price int64) *orderbookv1.Order {
	return orderbookv1.NewOrder(member, instrument, side, orderbookv1.OrderTypeLimit, orderbookv1.GTC,
		decimal.NewFromInt(qty), decimal.NewFromInt(price))
}

func TestEngine_Submit(t *testing.T) {
	testCases := []struct {
		name     string
		mockFn   func(f *testFixture)
		order    *orderbookv1.Order
		assertFn func(t *testing.T, f *testFixture, result *orderbookv1.SubmitResult, err error)
	}{
		{
			name:   "unknown instrument",
			mockFn: func(f *testFixture) {},
			order:  newLimit("A", "GOLD", orderbookv1.SideBuy, 1, 100),
			assertFn: func(t *testing.T, f *testFixture, result *orderbookv1.SubmitResult, err error) {
				assert.ErrorIs(t, err, orderbookv1.ErrUnknownInstrument)
				assert.Equal(t, orderbookv1.OrderStatusRejected, result.Order.Status)
			},
		},
		{
			name: "ineligible member",
			mockFn: func(f *testFixture) {
				f.registry.EXPECT().IsEligibleToTrade(gomock.Any(), "A").Return(false, nil)
			},
			order: newLimit("A", "COPPER", orderbookv1.SideBuy, 1, 8500),
			assertFn: func(t *testing.T, f *testFixture, result *orderbookv1.SubmitResult, err error) {
				assert.ErrorIs(t, err, orderbookv1.ErrMemberIneligible)
				assert.Equal(t, orderbookv1.OrderStatusRejected, result.Order.Status)
			},
		},
		{
			name: "margin gate closed",
			mockFn: func(f *testFixture) {
				f.registry.EXPECT().IsEligibleToTrade(gomock.Any(), "A").Return(true, nil)
				f.gate.EXPECT().CanTrade(gomock.Any(), "A").Return(false, nil)
			},
			order: newLimit("A", "COPPER", orderbookv1.SideBuy, 1, 8500),
			assertFn: func(t *testing.T, f *testFixture, result *orderbookv1.SubmitResult, err error) {
				assert.ErrorIs(t, err, orderbookv1.ErrTradingSuspended)
				assert.True(t, orderbookv1.IsRejection(err))
			},
		},
		{
			name: "registry failure is not a rejection",
			mockFn: func(f *testFixture) {
				f.registry.EXPECT().IsEligibleToTrade(gomock.Any(), "A").Return(false, errors.New("registry down"))
			},
			order: newLimit("A", "COPPER", orderbookv1.SideBuy, 1, 8500),
			assertFn: func(t *testing.T, f *testFixture, result *orderbookv1.SubmitResult, err error) {
				require.Error(t, err)
				assert.False(t, orderbookv1.IsRejection(err))
				assert.Equal(t, orderbookv1.OrderStatusPending, result.Order.Status)
			},
		},
		{
			name:   "accepted order rests",
			mockFn: func(f *testFixture) { f.allowAll() },
			order:  newLimit("A", "COPPER", orderbookv1.SideBuy, 5, 8500),
			assertFn: func(t *testing.T, f *testFixture, result *orderbookv1.SubmitResult, err error) {
				require.NoError(t, err)
				assert.True(t, result.Accepted)
				assert.Equal(t, orderbookv1.OrderStatusOpen, result.Order.Status)

				levels, err := f.engine.Depth(context.Background(), "COPPER", orderbookv1.SideBuy)
				require.NoError(t, err)
				require.Len(t, levels, 1)
				assert.True(t, levels[0].Volume.Equal(decimal.NewFromInt(5)))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)
			tc.mockFn(f)
			result, err := f.engine.Submit(context.Background(), tc.order)
			tc.assertFn(t, f, result, err)
		})
	}
}

func TestEngine_MatchAndCancel(t *testing.T) {
	f := setupTestFixture(t)
	f.allowAll()
	ctx := context.Background()

	sell := newLimit("B", "COPPER", orderbookv1.SideSell, 50, 8500)
	_, err := f.engine.SubmitAt(ctx, sell, 7)
	require.NoError(t, err)

	result, err := f.engine.SubmitAt(ctx, newLimit("A", "COPPER", orderbookv1.SideBuy, 30, 8550), 8)
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.True(t, result.Trades[0].Price.Equal(decimal.NewFromInt(8500)))

	snap, err := f.engine.Snapshot(ctx, "COPPER")
	require.NoError(t, err)
	assert.Equal(t, int64(8), snap.OrderOffset)
	require.Len(t, snap.Orders, 1)
	assert.True(t, snap.Orders[0].Remaining.Equal(decimal.NewFromInt(20)))

	cancelled, err := f.engine.Cancel(ctx, "COPPER", sell.ID)
	require.NoError(t, err)
	assert.Equal(t, orderbookv1.OrderStatusCancelled, cancelled.Status)

	_, err = f.engine.Cancel(ctx, "COPPER", sell.ID)
	assert.ErrorIs(t, err, orderbookv1.ErrOrderNotFound)
}

func TestEngine_HaltResume(t *testing.T) {
	f := setupTestFixture(t)
	f.allowAll()
	ctx := context.Background()

	require.NoError(t, f.engine.Halt(ctx, "COPPER"))
	_, err := f.engine.Submit(ctx, newLimit("A", "COPPER", orderbookv1.SideBuy, 1, 8500))
	assert.ErrorIs(t, err, orderbookv1.ErrInstrumentHalted)

	// Other instruments keep trading.
	_, err = f.engine.Submit(ctx, newLimit("A", "COBALT", orderbookv1.SideBuy, 1, 30000))
	assert.NoError(t, err)

	require.NoError(t, f.engine.Resume(ctx, "COPPER"))
	_, err = f.engine.Submit(ctx, newLimit("A", "COPPER", orderbookv1.SideBuy, 1, 8500))
	assert.NoError(t, err)
}

func TestEngine_RestoreAndExpire(t *testing.T) {
	f := setupTestFixture(t)
	f.allowAll()
	ctx := context.Background()

	day := orderbookv1.NewOrder("A", "COPPER", orderbookv1.SideBuy, orderbookv1.OrderTypeLimit, orderbookv1.DAY,
		decimal.NewFromInt(2), decimal.NewFromInt(8400))
	_, err := f.engine.Submit(ctx, day)
	require.NoError(t, err)

	snap, err := f.engine.Snapshot(ctx, "COPPER")
	require.NoError(t, err)

	other := setupTestFixture(t)
	require.NoError(t, other.engine.Restore(ctx, snap))

	expired, err := other.engine.ExpireAll(ctx, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, expired["COPPER"], 1)
	assert.Equal(t, day.ID, expired["COPPER"][0].ID)
	assert.Equal(t, orderbookv1.OrderStatusExpired, expired["COPPER"][0].Status)

	levels, err := other.engine.Depth(ctx, "COPPER", orderbookv1.SideBuy)
	require.NoError(t, err)
	assert.Empty(t, levels)
}

func TestEngine_ConcurrentSubmit(t *testing.T) {
	f := setupTestFixture(t)
	f.allowAll()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			side := orderbookv1.SideBuy
			if i%2 == 1 {
				side = orderbookv1.SideSell
			}
			_, _ = f.engine.Submit(ctx, newLimit(fmt.Sprintf("M%d", i), "COPPER", side, 1, 8500))
		}(i)
	}
	wg.Wait()

	bids, err := f.engine.Depth(ctx, "COPPER", orderbookv1.SideBuy)
	require.NoError(t, err)
	asks, err := f.engine.Depth(ctx, "COPPER", orderbookv1.SideSell)
	require.NoError(t, err)
	assert.True(t, len(bids) == 0 || len(asks) == 0, "book must never be crossed")
}

func TestEngine_StoppedRejectsWork(t *testing.T) {
	f := setupTestFixture(t)
	f.allowAll()

	require.NoError(t, f.engine.Stop(context.Background()))
	_, err := f.engine.Submit(context.Background(), newLimit("A", "COPPER", orderbookv1.SideBuy, 1, 8500))
	assert.ErrorIs(t, err, orderbookv1.ErrEngineStopped)
}
