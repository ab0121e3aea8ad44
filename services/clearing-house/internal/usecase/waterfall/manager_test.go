package waterfall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	marginv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/margin/v1"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	waterfallv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/waterfall/v1"
	waterfallv1_mock "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/waterfall/v1/mock"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)

type testFixture struct {
	cases     *MemoryCaseRepository
	fund      *MemoryFundRepository
	margin    *waterfallv1_mock.MockMarginSeizer
	positions *waterfallv1_mock.MockPositionManager
	manager   *Manager
}

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func seedFund() *waterfallv1.GuaranteeFund {
	return &waterfallv1.GuaranteeFund{
		SkinInTheGame:  d(100000),
		Contributions:  map[string]decimal.Decimal{"D": d(250000), "M1": d(500000), "M2": d(300000)},
		CapitalReserve: d(5000000),
	}
}

func setupTestFixture(t *testing.T) *testFixture {
	ctrl := gomock.NewController(t)
	f := &testFixture{
		cases:     NewMemoryCaseRepository(),
		fund:      NewMemoryFundRepository(seedFund()),
		margin:    waterfallv1_mock.NewMockMarginSeizer(ctrl),
		positions: waterfallv1_mock.NewMockPositionManager(ctrl),
	}
	f.manager = NewManager(f.cases, f.fund, f.margin, f.positions, logger.NewNop(), Options{
		Currency:          "USD",
		MaxVersionRetries: 3,
		Clock:             func() time.Time { return testNow },
	})
	return f
}

func openPosition(member string) []nettingv1.Position {
	return []nettingv1.Position{{MemberID: member, Instrument: "COPPER", Currency: "USD", Quantity: d(30), Cost: d(255000)}}
}

func TestManager_Lifecycle(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.margin.EXPECT().MarkDefaulted(gomock.Any(), "D").Return(nil)
	f.margin.EXPECT().Seize(gomock.Any(), "D").Return(d(300000), nil)

	c, err := f.manager.Declare(ctx, "D", d(900000), "failed to deliver")
	require.NoError(t, err)
	assert.Equal(t, waterfallv1.CaseDeclared, c.Status)
	assert.Equal(t, "USD", c.Currency)

	c, err = f.manager.AllocateLoss(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, waterfallv1.CaseLossAllocation, c.Status)
	assert.True(t, c.Recovered.Equal(d(900000)))
	assert.True(t, c.Unrecovered.IsZero())
	require.Len(t, c.Layers, 5)
	want := []int64{300000, 250000, 100000, 250000, 0}
	for i, app := range c.Layers {
		assert.True(t, app.Utilized.Equal(d(want[i])), "layer %d", i+1)
	}
	assert.True(t, c.Layers[3].Charges["M1"].Equal(d(156250)))

	fund, err := f.fund.Get(ctx)
	require.NoError(t, err)
	assert.True(t, fund.Contribution("D").IsZero())
	assert.True(t, fund.Contribution("M1").Equal(d(343750)))
	assert.True(t, fund.Contribution("M2").Equal(d(206250)))
	assert.True(t, fund.SkinInTheGame.IsZero())

	f.positions.EXPECT().OpenPositions("D").Return(openPosition("D")).Times(2)
	_, err = f.manager.Close(ctx, c.ID)
	assert.ErrorIs(t, err, waterfallv1.ErrOpenPositions)

	c, err = f.manager.OpenAuction(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, waterfallv1.CasePortfolioAuction, c.Status)

	_, err = f.manager.CompleteAuction(ctx, c.ID, "D")
	assert.ErrorIs(t, err, waterfallv1.ErrInvalidTransition)

	f.positions.EXPECT().TransferPositions(gomock.Any(), "D", "W").Return(nil)
	c, err = f.manager.CompleteAuction(ctx, c.ID, "W")
	require.NoError(t, err)
	assert.Equal(t, "W", c.Auction.Winner)

	f.positions.EXPECT().OpenPositions("D").Return(nil)
	c, err = f.manager.Close(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, waterfallv1.CaseClosed, c.Status)
	require.NotNil(t, c.ClosedAt)

	actions := make([]string, 0, len(c.Audit))
	for _, e := range c.Audit {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{
		"declared", "margin_seized",
		"layer_applied", "layer_applied", "layer_applied", "layer_applied",
		"auction_opened", "auction_completed", "closed",
	}, actions)
}

func TestManager_UnrecoveredLossNeedsWriteOff(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.margin.EXPECT().MarkDefaulted(gomock.Any(), "D").Return(nil)
	f.margin.EXPECT().Seize(gomock.Any(), "D").Return(d(300000), nil)
	f.positions.EXPECT().OpenPositions("D").Return(nil).AnyTimes()

	c, err := f.manager.Declare(ctx, "D", d(7000000), "insolvent")
	require.NoError(t, err)
	c, err = f.manager.AllocateLoss(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, c.Unrecovered.Equal(d(550000)))

	_, err = f.manager.OpenAuction(ctx, c.ID)
	assert.ErrorIs(t, err, waterfallv1.ErrNoOpenPositions)

	_, err = f.manager.Close(ctx, c.ID)
	assert.ErrorIs(t, err, waterfallv1.ErrLossNotCovered)

	c, err = f.manager.WriteOff(ctx, c.ID, "board approval 2026-03-05")
	require.NoError(t, err)
	assert.True(t, c.WrittenOff)

	c, err = f.manager.Close(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, waterfallv1.CaseClosed, c.Status)
}

func TestManager_Transitions(t *testing.T) {
	testCases := []struct {
		name     string
		mockFn   func(f *testFixture)
		runFn    func(f *testFixture, id string) error
		assertFn func(t *testing.T, err error)
	}{
		{
			name:   "auction before allocation",
			mockFn: func(f *testFixture) {},
			runFn: func(f *testFixture, id string) error {
				_, err := f.manager.OpenAuction(context.Background(), id)
				return err
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, waterfallv1.ErrInvalidTransition)
			},
		},
		{
			name:   "close before allocation",
			mockFn: func(f *testFixture) {},
			runFn: func(f *testFixture, id string) error {
				_, err := f.manager.Close(context.Background(), id)
				return err
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, waterfallv1.ErrInvalidTransition)
			},
		},
		{
			name: "allocation twice",
			mockFn: func(f *testFixture) {
				f.margin.EXPECT().Seize(gomock.Any(), "D").Return(d(10), nil).Times(1)
			},
			runFn: func(f *testFixture, id string) error {
				if _, err := f.manager.AllocateLoss(context.Background(), id); err != nil {
					return err
				}
				_, err := f.manager.AllocateLoss(context.Background(), id)
				return err
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, waterfallv1.ErrInvalidTransition)
			},
		},
		{
			name: "write off with nothing outstanding",
			mockFn: func(f *testFixture) {
				f.margin.EXPECT().Seize(gomock.Any(), "D").Return(d(1000), nil)
			},
			runFn: func(f *testFixture, id string) error {
				if _, err := f.manager.AllocateLoss(context.Background(), id); err != nil {
					return err
				}
				_, err := f.manager.WriteOff(context.Background(), id, "n/a")
				return err
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, waterfallv1.ErrInvalidTransition)
			},
		},
		{
			name:   "unknown case",
			mockFn: func(f *testFixture) {},
			runFn: func(f *testFixture, id string) error {
				_, err := f.manager.AllocateLoss(context.Background(), "missing")
				return err
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, waterfallv1.ErrCaseNotFound)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.margin.EXPECT().MarkDefaulted(gomock.Any(), "D").Return(nil)
			c, err := f.manager.Declare(context.Background(), "D", d(500), "test")
			require.NoError(t, err)

			tc.mockFn(f)
			tc.assertFn(t, tc.runFn(f, c.ID))
		})
	}
}

func TestManager_HandleMarginDefault(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.margin.EXPECT().OutstandingVariation(gomock.Any(), "D").Return(d(400000), nil).Times(2)
	f.margin.EXPECT().MarkDefaulted(gomock.Any(), "D").Return(nil).Times(1)
	f.margin.EXPECT().Seize(gomock.Any(), "D").Return(d(40000), nil).Times(1)

	// The call asks for initial plus variation margin net of collateral.
	call := marginv1.MarginCall{ID: "call-1", MemberID: "D", Amount: d(460000), Status: marginv1.CallDefaulted}
	require.NoError(t, f.manager.HandleMarginDefault(ctx, call))

	open, err := f.cases.OpenByMember(ctx, "D")
	require.NoError(t, err)
	assert.True(t, open.DeclaredLoss.Equal(d(400000)))
	assert.Equal(t, waterfallv1.CaseLossAllocation, open.Status)
	want := []int64{40000, 250000, 100000, 10000, 0}
	for i, app := range open.Layers {
		assert.True(t, app.Utilized.Equal(d(want[i])), "layer %d", i+1)
	}
	assert.True(t, open.Recovered.Equal(d(400000)))
	assert.True(t, open.Layers[3].Charges["M1"].Equal(d(6250)))
	assert.True(t, open.Layers[3].Charges["M2"].Equal(d(3750)))

	fund, err := f.fund.Get(ctx)
	require.NoError(t, err)
	assert.True(t, fund.Contribution("D").IsZero())
	assert.True(t, fund.SkinInTheGame.IsZero())
	assert.True(t, fund.Contribution("M1").Equal(d(493750)))

	// A second overdue call for the same member joins the open case.
	require.NoError(t, f.manager.HandleMarginDefault(ctx, marginv1.MarginCall{ID: "call-2", MemberID: "D", Amount: d(10)}))

	_, err = f.manager.Declare(ctx, "D", d(1), "again")
	assert.ErrorIs(t, err, waterfallv1.ErrAlreadyInDefault)

	_, err = f.manager.Declare(ctx, "E", d(-1), "negative")
	assert.ErrorIs(t, err, waterfallv1.ErrInvalidLoss)
}

func TestManager_HandleMarginDefaultStoreFailure(t *testing.T) {
	f := setupTestFixture(t)

	f.margin.EXPECT().OutstandingVariation(gomock.Any(), "D").Return(decimal.Zero, errors.New("conn closed"))

	err := f.manager.HandleMarginDefault(context.Background(), marginv1.MarginCall{ID: "call-1", MemberID: "D", Amount: d(5)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conn closed")

	_, err = f.cases.OpenByMember(context.Background(), "D")
	assert.ErrorIs(t, err, waterfallv1.ErrCaseNotFound)
}

// failingCaseRepository fails the first save that matches fail.
type failingCaseRepository struct {
	*MemoryCaseRepository
	fail   func(c *waterfallv1.DefaultCase) bool
	failed bool
}

func (r *failingCaseRepository) Save(ctx context.Context, c *waterfallv1.DefaultCase) error {
	if !r.failed && r.fail(c) {
		r.failed = true
		return errors.New("connection reset")
	}
	return r.MemoryCaseRepository.Save(ctx, c)
}

func TestManager_RetriedAllocationDebitsFundOnce(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	cases := &failingCaseRepository{
		MemoryCaseRepository: f.cases,
		fail: func(c *waterfallv1.DefaultCase) bool {
			return c.Status == waterfallv1.CaseLossAllocation
		},
	}
	f.manager = NewManager(cases, f.fund, f.margin, f.positions, logger.NewNop(), Options{
		Currency:          "USD",
		MaxVersionRetries: 3,
		Clock:             func() time.Time { return testNow },
	})

	f.margin.EXPECT().MarkDefaulted(gomock.Any(), "D").Return(nil)
	f.margin.EXPECT().Seize(gomock.Any(), "D").Return(d(300000), nil).Times(1)

	c, err := f.manager.Declare(ctx, "D", d(900000), "failed to deliver")
	require.NoError(t, err)

	_, err = f.manager.AllocateLoss(ctx, c.ID)
	require.Error(t, err)

	stored, err := f.cases.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, waterfallv1.CaseDeclared, stored.Status)
	require.NotEmpty(t, stored.AllocationID)

	c, err = f.manager.AllocateLoss(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, waterfallv1.CaseLossAllocation, c.Status)
	assert.Equal(t, stored.AllocationID, c.AllocationID)
	assert.True(t, c.Recovered.Equal(d(900000)))

	fund, err := f.fund.Get(ctx)
	require.NoError(t, err)
	assert.True(t, fund.Contribution("D").IsZero())
	assert.True(t, fund.Contribution("M1").Equal(d(343750)))
	assert.True(t, fund.Contribution("M2").Equal(d(206250)))
	assert.Len(t, fund.Allocations, 1)
}

func TestManager_CloseRecordsMarginSurplus(t *testing.T) {
	testCases := []struct {
		name     string
		loss     int64
		assertFn func(t *testing.T, c *waterfallv1.DefaultCase)
	}{
		{
			name: "margin exceeds loss",
			loss: 25000,
			assertFn: func(t *testing.T, c *waterfallv1.DefaultCase) {
				assert.True(t, c.MarginSurplus.Equal(d(15000)))
				assert.Equal(t, "margin_surplus", c.Audit[len(c.Audit)-2].Action)
				assert.Equal(t, "15000", c.Audit[len(c.Audit)-2].Detail)
			},
		},
		{
			name: "margin fully used",
			loss: 90000,
			assertFn: func(t *testing.T, c *waterfallv1.DefaultCase) {
				assert.True(t, c.MarginSurplus.IsZero())
				for _, e := range c.Audit {
					assert.NotEqual(t, "margin_surplus", e.Action)
				}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)
			ctx := context.Background()

			f.margin.EXPECT().MarkDefaulted(gomock.Any(), "D").Return(nil)
			f.margin.EXPECT().Seize(gomock.Any(), "D").Return(d(40000), nil)
			f.positions.EXPECT().OpenPositions("D").Return(nil)

			c, err := f.manager.Declare(ctx, "D", d(tc.loss), "failed to deliver")
			require.NoError(t, err)
			_, err = f.manager.AllocateLoss(ctx, c.ID)
			require.NoError(t, err)

			c, err = f.manager.Close(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, waterfallv1.CaseClosed, c.Status)
			tc.assertFn(t, c)
		})
	}
}

func TestManager_FundVersionConflictIsRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	fund := waterfallv1_mock.NewMockFundRepository(ctrl)
	manager := NewManager(NewMemoryCaseRepository(), fund, nil, nil, logger.NewNop(), Options{MaxVersionRetries: 3})

	gomock.InOrder(
		fund.EXPECT().Get(gomock.Any()).Return(seedFund(), nil),
		fund.EXPECT().Save(gomock.Any(), gomock.Any()).Return(waterfallv1.ErrVersionConflict),
		fund.EXPECT().Get(gomock.Any()).Return(seedFund(), nil),
		fund.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
	)

	saved, err := manager.Contribute(context.Background(), "M3", d(125000))
	require.NoError(t, err)
	assert.True(t, saved.Contribution("M3").Equal(d(125000)))
	assert.True(t, saved.TotalContributions().Equal(d(1175000)))

	_, err = manager.Contribute(context.Background(), "M3", decimal.Zero)
	assert.ErrorIs(t, err, waterfallv1.ErrInvalidAmount)
}
