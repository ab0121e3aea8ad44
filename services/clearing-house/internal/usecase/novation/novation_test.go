package novation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	novationv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/novation/v1"
	novationv1_mock "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/novation/v1/mock"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow        = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	settlementDate = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
)

func copperTrade() orderbookv1.Trade {
	return orderbookv1.Trade{
		ID:             "COPPER-T000000000001",
		Instrument:     "COPPER",
		Quantity:       decimal.NewFromInt(30),
		Price:          decimal.NewFromInt(8500),
		BuyerID:        "A",
		SellerID:       "B",
		Currency:       "USD",
		SettlementDate: settlementDate,
		ExecutedAt:     testNow,
	}
}

func TestService_Novate(t *testing.T) {
	testCases := []struct {
		name     string
		trade    orderbookv1.Trade
		mockFn   func(store *novationv1_mock.MockStore)
		assertFn func(t *testing.T, buyer, seller novationv1.NovatedExposure, err error)
	}{
		{
			name:  "records both legs against the CCP",
			trade: copperTrade(),
			mockFn: func(store *novationv1_mock.MockStore) {
				store.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
			assertFn: func(t *testing.T, buyer, seller novationv1.NovatedExposure, err error) {
				require.NoError(t, err)

				assert.Equal(t, "COPPER-T000000000001-B", buyer.ID)
				assert.Equal(t, "A", buyer.MemberID)
				assert.Equal(t, "CCP", buyer.Counterparty)
				assert.Equal(t, novationv1.Payable, buyer.Direction)
				assert.True(t, buyer.Amount.Equal(decimal.NewFromInt(255000)))
				assert.True(t, buyer.SignedAmount().Equal(decimal.NewFromInt(255000)))
				assert.True(t, buyer.SignedDelivery().Equal(decimal.NewFromInt(-30)))

				assert.Equal(t, "COPPER-T000000000001-S", seller.ID)
				assert.Equal(t, "B", seller.MemberID)
				assert.Equal(t, novationv1.Receivable, seller.Direction)
				assert.True(t, seller.SignedAmount().Equal(decimal.NewFromInt(-255000)))
				assert.True(t, seller.SignedDelivery().Equal(decimal.NewFromInt(30)))

				assert.True(t, buyer.SignedAmount().Add(seller.SignedAmount()).IsZero())
				assert.Equal(t, settlementDate, buyer.SettlementDate)
			},
		},
		{
			name:  "already novated",
			trade: copperTrade(),
			mockFn: func(store *novationv1_mock.MockStore) {
				store.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).Return(novationv1.ErrAlreadyNovated)
			},
			assertFn: func(t *testing.T, buyer, seller novationv1.NovatedExposure, err error) {
				assert.ErrorIs(t, err, novationv1.ErrAlreadyNovated)
			},
		},
		{
			name:  "store failure is wrapped",
			trade: copperTrade(),
			mockFn: func(store *novationv1_mock.MockStore) {
				store.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("db down"))
			},
			assertFn: func(t *testing.T, buyer, seller novationv1.NovatedExposure, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "record exposures")
			},
		},
		{
			name: "zero quantity rejected before recording",
			trade: func() orderbookv1.Trade {
				tr := copperTrade()
				tr.Quantity = decimal.Zero
				return tr
			}(),
			mockFn: func(store *novationv1_mock.MockStore) {},
			assertFn: func(t *testing.T, buyer, seller novationv1.NovatedExposure, err error) {
				assert.ErrorIs(t, err, ErrInvalidTrade)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := novationv1_mock.NewMockStore(ctrl)
			tc.mockFn(store)

			svc := NewService(store, "CCP", func() time.Time { return testNow }, logger.NewNop())
			buyer, seller, err := svc.Novate(context.Background(), tc.trade)
			tc.assertFn(t, buyer, seller, err)
		})
	}
}

func TestService_NovateIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, "CCP", func() time.Time { return testNow }, logger.NewNop())
	ctx := context.Background()

	_, _, err := svc.Novate(ctx, copperTrade())
	require.NoError(t, err)
	_, _, err = svc.Novate(ctx, copperTrade())
	assert.ErrorIs(t, err, novationv1.ErrAlreadyNovated)

	exposures, err := store.ByTrade(ctx, "COPPER-T000000000001")
	require.NoError(t, err)
	assert.Len(t, exposures, 2)
}

func TestMemoryStore_MarkSettled(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, "CCP", func() time.Time { return testNow }, logger.NewNop())
	ctx := context.Background()

	later := copperTrade()
	later.ID = "COPPER-T000000000002"
	later.SettlementDate = settlementDate.AddDate(0, 0, 1)

	_, _, err := svc.Novate(ctx, copperTrade())
	require.NoError(t, err)
	_, _, err = svc.Novate(ctx, later)
	require.NoError(t, err)

	unsettled, err := store.Unsettled(ctx)
	require.NoError(t, err)
	assert.Len(t, unsettled, 4)

	require.NoError(t, store.MarkSettled(ctx, settlementDate))
	unsettled, err = store.Unsettled(ctx)
	require.NoError(t, err)
	require.Len(t, unsettled, 2)
	assert.Equal(t, "COPPER-T000000000002", unsettled[0].TradeID)
}
