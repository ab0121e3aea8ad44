package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	mockLogger "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger/mock"
	mockPg "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql/mock"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	executedAt     = time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	settlementDate = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
)

func copperTrade(seq int64) orderbookv1.Trade {
	return orderbookv1.Trade{
		ID:             orderbookv1.TradeID("COPPER", seq),
		Instrument:     "COPPER",
		Quantity:       decimal.NewFromInt(30),
		Price:          decimal.NewFromInt(8500),
		BuyOrderID:     "o-2",
		SellOrderID:    "o-1",
		BuyerID:        "B",
		SellerID:       "A",
		Aggressor:      orderbookv1.SideBuy,
		Sequence:       seq,
		Currency:       "USD",
		SettlementDate: settlementDate,
		ExecutedAt:     executedAt,
	}
}

func TestInsertQuery(t *testing.T) {
	q := insertQuery(2)
	assert.Contains(t, q, "($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13), ($14,")
	assert.Contains(t, q, "$26)")
	assert.NotContains(t, q, "$27")
	assert.True(t, len(q) > 0 && q[len(q)-len("ON CONFLICT (id) DO NOTHING"):] == "ON CONFLICT (id) DO NOTHING")
}

func TestTrade_Append(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		trades   []orderbookv1.Trade
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface, trades []orderbookv1.Trade)
		assertFn func(t *testing.T, err error)
	}{
		{
			name:   "success",
			trades: []orderbookv1.Trade{copperTrade(1), copperTrade(2)},
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface, trades []orderbookv1.Trade) {
				args := []any{}
				for _, tr := range trades {
					args = append(args, tr.ID, tr.Instrument, tr.Quantity, tr.Price, tr.BuyOrderID, tr.SellOrderID,
						tr.BuyerID, tr.SellerID, "buy", tr.Sequence, tr.Currency, tr.SettlementDate, tr.ExecutedAt)
				}
				mockpg.EXPECT().Exec(ctx, insertQuery(2), args...).Return(pgconn.NewCommandTag("INSERT 0 2"), nil)
				log.EXPECT().Debug("Journaled trades",
					logger.Field{Key: "trades", Value: 2},
					logger.Field{Key: "inserted", Value: int64(2)},
				)
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "nothing to journal",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface, trades []orderbookv1.Trade) {
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:   "error",
			trades: []orderbookv1.Trade{copperTrade(1)},
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface, trades []orderbookv1.Trade) {
				mockpg.EXPECT().Exec(ctx, insertQuery(1), gomock.Any()).
					Return(pgconn.CommandTag{}, errors.New("connection refused"))
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "connection refused")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			log := mockLogger.NewMockInterface(ctrl)
			tc.mockFn(pg, log, tc.trades)

			err := NewRepository(pg, log).Append(ctx, tc.trades...)
			tc.assertFn(t, err)
		})
	}
}

func TestTrade_Unnovated(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, rows *mockPg.MockRowsInterface)
		assertFn func(t *testing.T, trades []orderbookv1.Trade, err error)
	}{
		{
			name: "success",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, rows *mockPg.MockRowsInterface) {
				want := copperTrade(7)
				mockpg.EXPECT().Query(ctx, unnovatedQuery).Return(rows, nil)
				rows.EXPECT().Next().Return(true)
				rows.EXPECT().Scan(gomock.Any()).DoAndReturn(func(dest ...any) error {
					*dest[0].(*string) = want.ID
					*dest[1].(*string) = want.Instrument
					*dest[2].(*decimal.Decimal) = want.Quantity
					*dest[3].(*decimal.Decimal) = want.Price
					*dest[4].(*string) = want.BuyOrderID
					*dest[5].(*string) = want.SellOrderID
					*dest[6].(*string) = want.BuyerID
					*dest[7].(*string) = want.SellerID
					*dest[8].(*string) = "buy"
					*dest[9].(*int64) = want.Sequence
					*dest[10].(*string) = want.Currency
					*dest[11].(*time.Time) = want.SettlementDate
					*dest[12].(*time.Time) = want.ExecutedAt
					return nil
				})
				rows.EXPECT().Next().Return(false)
				rows.EXPECT().Err().Return(nil)
				rows.EXPECT().Close()
			},
			assertFn: func(t *testing.T, trades []orderbookv1.Trade, err error) {
				require.NoError(t, err)
				require.Len(t, trades, 1)
				assert.Equal(t, "COPPER-T000000000007", trades[0].ID)
				assert.Equal(t, orderbookv1.SideBuy, trades[0].Aggressor)
				assert.True(t, trades[0].Notional().Equal(decimal.NewFromInt(255000)))
				assert.Equal(t, settlementDate, trades[0].SettlementDate)
			},
		},
		{
			name: "query error",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, rows *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Query(ctx, unnovatedQuery).Return(nil, errors.New("timeout"))
			},
			assertFn: func(t *testing.T, trades []orderbookv1.Trade, err error) {
				assert.ErrorContains(t, err, "timeout")
			},
		},
		{
			name: "scan error",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, rows *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Query(ctx, unnovatedQuery).Return(rows, nil)
				rows.EXPECT().Next().Return(true)
				rows.EXPECT().Scan(gomock.Any()).Return(errors.New("scan failed"))
				rows.EXPECT().Close()
			},
			assertFn: func(t *testing.T, trades []orderbookv1.Trade, err error) {
				assert.ErrorContains(t, err, "scan failed")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			rows := mockPg.NewMockRowsInterface(ctrl)
			tc.mockFn(pg, rows)

			trades, err := NewRepository(pg, logger.NewNop()).Unnovated(ctx)
			tc.assertFn(t, trades, err)
		})
	}
}
