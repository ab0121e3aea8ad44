package defaultcase

import (
	"context"
	"testing"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	mockLogger "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger/mock"
	mockPg "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql/mock"
	waterfallv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/waterfall/v1"
	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fundUpdatedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func seedFund() *waterfallv1.GuaranteeFund {
	return &waterfallv1.GuaranteeFund{
		SkinInTheGame:  decimal.NewFromInt(100000),
		CapitalReserve: decimal.NewFromInt(5000000),
		Contributions: map[string]decimal.Decimal{
			"D":  decimal.NewFromInt(250000),
			"M1": decimal.NewFromInt(500000),
		},
		UpdatedAt: fundUpdatedAt,
	}
}

func TestFund_Seed(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name   string
		mockFn func(mockpg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface)
	}{
		{
			name: "first start",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface) {
				mockpg.EXPECT().
					Exec(ctx, seedFundQuery, gomock.Any(), gomock.Any(), []byte(`{"D":"250000","M1":"500000"}`), fundUpdatedAt).
					Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
				log.EXPECT().Info("Seeded guarantee fund",
					logger.Field{Key: "skinInTheGame", Value: "100000"},
					logger.Field{Key: "capitalReserve", Value: "5000000"},
				)
			},
		},
		{
			name: "already seeded",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface) {
				mockpg.EXPECT().Exec(ctx, seedFundQuery, gomock.Any()).Return(pgconn.NewCommandTag("INSERT 0 0"), nil)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			log := mockLogger.NewMockInterface(ctrl)
			tc.mockFn(pg, log)

			assert.NoError(t, NewFundRepository(pg, log).Seed(ctx, seedFund()))
		})
	}
}

func TestFund_Get(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface)
		assertFn func(t *testing.T, fund *waterfallv1.GuaranteeFund, err error)
	}{
		{
			name: "seeded",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().QueryRow(ctx, getFundQuery).Return(row)
				row.EXPECT().Scan(gomock.Any()).DoAndReturn(func(dest ...any) error {
					*dest[0].(*decimal.Decimal) = decimal.NewFromInt(100000)
					*dest[1].(*decimal.Decimal) = decimal.NewFromInt(5000000)
					*dest[2].(*[]byte) = []byte(`{"D":"250000","M1":"500000"}`)
					*dest[3].(*[]byte) = []byte(`{"alloc-1":{"applications":[{"order":2,"kind":"defaulter_contribution","available":"250000","utilized":"50000"}],"recovered":"50000","unrecovered":"0"}}`)
					*dest[4].(*int64) = 7
					*dest[5].(*time.Time) = fundUpdatedAt
					return nil
				})
			},
			assertFn: func(t *testing.T, fund *waterfallv1.GuaranteeFund, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(7), fund.Version)
				assert.True(t, fund.TotalContributions().Equal(decimal.NewFromInt(750000)))
				assert.True(t, fund.Contribution("M1").Equal(decimal.NewFromInt(500000)))
				alloc, ok := fund.Applied("alloc-1")
				require.True(t, ok)
				assert.True(t, alloc.Recovered.Equal(decimal.NewFromInt(50000)))
				require.Len(t, alloc.Applications, 1)
			},
		},
		{
			name: "not seeded",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().QueryRow(ctx, getFundQuery).Return(row)
				row.EXPECT().Scan(gomock.Any()).Return(pgx.ErrNoRows)
			},
			assertFn: func(t *testing.T, fund *waterfallv1.GuaranteeFund, err error) {
				assert.ErrorIs(t, err, ErrFundNotSeeded)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			row := mockPg.NewMockRowsInterface(ctrl)
			tc.mockFn(pg, row)

			fund, err := NewFundRepository(pg, logger.NewNop()).Get(ctx)
			tc.assertFn(t, fund, err)
		})
	}
}

func TestFund_Save(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		tag      string
		assertFn func(t *testing.T, fund *waterfallv1.GuaranteeFund, err error)
	}{
		{
			name: "success",
			tag:  "UPDATE 1",
			assertFn: func(t *testing.T, fund *waterfallv1.GuaranteeFund, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(3), fund.Version)
			},
		},
		{
			name: "stale version",
			tag:  "UPDATE 0",
			assertFn: func(t *testing.T, fund *waterfallv1.GuaranteeFund, err error) {
				assert.ErrorIs(t, err, waterfallv1.ErrVersionConflict)
				assert.Equal(t, int64(2), fund.Version)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			fund := seedFund()
			fund.Version = 2
			pg.EXPECT().
				Exec(ctx, saveFundQuery, fund.SkinInTheGame, fund.CapitalReserve, gomock.Any(), []byte("{}"), fundUpdatedAt, int64(2)).
				Return(pgconn.NewCommandTag(tc.tag), nil)

			err := NewFundRepository(pg, logger.NewNop()).Save(ctx, fund)
			tc.assertFn(t, fund, err)
		})
	}
}
