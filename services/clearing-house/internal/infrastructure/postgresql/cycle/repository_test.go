package cycle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	mockLogger "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger/mock"
	mockPg "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql/mock"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	settlementDate = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	closedAt       = time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC)
)

func closedCycle() *nettingv1.NettingCycle {
	return &nettingv1.NettingCycle{
		SettlementDate: settlementDate,
		Status:         nettingv1.CycleClosed,
		ExposureCount:  4,
		ClosedAt:       &closedAt,
		Obligations: []nettingv1.NetObligation{
			{
				ID:             nettingv1.ObligationID(settlementDate, "A", "ZMW"),
				SettlementDate: settlementDate,
				MemberID:       "A",
				Currency:       "ZMW",
				Amount:         decimal.NewFromInt(500000),
				Deliveries:     map[string]decimal.Decimal{},
			},
			{
				ID:             nettingv1.ObligationID(settlementDate, "B", "ZMW"),
				SettlementDate: settlementDate,
				MemberID:       "B",
				Currency:       "ZMW",
				Amount:         decimal.NewFromInt(-500000),
				Deliveries:     map[string]decimal.Decimal{},
			},
		},
	}
}

func TestCycle_SaveCycle(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, c *nettingv1.NettingCycle)
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "success",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, c *nettingv1.NettingCycle) {
				obligations, _ := json.Marshal(c.Obligations)
				mockpg.EXPECT().
					Exec(ctx, saveQuery, c.SettlementDate, "closed", obligations, 4, c.ClosedAt, "").
					Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "error",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, c *nettingv1.NettingCycle) {
				mockpg.EXPECT().
					Exec(ctx, saveQuery, gomock.Any()).
					Return(pgconn.CommandTag{}, errors.New("disk full"))
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "disk full")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			c := closedCycle()
			tc.mockFn(pg, c)

			err := NewRepository(pg, logger.NewNop()).SaveCycle(ctx, c)
			tc.assertFn(t, err)
		})
	}
}

func TestCycle_GetCycle(t *testing.T) {
	ctx := context.Background()
	stored := closedCycle()
	obligations, err := json.Marshal(stored.Obligations)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface)
		assertFn func(t *testing.T, c *nettingv1.NettingCycle, err error)
	}{
		{
			name: "found",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().QueryRow(ctx, getQuery, settlementDate).Return(row)
				row.EXPECT().Scan(gomock.Any()).DoAndReturn(func(dest ...any) error {
					*dest[0].(*time.Time) = settlementDate
					*dest[1].(*string) = "closed"
					*dest[2].(*[]byte) = obligations
					*dest[3].(*int) = 4
					*dest[4].(**time.Time) = &closedAt
					*dest[5].(*string) = ""
					return nil
				})
			},
			assertFn: func(t *testing.T, c *nettingv1.NettingCycle, err error) {
				require.NoError(t, err)
				assert.Equal(t, nettingv1.CycleClosed, c.Status)
				require.Len(t, c.Obligations, 2)
				assert.NoError(t, c.CheckBalanced())
				assert.True(t, c.Obligations[0].Amount.Equal(decimal.NewFromInt(500000)))
			},
		},
		{
			name: "not found",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().QueryRow(ctx, getQuery, settlementDate).Return(row)
				row.EXPECT().Scan(gomock.Any()).Return(pgx.ErrNoRows)
			},
			assertFn: func(t *testing.T, c *nettingv1.NettingCycle, err error) {
				assert.ErrorIs(t, err, nettingv1.ErrCycleNotFound)
				assert.Nil(t, c)
			},
		},
		{
			name: "corrupt obligations",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().QueryRow(ctx, getQuery, settlementDate).Return(row)
				row.EXPECT().Scan(gomock.Any()).DoAndReturn(func(dest ...any) error {
					*dest[2].(*[]byte) = []byte("{")
					return nil
				})
			},
			assertFn: func(t *testing.T, c *nettingv1.NettingCycle, err error) {
				assert.ErrorContains(t, err, "unmarshal obligations")
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

			c, err := NewRepository(pg, logger.NewNop()).GetCycle(ctx, settlementDate)
			tc.assertFn(t, c, err)
		})
	}
}

func TestCycle_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface)
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "success",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface) {
				mockpg.EXPECT().Exec(ctx, updateStatusQuery, "settled", settlementDate).Return(pgconn.NewCommandTag("UPDATE 1"), nil)
				log.EXPECT().Info("Updated netting cycle status",
					logger.Field{Key: "settlementDate", Value: "2026-03-04"},
					logger.Field{Key: "status", Value: "settled"},
				)
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "unknown cycle",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, log *mockLogger.MockInterface) {
				mockpg.EXPECT().Exec(ctx, updateStatusQuery, "settled", settlementDate).Return(pgconn.NewCommandTag("UPDATE 0"), nil)
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, nettingv1.ErrCycleNotFound)
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

			err := NewRepository(pg, log).UpdateStatus(ctx, settlementDate, nettingv1.CycleSettled)
			tc.assertFn(t, err)
		})
	}
}
