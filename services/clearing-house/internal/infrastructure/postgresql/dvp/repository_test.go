package dvp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	mockPg "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql/mock"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	settlementv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/settlement/v1"
	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cycleDate = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	openedAt  = time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC)
)

func buyerSettlement(version int64) *settlementv1.DvpSettlement {
	obligation := nettingv1.NetObligation{
		ID:             nettingv1.ObligationID(cycleDate, "B", "USD"),
		SettlementDate: cycleDate,
		MemberID:       "B",
		Currency:       "USD",
		Amount:         decimal.NewFromInt(255000),
		Deliveries:     map[string]decimal.Decimal{"COPPER": decimal.NewFromInt(-30)},
	}
	return &settlementv1.DvpSettlement{
		ID:         obligation.ID,
		Obligation: obligation,
		Status:     settlementv1.StatusPrepared,
		Delivery: settlementv1.DeliveryLeg{
			Status: settlementv1.DeliveryBlocked,
			Holds: []settlementv1.Hold{{
				Instrument: "COPPER",
				ReceiptID:  "WR-1",
				Token:      "hold-1",
				From:       "CCP",
				To:         "B",
			}},
		},
		Payment: settlementv1.PaymentLeg{
			Status:   settlementv1.PaymentEscrowed,
			Token:    "esc-1",
			Amount:   decimal.NewFromInt(255000),
			Currency: "USD",
			From:     "B",
			To:       "CCP",
		},
		Deadline:  openedAt.Add(30 * time.Minute),
		Version:   version,
		CreatedAt: openedAt,
		UpdatedAt: openedAt,
	}
}

func TestDvp_Create(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient)
		assertFn func(t *testing.T, s *settlementv1.DvpSettlement, err error)
	}{
		{
			name: "success",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient) {
				mockpg.EXPECT().Exec(ctx, createQuery, gomock.Any()).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
			},
			assertFn: func(t *testing.T, s *settlementv1.DvpSettlement, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(1), s.Version)
			},
		},
		{
			name: "already open",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient) {
				mockpg.EXPECT().Exec(ctx, createQuery, gomock.Any()).
					Return(pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", ConstraintName: "settlements_pkey"})
			},
			assertFn: func(t *testing.T, s *settlementv1.DvpSettlement, err error) {
				assert.ErrorIs(t, err, settlementv1.ErrAlreadyOpen)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			tc.mockFn(pg)

			s := buyerSettlement(0)
			err := NewRepository(pg, logger.NewNop()).Create(ctx, s)
			tc.assertFn(t, s, err)
		})
	}
}

func TestDvp_Save(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface)
		assertFn func(t *testing.T, s *settlementv1.DvpSettlement, err error)
	}{
		{
			name: "success",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Exec(ctx, saveQuery, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
						if len(args) != 12 || args[11] != int64(2) {
							return pgconn.CommandTag{}, errors.New("version not passed")
						}
						return pgconn.NewCommandTag("UPDATE 1"), nil
					})
			},
			assertFn: func(t *testing.T, s *settlementv1.DvpSettlement, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(3), s.Version)
			},
		},
		{
			name: "version conflict",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Exec(ctx, saveQuery, gomock.Any()).Return(pgconn.NewCommandTag("UPDATE 0"), nil)
				mockpg.EXPECT().QueryRow(ctx, versionQuery, "2026-03-04-B-USD").Return(row)
				row.EXPECT().Scan(gomock.Any()).DoAndReturn(func(dest ...any) error {
					*dest[0].(*int64) = 3
					return nil
				})
			},
			assertFn: func(t *testing.T, s *settlementv1.DvpSettlement, err error) {
				assert.ErrorIs(t, err, settlementv1.ErrVersionConflict)
				assert.Equal(t, int64(2), s.Version)
			},
		},
		{
			name: "not found",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Exec(ctx, saveQuery, gomock.Any()).Return(pgconn.NewCommandTag("UPDATE 0"), nil)
				mockpg.EXPECT().QueryRow(ctx, versionQuery, "2026-03-04-B-USD").Return(row)
				row.EXPECT().Scan(gomock.Any()).Return(pgx.ErrNoRows)
			},
			assertFn: func(t *testing.T, s *settlementv1.DvpSettlement, err error) {
				assert.ErrorIs(t, err, settlementv1.ErrSettlementNotFound)
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

			s := buyerSettlement(2)
			err := NewRepository(pg, logger.NewNop()).Save(ctx, s)
			tc.assertFn(t, s, err)
		})
	}
}

// scanStored fills a row from the encoded form of s.
func scanStored(t *testing.T, s *settlementv1.DvpSettlement) func(dest ...any) error {
	values, err := args(s)
	require.NoError(t, err)
	return func(dest ...any) error {
		*dest[0].(*string) = s.ID
		*dest[1].(*[]byte) = values[1].([]byte)
		*dest[2].(*string) = string(s.Status)
		*dest[3].(*[]byte) = values[3].([]byte)
		*dest[4].(*[]byte) = values[4].([]byte)
		*dest[5].(*bool) = s.Committing
		*dest[6].(*string) = s.Reason
		*dest[7].(*time.Time) = s.Deadline
		*dest[8].(*int64) = s.Version
		*dest[9].(*time.Time) = s.CreatedAt
		*dest[10].(*time.Time) = s.UpdatedAt
		*dest[11].(**time.Time) = s.CompletedAt
		return nil
	}
}

func TestDvp_Get(t *testing.T) {
	ctx := context.Background()
	stored := buyerSettlement(4)

	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface)
		assertFn func(t *testing.T, s *settlementv1.DvpSettlement, err error)
	}{
		{
			name: "found",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().QueryRow(ctx, getQuery, stored.ID).Return(row)
				row.EXPECT().Scan(gomock.Any()).DoAndReturn(scanStored(t, stored))
			},
			assertFn: func(t *testing.T, s *settlementv1.DvpSettlement, err error) {
				require.NoError(t, err)
				assert.Equal(t, settlementv1.StatusPrepared, s.Status)
				assert.True(t, s.BothHeld())
				require.Len(t, s.Delivery.Holds, 1)
				assert.Equal(t, "hold-1", s.Delivery.Holds[0].Token)
				assert.True(t, s.Payment.Amount.Equal(decimal.NewFromInt(255000)))
				assert.True(t, s.Obligation.Deliveries["COPPER"].Equal(decimal.NewFromInt(-30)))
				assert.Equal(t, int64(4), s.Version)
			},
		},
		{
			name: "not found",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().QueryRow(ctx, getQuery, stored.ID).Return(row)
				row.EXPECT().Scan(gomock.Any()).Return(pgx.ErrNoRows)
			},
			assertFn: func(t *testing.T, s *settlementv1.DvpSettlement, err error) {
				assert.ErrorIs(t, err, settlementv1.ErrSettlementNotFound)
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

			s, err := NewRepository(pg, logger.NewNop()).Get(ctx, stored.ID)
			tc.assertFn(t, s, err)
		})
	}
}

func TestDvp_ListOpen(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	pg := mockPg.NewMockPostgreSQLClient(ctrl)
	rows := mockPg.NewMockRowsInterface(ctrl)

	stored := buyerSettlement(2)
	stored.Committing = true

	pg.EXPECT().Query(ctx, listOpenQuery).Return(rows, nil)
	gomock.InOrder(
		rows.EXPECT().Next().Return(true),
		rows.EXPECT().Scan(gomock.Any()).DoAndReturn(scanStored(t, stored)),
		rows.EXPECT().Next().Return(false),
	)
	rows.EXPECT().Err().Return(nil)
	rows.EXPECT().Close()

	open, err := NewRepository(pg, logger.NewNop()).ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].Committing)
	assert.False(t, open[0].IsTerminal())
}
