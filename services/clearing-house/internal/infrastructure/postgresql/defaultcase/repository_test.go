package defaultcase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	mockPg "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql/mock"
	waterfallv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/waterfall/v1"
	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var declaredAt = time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC)

func declaredCase(version int64) *waterfallv1.DefaultCase {
	c := &waterfallv1.DefaultCase{
		ID:           "01JNKQ8Z6Y3V2M4T5W6X7Y8Z9A",
		MemberID:     "D",
		Reason:       "margin call not met",
		Currency:     "USD",
		DeclaredLoss: decimal.NewFromInt(900000),
		Status:       waterfallv1.CaseDeclared,
		Version:      version,
		CreatedAt:    declaredAt,
	}
	c.Record(declaredAt, "declared", "margin call not met")
	return c
}

func TestCase_Create(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, c *waterfallv1.DefaultCase)
		assertFn func(t *testing.T, c *waterfallv1.DefaultCase, err error)
	}{
		{
			name: "success",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, c *waterfallv1.DefaultCase) {
				body, _ := json.Marshal(c)
				mockpg.EXPECT().
					Exec(ctx, createCaseQuery, c.ID, "D", "declared", false, body, declaredAt, declaredAt, (*time.Time)(nil)).
					Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
			},
			assertFn: func(t *testing.T, c *waterfallv1.DefaultCase, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(1), c.Version)
			},
		},
		{
			name: "member already in default",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, c *waterfallv1.DefaultCase) {
				mockpg.EXPECT().Exec(ctx, createCaseQuery, gomock.Any()).
					Return(pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", ConstraintName: "uq_default_cases_open_member"})
			},
			assertFn: func(t *testing.T, c *waterfallv1.DefaultCase, err error) {
				assert.ErrorIs(t, err, waterfallv1.ErrAlreadyInDefault)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			pg := mockPg.NewMockPostgreSQLClient(ctrl)
			c := declaredCase(0)
			tc.mockFn(pg, c)

			err := NewCaseRepository(pg, logger.NewNop()).Create(ctx, c)
			tc.assertFn(t, c, err)
		})
	}
}

func TestCase_Save(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface)
		assertFn func(t *testing.T, c *waterfallv1.DefaultCase, err error)
	}{
		{
			name: "success",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Exec(ctx, saveCaseQuery, gomock.Any()).Return(pgconn.NewCommandTag("UPDATE 1"), nil)
			},
			assertFn: func(t *testing.T, c *waterfallv1.DefaultCase, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(2), c.Version)
			},
		},
		{
			name: "version conflict",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Exec(ctx, saveCaseQuery, gomock.Any()).Return(pgconn.NewCommandTag("UPDATE 0"), nil)
				mockpg.EXPECT().QueryRow(ctx, caseVersionQuery, "01JNKQ8Z6Y3V2M4T5W6X7Y8Z9A").Return(row)
				row.EXPECT().Scan(gomock.Any()).Return(nil)
			},
			assertFn: func(t *testing.T, c *waterfallv1.DefaultCase, err error) {
				assert.ErrorIs(t, err, waterfallv1.ErrVersionConflict)
			},
		},
		{
			name: "not found",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().Exec(ctx, saveCaseQuery, gomock.Any()).Return(pgconn.NewCommandTag("UPDATE 0"), nil)
				mockpg.EXPECT().QueryRow(ctx, caseVersionQuery, "01JNKQ8Z6Y3V2M4T5W6X7Y8Z9A").Return(row)
				row.EXPECT().Scan(gomock.Any()).Return(pgx.ErrNoRows)
			},
			assertFn: func(t *testing.T, c *waterfallv1.DefaultCase, err error) {
				assert.ErrorIs(t, err, waterfallv1.ErrCaseNotFound)
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

			c := declaredCase(1)
			err := NewCaseRepository(pg, logger.NewNop()).Save(ctx, c)
			tc.assertFn(t, c, err)
		})
	}
}

func TestCase_OpenByMember(t *testing.T) {
	ctx := context.Background()
	body, err := json.Marshal(declaredCase(0))
	require.NoError(t, err)

	testCases := []struct {
		name     string
		mockFn   func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface)
		assertFn func(t *testing.T, c *waterfallv1.DefaultCase, err error)
	}{
		{
			name: "open case",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().QueryRow(ctx, openByMemberQuery, "D").Return(row)
				row.EXPECT().Scan(gomock.Any()).DoAndReturn(func(dest ...any) error {
					*dest[0].(*[]byte) = body
					*dest[1].(*int64) = 3
					return nil
				})
			},
			assertFn: func(t *testing.T, c *waterfallv1.DefaultCase, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(3), c.Version)
				assert.Equal(t, waterfallv1.CaseDeclared, c.Status)
				assert.True(t, c.DeclaredLoss.Equal(decimal.NewFromInt(900000)))
				require.Len(t, c.Audit, 1)
				assert.Equal(t, "declared", c.Audit[0].Action)
			},
		},
		{
			name: "no open case",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().QueryRow(ctx, openByMemberQuery, "D").Return(row)
				row.EXPECT().Scan(gomock.Any()).Return(pgx.ErrNoRows)
			},
			assertFn: func(t *testing.T, c *waterfallv1.DefaultCase, err error) {
				assert.ErrorIs(t, err, waterfallv1.ErrCaseNotFound)
				assert.Nil(t, c)
			},
		},
		{
			name: "error",
			mockFn: func(mockpg *mockPg.MockPostgreSQLClient, row *mockPg.MockRowsInterface) {
				mockpg.EXPECT().QueryRow(ctx, openByMemberQuery, "D").Return(row)
				row.EXPECT().Scan(gomock.Any()).Return(errors.New("conn closed"))
			},
			assertFn: func(t *testing.T, c *waterfallv1.DefaultCase, err error) {
				assert.ErrorContains(t, err, "conn closed")
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

			c, err := NewCaseRepository(pg, logger.NewNop()).OpenByMember(ctx, "D")
			tc.assertFn(t, c, err)
		})
	}
}
