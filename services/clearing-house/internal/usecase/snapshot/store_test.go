package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	redis_mock "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/redis/mock"
	snapshotv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/snapshot/v1"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *snapshotv1.Snapshot {
	return &snapshotv1.Snapshot{
		Instrument:    "COPPER",
		OrderOffset:   41,
		TradeSequence: 7,
		OrderSequence: 12,
		Orders: []snapshotv1.BookOrder{{
			OrderID:     "o-1",
			MemberID:    "A",
			Side:        "sell",
			Type:        "limit",
			TimeInForce: "GTC",
			Quantity:    decimal.NewFromInt(50),
			Remaining:   decimal.NewFromInt(20),
			Price:       decimal.NewFromInt(8500),
			Sequence:    3,
			Status:      "partially_filled",
			SubmittedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		}},
		TakenAt: time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC),
	}
}

func TestStore_Save(t *testing.T) {
	testCases := []struct {
		name     string
		mockFn   func(m *redis_mock.MockClient)
		assertFn func(t *testing.T, err error)
	}{
		{
			name: "success",
			mockFn: func(m *redis_mock.MockClient) {
				m.EXPECT().Key("snapshot", "COPPER").Return("clearing:snapshot:COPPER")
				m.EXPECT().Set(gomock.Any(), "clearing:snapshot:COPPER", gomock.Any(), time.Duration(0)).
					DoAndReturn(func(_ context.Context, _ string, value any, _ time.Duration) error {
						var s snapshotv1.Snapshot
						if err := json.Unmarshal(value.([]byte), &s); err != nil {
							return err
						}
						if s.OrderOffset != 41 || len(s.Orders) != 1 {
							return errors.New("unexpected payload")
						}
						return nil
					})
			},
			assertFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "redis error",
			mockFn: func(m *redis_mock.MockClient) {
				m.EXPECT().Key("snapshot", "COPPER").Return("clearing:snapshot:COPPER")
				m.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))
			},
			assertFn: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "snapshot_store_error")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := redis_mock.NewMockClient(ctrl)
			tc.mockFn(m)

			err := NewStore(m, logger.NewNop()).Save(context.Background(), testSnapshot())
			tc.assertFn(t, err)
		})
	}
}

func TestStore_Load(t *testing.T) {
	stored, err := json.Marshal(testSnapshot())
	require.NoError(t, err)

	testCases := []struct {
		name     string
		mockFn   func(m *redis_mock.MockClient)
		assertFn func(t *testing.T, s *snapshotv1.Snapshot, err error)
	}{
		{
			name: "found",
			mockFn: func(m *redis_mock.MockClient) {
				m.EXPECT().Get(gomock.Any(), "clearing:snapshot:COPPER").Return(string(stored), nil)
			},
			assertFn: func(t *testing.T, s *snapshotv1.Snapshot, err error) {
				require.NoError(t, err)
				require.NotNil(t, s)
				assert.Equal(t, int64(41), s.OrderOffset)
				assert.Equal(t, int64(7), s.TradeSequence)
				require.Len(t, s.Orders, 1)
				assert.True(t, s.Orders[0].Remaining.Equal(decimal.NewFromInt(20)))
			},
		},
		{
			name: "missing",
			mockFn: func(m *redis_mock.MockClient) {
				m.EXPECT().Get(gomock.Any(), "clearing:snapshot:COPPER").Return("", nil)
			},
			assertFn: func(t *testing.T, s *snapshotv1.Snapshot, err error) {
				assert.NoError(t, err)
				assert.Nil(t, s)
			},
		},
		{
			name: "corrupt payload",
			mockFn: func(m *redis_mock.MockClient) {
				m.EXPECT().Get(gomock.Any(), "clearing:snapshot:COPPER").Return("{not json", nil)
			},
			assertFn: func(t *testing.T, s *snapshotv1.Snapshot, err error) {
				assert.ErrorContains(t, err, "snapshot_unmarshal_error")
			},
		},
		{
			name: "redis error",
			mockFn: func(m *redis_mock.MockClient) {
				m.EXPECT().Get(gomock.Any(), "clearing:snapshot:COPPER").Return("", errors.New("timeout"))
			},
			assertFn: func(t *testing.T, s *snapshotv1.Snapshot, err error) {
				assert.ErrorContains(t, err, "snapshot_load_error")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := redis_mock.NewMockClient(ctrl)
			m.EXPECT().Key("snapshot", "COPPER").Return("clearing:snapshot:COPPER")
			tc.mockFn(m)

			s, err := NewStore(m, logger.NewNop()).Load(context.Background(), "COPPER")
			tc.assertFn(t, s, err)
		})
	}
}
