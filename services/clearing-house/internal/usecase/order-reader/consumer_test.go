package orderreader

import (
	"context"
	"errors"
	"testing"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	orderreaderv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/order-reader/v1"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKafka struct {
	messages  []kafka.Message
	fetchErr  error
	committed []kafka.Message
	closed    bool
}

func (f *fakeKafka) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if f.fetchErr != nil {
		return kafka.Message{}, f.fetchErr
	}
	if len(f.messages) == 0 {
		return kafka.Message{}, context.Canceled
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeKafka) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeKafka) Close() error {
	f.closed = true
	return nil
}

func TestReader_ReadMessage(t *testing.T) {
	testCases := []struct {
		name     string
		kafka    *fakeKafka
		assertFn func(t *testing.T, msg kafka.Message, req orderreaderv1.OrderRequest, err error)
	}{
		{
			name: "place order",
			kafka: &fakeKafka{messages: []kafka.Message{{
				Offset: 17,
				Value:  []byte(`{"orderID":"o-1","memberID":"A","instrument":"COPPER","side":"buy","type":"limit","timeInForce":"GTC","quantity":"30","price":"8550"}`),
			}}},
			assertFn: func(t *testing.T, msg kafka.Message, req orderreaderv1.OrderRequest, err error) {
				require.NoError(t, err)
				assert.Equal(t, orderreaderv1.ActionPlace, req.Action)
				assert.Equal(t, int64(17), req.Offset)
				assert.Equal(t, orderbookv1.SideBuy, req.Side)
				assert.True(t, req.Quantity.Equal(decimal.NewFromInt(30)))
				assert.True(t, req.Price.Equal(decimal.NewFromInt(8550)))

				order := req.ToOrder(msg.Time)
				assert.Equal(t, "o-1", order.ID)
				assert.Equal(t, "COPPER", order.Instrument)
			},
		},
		{
			name: "cancel order",
			kafka: &fakeKafka{messages: []kafka.Message{{
				Offset: 18,
				Value:  []byte(`{"action":"cancel","orderID":"o-1","instrument":"COPPER"}`),
			}}},
			assertFn: func(t *testing.T, msg kafka.Message, req orderreaderv1.OrderRequest, err error) {
				require.NoError(t, err)
				assert.Equal(t, orderreaderv1.ActionCancel, req.Action)
				assert.Equal(t, int64(18), req.Offset)
			},
		},
		{
			name:  "malformed payload",
			kafka: &fakeKafka{messages: []kafka.Message{{Offset: 19, Value: []byte(`not json`)}}},
			assertFn: func(t *testing.T, msg kafka.Message, req orderreaderv1.OrderRequest, err error) {
				assert.ErrorIs(t, err, orderreaderv1.ErrMalformedMessage)
				assert.Equal(t, int64(19), msg.Offset)
			},
		},
		{
			name:  "unknown action",
			kafka: &fakeKafka{messages: []kafka.Message{{Offset: 20, Value: []byte(`{"action":"amend"}`)}}},
			assertFn: func(t *testing.T, msg kafka.Message, req orderreaderv1.OrderRequest, err error) {
				assert.ErrorIs(t, err, orderreaderv1.ErrMalformedMessage)
			},
		},
		{
			name:  "broker error",
			kafka: &fakeKafka{fetchErr: errors.New("broker not available")},
			assertFn: func(t *testing.T, msg kafka.Message, req orderreaderv1.OrderRequest, err error) {
				assert.ErrorContains(t, err, "broker not available")
				assert.False(t, errors.Is(err, orderreaderv1.ErrMalformedMessage))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newReader(tc.kafka, logger.NewNop())
			msg, req, err := r.ReadMessage(context.Background())
			tc.assertFn(t, msg, req, err)
		})
	}
}

func TestReader_CommitAndClose(t *testing.T) {
	fake := &fakeKafka{}
	r := newReader(fake, logger.NewNop())

	require.NoError(t, r.CommitMessages(context.Background(), kafka.Message{Offset: 3}, kafka.Message{Offset: 4}))
	assert.Len(t, fake.committed, 2)

	require.NoError(t, r.Close())
	assert.True(t, fake.closed)
}
