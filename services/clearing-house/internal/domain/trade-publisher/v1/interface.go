package tradepublisherv1

import (
	"context"
	"encoding/json"

	novationv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/novation/v1"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
)

// TradeEvent is published once a trade is journaled and novated.
type TradeEvent struct {
	Trade     orderbookv1.Trade            `json:"trade"`
	Exposures []novationv1.NovatedExposure `json:"exposures"`
}

// ToBytes converts the event to JSON.
func (e TradeEvent) ToBytes() ([]byte, error) {
	return json.Marshal(e)
}

// FromBytes parses a trade event.
func FromBytes(data []byte) (TradeEvent, error) {
	var e TradeEvent
	err := json.Unmarshal(data, &e)
	return e, err
}

// TradePublisher defines the interface for publishing trade events.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=tradepublisherv1_mock
type TradePublisher interface {
	Publish(ctx context.Context, events ...TradeEvent) error
	Close() error
}
