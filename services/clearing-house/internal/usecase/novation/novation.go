package novation

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	novationv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/novation/v1"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/metrics"
)

// ErrInvalidTrade is returned for trades that cannot be novated.
var ErrInvalidTrade = errors.New("trade cannot be novated")

// Service substitutes the CCP as counterparty to both sides of every trade.
type Service struct {
	store      novationv1.Store
	ccpAccount string
	clock      func() time.Time
	logger     logger.Interface
}

// NewService creates a novation service.
func NewService(store novationv1.Store, ccpAccount string, clock func() time.Time, logger logger.Interface) *Service {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:      store,
		ccpAccount: ccpAccount,
		clock:      clock,
		logger:     logger,
	}
}

// Novate replaces trade with a buyer and a seller exposure against the CCP.
// A trade is novated at most once: repeats return ErrAlreadyNovated.
func (s *Service) Novate(ctx context.Context, trade orderbookv1.Trade) (buyer, seller novationv1.NovatedExposure, err error) {
	if err := validate(trade); err != nil {
		return buyer, seller, err
	}

	buyer, seller = Exposures(trade, s.ccpAccount, s.clock())
	if err := s.store.Record(ctx, buyer, seller); err != nil {
		if errors.Is(err, novationv1.ErrAlreadyNovated) {
			return buyer, seller, err
		}
		return buyer, seller, pkgerrors.NewTracer("record exposures").Wrap(err)
	}

	metrics.ExposuresTotal.WithLabelValues(string(novationv1.KindTrade)).Add(2)
	s.logger.DebugContext(ctx, "trade novated",
		logger.Field{Key: "tradeID", Value: trade.ID},
		logger.Field{Key: "buyer", Value: trade.BuyerID},
		logger.Field{Key: "seller", Value: trade.SellerID},
	)
	return buyer, seller, nil
}

func validate(trade orderbookv1.Trade) error {
	switch {
	case trade.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidTrade)
	case !trade.Quantity.IsPositive():
		return fmt.Errorf("%w: %s quantity %s", ErrInvalidTrade, trade.ID, trade.Quantity)
	case !trade.Price.IsPositive():
		return fmt.Errorf("%w: %s price %s", ErrInvalidTrade, trade.ID, trade.Price)
	case trade.BuyerID == "" || trade.SellerID == "":
		return fmt.Errorf("%w: %s missing member", ErrInvalidTrade, trade.ID)
	case trade.SettlementDate.IsZero():
		return fmt.Errorf("%w: %s missing settlement date", ErrInvalidTrade, trade.ID)
	}
	return nil
}

// Exposures derives the two CCP-facing legs of trade. Ids come from the trade
// id so the result is the same on every call.
func Exposures(trade orderbookv1.Trade, ccpAccount string, createdAt time.Time) (buyer, seller novationv1.NovatedExposure) {
	notional := trade.Notional()

	buyer = novationv1.NovatedExposure{
		ID:             trade.ID + "-B",
		TradeID:        trade.ID,
		Kind:           novationv1.KindTrade,
		MemberID:       trade.BuyerID,
		Counterparty:   ccpAccount,
		Instrument:     trade.Instrument,
		Side:           orderbookv1.SideBuy,
		Quantity:       trade.Quantity,
		Price:          trade.Price,
		Amount:         notional,
		Currency:       trade.Currency,
		Direction:      novationv1.Payable,
		SettlementDate: trade.SettlementDate,
		CreatedAt:      createdAt,
	}

	seller = buyer
	seller.ID = trade.ID + "-S"
	seller.MemberID = trade.SellerID
	seller.Side = orderbookv1.SideSell
	seller.Direction = novationv1.Receivable

	return buyer, seller
}
