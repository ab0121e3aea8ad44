// Package trade is the PostgreSQL trade journal.
package trade

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
)

const columns = "id, instrument, quantity, price, buy_order_id, sell_order_id, buyer_id, seller_id, aggressor, sequence, currency, settlement_date, executed_at"

const columnCount = 13

const unnovatedQuery = `SELECT t.id, t.instrument, t.quantity, t.price, t.buy_order_id, t.sell_order_id, t.buyer_id, t.seller_id, t.aggressor, t.sequence, t.currency, t.settlement_date, t.executed_at
FROM trades t
WHERE NOT EXISTS (SELECT 1 FROM exposures e WHERE e.trade_id = t.id)
ORDER BY t.executed_at, t.instrument, t.sequence`

// Repository journals trades.
type Repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

var _ orderbookv1.TradeJournal = (*Repository)(nil)

// NewRepository creates a new trade journal.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// insertQuery builds a multi-row insert for n trades that skips ids already journaled.
func insertQuery(n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO trades (" + columns + ") VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := 0; j < columnCount; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*columnCount+j+1)
		}
		b.WriteString(")")
	}
	b.WriteString(" ON CONFLICT (id) DO NOTHING")
	return b.String()
}

// Append journals trades in one statement. Trades already journaled are skipped.
func (r *Repository) Append(ctx context.Context, trades ...orderbookv1.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	args := make([]any, 0, len(trades)*columnCount)
	for _, t := range trades {
		args = append(args,
			t.ID,
			t.Instrument,
			t.Quantity,
			t.Price,
			t.BuyOrderID,
			t.SellOrderID,
			t.BuyerID,
			t.SellerID,
			string(t.Aggressor),
			t.Sequence,
			t.Currency,
			t.SettlementDate,
			t.ExecutedAt,
		)
	}

	cmd, err := r.db.Exec(ctx, insertQuery(len(trades)), args...)
	if err != nil {
		return errors.TracerFromError(err)
	}

	r.logger.Debug("Journaled trades",
		logger.Field{Key: "trades", Value: len(trades)},
		logger.Field{Key: "inserted", Value: cmd.RowsAffected()},
	)
	return nil
}

// Unnovated returns journaled trades with no exposures, in execution order.
func (r *Repository) Unnovated(ctx context.Context) ([]orderbookv1.Trade, error) {
	rows, err := r.db.Query(ctx, unnovatedQuery)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	defer rows.Close()

	var trades []orderbookv1.Trade
	for rows.Next() {
		var (
			t         orderbookv1.Trade
			aggressor string
		)
		err := rows.Scan(
			&t.ID,
			&t.Instrument,
			&t.Quantity,
			&t.Price,
			&t.BuyOrderID,
			&t.SellOrderID,
			&t.BuyerID,
			&t.SellerID,
			&aggressor,
			&t.Sequence,
			&t.Currency,
			&t.SettlementDate,
			&t.ExecutedAt,
		)
		if err != nil {
			return nil, errors.TracerFromError(err)
		}
		t.Aggressor = orderbookv1.Side(aggressor)
		t.SettlementDate = t.SettlementDate.UTC()
		t.ExecutedAt = t.ExecutedAt.UTC()
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err)
	}
	return trades, nil
}
