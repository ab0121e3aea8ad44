// Package exposure persists novated exposures.
package exposure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
	novationv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/novation/v1"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
)

const (
	columns     = "id, trade_id, kind, member_id, counterparty, instrument, side, quantity, price, amount, currency, direction, settlement_date, created_at"
	columnCount = 14

	byTradeQuery     = "SELECT " + columns + " FROM exposures WHERE trade_id = $1 ORDER BY id"
	unsettledQuery   = "SELECT " + columns + " FROM exposures WHERE NOT settled ORDER BY settlement_date, created_at, id"
	markSettledQuery = "UPDATE exposures SET settled = TRUE WHERE settlement_date = $1 AND NOT settled"
)

// Repository stores exposures in PostgreSQL.
type Repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

var _ novationv1.Store = (*Repository)(nil)

// NewRepository creates a new exposure repository.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func insertQuery(n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO exposures (" + columns + ") VALUES ")
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
	return b.String()
}

// Record inserts the exposures of one trade in a single statement, so either
// all of them are stored or none are.
func (r *Repository) Record(ctx context.Context, exposures ...novationv1.NovatedExposure) error {
	if len(exposures) == 0 {
		return nil
	}

	args := make([]any, 0, len(exposures)*columnCount)
	for _, x := range exposures {
		args = append(args,
			x.ID,
			x.TradeID,
			string(x.Kind),
			x.MemberID,
			x.Counterparty,
			x.Instrument,
			string(x.Side),
			x.Quantity,
			x.Price,
			x.Amount,
			x.Currency,
			string(x.Direction),
			x.SettlementDate,
			x.CreatedAt,
		)
	}

	if _, err := r.db.Exec(ctx, insertQuery(len(exposures)), args...); err != nil {
		if postgresql.IsUniqueViolation(err) {
			return novationv1.ErrAlreadyNovated
		}
		return errors.TracerFromError(err)
	}
	return nil
}

// ByTrade returns the exposures of one trade.
func (r *Repository) ByTrade(ctx context.Context, tradeID string) ([]novationv1.NovatedExposure, error) {
	return r.list(ctx, byTradeQuery, tradeID)
}

// Unsettled returns every exposure not yet marked settled, oldest settlement date first.
func (r *Repository) Unsettled(ctx context.Context) ([]novationv1.NovatedExposure, error) {
	return r.list(ctx, unsettledQuery)
}

// MarkSettled flags the exposures of settlementDate as settled.
func (r *Repository) MarkSettled(ctx context.Context, settlementDate time.Time) error {
	cmd, err := r.db.Exec(ctx, markSettledQuery, settlementDate)
	if err != nil {
		return errors.TracerFromError(err)
	}

	r.logger.Info("Marked exposures settled",
		logger.Field{Key: "settlementDate", Value: settlementDate.Format(time.DateOnly)},
		logger.Field{Key: "exposures", Value: cmd.RowsAffected()},
	)
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]novationv1.NovatedExposure, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	defer rows.Close()

	var out []novationv1.NovatedExposure
	for rows.Next() {
		var (
			x                     novationv1.NovatedExposure
			kind, side, direction string
		)
		err := rows.Scan(
			&x.ID,
			&x.TradeID,
			&kind,
			&x.MemberID,
			&x.Counterparty,
			&x.Instrument,
			&side,
			&x.Quantity,
			&x.Price,
			&x.Amount,
			&x.Currency,
			&direction,
			&x.SettlementDate,
			&x.CreatedAt,
		)
		if err != nil {
			return nil, errors.TracerFromError(err)
		}
		x.Kind = novationv1.Kind(kind)
		x.Side = orderbookv1.Side(side)
		x.Direction = novationv1.Direction(direction)
		x.SettlementDate = x.SettlementDate.UTC()
		x.CreatedAt = x.CreatedAt.UTC()
		out = append(out, x)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err)
	}
	return out, nil
}
