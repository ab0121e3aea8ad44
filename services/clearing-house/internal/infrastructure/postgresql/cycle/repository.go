// Package cycle persists closed netting cycles.
package cycle

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
	nettingv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/netting/v1"
	"github.com/jackc/pgx/v5"
)

const (
	saveQuery = `INSERT INTO netting_cycles (settlement_date, status, obligations, exposure_count, closed_at, reason)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (settlement_date) DO UPDATE SET
	status = EXCLUDED.status,
	obligations = EXCLUDED.obligations,
	exposure_count = EXCLUDED.exposure_count,
	closed_at = EXCLUDED.closed_at,
	reason = EXCLUDED.reason`

	getQuery = `SELECT settlement_date, status, obligations, exposure_count, closed_at, reason FROM netting_cycles WHERE settlement_date = $1`

	updateStatusQuery = `UPDATE netting_cycles SET status = $1 WHERE settlement_date = $2`
)

// Repository stores netting cycles.
type Repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

var _ nettingv1.Repository = (*Repository)(nil)

// NewRepository creates a new cycle repository.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// SaveCycle inserts or replaces the cycle of its settlement date.
func (r *Repository) SaveCycle(ctx context.Context, cycle *nettingv1.NettingCycle) error {
	obligations, err := json.Marshal(cycle.Obligations)
	if err != nil {
		return errors.NewTracer("marshal obligations").Wrap(err)
	}

	_, err = r.db.Exec(ctx, saveQuery,
		cycle.SettlementDate,
		string(cycle.Status),
		obligations,
		cycle.ExposureCount,
		cycle.ClosedAt,
		cycle.Reason,
	)
	if err != nil {
		return errors.TracerFromError(err)
	}
	return nil
}

// GetCycle returns ErrCycleNotFound when no cycle was saved for settlementDate.
func (r *Repository) GetCycle(ctx context.Context, settlementDate time.Time) (*nettingv1.NettingCycle, error) {
	var (
		c           nettingv1.NettingCycle
		status      string
		obligations []byte
	)
	err := r.db.QueryRow(ctx, getQuery, settlementDate).Scan(
		&c.SettlementDate,
		&status,
		&obligations,
		&c.ExposureCount,
		&c.ClosedAt,
		&c.Reason,
	)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, nettingv1.ErrCycleNotFound
		}
		return nil, errors.TracerFromError(err)
	}

	if err := json.Unmarshal(obligations, &c.Obligations); err != nil {
		return nil, errors.NewTracer("unmarshal obligations").Wrap(err)
	}
	c.Status = nettingv1.CycleStatus(status)
	c.SettlementDate = c.SettlementDate.UTC()
	return &c, nil
}

// UpdateStatus returns ErrCycleNotFound when the cycle was never saved.
func (r *Repository) UpdateStatus(ctx context.Context, settlementDate time.Time, status nettingv1.CycleStatus) error {
	cmd, err := r.db.Exec(ctx, updateStatusQuery, string(status), settlementDate)
	if err != nil {
		return errors.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return nettingv1.ErrCycleNotFound
	}

	r.logger.Info("Updated netting cycle status",
		logger.Field{Key: "settlementDate", Value: settlementDate.Format(time.DateOnly)},
		logger.Field{Key: "status", Value: string(status)},
	)
	return nil
}
