package defaultcase

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
	waterfallv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/waterfall/v1"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	seedFundQuery = `INSERT INTO guarantee_fund (id, skin_in_the_game, capital_reserve, contributions, version, updated_at)
VALUES (1, $1, $2, $3, 1, $4)
ON CONFLICT (id) DO NOTHING`

	getFundQuery = `SELECT skin_in_the_game, capital_reserve, contributions, allocations, version, updated_at FROM guarantee_fund WHERE id = 1`

	saveFundQuery = `UPDATE guarantee_fund SET
	skin_in_the_game = $1,
	capital_reserve = $2,
	contributions = $3,
	allocations = $4,
	updated_at = $5,
	version = version + 1
WHERE id = 1 AND version = $6`
)

// ErrFundNotSeeded is returned by Get before Seed has run.
var ErrFundNotSeeded = stderrors.New("guarantee fund not seeded")

// FundRepository stores the single guarantee fund row.
type FundRepository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

var _ waterfallv1.FundRepository = (*FundRepository)(nil)

// NewFundRepository creates a new guarantee fund repository.
func NewFundRepository(db postgresql.PostgreSQLClient, logger logger.Interface) *FundRepository {
	return &FundRepository{
		db:     db,
		logger: logger,
	}
}

func contributions(fund *waterfallv1.GuaranteeFund) ([]byte, error) {
	if fund.Contributions == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(fund.Contributions)
}

func allocations(fund *waterfallv1.GuaranteeFund) ([]byte, error) {
	if fund.Allocations == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(fund.Allocations)
}

// Seed creates the fund row if it does not exist yet. An existing fund is
// left untouched.
func (r *FundRepository) Seed(ctx context.Context, fund *waterfallv1.GuaranteeFund) error {
	raw, err := contributions(fund)
	if err != nil {
		return errors.NewTracer("encode guarantee fund").Wrap(err)
	}
	cmd, err := r.db.Exec(ctx, seedFundQuery, fund.SkinInTheGame, fund.CapitalReserve, raw, fund.UpdatedAt)
	if err != nil {
		return errors.TracerFromError(err)
	}
	if cmd.RowsAffected() > 0 {
		r.logger.Info("Seeded guarantee fund",
			logger.Field{Key: "skinInTheGame", Value: fund.SkinInTheGame.String()},
			logger.Field{Key: "capitalReserve", Value: fund.CapitalReserve.String()},
		)
	}
	return nil
}

// Get returns ErrFundNotSeeded when the fund row is missing.
func (r *FundRepository) Get(ctx context.Context) (*waterfallv1.GuaranteeFund, error) {
	var (
		fund            waterfallv1.GuaranteeFund
		raw, rawApplied []byte
	)
	err := r.db.QueryRow(ctx, getFundQuery).Scan(
		&fund.SkinInTheGame,
		&fund.CapitalReserve,
		&raw,
		&rawApplied,
		&fund.Version,
		&fund.UpdatedAt,
	)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFundNotSeeded
		}
		return nil, errors.TracerFromError(err)
	}

	fund.Contributions = make(map[string]decimal.Decimal)
	fund.Allocations = make(map[string]waterfallv1.Allocation)
	if err := stderrors.Join(
		json.Unmarshal(raw, &fund.Contributions),
		json.Unmarshal(rawApplied, &fund.Allocations),
	); err != nil {
		return nil, errors.NewTracer("decode guarantee fund").Wrap(err)
	}
	fund.UpdatedAt = fund.UpdatedAt.UTC()
	return &fund, nil
}

// Save writes the fund if its stored version equals Version.
func (r *FundRepository) Save(ctx context.Context, fund *waterfallv1.GuaranteeFund) error {
	raw, err := contributions(fund)
	if err != nil {
		return errors.NewTracer("encode guarantee fund").Wrap(err)
	}
	applied, err := allocations(fund)
	if err != nil {
		return errors.NewTracer("encode guarantee fund").Wrap(err)
	}
	cmd, err := r.db.Exec(ctx, saveFundQuery, fund.SkinInTheGame, fund.CapitalReserve, raw, applied, fund.UpdatedAt, fund.Version)
	if err != nil {
		return errors.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return waterfallv1.ErrVersionConflict
	}
	fund.Version++
	return nil
}
