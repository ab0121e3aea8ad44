// Package member reads the member registry.
package member

import (
	"context"
	stderrors "errors"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
	collaboratorv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/collaborator/v1"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrMemberNotFound is returned for a member that is not registered.
var ErrMemberNotFound = stderrors.New("member not registered")

const (
	eligibleQuery = `SELECT kyc_approved AND NOT suspended FROM members WHERE member_id = $1`
	capitalQuery  = `SELECT capital_on_file FROM members WHERE member_id = $1`
)

// Registry answers eligibility and capital questions from the members table.
type Registry struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

var _ collaboratorv1.MemberRegistry = (*Registry)(nil)

// NewRegistry creates a new member registry.
func NewRegistry(db postgresql.PostgreSQLClient, logger logger.Interface) *Registry {
	return &Registry{
		db:     db,
		logger: logger,
	}
}

// IsEligibleToTrade reports false for unknown, unapproved or suspended members.
func (r *Registry) IsEligibleToTrade(ctx context.Context, memberID string) (bool, error) {
	var eligible bool
	if err := r.db.QueryRow(ctx, eligibleQuery, memberID).Scan(&eligible); err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Unknown member", logger.Field{Key: "memberID", Value: memberID})
			return false, nil
		}
		return false, errors.TracerFromError(err)
	}
	return eligible, nil
}

// CapitalOnFile returns ErrMemberNotFound for unknown members.
func (r *Registry) CapitalOnFile(ctx context.Context, memberID string) (decimal.Decimal, error) {
	var capital decimal.Decimal
	if err := r.db.QueryRow(ctx, capitalQuery, memberID).Scan(&capital); err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrMemberNotFound
		}
		return decimal.Zero, errors.TracerFromError(err)
	}
	return capital, nil
}
