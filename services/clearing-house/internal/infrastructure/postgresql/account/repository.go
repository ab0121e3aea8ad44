// Package account persists margin accounts with optimistic versioning.
package account

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
	marginv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/margin/v1"
	"github.com/jackc/pgx/v5"
)

const (
	getQuery = `SELECT member_id, initial_margin, variation_margin, unrealized_pnl, unrealized, collateral, excess, deficit, contributions, calls, defaulted, seized, version, revalued_at
FROM margin_accounts WHERE member_id = $1`

	insertQuery = `INSERT INTO margin_accounts (member_id, initial_margin, variation_margin, unrealized_pnl, unrealized, collateral, excess, deficit, contributions, calls, defaulted, seized, version, revalued_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13)
ON CONFLICT (member_id) DO NOTHING`

	updateQuery = `UPDATE margin_accounts SET
	initial_margin = $2,
	variation_margin = $3,
	unrealized_pnl = $4,
	unrealized = $5,
	collateral = $6,
	excess = $7,
	deficit = $8,
	contributions = $9,
	calls = $10,
	defaulted = $11,
	seized = $12,
	revalued_at = $13,
	version = version + 1
WHERE member_id = $1 AND version = $14`

	membersQuery = `SELECT member_id FROM margin_accounts ORDER BY member_id`
)

// Repository stores margin accounts.
type Repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

var _ marginv1.AccountStore = (*Repository)(nil)

// NewRepository creates a new margin account repository.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type documents struct {
	unrealized, collateral, contributions, calls []byte
}

func encode(a *marginv1.MarginAccount) (documents, error) {
	var (
		d   documents
		err error
	)
	if d.unrealized, err = json.Marshal(nonNilAmounts(a.Unrealized)); err != nil {
		return d, err
	}
	if d.collateral, err = json.Marshal(nonNilSlice(a.Collateral)); err != nil {
		return d, err
	}
	if d.contributions, err = json.Marshal(nonNilAmounts(a.Contributions)); err != nil {
		return d, err
	}
	if d.calls, err = json.Marshal(nonNilSlice(a.Calls)); err != nil {
		return d, err
	}
	return d, nil
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func nonNilAmounts[M ~map[string]V, V any](in M) M {
	if in == nil {
		return M{}
	}
	return in
}

// Get returns ErrAccountNotFound when the member has no account.
func (r *Repository) Get(ctx context.Context, memberID string) (*marginv1.MarginAccount, error) {
	var (
		a marginv1.MarginAccount
		d documents
	)
	err := r.db.QueryRow(ctx, getQuery, memberID).Scan(
		&a.MemberID,
		&a.InitialMargin,
		&a.VariationMargin,
		&a.UnrealizedPnL,
		&d.unrealized,
		&d.collateral,
		&a.Excess,
		&a.Deficit,
		&d.contributions,
		&d.calls,
		&a.Defaulted,
		&a.Seized,
		&a.Version,
		&a.RevaluedAt,
	)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, marginv1.ErrAccountNotFound
		}
		return nil, errors.TracerFromError(err)
	}

	if err := stderrors.Join(
		json.Unmarshal(d.unrealized, &a.Unrealized),
		json.Unmarshal(d.collateral, &a.Collateral),
		json.Unmarshal(d.contributions, &a.Contributions),
		json.Unmarshal(d.calls, &a.Calls),
	); err != nil {
		return nil, errors.NewTracer("decode margin account " + memberID).Wrap(err)
	}
	a.RevaluedAt = a.RevaluedAt.UTC()
	return &a, nil
}

// Save inserts a new account when Version is 0 and otherwise updates the row
// only if its stored version still equals Version. Either way Version is
// bumped on success.
func (r *Repository) Save(ctx context.Context, account *marginv1.MarginAccount) error {
	d, err := encode(account)
	if err != nil {
		return errors.NewTracer("encode margin account " + account.MemberID).Wrap(err)
	}

	args := []any{
		account.MemberID,
		account.InitialMargin,
		account.VariationMargin,
		account.UnrealizedPnL,
		d.unrealized,
		d.collateral,
		account.Excess,
		account.Deficit,
		d.contributions,
		d.calls,
		account.Defaulted,
		account.Seized,
		account.RevaluedAt,
	}
	query := insertQuery
	if account.Version > 0 {
		query = updateQuery
		args = append(args, account.Version)
	}

	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return errors.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return marginv1.ErrVersionConflict
	}
	account.Version++
	return nil
}

// Members lists every member with an account.
func (r *Repository) Members(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, membersQuery)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, errors.TracerFromError(err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err)
	}
	return members, nil
}
