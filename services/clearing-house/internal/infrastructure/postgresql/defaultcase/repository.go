// Package defaultcase persists default cases and the guarantee fund.
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
)

const (
	createCaseQuery = `INSERT INTO default_cases (id, member_id, status, halted, body, version, created_at, updated_at, closed_at)
VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8)`

	saveCaseQuery = `UPDATE default_cases SET
	member_id = $2,
	status = $3,
	halted = $4,
	body = $5,
	created_at = $6,
	updated_at = $7,
	closed_at = $8,
	version = version + 1
WHERE id = $1 AND version = $9`

	getCaseQuery = `SELECT body, version FROM default_cases WHERE id = $1`

	openByMemberQuery = `SELECT body, version FROM default_cases WHERE member_id = $1 AND status <> 'closed'`

	caseVersionQuery = `SELECT version FROM default_cases WHERE id = $1`
)

// CaseRepository stores default cases. The full case is kept as a JSON body
// next to the columns used for lookups and the open-case constraint.
type CaseRepository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

var _ waterfallv1.CaseRepository = (*CaseRepository)(nil)

// NewCaseRepository creates a new default case repository.
func NewCaseRepository(db postgresql.PostgreSQLClient, logger logger.Interface) *CaseRepository {
	return &CaseRepository{
		db:     db,
		logger: logger,
	}
}

func caseArgs(c *waterfallv1.DefaultCase) ([]any, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return []any{
		c.ID,
		c.MemberID,
		string(c.Status),
		c.Halted,
		body,
		c.CreatedAt,
		c.UpdatedAt,
		c.ClosedAt,
	}, nil
}

// Create stores a new case at version 1. ErrAlreadyInDefault is returned when
// the member already has a case that is not closed.
func (r *CaseRepository) Create(ctx context.Context, c *waterfallv1.DefaultCase) error {
	values, err := caseArgs(c)
	if err != nil {
		return errors.NewTracer("encode default case " + c.ID).Wrap(err)
	}
	if _, err := r.db.Exec(ctx, createCaseQuery, values...); err != nil {
		if postgresql.IsUniqueViolation(err) {
			return waterfallv1.ErrAlreadyInDefault
		}
		return errors.TracerFromError(err)
	}
	c.Version = 1
	return nil
}

// Save updates the case if its stored version equals Version.
func (r *CaseRepository) Save(ctx context.Context, c *waterfallv1.DefaultCase) error {
	values, err := caseArgs(c)
	if err != nil {
		return errors.NewTracer("encode default case " + c.ID).Wrap(err)
	}
	cmd, err := r.db.Exec(ctx, saveCaseQuery, append(values, c.Version)...)
	if err != nil {
		return errors.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		var version int64
		if err := r.db.QueryRow(ctx, caseVersionQuery, c.ID).Scan(&version); err != nil {
			if stderrors.Is(err, pgx.ErrNoRows) {
				return waterfallv1.ErrCaseNotFound
			}
			return errors.TracerFromError(err)
		}
		return waterfallv1.ErrVersionConflict
	}
	c.Version++
	return nil
}

// Get returns ErrCaseNotFound for an unknown id.
func (r *CaseRepository) Get(ctx context.Context, id string) (*waterfallv1.DefaultCase, error) {
	return r.one(ctx, getCaseQuery, id)
}

// OpenByMember returns the member's case that is not closed, or ErrCaseNotFound.
func (r *CaseRepository) OpenByMember(ctx context.Context, memberID string) (*waterfallv1.DefaultCase, error) {
	return r.one(ctx, openByMemberQuery, memberID)
}

func (r *CaseRepository) one(ctx context.Context, query, key string) (*waterfallv1.DefaultCase, error) {
	var (
		body    []byte
		version int64
	)
	if err := r.db.QueryRow(ctx, query, key).Scan(&body, &version); err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, waterfallv1.ErrCaseNotFound
		}
		return nil, errors.TracerFromError(err)
	}

	var c waterfallv1.DefaultCase
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, errors.NewTracer("decode default case " + key).Wrap(err)
	}
	c.Version = version
	return &c, nil
}
