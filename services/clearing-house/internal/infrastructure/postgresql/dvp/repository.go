// Package dvp persists DvP settlements with optimistic versioning.
package dvp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
	settlementv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/settlement/v1"
	"github.com/jackc/pgx/v5"
)

const (
	columns = "id, obligation, status, delivery, payment, committing, reason, deadline, version, created_at, updated_at, completed_at"

	createQuery = `INSERT INTO settlements (` + columns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10, $11)`

	saveQuery = `UPDATE settlements SET
	obligation = $2,
	status = $3,
	delivery = $4,
	payment = $5,
	committing = $6,
	reason = $7,
	deadline = $8,
	created_at = $9,
	updated_at = $10,
	completed_at = $11,
	version = version + 1
WHERE id = $1 AND version = $12`

	getQuery = `SELECT ` + columns + ` FROM settlements WHERE id = $1`

	versionQuery = `SELECT version FROM settlements WHERE id = $1`

	listOpenQuery = `SELECT ` + columns + ` FROM settlements WHERE status NOT IN ('completed', 'rolled_back') ORDER BY id`
)

// Repository stores settlements.
type Repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

var _ settlementv1.Repository = (*Repository)(nil)

// NewRepository creates a new settlement repository.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type row struct {
	obligation, delivery, payment []byte
	status                        string
}

func args(s *settlementv1.DvpSettlement) ([]any, error) {
	obligation, err := json.Marshal(s.Obligation)
	if err != nil {
		return nil, err
	}
	delivery, err := json.Marshal(s.Delivery)
	if err != nil {
		return nil, err
	}
	payment, err := json.Marshal(s.Payment)
	if err != nil {
		return nil, err
	}
	return []any{
		s.ID,
		obligation,
		string(s.Status),
		delivery,
		payment,
		s.Committing,
		s.Reason,
		s.Deadline,
		s.CreatedAt,
		s.UpdatedAt,
		s.CompletedAt,
	}, nil
}

// Create stores a new settlement at version 1. ErrAlreadyOpen is returned if
// the id exists.
func (r *Repository) Create(ctx context.Context, settlement *settlementv1.DvpSettlement) error {
	values, err := args(settlement)
	if err != nil {
		return errors.NewTracer("encode settlement " + settlement.ID).Wrap(err)
	}

	if _, err := r.db.Exec(ctx, createQuery, values...); err != nil {
		if postgresql.IsUniqueViolation(err) {
			return settlementv1.ErrAlreadyOpen
		}
		return errors.TracerFromError(err)
	}
	settlement.Version = 1
	return nil
}

// Save updates the settlement if its stored version equals Version.
func (r *Repository) Save(ctx context.Context, settlement *settlementv1.DvpSettlement) error {
	values, err := args(settlement)
	if err != nil {
		return errors.NewTracer("encode settlement " + settlement.ID).Wrap(err)
	}

	cmd, err := r.db.Exec(ctx, saveQuery, append(values, settlement.Version)...)
	if err != nil {
		return errors.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return r.missOrConflict(ctx, settlement.ID)
	}
	settlement.Version++
	return nil
}

func (r *Repository) missOrConflict(ctx context.Context, id string) error {
	var version int64
	if err := r.db.QueryRow(ctx, versionQuery, id).Scan(&version); err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return settlementv1.ErrSettlementNotFound
		}
		return errors.TracerFromError(err)
	}
	return settlementv1.ErrVersionConflict
}

// Get returns ErrSettlementNotFound for an unknown id.
func (r *Repository) Get(ctx context.Context, id string) (*settlementv1.DvpSettlement, error) {
	var (
		s   settlementv1.DvpSettlement
		raw row
	)
	if err := r.db.QueryRow(ctx, getQuery, id).Scan(dest(&s, &raw)...); err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, settlementv1.ErrSettlementNotFound
		}
		return nil, errors.TracerFromError(err)
	}
	if err := decode(&s, raw); err != nil {
		return nil, errors.NewTracer("decode settlement " + id).Wrap(err)
	}
	return &s, nil
}

// ListOpen returns every settlement that is neither completed nor rolled back.
func (r *Repository) ListOpen(ctx context.Context) ([]*settlementv1.DvpSettlement, error) {
	rows, err := r.db.Query(ctx, listOpenQuery)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	defer rows.Close()

	out := make([]*settlementv1.DvpSettlement, 0)
	for rows.Next() {
		var (
			s   settlementv1.DvpSettlement
			raw row
		)
		if err := rows.Scan(dest(&s, &raw)...); err != nil {
			return nil, errors.TracerFromError(err)
		}
		if err := decode(&s, raw); err != nil {
			return nil, errors.NewTracer("decode settlement " + s.ID).Wrap(err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err)
	}
	return out, nil
}

func dest(s *settlementv1.DvpSettlement, raw *row) []any {
	return []any{
		&s.ID,
		&raw.obligation,
		&raw.status,
		&raw.delivery,
		&raw.payment,
		&s.Committing,
		&s.Reason,
		&s.Deadline,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.CompletedAt,
	}
}

func decode(s *settlementv1.DvpSettlement, raw row) error {
	s.Status = settlementv1.Status(raw.status)
	s.Deadline = s.Deadline.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return stderrors.Join(
		json.Unmarshal(raw.obligation, &s.Obligation),
		json.Unmarshal(raw.delivery, &s.Delivery),
		json.Unmarshal(raw.payment, &s.Payment),
	)
}
