package snapshot

import (
	"context"
	"encoding/json"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/redis"
	snapshotv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/snapshot/v1"
)

// Store keeps the latest book snapshot of each instrument in Redis.
type Store struct {
	redisclient redis.Client
	logger      logger.Interface
}

var _ snapshotv1.Store = (*Store)(nil)

// NewStore creates a Redis backed snapshot store.
func NewStore(redisclient redis.Client, logger logger.Interface) *Store {
	return &Store{
		redisclient: redisclient,
		logger:      logger,
	}
}

func (s *Store) key(instrument string) string {
	return s.redisclient.Key("snapshot", instrument)
}

// Save overwrites the instrument's snapshot.
func (s *Store) Save(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		return errors.NewTracer("snapshot_marshal_error").Wrap(err)
	}

	if err := s.redisclient.Set(ctx, s.key(snapshot.Instrument), buf, 0); err != nil {
		s.logger.ErrorContext(ctx, err,
			logger.Field{Key: "instrument", Value: snapshot.Instrument},
			logger.Field{Key: "action", Value: "store snapshot"},
		)
		return errors.NewTracer("snapshot_store_error").Wrap(err)
	}

	s.logger.DebugContext(ctx, "snapshot stored",
		logger.Field{Key: "instrument", Value: snapshot.Instrument},
		logger.Field{Key: "offset", Value: snapshot.OrderOffset},
		logger.Field{Key: "orders", Value: len(snapshot.Orders)},
	)
	return nil
}

// Load returns the instrument's snapshot, or nil when none was stored.
func (s *Store) Load(ctx context.Context, instrument string) (*snapshotv1.Snapshot, error) {
	data, err := s.redisclient.Get(ctx, s.key(instrument))
	if err != nil {
		s.logger.ErrorContext(ctx, err,
			logger.Field{Key: "instrument", Value: instrument},
			logger.Field{Key: "action", Value: "load snapshot"},
		)
		return nil, errors.NewTracer("snapshot_load_error").Wrap(err)
	}
	if data == "" {
		s.logger.WarnContext(ctx, "no snapshot found", logger.Field{Key: "instrument", Value: instrument})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, errors.NewTracer("snapshot_unmarshal_error").Wrap(err)
	}
	return &snapshot, nil
}
