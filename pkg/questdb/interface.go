package questdb

import (
	"context"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
)

// QuestDBClient defines the time-series operations used against QuestDB over
// the PostgreSQL wire protocol.
//
//go:generate mockgen -source=interface.go -destination=mock/interface_mock.go -package=mock
type QuestDBClient interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (postgresql.RowsInterface, error)

	Ping(ctx context.Context) error
	Close()
}
