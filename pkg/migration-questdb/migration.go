// Package migrationquestdb applies versioned SQL migrations to QuestDB.
//
// QuestDB has no transactional DDL and no DELETE, so every apply and revert
// is appended to the bookkeeping table and the latest row per id wins.
package migrationquestdb

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/questdb"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// Migration is one QuestDB schema change. Files are named
// YYYYMMDDHHMMSS_name.up.sql with an optional matching .down.sql.
type Migration struct {
	ID      string
	Name    string
	UpSQL   string
	DownSQL string
}

// Runner applies migrations read from an fs.FS.
type Runner struct {
	client questdb.QuestDBClient
	logger logger.Interface
	source fs.FS
	table  string
}

// NewRunner creates a runner. An empty table defaults to schema_migrations.
func NewRunner(client questdb.QuestDBClient, log logger.Interface, source fs.FS, table string) *Runner {
	if table == "" {
		table = "schema_migrations"
	}
	return &Runner{client: client, logger: log, source: source, table: table}
}

// EnsureMigrationTable creates the bookkeeping table if missing.
func (r *Runner) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id SYMBOL,
		name STRING,
		applied BOOLEAN,
		recorded_at TIMESTAMP
	) TIMESTAMP(recorded_at) PARTITION BY MONTH`, r.table)

	if err := r.client.Exec(ctx, query); err != nil {
		return errors.NewTracer("create migration table").Wrap(err)
	}
	return nil
}

// Applied returns the ids whose latest record is an apply.
func (r *Runner) Applied(ctx context.Context) (map[string]bool, error) {
	rows, err := r.client.Query(ctx,
		fmt.Sprintf("SELECT id, applied FROM %s LATEST ON recorded_at PARTITION BY id", r.table))
	if err != nil {
		return nil, errors.NewTracer("read applied migrations").Wrap(err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var (
			id string
			ok bool
		)
		if err := rows.Scan(&id, &ok); err != nil {
			return nil, errors.TracerFromError(err)
		}
		if ok {
			applied[id] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err)
	}
	return applied, nil
}

// Load reads the migrations in id order.
func (r *Runner) Load() ([]Migration, error) {
	files, err := fs.Glob(r.source, "*"+upSuffix)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	sort.Strings(files)

	out := make([]Migration, 0, len(files))
	for _, file := range files {
		up, err := fs.ReadFile(r.source, file)
		if err != nil {
			return nil, errors.NewTracer("read " + file).Wrap(err)
		}

		id := strings.TrimSuffix(file, upSuffix)
		m := Migration{ID: id, Name: id, UpSQL: strings.TrimSpace(string(up))}
		if _, name, ok := strings.Cut(id, "_"); ok {
			m.Name = name
		}
		if down, err := fs.ReadFile(r.source, id+downSuffix); err == nil {
			m.DownSQL = strings.TrimSpace(string(down))
		}
		out = append(out, m)
	}
	return out, nil
}

// MigrateUp applies pending migrations. steps <= 0 applies all of them.
func (r *Runner) MigrateUp(ctx context.Context, steps int) error {
	migrations, applied, err := r.state(ctx)
	if err != nil {
		return err
	}

	count := 0
	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}
		if steps > 0 && count >= steps {
			break
		}
		if err := r.run(ctx, m, m.UpSQL, true); err != nil {
			return errors.NewTracer("apply migration " + m.ID).Wrap(err)
		}
		r.logger.Info("migration applied", logger.Field{Key: "id", Value: m.ID})
		count++
	}
	return nil
}

// MigrateDown reverts the last steps applied migrations.
func (r *Runner) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		return errors.NewTracer("steps must be greater than 0 for down migrations")
	}
	migrations, applied, err := r.state(ctx)
	if err != nil {
		return err
	}

	count := 0
	for i := len(migrations) - 1; i >= 0 && count < steps; i-- {
		m := migrations[i]
		if !applied[m.ID] {
			continue
		}
		if m.DownSQL == "" {
			return errors.NewTracer("migration " + m.ID + " has no down sql")
		}
		if err := r.run(ctx, m, m.DownSQL, false); err != nil {
			return errors.NewTracer("revert migration " + m.ID).Wrap(err)
		}
		r.logger.Info("migration reverted", logger.Field{Key: "id", Value: m.ID})
		count++
	}
	return nil
}

func (r *Runner) state(ctx context.Context) ([]Migration, map[string]bool, error) {
	if err := r.EnsureMigrationTable(ctx); err != nil {
		return nil, nil, err
	}
	migrations, err := r.Load()
	if err != nil {
		return nil, nil, err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, nil, err
	}
	return migrations, applied, nil
}

// run executes each ;-separated statement, then records the outcome.
func (r *Runner) run(ctx context.Context, m Migration, script string, applied bool) error {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := r.client.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return r.client.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (id, name, applied, recorded_at) VALUES ($1, $2, $3, now())", r.table),
		m.ID, m.Name, applied)
}
