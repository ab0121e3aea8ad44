// Package migrationpg applies versioned SQL migrations to PostgreSQL.
package migrationpg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
	idLayout   = "20060102150405"
)

// Migration is one versioned schema change.
type Migration struct {
	ID        string
	Name      string
	Timestamp time.Time
	UpSQL     string
	DownSQL   string
}

// Config for the migration runner.
type Config struct {
	// Source holds the *.up.sql / *.down.sql files, usually an embed.FS.
	Source    fs.FS
	Dir       string
	Schema    string
	TableName string
}

// Runner applies and reverts migrations, recording progress in a bookkeeping table.
type Runner struct {
	client    postgresql.PostgreSQLClient
	logger    logger.Interface
	source    fs.FS
	dir       string
	schema    string
	tableName string
}

// NewRunner creates a new migration runner.
func NewRunner(client postgresql.PostgreSQLClient, log logger.Interface, config Config) *Runner {
	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.TableName == "" {
		config.TableName = "schema_migrations"
	}
	if config.Dir == "" {
		config.Dir = "."
	}

	return &Runner{
		client:    client,
		logger:    log,
		source:    config.Source,
		dir:       config.Dir,
		schema:    config.Schema,
		tableName: config.TableName,
	}
}

func (r *Runner) table() string {
	return r.schema + "." + r.tableName
}

// EnsureMigrationTable creates the bookkeeping table if missing.
func (r *Runner) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, r.table())

	if _, err := r.client.Exec(ctx, query); err != nil {
		return errors.TracerFromError(err)
	}
	return nil
}

// Applied returns the set of applied migration ids.
func (r *Runner) Applied(ctx context.Context) (map[string]bool, error) {
	rows, err := r.client.Query(ctx, fmt.Sprintf("SELECT id FROM %s ORDER BY applied_at", r.table()))
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.TracerFromError(err)
		}
		applied[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err)
	}
	return applied, nil
}

// Load reads all migrations from the source, ordered by id.
func (r *Runner) Load() ([]Migration, error) {
	upFiles, err := fs.Glob(r.source, r.path("*"+upSuffix))
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	sort.Strings(upFiles)

	migrations := make([]Migration, 0, len(upFiles))
	for _, upFile := range upFiles {
		m, err := r.parse(upFile)
		if err != nil {
			return nil, errors.NewTracer(fmt.Sprintf("parse migration %s", upFile)).Wrap(err)
		}
		migrations = append(migrations, m)
	}
	return migrations, nil
}

func (r *Runner) path(name string) string {
	if r.dir == "." {
		return name
	}
	return r.dir + "/" + name
}

func (r *Runner) parse(upFile string) (Migration, error) {
	up, err := fs.ReadFile(r.source, upFile)
	if err != nil {
		return Migration{}, err
	}

	id := strings.TrimSuffix(upFile[strings.LastIndex(upFile, "/")+1:], upSuffix)
	name := id
	timestamp := time.Unix(0, 0).UTC()
	if prefix, rest, ok := strings.Cut(id, "_"); ok {
		name = rest
		if ts, err := time.Parse(idLayout, prefix); err == nil {
			timestamp = ts
		}
	}

	m := Migration{
		ID:        id,
		Name:      name,
		Timestamp: timestamp,
		UpSQL:     strings.TrimSpace(string(up)),
	}
	if down, err := fs.ReadFile(r.source, strings.TrimSuffix(upFile, upSuffix)+downSuffix); err == nil {
		m.DownSQL = strings.TrimSpace(string(down))
	}
	return m, nil
}

// MigrateUp applies pending migrations. steps <= 0 applies all of them.
func (r *Runner) MigrateUp(ctx context.Context, steps int) error {
	if err := r.EnsureMigrationTable(ctx); err != nil {
		return err
	}
	migrations, err := r.Load()
	if err != nil {
		return err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}

	var pending []Migration
	for _, m := range migrations {
		if !applied[m.ID] {
			pending = append(pending, m)
		}
	}
	if steps > 0 && len(pending) > steps {
		pending = pending[:steps]
	}

	for _, m := range pending {
		if m.UpSQL == "" {
			r.logger.Warn("migration has no up sql", logger.Field{Key: "id", Value: m.ID})
			continue
		}

		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			if _, err := r.client.Exec(txCtx, m.UpSQL); err != nil {
				return err
			}
			_, err := r.client.Exec(txCtx,
				fmt.Sprintf("INSERT INTO %s (id, name, applied_at) VALUES ($1, $2, NOW())", r.table()),
				m.ID, m.Name)
			return err
		})
		if err != nil {
			return errors.NewTracer(fmt.Sprintf("apply migration %s", m.ID)).Wrap(err)
		}
		r.logger.Info("migration applied", logger.Field{Key: "id", Value: m.ID})
	}
	return nil
}

// MigrateDown reverts the last steps applied migrations.
func (r *Runner) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		return errors.NewTracer("steps must be greater than 0 for down migrations")
	}
	if err := r.EnsureMigrationTable(ctx); err != nil {
		return err
	}
	migrations, err := r.Load()
	if err != nil {
		return err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}

	var revert []Migration
	for i := len(migrations) - 1; i >= 0 && len(revert) < steps; i-- {
		if applied[migrations[i].ID] {
			revert = append(revert, migrations[i])
		}
	}

	for _, m := range revert {
		if m.DownSQL == "" {
			return errors.NewTracer(fmt.Sprintf("migration %s has no down sql", m.ID))
		}

		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			if _, err := r.client.Exec(txCtx, m.DownSQL); err != nil {
				return err
			}
			_, err := r.client.Exec(txCtx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table()), m.ID)
			return err
		})
		if err != nil {
			return errors.NewTracer(fmt.Sprintf("revert migration %s", m.ID)).Wrap(err)
		}
		r.logger.Info("migration reverted", logger.Field{Key: "id", Value: m.ID})
	}
	return nil
}
