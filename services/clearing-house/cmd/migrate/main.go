package main

import (
	"context"
	"flag"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	migration "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/migration-pg"
	migrationquestdb "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/migration-questdb"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/questdb"
	pgmigrations "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/infrastructure/postgresql/migrations"
	qdbmigrations "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/infrastructure/questdb/migrations"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/pkg/config"
)

type migrator interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
}

func main() {
	var (
		direction = flag.String("direction", "up", "Migration direction: up or down")
		steps     = flag.Int("steps", 0, "Number of steps to migrate (0 = all)")
		target    = flag.String("target", "all", "Database to migrate: postgres, questdb or all")
	)
	flag.Parse()

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	cfg := &config.Config{}
	if err := config.Load(cfg); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "load_config"})
		return
	}

	runners := make(map[string]migrator)
	if *target == "postgres" || *target == "all" {
		pgClient, err := postgresql.NewClient(ctx, cfg.PostgreSQL)
		if err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "connect_postgres"})
			return
		}
		defer pgClient.Close()

		runner := migration.NewRunner(pgClient, log, migration.Config{
			Source:    pgmigrations.FS,
			Schema:    cfg.PostgreSQL.SearchPath,
			TableName: "schema_migrations",
		})
		if err := runner.EnsureMigrationTable(ctx); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "ensure_migration_table"})
			return
		}
		runners["postgres"] = runner
	}
	if *target == "questdb" || *target == "all" {
		qdbClient, err := questdb.NewClient(ctx, cfg.QuestDB)
		if err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "connect_questdb"})
			return
		}
		defer qdbClient.Close()

		runners["questdb"] = migrationquestdb.NewRunner(qdbClient, log, qdbmigrations.FS, "schema_migrations")
	}
	if len(runners) == 0 {
		log.Warn("Invalid target, use postgres, questdb or all", logger.Field{Key: "target", Value: *target})
		return
	}

	for _, name := range []string{"postgres", "questdb"} {
		runner, ok := runners[name]
		if !ok {
			continue
		}

		switch *direction {
		case "up":
			err = runner.MigrateUp(ctx, *steps)
		case "down":
			err = runner.MigrateDown(ctx, *steps)
		default:
			log.Warn("Invalid direction, use up or down", logger.Field{Key: "direction", Value: *direction})
			return
		}
		if err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "migrate_" + *direction}, logger.Field{Key: "target", Value: name})
			return
		}
	}

	log.Info("Migration completed",
		logger.Field{Key: "direction", Value: *direction},
		logger.Field{Key: "target", Value: *target},
	)
}
