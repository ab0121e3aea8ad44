package main

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/grpclib/health"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/httplib/healthcheck"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/postgresql"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/questdb"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/redis"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/app/pipeline"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	waterfallv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/waterfall/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/infrastructure/postgresql/account"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/infrastructure/postgresql/cycle"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/infrastructure/postgresql/defaultcase"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/infrastructure/postgresql/dvp"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/infrastructure/postgresql/exposure"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/infrastructure/postgresql/member"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/infrastructure/postgresql/trade"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/infrastructure/questdb/pricehistory"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/infrastructure/sim"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/margin"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/matching"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/netting"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/novation"
	orderreader "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/order-reader"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/settlement"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/snapshot"
	tradepublisher "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/trade-publisher"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/usecase/waterfall"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/pkg/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

const serviceName = "clearing-house"

var cfg *config.Config
var log *logger.Logger

func init() {
	cfg = &config.Config{}
	if err := config.Load(cfg); err != nil {
		panic(err)
	}

	l, err := logger.NewLogger(
		logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)),
		logger.WithInitialFields(logger.Field{Key: "service", Value: cfg.App.Name}),
	)
	if err != nil {
		panic(err)
	}
	log = l
}

func main() {
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	pgClient, err := postgresql.NewClient(ctx, cfg.PostgreSQL)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_postgres"})
		return
	}
	defer pgClient.Close()

	rclient := redis.NewClient(log, &cfg.Redis)
	if err := rclient.Connect(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_redis"})
		return
	}

	qdb, err := questdb.NewClient(ctx, cfg.QuestDB)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_questdb"})
		return
	}
	defer qdb.Close()

	p, err := buildPipeline(ctx, pgClient, rclient, qdb)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "build_pipeline"})
		return
	}
	if err := p.Start(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "start_pipeline"})
		return
	}

	checks := map[string]func(ctx context.Context) error{
		"postgres": pgClient.Ping,
		"redis":    rclient.Ping,
		"questdb":  qdb.Ping,
	}

	healthServer := health.NewServer(log)
	grpcServer := grpc.NewServer()
	healthServer.Register(grpcServer)
	grpcChecks := make(map[string]health.Check, len(checks))
	httpChecks := make(map[string]healthcheck.Check, len(checks))
	for name, check := range checks {
		grpcChecks[name] = check
		httpChecks[name] = check
	}
	go healthServer.Watch(ctx, serviceName, 10*time.Second, grpcChecks)

	lis, err := net.Listen("tcp", cfg.App.GRPCAddr)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "listen_grpc"})
		return
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "serve_grpc"})
		}
	}()

	var httpServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		httpServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           healthcheck.HealthCheck{Checks: httpChecks}.Handler(mux),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				log.Error(err, logger.Field{Key: "action", Value: "serve_metrics"})
			}
		}()
	}

	log.Info("Clearing house started",
		logger.Field{Key: "grpcAddr", Value: cfg.App.GRPCAddr},
		logger.Field{Key: "metricsAddr", Value: cfg.Metrics.Addr},
	)

	sig := <-sigChan
	log.Info("Received shutdown signal", logger.Field{Key: "signal", Value: sig.String()})

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "stop_metrics"})
		}
	}

	if err := p.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_pipeline"})
	}

	if err := rclient.Disconnect(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "disconnect_redis"})
	}

	log.Info("Clearing house shutdown complete")
}

func buildPipeline(ctx context.Context, pg *postgresql.Client, rclient redis.Client, qdb *questdb.Client) (*pipeline.Pipeline, error) {
	clock := func() time.Time { return time.Now().UTC() }
	ccp := cfg.App.CCPAccount

	selfMatch, err := orderbookv1.ParseSelfMatchPolicy(cfg.Matching.SelfMatchPolicy)
	if err != nil {
		return nil, err
	}
	cutoff, err := cfg.Settlement.Cutoff()
	if err != nil {
		return nil, err
	}

	instruments := make([]orderbookv1.Instrument, 0, len(cfg.Matching.Instruments))
	for _, i := range cfg.Matching.Instruments {
		instruments = append(instruments, orderbookv1.Instrument{
			Symbol:            i.Symbol,
			Currency:          i.Currency,
			SettlementLagDays: i.SettlementLagDays,
		})
	}

	prices := pricehistory.NewRepository(qdb)
	exposures := exposure.NewRepository(pg, log)
	nettingEngine := netting.NewEngine(cycle.NewRepository(pg, log), exposures, ccp, clock, log)

	marginEngine := margin.NewEngine(
		account.NewRepository(pg, log),
		nettingEngine,
		prices,
		prices,
		clock,
		log,
		margin.Options{
			VaR: margin.VaRParams{
				Confidence:        cfg.Margin.Confidence,
				HoldingPeriodDays: cfg.Margin.HoldingPeriodDays,
				MinObservations:   cfg.Margin.MinObservations,
				FallbackRate:      cfg.Margin.FallbackRate,
			},
			LookbackDays:      cfg.Margin.LookbackDays,
			CallGracePeriod:   cfg.Margin.CallGracePeriod,
			Concurrency:       cfg.Margin.Concurrency,
			MaxVersionRetries: cfg.Margin.MaxVersionRetries,
		},
	)

	fund := defaultcase.NewFundRepository(pg, log)
	if err := fund.Seed(ctx, &waterfallv1.GuaranteeFund{
		SkinInTheGame:  cfg.Waterfall.SkinInTheGame,
		CapitalReserve: cfg.Waterfall.CapitalReserve,
		UpdatedAt:      clock(),
	}); err != nil {
		return nil, err
	}
	manager := waterfall.NewManager(
		defaultcase.NewCaseRepository(pg, log),
		fund,
		marginEngine,
		nettingEngine,
		log,
		waterfall.Options{
			Currency:          cfg.Waterfall.Currency,
			MaxVersionRetries: cfg.Waterfall.MaxVersionRetries,
			Clock:             clock,
		},
	)
	marginEngine.SetDefaultHandler(manager)

	// The warehouse and payment rail are in-process stand-ins until the
	// external adapters exist.
	log.Warn("Using simulated warehouse and payment rail")
	orchestrator := settlement.NewOrchestrator(
		dvp.NewRepository(pg, log),
		sim.NewWarehouse(log),
		sim.NewPaymentRail(log, ccp),
		nettingEngine,
		log,
		settlement.Options{
			CCPAccount:      ccp,
			Deadline:        cfg.Settlement.Deadline,
			CallTimeout:     cfg.Settlement.CallTimeout,
			MaxRetries:      cfg.Settlement.MaxRetries,
			WaveConcurrency: cfg.Settlement.WaveConcurrency,
			Clock:           clock,
		},
	)

	matchingEngine := matching.NewEngine(member.NewRegistry(pg, log), marginEngine, log, matching.Options{
		Instruments: instruments,
		SelfMatch:   selfMatch,
		QueueSize:   cfg.Matching.QueueSize,
		Clock:       clock,
	})

	deps := pipeline.Dependencies{
		Matching:   matchingEngine,
		Journal:    trade.NewRepository(pg, log),
		Novation:   novation.NewService(exposures, ccp, clock, log),
		Netting:    nettingEngine,
		Exposures:  exposures,
		Margin:     marginEngine,
		Settlement: orchestrator,
		Snapshots:  snapshot.NewStore(rclient, log),
		Prices:     prices,
	}
	if cfg.Kafka.Enabled {
		deps.Reader = orderreader.NewReader(cfg.Kafka, log)
		deps.Publisher = tradepublisher.NewPublisher(cfg.Kafka, log)
	}

	return pipeline.New(deps, log, pipeline.Options{
		SnapshotInterval:  cfg.Matching.SnapshotInterval,
		ExpiryInterval:    cfg.Matching.ExpiryInterval,
		RevaluationPeriod: cfg.Margin.RevaluationPeriod,
		SweepInterval:     cfg.Settlement.SweepInterval,
		Cutoff:            cutoff,
		CCPAccount:        ccp,
		Clock:             clock,
	}), nil
}
