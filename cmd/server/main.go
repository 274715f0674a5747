package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"identity-dna/internal/badge"
	"identity-dna/internal/bus"
	"identity-dna/internal/domain"
	"identity-dna/internal/gateway"
	"identity-dna/internal/ledger"
	ledgerMetrics "identity-dna/internal/ledger/metrics"
	"identity-dna/internal/orchestrator"
	orchMetrics "identity-dna/internal/orchestrator/metrics"
	"identity-dna/internal/platform/config"
	"identity-dna/internal/platform/httpserver"
	"identity-dna/internal/platform/logger"
	pgplatform "identity-dna/internal/platform/postgres"
	redisplatform "identity-dna/internal/platform/redis"
	"identity-dna/internal/profile"
	profileMetrics "identity-dna/internal/profile/metrics"
	"identity-dna/internal/quarantine"
	"identity-dna/internal/readcache"
	cacheMetrics "identity-dna/internal/readcache/metrics"
	"identity-dna/internal/skill"
	httptransport "identity-dna/internal/transport/http"
	id "identity-dna/pkg/domain"
)

const shutdownGrace = 10 * time.Second

// main wires dependencies and owns the process lifecycle. Business
// logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional backends. Empty DSN / URL means in-memory stores, which
	// is enough for local runs and tests.
	var (
		ledgerStore  ledger.Store         = ledger.NewInMemoryStore()
		streakStore  ledger.StreakStore   = ledger.NewInMemoryStreakStore()
		profileStore profile.Store        = profile.NewInMemoryStore()
		historyStore profile.HistoryStore = profile.NewInMemoryHistoryStore()
		archiveStore profile.ArchiveStore = profile.NewInMemoryArchiveStore()
		quarStore    quarantine.Store     = quarantine.NewInMemoryStore()
	)

	if cfg.Postgres.DSN != "" {
		pool, err := pgplatform.New(ctx, cfg.Postgres)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		ledgerStore = ledger.NewPostgresStore(pool)
		streakStore = ledger.NewPostgresStreakStore(pool)
		profileStore = profile.NewPostgresStore(pool)
		historyStore = profile.NewPostgresHistoryStore(pool)
		archiveStore = profile.NewPostgresArchiveStore(pool)
		log.Info("postgres stores enabled")
	}

	if cfg.Redis.URL != "" {
		client, err := redisplatform.New(cfg.Redis)
		if err != nil {
			log.Error("redis connect failed", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		quarStore = quarantine.NewRedisStore(client.Client)
		log.Info("redis quarantine store enabled")
	}

	catalog := gateway.DefaultCatalog(cfg.Gateway.SourceBaseURL)
	gw, err := gateway.New(catalog, cfg.Gateway.FetchTimeout, cfg.Gateway.CacheTTL,
		gateway.WithLogger(log))
	if err != nil {
		log.Error("gateway init failed", "error", err)
		os.Exit(1)
	}

	quar, err := quarantine.New(quarStore, quarantine.WithLogger(log))
	if err != nil {
		log.Error("quarantine init failed", "error", err)
		os.Exit(1)
	}

	xpLedger, err := ledger.New(ledgerStore, streakStore, quar, catalog, cfg.Ledger,
		ledger.WithLogger(log), ledger.WithMetrics(ledgerMetrics.New()))
	if err != nil {
		log.Error("ledger init failed", "error", err)
		os.Exit(1)
	}

	profiles, err := profile.New(profileStore, historyStore, archiveStore, cfg.Profile,
		profile.WithLogger(log), profile.WithMetrics(profileMetrics.New()))
	if err != nil {
		log.Error("profile service init failed", "error", err)
		os.Exit(1)
	}

	badges, err := badge.New(gw, badge.NewInMemoryArchive(), badge.WithLogger(log))
	if err != nil {
		log.Error("badge aggregator init failed", "error", err)
		os.Exit(1)
	}

	skills := skill.NewEngine(skill.WithLogger(log))

	// The bus forwards inbound events to the orchestrator, and the
	// orchestrator publishes through the bus. The closure breaks the
	// cycle; startBus runs only after orch is assigned.
	var orch *orchestrator.Orchestrator

	notifier, startBus, closeBus, err := newNotifier(ctx, cfg, log, profiles, func(e domain.Event) error {
		return orch.HandleEvent(e)
	})
	if err != nil {
		log.Error("bus init failed", "mode", cfg.Bus.Mode, "error", err)
		os.Exit(1)
	}

	orch, err = orchestrator.New(cfg.Orchestrator, xpLedger, profiles, gw, badges, skills,
		[]id.SourceID{id.SourceTraining, id.SourceArcade, id.SourceBankroll, id.SourceSocial},
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(orchMetrics.New()),
		orchestrator.WithNotifier(notifier),
	)
	if err != nil {
		log.Error("orchestrator init failed", "error", err)
		os.Exit(1)
	}
	orch.Start()
	startBus()

	cache, err := readcache.New(profiles, cfg.Cache,
		readcache.WithLogger(log), readcache.WithMetrics(cacheMetrics.New()))
	if err != nil {
		log.Error("read cache init failed", "error", err)
		os.Exit(1)
	}

	handler := httptransport.New(orch, profiles, cache, xpLedger,
		httptransport.WithLogger(log),
		httptransport.WithQuarantine(quar),
		httptransport.WithPinger(gw),
	)
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(handler))

	go func() {
		log.Info("identity dna engine listening", "addr", cfg.Server.Addr, "bus_mode", cfg.Bus.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	if err := httpserver.Shutdown(srv, shutdownGrace); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := orch.Stop(stopCtx); err != nil {
		log.Warn("orchestrator drain incomplete", "error", err)
	}
	closeBus(stopCtx)
	log.Info("shutdown complete")
}

// newNotifier builds the outbound bus for the configured mode. The
// returned start func opens the transport; the close func drains and
// releases it.
func newNotifier(ctx context.Context, cfg config.Config, log *slog.Logger, profiles *profile.Service, handle bus.Handler) (orchestrator.Notifier, func(), func(context.Context), error) {
	switch cfg.Bus.Mode {
	case config.BusModeStream:
		adapter, err := bus.NewStreamAdapter(cfg.Bus, handle,
			bus.WithStreamLogger(log),
			bus.WithSyncResponder(profiles.GetByID),
		)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func(stopCtx context.Context) {
			if err := adapter.Stop(stopCtx); err != nil {
				log.Warn("bus stream stop incomplete", "error", err)
			}
		}
		return adapter, adapter.Start, closeFn, nil

	case config.BusModeKafka:
		publisher, err := bus.NewKafkaPublisher(ctx, cfg.Bus, bus.WithKafkaLogger(log))
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func(stopCtx context.Context) {
			if err := publisher.Flush(stopCtx); err != nil {
				log.Warn("kafka flush incomplete", "error", err)
			}
			publisher.Close()
		}
		return publisher, func() {}, closeFn, nil

	default:
		return orchestrator.NopNotifier{}, func() {}, func(context.Context) {}, nil
	}
}
