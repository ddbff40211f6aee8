package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vantage/internal/adapters/client"
	httpadapter "vantage/internal/adapters/http"
	"vantage/internal/adapters/memory"
	pg "vantage/internal/adapters/postgres"
	"vantage/internal/carrier"
	"vantage/internal/config"
	"vantage/internal/logging"
	"vantage/internal/metrics"
	"vantage/internal/ports"
	"vantage/internal/services/portfolio"
	"vantage/internal/services/session"
	"vantage/internal/views"
	"vantage/internal/workers/sweeper"
)

func main() {
	cfg, cfgErr := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if cfgErr != nil {
		logger.Warn("using defaults for some settings", zap.Error(cfgErr))
	}
	if cfg.SSOToken == "" {
		logger.Fatal("SSO_TOKEN is required in production")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	data, closeData, err := openDataset(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("dataset", zap.Error(err))
	}
	defer closeData()

	fixture := portfolio.NewService(data, cfg.FixtureDelay, logger.Named("fixture"))
	var backend ports.Portfolio = fixture
	if cfg.BackendURL != "" {
		var copts []client.Option
		if cfg.BackendToken != "" {
			copts = append(copts, client.WithBearer(cfg.BackendToken))
		}
		backend = client.New(cfg.BackendURL, copts...)
		logger.Info("using remote portfolio backend", zap.String("url", cfg.BackendURL))
	}
	if cfg.Coalesce {
		backend = client.Coalesce(backend, cfg.FetchTimeout)
	}

	guard := session.New(cfg.SSOToken, cfg.SessionTTL, session.WithLogger(logger.Named("session")))
	workspaces := views.NewWorkspaces(views.Deps{
		Backend: backend,
		Carrier: carrier.New(cfg.CarrierSize, cfg.CarrierTTL, carrier.WithMetrics(rec)),
		Timeout: cfg.FetchTimeout,
		Logger:  logger.Named("views"),
		Metrics: rec,
		OnUnauthorized: func(owner string) {
			_ = guard.Logout(context.Background(), owner)
		},
	})
	defer workspaces.CloseAll()

	opts := []httpadapter.Option{
		httpadapter.WithLogger(logger.Named("http")),
		httpadapter.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
	}
	if cfg.ServeFixture {
		opts = append(opts, httpadapter.WithBackendRoutes(fixture))
	}
	srv := httpadapter.New(guard, workspaces, opts...)
	defer srv.Close()

	if cfg.SweepInterval > 0 {
		go sweeper.Run(ctx, guard, cfg.SweepInterval, logger.Named("sweeper"))
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	logger.Info("listening", zap.String("addr", cfg.ListenAddr), zap.Bool("fixture_routes", cfg.ServeFixture))

	// graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// openDataset returns the fixture store: Postgres when DATABASE_URL is set,
// seeded from the embedded fixture on first start, otherwise in memory.
func openDataset(ctx context.Context, cfg config.Config, logger *zap.Logger) (ports.Dataset, func(), error) {
	if cfg.DatabaseURL == "" {
		data, err := memory.Default()
		return data, func() {}, err
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	snap, err := memory.DefaultSnapshot()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	seeded, err := db.Seed(ctx, snap)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("postgres dataset ready", zap.Bool("seeded", seeded))
	return db, db.Close, nil
}
