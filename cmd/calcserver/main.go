package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrdeadlift/relic-engine/internal/cache"
	"github.com/mrdeadlift/relic-engine/internal/config"
	"github.com/mrdeadlift/relic-engine/internal/data"
	"github.com/mrdeadlift/relic-engine/internal/db"
	"github.com/mrdeadlift/relic-engine/internal/engine"
	"github.com/mrdeadlift/relic-engine/internal/model"
	"github.com/mrdeadlift/relic-engine/internal/server"
	"github.com/mrdeadlift/relic-engine/internal/validator"
)

const defaultConfigPath = "config/calcserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := flag.String("config", defaultConfigPath, "path to calcserver config")
	flag.Parse()
	if p := os.Getenv("RELIC_ENGINE_CONFIG"); p != "" {
		*cfgPath = p
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("calcserver starting", "log_level", cfg.LogLevel, "catalog_source", cfg.Catalog.Source)

	catalog, cleanup, err := buildCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	memo := cache.New(cfg.Cache.MaxEntries)
	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	calc := engine.NewCalculator(catalog, memo, cacheTTL)

	var val *validator.Validator
	if cfg.Validation.RemoteURL != "" {
		timeout := time.Duration(cfg.Validation.TimeoutMs) * time.Millisecond
		remote := validator.NewHTTPRemote(cfg.Validation.RemoteURL, 2*timeout)
		val = validator.New(calc, remote, validator.Config{
			Timeout:             timeout,
			ToleranceTotal:      cfg.Validation.ToleranceTotal,
			ToleranceEfficiency: cfg.Validation.ToleranceEfficiency,
			ToleranceDifficulty: cfg.Validation.ToleranceDifficulty,
			SampleRate:          cfg.Validation.SampleRate,
			Strategy:            model.FallbackStrategy(cfg.Validation.Strategy),
		}, nil)
		slog.Info("remote validation enabled",
			"remote", cfg.Validation.RemoteURL,
			"sample_rate", cfg.Validation.SampleRate,
			"strategy", cfg.Validation.Strategy)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.New(calc, catalog, memo, val),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildCatalog resolves the configured relic data source. The returned
// cleanup closes the database pool when one was opened.
func buildCatalog(ctx context.Context, cfg config.Config) (engine.Catalog, func(), error) {
	embedded, err := data.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading embedded catalog: %w", err)
	}
	if cfg.Catalog.Source != "postgres" {
		return embedded, func() {}, nil
	}

	dsn := cfg.Catalog.Database.DSN()
	database, err := db.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to catalog database: %w", err)
	}
	if err := db.RunMigrations(ctx, dsn); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("migrating catalog database: %w", err)
	}

	repo := db.NewRelicRepository(database)
	if cfg.Catalog.SeedOnEmpty {
		if err := repo.Seed(ctx, embedded.All()); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("seeding catalog database: %w", err)
		}
	}
	catalog, err := repo.Snapshot(ctx)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("snapshotting catalog: %w", err)
	}
	slog.Info("postgres catalog loaded", "relics", catalog.Len())
	return catalog, database.Close, nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
