package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/contactload/internal/config"
	"github.com/JonMunkholm/contactload/internal/core"
	"github.com/JonMunkholm/contactload/internal/logging"
	"github.com/JonMunkholm/contactload/internal/metrics"
	"github.com/JonMunkholm/contactload/internal/results"
	"github.com/JonMunkholm/contactload/internal/store"
	"github.com/JonMunkholm/contactload/internal/web"
)

const resultSweepInterval = 10 * time.Minute

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if err := store.Migrate(ctx, pool); err != nil {
		return err
	}
	contacts := store.NewPostgres(pool)

	g, gctx := errgroup.WithContext(ctx)

	var resultStore results.Store
	if cfg.Results.RedisURL != "" {
		rs, err := results.NewRedis(ctx, cfg.Results.RedisURL, cfg.Results.TTL)
		if err != nil {
			return err
		}
		defer rs.Close()
		resultStore = rs
		slog.Info("upload results cached in redis", "ttl", cfg.Results.TTL)
	} else {
		mem := results.NewMemory(cfg.Results.TTL)
		g.Go(func() error {
			mem.RunSweeper(gctx, resultSweepInterval)
			return nil
		})
		resultStore = mem
		slog.Info("upload results cached in memory", "ttl", cfg.Results.TTL)
	}

	mode, err := core.ParsePersistFailureMode(cfg.Process.PersistFailureMode)
	if err != nil {
		return err
	}

	limiter := core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	reg := metrics.NewRegistry()
	metrics.RegisterLimiter(reg, limiter)

	service := core.NewService(contacts, core.Options{
		PersistFailure: mode,
		Observer:       metrics.New(reg),
	})

	server := web.NewServer(cfg, web.Deps{
		Service:  service,
		Contacts: contacts,
		Results:  resultStore,
		Limiter:  limiter,
		Metrics:  metrics.Handler(reg),
	})

	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Server.Addr())
		return server.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active uploads to complete (with timeout)
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
