package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/contactload/internal/config"
)

const (
	retryInitialInterval = 500 * time.Millisecond
	retryMultiplier      = 2.0
	retryMaxInterval     = 5 * time.Second
	retryRandomization   = 0.5
	defaultConnectWait   = 30 * time.Second
	pingTimeout          = 5 * time.Second
)

// Test hooks.
var (
	newPool  = pgxpool.NewWithConfig
	pingPool = func(ctx context.Context, p *pgxpool.Pool) error { return p.Ping(ctx) }
)

// Connect opens a pgx pool for cfg and pings it, retrying with exponential
// backoff until cfg.ConnectTimeout elapses. A malformed URL fails at once.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	maxElapsed := cfg.ConnectTimeout
	if maxElapsed <= 0 {
		maxElapsed = defaultConnectWait
	}

	attempt := 0
	op := func() (*pgxpool.Pool, error) {
		attempt++
		pool, err := newPool(ctx, poolConfig)
		if err != nil {
			return nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := pingPool(pingCtx, pool); err != nil {
			pool.Close()
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			slog.Warn("database not ready, retrying", "attempt", attempt, "error", err)
			return nil, err
		}
		return pool, nil
	}

	pool, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxElapsedTime(maxElapsed),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to database after %d attempts: %w", attempt, err)
	}
	return pool, nil
}

func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := poolConfig.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = "contactload"
	}
	return poolConfig, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = retryInitialInterval
	exp.Multiplier = retryMultiplier
	exp.MaxInterval = retryMaxInterval
	exp.RandomizationFactor = retryRandomization
	exp.Reset()
	return exp
}
