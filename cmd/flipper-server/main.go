// Command flipper-server serves the flipper HTTP API over a configurable
// storage backend, with Prometheus metrics and health probes on a
// dedicated admin port.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/larouxn/flipper"
	badgeradapter "github.com/larouxn/flipper/adapters/badger"
	"github.com/larouxn/flipper/adapters/cached"
	"github.com/larouxn/flipper/adapters/memory"
	postgresadapter "github.com/larouxn/flipper/adapters/postgres"
	redisadapter "github.com/larouxn/flipper/adapters/redis"
	"github.com/larouxn/flipper/instrumenters/logging"
	promins "github.com/larouxn/flipper/instrumenters/prometheus"
	"github.com/larouxn/flipper/internal/config"
	"github.com/larouxn/flipper/internal/database"
	"github.com/larouxn/flipper/internal/httpapi"
	"github.com/larouxn/flipper/internal/logger"
	"github.com/larouxn/flipper/internal/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)

	adapter, cleanup, err := buildAdapter(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build %s adapter: %w", cfg.Storage.Backend, err)
	}
	defer cleanup()

	// Health checks ping the real backend, not the cache layer.
	baseAdapter := adapter

	if cfg.Cache.Enabled {
		cachedAdapter, err := cached.NewWithConfig(adapter, cfg.Cache.Capacity, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("build cache layer: %w", err)
		}
		defer cachedAdapter.Close()
		adapter = cachedAdapter
		log.Info("read-through cache enabled",
			slog.Int("capacity", cfg.Cache.Capacity),
			slog.Duration("ttl", cfg.Cache.TTL),
		)
	}

	fl := flipper.New(adapter, flipper.WithInstrumenter(multiInstrumenter{
		promins.New(prometheus.DefaultRegisterer),
		logging.New(log),
	}))

	api := httpapi.New(fl.Adapter(), log)
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var obsServer *observability.Server
	if cfg.Observability.Enabled {
		obsServer = observability.NewServer(log, &cfg.Observability, adapterCheckers(baseAdapter)...)
		obsServer.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting flipper server",
			slog.String("addr", cfg.Server.Address()),
			slog.String("backend", cfg.Storage.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down", slog.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if obsServer != nil {
		if err := obsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("observability server shutdown failed", slog.String("error", err.Error()))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildAdapter constructs the configured storage backend and returns a
// cleanup releasing whatever it opened.
func buildAdapter(ctx context.Context, cfg *config.Config, log *slog.Logger) (flipper.Adapter, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return memory.New(), func() {}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Address(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return redisadapter.New(client), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		pool, err := database.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to postgres")
		return postgresadapter.New(pool), pool.Close, nil

	case config.BackendBadger:
		path := cfg.Badger.Path
		if cfg.Badger.InMemory {
			path = ""
		}
		adapter, db, err := badgeradapter.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return adapter, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// adapterCheckers exposes the adapter's health to the readiness probe
// when the backend supports pinging.
func adapterCheckers(adapter flipper.Adapter) []observability.Checker {
	pinger, ok := adapter.(flipper.Pinger)
	if !ok {
		return nil
	}
	return []observability.Checker{
		observability.PingChecker{Name: adapter.Name(), Ping: pinger.Ping},
	}
}

// multiInstrumenter fans one event out to several sinks.
type multiInstrumenter []flipper.Instrumenter

// Instrument implements flipper.Instrumenter.
func (m multiInstrumenter) Instrument(name string, payload map[string]any) {
	for _, instrumenter := range m {
		instrumenter.Instrument(name, payload)
	}
}
