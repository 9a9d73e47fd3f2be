package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/adapters/file"
	"github.com/aretw0/parley/internal/adapters/memory"
	natsadapter "github.com/aretw0/parley/internal/adapters/nats"
	"github.com/aretw0/parley/internal/adapters/postgres"
	redisadapter "github.com/aretw0/parley/internal/adapters/redis"
	"github.com/aretw0/parley/internal/api"
	"github.com/aretw0/parley/internal/config"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/persistence/middleware"
	"github.com/aretw0/parley/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the conversation server. Backends are wired from the
environment: DATABASE_URL enables Postgres for graph and transcript
storage, REDIS_ADDR moves hot session state (and the cross-replica
session lock) to Redis, NATS_URL enables out-of-band delivery. With
none of them set everything runs in memory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger := logging.New(logging.ParseLevel(cfg.LogLevel))

		ctx := cmd.Context()

		botOpts := []parley.Option{parley.WithLogger(logger)}

		var stores ports.Stores
		if cfg.DatabaseURL != "" {
			pg, err := postgres.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer pg.Close()
			if err := pg.Migrate(ctx); err != nil {
				return fmt.Errorf("postgres migrate: %w", err)
			}
			stores = pg.Stores()
			logger.Info("postgres wired", "graph", true, "transcript", true)
		}

		if cfg.RedisAddr != "" {
			client := backend.NewClient(&backend.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			rs := redisadapter.NewFromClient(client, redisadapter.WithTTL(cfg.SessionTTL))
			defer rs.Close()

			// Hot per-user state moves to Redis; graph content stays
			// wherever it already is.
			stores.Sessions = rs
			stores.Seen = rs
			stores.Log = rs
			botOpts = append(botOpts,
				parley.WithLocker(redisadapter.NewLocker(client, "parley:")),
				parley.WithLockTTL(cfg.LockTTL))
			logger.Info("redis wired", "addr", cfg.RedisAddr,
				"session_ttl", cfg.SessionTTL, "lock_ttl", cfg.LockTTL)
		}

		var sessionMiddleware []middleware.Middleware
		if len(cfg.PIIMask) > 0 {
			pii, err := middleware.NewPIIMiddleware(cfg.PIIMask)
			if err != nil {
				return fmt.Errorf("PARLEY_PII_MASK: %w", err)
			}
			sessionMiddleware = append(sessionMiddleware, pii)
		}
		if cfg.EncryptionKey != "" {
			key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
			if err != nil {
				return fmt.Errorf("decode PARLEY_ENCRYPTION_KEY: %w", err)
			}
			if len(key) != 32 {
				return fmt.Errorf("PARLEY_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
			}
			sessionMiddleware = append(sessionMiddleware, middleware.NewEncryptionMiddleware(
				middleware.EncryptionConfig{ActiveKey: key}))
		}
		if len(sessionMiddleware) > 0 {
			if stores.Sessions == nil {
				stores.Sessions = memory.NewStores().Sessions
			}
			stores.Sessions = middleware.Chain(stores.Sessions, sessionMiddleware...)
			logger.Info("session middleware wired",
				"pii", len(cfg.PIIMask) > 0, "encryption", cfg.EncryptionKey != "")
		}

		botOpts = append(botOpts, parley.WithStores(stores))

		if cfg.NatsURL != "" {
			deliverer, err := natsadapter.New(cfg.NatsURL, cfg.NatsToken, logger)
			if err != nil {
				return fmt.Errorf("nats: %w", err)
			}
			defer deliverer.Close()
			botOpts = append(botOpts, parley.WithDeliverer(deliverer))
			logger.Info("nats wired", "url", cfg.NatsURL)
		}

		registry := prometheus.NewRegistry()
		botOpts = append(botOpts, parley.WithMetrics(registry))

		bot, err := parley.New(botOpts...)
		if err != nil {
			return fmt.Errorf("init bot: %w", err)
		}

		if cfg.GraphFile != "" {
			g, err := file.LoadAndSeed(ctx, bot.Stores(), cfg.GraphFile)
			if err != nil {
				return fmt.Errorf("seed graph: %w", err)
			}
			logger.Info("graph seeded", "file", cfg.GraphFile,
				"exchanges", len(g.Exchanges), "tangents", len(g.Tangents))
		}

		server := api.NewServer(bot, cfg.APIToken, registry,
			api.WithPort(cfg.Port), api.WithLogger(logger))

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: server.Handler(),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server starting", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutdown started", "signal", sig.String())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("force close: %w", err)
				}
			}
			logger.Info("server stopped")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
