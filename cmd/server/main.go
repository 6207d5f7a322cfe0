// Copyright 2026 The Signet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creatorhub/signet/internal/audit"
	"github.com/creatorhub/signet/internal/config"
	"github.com/creatorhub/signet/internal/keys"
	"github.com/creatorhub/signet/internal/observability/logger"
	"github.com/creatorhub/signet/internal/observability/metrics"
	"github.com/creatorhub/signet/internal/observability/tracing"
	"github.com/creatorhub/signet/internal/sealer"
	"github.com/creatorhub/signet/internal/store"
	"github.com/creatorhub/signet/internal/store/memory"
	storepg "github.com/creatorhub/signet/internal/store/postgres"
	storeredis "github.com/creatorhub/signet/internal/store/redis"
	"github.com/creatorhub/signet/internal/token"
	transportHTTP "github.com/creatorhub/signet/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting signet token service")

	ctx := context.Background()

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	meter := metrics.New(metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)

	keyStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open key store", logger.Error(err))
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("connected to key store", logger.String("backend", cfg.Store.Backend))

	sl, err := sealer.New(cfg.Sealer.MasterKey)
	if err != nil {
		slog.Error("failed to initialize sealer", logger.Error(err))
		os.Exit(1)
	}

	auditLogger := audit.NewSlogLogger()

	registry := keys.NewRegistry(keyStore, sl)
	factory := keys.NewFactory()
	policy := keys.Policy{
		Lifetime:        cfg.Keys.Lifetime,
		RotationBuffer:  cfg.Keys.RotationBuffer,
		MinRetainedKeys: cfg.Keys.MinRetainedKeys,
	}
	manager := keys.NewManager(registry, factory, policy, auditLogger)

	if err := manager.Initialize(ctx); err != nil {
		slog.Error("failed to initialize key manager", logger.Error(err))
		os.Exit(1)
	}

	issuer := token.NewIssuer(manager, cfg.Token.Issuer, cfg.Token.TTL, auditLogger)

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	handler, err := transportHTTP.NewHandler(manager, issuer, auditLogger, meter)
	if err != nil {
		slog.Error("failed to initialize handler", logger.Error(err))
		os.Exit(1)
	}

	router := transportHTTP.NewRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

// openStore builds the configured store backend and returns it with a
// close function.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		client, err := storeredis.New(ctx, storeredis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			EnableTLS:    cfg.Redis.EnableTLS,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil

	case "postgres":
		db, err := storepg.New(ctx, storepg.Config{
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			User:         cfg.Database.User,
			Password:     cfg.Database.Password,
			Database:     cfg.Database.Database,
			SSLMode:      cfg.Database.SSLMode,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return storepg.NewKeyStore(db), db.Close, nil

	case "memory":
		slog.Warn("using in-memory store; keys will not survive a restart")
		return memory.New(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
