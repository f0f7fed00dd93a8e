package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/auth/state"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/config"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/core/ports"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/httpclient"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/platform/logger"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/platform/otel"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/server"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/server/middleware"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/store/file"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/store/sqlite"
	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/version"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Initialize(logger.FromSettings(cfg.Log.Level, cfg.Log.Format, cfg.Log.Color))
	defer logger.Sync()
	log := logger.Get()

	log.Info("starting credential service",
		zap.String("version", version.Version),
		zap.String("env", cfg.Server.Env),
		zap.String("store", cfg.Store.Driver),
	)

	if cfg.UpdateCheck.Enabled && cfg.UpdateCheck.URL != "" {
		checker := &version.Checker{URL: cfg.UpdateCheck.URL, Current: version.Version, Logger: log}
		go checker.Check(context.Background())
	}

	if cfg.Tracing.Enabled {
		shutdown, err := otel.Setup(otel.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Version:     version.Version,
			Pretty:      cfg.Server.Env != "production",
		}, log, os.Stdout)
		if err != nil {
			log.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	repo, err := openRepository(cfg.Store)
	if err != nil {
		log.Fatal("failed to open config store", zap.Error(err))
	}
	defer func() {
		_ = repo.Close()
	}()

	states, closeStates := newStateStore(cfg, log)
	defer closeStates()

	if cfg.Server.CookieSecret == "" {
		cfg.Server.CookieSecret = randomSecret()
		log.Warn("server.cookie_secret is not set; using a random secret, callbacks will not survive a restart")
	}

	if !middleware.HasAdminKeys(cfg.Server.APIKeys) {
		log.Warn("server.api_keys is empty; profile, routing and credential routes are open to anyone who can reach the server")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := server.BuildDeps(cfg, server.Backends{
		Repository: repo,
		States:     states,
		HTTPClient: httpclient.New(cfg.OAuth.RefreshTimeout),
		Registry:   registry,
		Version:    version.Version,
	}, log)
	if err != nil {
		log.Fatal("failed to build services", zap.Error(err))
	}

	srv := server.New(cfg, log, deps).HTTPServer()

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

func openRepository(cfg config.StoreConfig) (ports.ConfigRepository, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.NewSQLiteStorage(cfg.DSN)
	default:
		return file.NewRepository(cfg.Path)
	}
}

// newStateStore prefers Redis so pending logins are shared between replicas.
func newStateStore(cfg *config.Config, log *zap.Logger) (ports.AuthStateStore, func()) {
	if !cfg.Redis.Enabled {
		return state.NewMemoryStore(cfg.OAuth.StateTTL), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, falling back to in-memory auth state", zap.Error(err))
		_ = client.Close()
		return state.NewMemoryStore(cfg.OAuth.StateTTL), func() {}
	}

	log.Info("auth state stored in redis", zap.String("addr", cfg.Redis.Addr))
	return state.NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.OAuth.StateTTL), func() { _ = client.Close() }
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
