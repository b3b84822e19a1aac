package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/me/rtodash/internal/app"
	"github.com/me/rtodash/internal/config"
	"github.com/me/rtodash/internal/logging"
	"github.com/me/rtodash/internal/metrics"
	"github.com/me/rtodash/internal/server"
	"github.com/me/rtodash/internal/store"
)

func main() {
	defaults := config.DefaultServerConfig()

	configFile := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", defaults.Addr, "Listen address")
	logLevel := flag.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", defaults.LogFormat, "Log format (text, json)")
	apiBase := flag.String("api", defaults.APIBaseURL, "Reminder API base URL")
	storage := flag.String("storage", defaults.Storage, "Client storage backend: sqlite, redis, memory")
	dbPath := flag.String("db", defaults.DBPath, "SQLite path (default ~/.rtodash/rtodash.db)")
	redisURL := flag.String("redis-url", defaults.RedisURL, "Redis URL for the redis storage backend")
	secure := flag.Bool("secure-cookies", defaults.CookieSecure, "Mark the client cookie Secure (behind TLS)")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	cfg, err := config.LoadServer(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Explicit flags win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "api":
			cfg.APIBaseURL = *apiBase
		case "storage":
			cfg.Storage = *storage
		case "db":
			cfg.DBPath = *dbPath
		case "redis-url":
			cfg.RedisURL = *redisURL
		case "secure-cookies":
			cfg.CookieSecure = *secure
		}
	})
	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	threshold, err := cfg.Threshold()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open storage: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "migrate storage: %v\n", err)
		os.Exit(1)
	}

	m := metrics.New()
	apps := app.NewManager(st, app.Options{
		APIBaseURL:          cfg.APIBaseURL,
		Metrics:             m,
		LowBalanceThreshold: threshold,
		Logger:              logger,
	}, app.ManagerConfig{
		IdleTTL:      cfg.IdleTTL,
		RetentionTTL: cfg.RetentionTTL,
	})

	srv := server.New(cfg, st, apps, logger, server.WithMetrics(m))

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start sweeper in background.
	srv.StartSweeper(ctx)

	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "api", cfg.APIBaseURL, "storage", cfg.Storage)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// openStore opens the configured client storage backend.
func openStore(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Info("client storage is in memory; sessions end on restart")
		return store.NewMemoryStore(), nil
	case config.StorageRedis:
		st, err := store.NewRedisStore(ctx, cfg.RedisURL, cfg.RetentionTTL, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("client storage ready", "backend", "redis")
		return st, nil
	}

	path := cfg.DBPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir := filepath.Join(home, ".rtodash")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dir, err)
		}
		path = filepath.Join(dir, "rtodash.db")
	}
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("client storage ready", "backend", "sqlite", "path", path)
	return st, nil
}
