// Command gazouille serves the mirror-site scrape API.
//
// Usage:
//
//	gazouille                          # defaults + env overrides
//	gazouille -config gazouille.yaml   # YAML configuration
//
// Environment: PORT, CACHE_DIR, METADATA_DB, BROWSER_REMOTE,
// MAX_SESSIONS, LOG_LEVEL.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/gazouille/cache"
	"github.com/hazyhaar/gazouille/dbopen"
	"github.com/hazyhaar/gazouille/scrape"
)

func main() {
	configPath := flag.String("config", "", "path to gazouille.yaml config file")
	listen := flag.String("listen", "", "HTTP bind address (overrides config)")
	logLevel := flag.String("log-level", env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *listen); err != nil {
		logger.Error("gazouille: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, listen string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}

	// Metadata DB.
	db, err := dbopen.Open(cfg.MetadataDB, dbopen.WithMkdirAll())
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := cache.New(cfg.CacheDir, db)
	if err != nil {
		return err
	}

	// Browser + session pool.
	sessions, stopBrowser, err := scrape.StartBrowser(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stopBrowser(); err != nil {
			logger.Warn("gazouille: browser shutdown", "error", err)
		}
	}()

	svc := scrape.New(cfg, sessions, store, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	scrape.RegisterRoutes(r, svc, logger)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gazouille: listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("gazouille: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadConfig(path string) (*scrape.Config, error) {
	var cfg *scrape.Config
	if path != "" {
		c, err := scrape.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = scrape.DefaultConfig()
	}

	// Env overrides, applied on top of file or defaults.
	if p := os.Getenv("PORT"); p != "" {
		cfg.Listen = ":" + p
	}
	if d := os.Getenv("CACHE_DIR"); d != "" {
		cfg.CacheDir = d
	}
	if d := os.Getenv("METADATA_DB"); d != "" {
		cfg.MetadataDB = d
	}
	if r := os.Getenv("BROWSER_REMOTE"); r != "" {
		cfg.Browser.Remote = r
	}
	if m := os.Getenv("MAX_SESSIONS"); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			cfg.Browser.MaxSessions = n
		}
	}
	return cfg, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
