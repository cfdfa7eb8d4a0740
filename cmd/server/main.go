package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soaringjerry/synap-insights/internal/api"
	"github.com/soaringjerry/synap-insights/internal/config"
	"github.com/soaringjerry/synap-insights/internal/db"
	"github.com/soaringjerry/synap-insights/internal/middleware"
	"github.com/soaringjerry/synap-insights/pkg/logger"
	"github.com/soaringjerry/synap-insights/pkg/metrics"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 20 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal(ctx, "load config", logger.Error(err))
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	if cfg.TokenSecret == config.DefaultTokenSecret {
		log.Warn(ctx, "using the development token secret; set SYNAP_TOKEN_SECRET in production")
	}

	store, err := openStore(cfg, log)
	if err != nil {
		log.Fatal(ctx, "open store", logger.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "close store", logger.Error(err))
		}
	}()

	m := metrics.NewManager(metrics.WithMetricsEnabled(cfg.MetricsEnabled))
	router := api.NewRouter(store,
		api.WithBaseURL(cfg.BaseURL),
		api.WithRespondentTokens(cfg.TokenSecret, time.Duration(cfg.TokenTTLHours)*time.Hour),
		api.WithPageSize(cfg.PageSize),
		api.WithMetrics(m),
		api.WithLogger(log),
	)
	if err := seedCatalog(ctx, router.Catalog(), cfg.SeedCatalog, log); err != nil {
		log.Fatal(ctx, "seed catalog", logger.Error(err))
	}

	commit := os.Getenv("SYNAP_COMMIT")
	buildTime := os.Getenv("SYNAP_BUILD_TIME")

	mux := http.NewServeMux()
	router.Register(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Synap Insights API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", m.Handler())
	}
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	mws := []func(http.Handler) http.Handler{middleware.RequestLogger(log.Named("http"))}
	if cfg.CORSEnabled {
		mws = append(mws, middleware.CORS)
	}
	mws = append(mws, middleware.NoStore, middleware.SecureHeaders, middleware.Metrics(m))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           middleware.Chain(mux, mws...),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		log.Info(ctx, "synap insights listening", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

func openStore(cfg *config.Config, log logger.Logger) (api.Store, error) {
	if cfg.SQLitePath == "" {
		log.Info(context.Background(), "using in-memory store")
		return api.NewMemoryStore(), nil
	}
	s, err := db.Open(cfg.SQLitePath, cfg.MigrationsDir)
	if err != nil {
		return nil, err
	}
	log.Info(context.Background(), "using sqlite store", logger.String("path", cfg.SQLitePath))
	return s.WithLogger(log.Named("db")), nil
}
