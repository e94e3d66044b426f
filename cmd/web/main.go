package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"marketplace-dashboard/internal/aggregator"
	"marketplace-dashboard/internal/config"
	"marketplace-dashboard/internal/dataset"
	"marketplace-dashboard/internal/metrics"
	"marketplace-dashboard/internal/middleware"
	"marketplace-dashboard/internal/observability"
	"marketplace-dashboard/internal/server"
	"marketplace-dashboard/internal/services"
	"marketplace-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

// dashboardPage renders the shell with the filter dropdowns preset to their
// default selection.
func dashboardPage(dashboard *services.Dashboard, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		filters, err := dashboard.Options(ctx)
		if err != nil {
			http.Error(w, "dataset unavailable", http.StatusServiceUnavailable)
			return
		}

		spec := aggregator.FilterSpec{}
		for _, f := range filters {
			spec[aggregator.Field(f.Field)] = f.Selected
		}
		products, err := dashboard.ProductNames(ctx, spec)
		if err != nil {
			http.Error(w, "dataset unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		page := templates.Page{Title: title, Filters: filters, Products: products}
		if err := templates.Dashboard(page).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// newHandler wires the routes behind the middleware chain.
func newHandler(cfg *config.Config, dashboard *services.Dashboard, logger *slog.Logger, m *metrics.Metrics, limiter *middleware.RateLimiter) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardPage(dashboard, cfg.Dashboard.Title),
	}

	srv := server.NewServer(dashboard, cfg, logger, m, templateHandlers)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"profile", cfg.Dashboard.Profile,
		"config", cfg,
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	source := dataset.NewSource(cfg.Dataset.CSVFile, dataset.Options{
		BatchSize:       cfg.Dataset.BatchSize,
		Workers:         cfg.Dataset.Workers,
		ShortNameLength: cfg.Dashboard.ShortNameLength,
		SnapshotEnabled: cfg.Dataset.SnapshotEnabled,
		SnapshotDir:     cfg.Dataset.SnapshotDir,
	}, logger, m)

	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.Dataset.LoadTimeout)
	_, err = source.Table(loadCtx)
	cancel()
	if err != nil {
		logger.Error("failed to load CSV data", "path", cfg.Dataset.CSVFile, "error", err)
		os.Exit(1)
	}
	stats := source.Stats()
	logger.Info("CSV data loaded successfully",
		"rows", stats.Rows,
		"skipped", stats.Skipped,
		"from_snapshot", stats.FromSnapshot,
		"duration", stats.Duration,
	)

	dashboard := services.NewDashboard(source, services.Options{
		FilterFields: cfg.Dashboard.FilterFields,
		Currency:     cfg.Dashboard.Currency,
	}, logger, m)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	go rateLimiter.Run(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, dashboard, logger, m, rateLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook("rate-limiter", func(context.Context) error {
		stop()
		return nil
	})

	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
