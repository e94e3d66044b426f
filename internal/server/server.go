package server

import (
	"log/slog"
	"net/http"

	"marketplace-dashboard/internal/config"
	"marketplace-dashboard/internal/handlers"
	"marketplace-dashboard/internal/metrics"
	"marketplace-dashboard/internal/middleware"
	"marketplace-dashboard/internal/services"
)

type Server struct {
	dashboard   *services.Dashboard
	mux         *http.ServeMux
	logger      *slog.Logger
	metrics     *metrics.Metrics
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(dashboard *services.Dashboard, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		dashboard:   dashboard,
		mux:         http.NewServeMux(),
		logger:      logger,
		metrics:     m,
		apiHandlers: handlers.NewAPIHandlers(dashboard, cfg.Dashboard.Title, logger),
		sseHandlers: handlers.NewSSEHandlers(dashboard, logger),
	}
	s.setupRoutes(cfg, templateHandlers)
	return s
}

// handle registers h under pattern with request metrics labelled by pattern.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, middleware.Metrics(s.metrics, pattern)(h))
}

func (s *Server) setupRoutes(cfg *config.Config, templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.handle("GET /{$}", templateHandlers.Dashboard)
	s.handle("GET /health", s.apiHandlers.HandleHealth)
	s.handle("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.handle("GET /api/options", s.apiHandlers.HandleOptions)
	s.handle("GET /api/dashboard", s.apiHandlers.HandleDashboard)
	s.handle("GET /api/summary", s.apiHandlers.HandleSummary)
	s.handle("GET /api/price-distribution", s.apiHandlers.HandlePriceDistribution)
	s.handle("GET /api/products", s.apiHandlers.HandleProducts)
	s.handle("GET /api/product-names", s.apiHandlers.HandleProductNames)
	s.handle("GET /api/contribution", s.apiHandlers.HandleContribution)
	s.handle("GET /api/monthly-revenue", s.apiHandlers.HandleMonthlyRevenue)
	s.handle("GET /api/compare", s.apiHandlers.HandleCompare)
	s.handle("GET /api/export.xlsx", s.apiHandlers.HandleExport)

	// Datastar SSE endpoints
	s.handle("GET /sse/dashboard", s.sseHandlers.HandleDashboard)
	s.handle("GET /sse/compare", s.sseHandlers.HandleCompare)

	if cfg.Metrics.Enabled && s.metrics != nil {
		s.mux.Handle("GET "+cfg.Metrics.Path, s.metrics.Handler())
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
