package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanqian/review-digest/internal/infra/config"
	"github.com/yanqian/review-digest/internal/interface/web"
	"github.com/yanqian/review-digest/pkg/metrics"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, m *metrics.SummaryMetrics, gatherer prometheus.Gatherer, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	httpLogger := logger.With("component", "http.router")

	router := gin.New()
	router.Use(
		requestIDMiddleware(),
		requestLogger(httpLogger),
		metricsMiddleware(m),
		recoveryHandler(httpLogger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(httpLogger),
	)

	api := router.Group("/api")
	{
		api.GET("", handler.Index)
		api.GET("/health", handler.Health)
		api.GET("/products/:id/reviews", handler.ListReviews)
		api.POST("/products/:id/reviews/summarize", handler.Summarize)
	}

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	web.Register(router)
	router.NoRoute(handler.NotFound)

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
