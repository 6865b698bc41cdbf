package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riteshkumar/greengrid/internal/repository"
	"github.com/riteshkumar/greengrid/internal/service"
)

// NewRouter mounts every API route for the session plus /health and /metrics.
func NewRouter(session *service.Session, audit repository.AuditRepository, feed NoticeFeed, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()

	NewAccountHandler(session, logger).RegisterRoutes(router)
	NewMeteringHandler(session, logger).RegisterRoutes(router)
	NewMarketHandler(session, session.Market, logger).RegisterRoutes(router)
	NewCertificateHandler(session, session.Certificates, logger).RegisterRoutes(router)
	NewNotificationHandler(feed, logger).RegisterRoutes(router)
	NewAuditHandler(audit, logger).RegisterRoutes(router)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.Use(LoggingMiddleware(logger))
	router.Use(MetricsMiddleware)
	return router
}
