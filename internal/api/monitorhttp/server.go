// Package monitorhttp serves the shipment monitoring HTTP API and dashboard.
package monitorhttp

import (
	"context"
	"net/http"
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Service interface {
	Statistics(ctx context.Context) (models.Statistics, error)
	ShipmentDetails(ctx context.Context) ([]models.ShipmentDetails, error)
	ShipmentStatuses(ctx context.Context, trackingCode string) ([]*models.ShipmentStatus, error)
	CreateShipments(ctx context.Context, trackingCodes []string) (int, error)
	UpdateAll(ctx context.Context) models.BatchSummary
	SyncOne(ctx context.Context, trackingCode string) (models.SyncResult, error)
}

type handlers struct {
	svc Service
	log *zap.Logger
}

// NewRouter builds the API router.
func NewRouter(svc Service, log *zap.Logger) *chi.Mux {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handlers{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.dashboard)
	r.Get("/shipments", h.dashboard)
	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/statistics", h.statistics)
		r.Get("/shipments", h.listShipments)
		r.Post("/shipments", h.createShipments)
		r.Get("/shipments/{trackingCode}/statuses", h.shipmentStatuses)
		r.Post("/shipments/{trackingCode}/sync", h.syncShipment)
	})
	r.Post("/update-statuses", h.updateStatuses)

	r.Handle("/metrics", promhttp.Handler())
	mountSwagger(r)

	return r
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
