package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/DeliveryMonitor/config"
	"github.com/BearBump/DeliveryMonitor/internal/api/monitorhttp"
	"github.com/BearBump/DeliveryMonitor/internal/services/syncer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type workerHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	syncer *syncer.Syncer
	ready  func(ctx context.Context) error
	cfg    *config.Config
	log    *zap.Logger
}

func newWorkerRouter(opts workerHTTPOpts) *chi.Mux {
	if opts.log == nil {
		opts.log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(monitorhttp.LoggingMiddleware(opts.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.ready(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		if opts.syncer == nil {
			writeJSON(w, http.StatusOK, map[string]string{"error": "syncer not wired"})
			return
		}
		writeJSON(w, http.StatusOK, opts.syncer.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		if opts.cfg == nil {
			writeJSON(w, http.StatusOK, map[string]string{"error": "config not wired"})
			return
		}
		// только рабочие настройки, без секретов
		writeJSON(w, http.StatusOK, map[string]any{
			"syncIntervalSeconds": opts.cfg.Monitor.SyncIntervalSeconds,
			"concurrency":         opts.cfg.Monitor.SyncConcurrency,
			"rateLimitPerMinute":  opts.cfg.Monitor.RateLimitPerMinute,
			"carrierBaseURL":      opts.cfg.CDEK.BaseURL,
			"fakeCarrier":         opts.cfg.CDEK.UseFake,
			"topic":               opts.cfg.Kafka.ShipmentSyncedTopicName,
		})
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if opts.syncer == nil {
			writeJSON(w, http.StatusOK, map[string]string{"error": "syncer not wired"})
			return
		}
		opts.syncer.Trigger()
		writeJSON(w, http.StatusAccepted, map[string]bool{"triggered": true})
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newWorkerRouter(opts), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
