package main

import (
	"context"
	"time"

	"github.com/BearBump/DeliveryMonitor/config"
	"github.com/BearBump/DeliveryMonitor/internal/broker/kafka"
	"github.com/BearBump/DeliveryMonitor/internal/cache/rediscache"
	"github.com/BearBump/DeliveryMonitor/internal/integrations/carrier"
	"github.com/BearBump/DeliveryMonitor/internal/logger"
	"github.com/BearBump/DeliveryMonitor/internal/services/syncer"
	"github.com/BearBump/DeliveryMonitor/internal/storage/pgshipments"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type workerStorage interface {
	syncer.Repository
	Ping(ctx context.Context) error
}

type workerFactories struct {
	newStorage       func(ctx context.Context, cfg *config.Config) (repo workerStorage, closeFn func(), err error)
	newProducer      func(cfg *config.Config) (syncer.Producer, func())
	newRateLimiter   func(cfg *config.Config) (syncer.RateLimiter, func())
	newCarrierClient func(cfg *config.Config) carrier.Client
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(ctx context.Context, cfg *config.Config) (workerStorage, func(), error) {
			st, err := pgshipments.NewWithRetry(ctx, cfg.Database.ConnString(), 60*time.Second, logger.Named("storage"))
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) (syncer.Producer, func()) {
			if cfg.Kafka.Host == "" {
				return nil, nil
			}
			p := kafka.NewProducer(cfg.Kafka.Brokers())
			return p, func() { _ = p.Close() }
		},
		newRateLimiter: func(cfg *config.Config) (syncer.RateLimiter, func()) {
			if cfg.Redis.Host == "" {
				return nil, nil
			}
			rl := rediscache.NewRateLimiter(cfg.Redis.Addr())
			return rl, func() { _ = rl.Close() }
		},
		newCarrierClient: func(cfg *config.Config) carrier.Client {
			return carrier.FromConfig(cfg.CDEK, logger.Named("cdek"))
		},
	}
}

// RunMonitorWorker runs the periodic sync loop and the ops HTTP server until ctx is done.
func RunMonitorWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	log := logger.Named("monitor-worker")

	repo, closeFn, err := f.newStorage(ctx, cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer, closeProducer := f.newProducer(cfg)
	if closeProducer != nil {
		defer closeProducer()
	}
	rl, closeRL := f.newRateLimiter(cfg)
	if closeRL != nil {
		defer closeRL()
	}

	s := syncer.New(repo, f.newCarrierClient(cfg)).
		WithSettings(time.Duration(cfg.Monitor.SyncIntervalSeconds)*time.Second, cfg.Monitor.SyncConcurrency).
		WithRateLimiter(rl, cfg.Monitor.RateLimitPerMinute).
		WithLogger(logger.Named("syncer"))
	if producer != nil {
		s.WithProducer(producer, cfg.Kafka.ShipmentSyncedTopicName)
	}

	log.Info("monitor-worker started",
		zap.Int("sync_interval_seconds", cfg.Monitor.SyncIntervalSeconds),
		zap.Int("concurrency", cfg.Monitor.SyncConcurrency),
		zap.Bool("rate_limited", rl != nil && cfg.Monitor.RateLimitPerMinute > 0),
		zap.Bool("publishing", producer != nil),
	)

	// первый цикл сразу после старта, дальше по тикеру
	s.Trigger()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(gctx) })
	g.Go(func() error {
		return runWorkerHTTPServer(gctx, workerHTTPOpts{
			httpAddr: cfg.Monitor.WorkerHTTPAddr,
			syncer:   s,
			ready:    repo.Ping,
			cfg:      cfg,
			log:      log,
		})
	})
	return g.Wait()
}
