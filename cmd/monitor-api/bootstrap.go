package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/DeliveryMonitor/config"
	"github.com/BearBump/DeliveryMonitor/internal/broker/kafka"
	"github.com/BearBump/DeliveryMonitor/internal/cache"
	"github.com/BearBump/DeliveryMonitor/internal/cache/rediscache"
	"github.com/BearBump/DeliveryMonitor/internal/integrations/carrier"
	"github.com/BearBump/DeliveryMonitor/internal/logger"
	"github.com/BearBump/DeliveryMonitor/internal/services/monitoring"
	"github.com/BearBump/DeliveryMonitor/internal/services/syncer"
	"github.com/BearBump/DeliveryMonitor/internal/storage/pgshipments"
	"go.uber.org/zap"
)

type monitorAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     monitorAPIOpts
	svc      *monitoring.Service
	consumer kafkaConsumer
	closers  []func()
}

func mustBootstrapMonitorAPI() *monitorAPIApp {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	if err := logger.Init(cfg.App.Environment, cfg.App.LogLevel); err != nil {
		panic(err)
	}
	log := logger.Named("monitor-api")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := &monitorAPIApp{ctx: ctx, cancel: cancel}

	st, err := pgshipments.NewWithRetry(ctx, cfg.Database.ConnString(), 60*time.Second, log)
	if err != nil {
		panic(fmt.Sprintf("postgres is not ready: %v", err))
	}
	app.closers = append(app.closers, st.Close)

	sy := syncer.New(st, carrier.FromConfig(cfg.CDEK, log)).
		WithSettings(0, cfg.Monitor.SyncConcurrency).
		WithLogger(logger.Named("syncer"))

	var readCache cache.BytesCache
	if cfg.Redis.Host != "" {
		rc := rediscache.New(cfg.Redis.Addr())
		readCache = rc
		rl := rediscache.NewRateLimiter(cfg.Redis.Addr())
		sy.WithRateLimiter(rl, cfg.Monitor.RateLimitPerMinute)
		app.closers = append(app.closers, func() { _ = rc.Close() }, func() { _ = rl.Close() })
	} else {
		log.Warn("redis is not configured, read cache and rate limit are off")
	}

	topic := cfg.Kafka.ShipmentSyncedTopicName
	if cfg.Kafka.Host != "" {
		producer := kafka.NewProducer(cfg.Kafka.Brokers())
		sy.WithProducer(producer, topic)
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers(), topic, cfg.Kafka.ConsumerGroup)
		app.consumer = consumer
		app.closers = append(app.closers, func() { _ = producer.Close() }, func() { _ = consumer.Close() })
	} else {
		log.Warn("kafka is not configured, cache invalidation relies on TTL")
	}

	app.svc = monitoring.New(st, sy, readCache,
		time.Duration(cfg.Monitor.ReadCacheTTLSeconds)*time.Second,
		logger.Named("monitoring"),
	)
	app.opts = monitorAPIOpts{
		httpAddr:      cfg.Monitor.HTTPAddr,
		topic:         topic,
		consumerGroup: cfg.Kafka.ConsumerGroup,
		log:           log,
	}

	log.Info("monitor-api bootstrapped",
		zap.String("env", cfg.App.Environment),
		zap.String("http_addr", cfg.Monitor.HTTPAddr),
		zap.Bool("fake_carrier", cfg.CDEK.UseFake),
	)
	return app
}

func (a *monitorAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	logger.Sync()
}

func (a *monitorAPIApp) Run() error {
	return runMonitorAPI(a.ctx, a.opts, a.svc, a.consumer)
}
