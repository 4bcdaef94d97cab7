package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/api/monitorhttp"
	"github.com/BearBump/DeliveryMonitor/internal/broker/kafka"
	"github.com/BearBump/DeliveryMonitor/internal/broker/messages"
	"github.com/BearBump/DeliveryMonitor/internal/services/monitoring"
	"go.uber.org/zap"
)

type monitorAPIOpts struct {
	httpAddr string

	topic         string
	consumerGroup string

	consumerRetryDelay time.Duration

	log      *zap.Logger
	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func (o monitorAPIOpts) withDefaults() monitorAPIOpts {
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.httpAddr == "" {
		o.httpAddr = ":8000"
	}
	if o.consumerRetryDelay <= 0 {
		o.consumerRetryDelay = 2 * time.Second
	}
	return o
}

func runMonitorAPI(ctx context.Context, opts monitorAPIOpts, svc *monitoring.Service, consumer kafkaConsumer) error {
	opts = opts.withDefaults()

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	if consumer != nil {
		go consumeShipmentSynced(ctx, opts, svc, consumer)
	}

	srv := &http.Server{
		Handler:           monitorhttp.NewRouter(svc, opts.log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpErr := make(chan error, 1)
	go func() {
		opts.log.Info("HTTP server listening", zap.String("addr", lis.Addr().String()))
		httpErr <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}

// consumeShipmentSynced drops cached read views whenever any process stored new statuses.
func consumeShipmentSynced(ctx context.Context, opts monitorAPIOpts, svc *monitoring.Service, consumer kafkaConsumer) {
	opts.log.Info("kafka consumer started", zap.String("topic", opts.topic), zap.String("group", opts.consumerGroup))
	handler := kafka.ShipmentSyncedHandler(ctx, opts.log, func(ctx context.Context, msg messages.ShipmentSynced) error {
		svc.Invalidate(ctx)
		return nil
	})
	for {
		err := consumer.Consume(ctx, handler)
		if ctx.Err() != nil {
			return
		}
		opts.log.Warn("kafka consumer stopped, restarting", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(opts.consumerRetryDelay):
		}
	}
}
