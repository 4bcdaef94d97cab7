package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/broker/messages"
	"github.com/BearBump/DeliveryMonitor/internal/integrations/carrier"
	"github.com/BearBump/DeliveryMonitor/internal/metrics"
	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/BearBump/DeliveryMonitor/internal/services/statusmerge"
	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Repository interface {
	ListShipmentsWithStatuses(ctx context.Context) ([]*models.Shipment, error)
	GetShipmentByTrackingCode(ctx context.Context, trackingCode string) (*models.Shipment, error)
	CreateShipment(ctx context.Context, trackingCode string) (*models.Shipment, error)
	ListShipmentStatuses(ctx context.Context, shipmentID int64) ([]*models.ShipmentStatus, error)
	InsertStatusIfAbsent(ctx context.Context, st *models.ShipmentStatus) (bool, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Syncer struct {
	repo     Repository
	carrier  carrier.Client
	producer Producer
	rl       RateLimiter
	log      *zap.Logger
	now      func() time.Time

	topic string

	syncInterval       time.Duration
	concurrency        int
	rateLimitPerMinute int64
	rateLimitWait      time.Duration
	publishTries       uint
	publishInitial     time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalSynced         atomic.Int64
	totalFailed         atomic.Int64
	totalNewStatuses    atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, c carrier.Client) *Syncer {
	return &Syncer{
		repo:              repo,
		carrier:           c,
		log:               zap.NewNop(),
		now:               func() time.Time { return time.Now().UTC() },
		syncInterval:      15 * time.Minute,
		concurrency:       1,
		rateLimitWait:     500 * time.Millisecond,
		publishTries:      10,
		publishInitial:    150 * time.Millisecond,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (s *Syncer) WithSettings(syncInterval time.Duration, concurrency int) *Syncer {
	if syncInterval > 0 {
		s.syncInterval = syncInterval
	}
	if concurrency > 0 {
		s.concurrency = concurrency
	}
	return s
}

// WithRateLimiter caps carrier lookups per minute across all processes sharing rl.
func (s *Syncer) WithRateLimiter(rl RateLimiter, perMinute int) *Syncer {
	if rl != nil && perMinute > 0 {
		s.rl = rl
		s.rateLimitPerMinute = int64(perMinute)
	}
	return s
}

func (s *Syncer) WithProducer(p Producer, topic string) *Syncer {
	s.producer = p
	s.topic = topic
	return s
}

func (s *Syncer) WithPublishRetry(tries uint, initial time.Duration) *Syncer {
	if tries > 0 {
		s.publishTries = tries
	}
	if initial > 0 {
		s.publishInitial = initial
	}
	return s
}

func (s *Syncer) WithLogger(l *zap.Logger) *Syncer {
	if l != nil {
		s.log = l
	}
	return s
}

func (s *Syncer) WithClock(now func() time.Time) *Syncer {
	if now != nil {
		s.now = now
	}
	return s
}

// Trigger forces an immediate sync cycle (best-effort, non-blocking).
func (s *Syncer) Trigger() {
	s.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt        time.Time  `json:"startedAt"`
	LastCycleAt      *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt    *time.Time `json:"lastTriggerAt,omitempty"`
	TotalSynced      int64      `json:"totalSynced"`
	TotalFailed      int64      `json:"totalFailed"`
	TotalNewStatuses int64      `json:"totalNewStatuses"`
	InFlight         int64      `json:"inFlight"`
	LastError        string     `json:"lastError,omitempty"`
}

func (s *Syncer) Stats() Stats {
	st := Stats{
		StartedAt:        time.Unix(0, s.startedAtUnixNano).UTC(),
		TotalSynced:      s.totalSynced.Load(),
		TotalFailed:      s.totalFailed.Load(),
		TotalNewStatuses: s.totalNewStatuses.Load(),
		InFlight:         s.inFlight.Load(),
	}
	if n := s.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := s.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	s.lastErrorMu.Lock()
	st.LastError = s.lastError
	s.lastErrorMu.Unlock()
	return st
}

// Run syncs all shipments every syncInterval and on Trigger until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	t := time.NewTicker(s.syncInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.runOnce(ctx)
		case <-s.triggerCh:
			s.runOnce(ctx)
		}
	}
}

func (s *Syncer) runOnce(ctx context.Context) {
	s.lastCycleUnixNano.Store(time.Now().UTC().UnixNano())
	if _, err := s.SyncAll(ctx); err != nil {
		s.setLastError(err)
		s.log.Error("sync cycle", zap.Error(err))
	}
}

// SyncAll syncs every stored shipment.
func (s *Syncer) SyncAll(ctx context.Context) ([]models.SyncResult, error) {
	shipments, err := s.repo.ListShipmentsWithStatuses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list shipments")
	}
	return s.SyncShipments(ctx, shipments), nil
}

// SyncOne syncs a single tracking code, registering it first when unknown.
func (s *Syncer) SyncOne(ctx context.Context, trackingCode string) (models.SyncResult, error) {
	if trackingCode == "" {
		return models.SyncResult{}, errors.New("tracking code is required")
	}
	sh, err := s.repo.GetShipmentByTrackingCode(ctx, trackingCode)
	if errors.Is(err, models.ErrShipmentNotFound) {
		sh, err = s.repo.CreateShipment(ctx, trackingCode)
		if err == nil {
			s.log.Info("shipment registered", zap.String("tracking_code", trackingCode))
		}
	}
	if err != nil {
		return models.SyncResult{}, errors.Wrap(err, "resolve shipment")
	}
	return s.SyncShipments(ctx, []*models.Shipment{sh})[0], nil
}

// SyncShipments returns exactly one result per shipment, in input order.
// A failure of one shipment never affects the others.
func (s *Syncer) SyncShipments(ctx context.Context, shipments []*models.Shipment) []models.SyncResult {
	started := time.Now()
	defer func() { metrics.SyncBatchDuration.Observe(time.Since(started).Seconds()) }()

	results := make([]models.SyncResult, len(shipments))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i, sh := range shipments {
		sem <- struct{}{}
		wg.Add(1)
		s.inFlight.Add(1)
		go func() {
			defer func() {
				s.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			results[i] = s.syncGuarded(ctx, sh)
		}()
	}
	wg.Wait()

	for _, r := range results {
		if r.Success {
			s.totalSynced.Add(1)
			metrics.SyncResultsTotal.WithLabelValues("success").Inc()
		} else {
			s.totalFailed.Add(1)
			metrics.SyncResultsTotal.WithLabelValues("failure").Inc()
		}
	}
	return results
}

func (s *Syncer) syncGuarded(ctx context.Context, sh *models.Shipment) (res models.SyncResult) {
	code := ""
	if sh != nil {
		code = sh.TrackingCode
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			s.setLastError(err)
			s.log.Error("sync shipment panicked", zap.String("tracking_code", code), zap.Any("panic", r))
			res = models.SyncResult{TrackingCode: code, Error: err.Error()}
		}
	}()

	newCount, total, err := s.syncShipment(ctx, sh)
	if err != nil {
		s.setLastError(err)
		s.log.Error("sync shipment", zap.String("tracking_code", code), zap.Error(err))
		return models.SyncResult{TrackingCode: code, Error: err.Error()}
	}
	return models.SyncResult{TrackingCode: code, Success: true, NewStatuses: newCount, TotalStatuses: total}
}

func (s *Syncer) syncShipment(ctx context.Context, sh *models.Shipment) (int, int, error) {
	if err := s.waitRateLimit(ctx); err != nil {
		return 0, 0, err
	}

	raws, err := s.carrier.FetchStatuses(ctx, sh.TrackingCode)
	if err != nil {
		return 0, 0, err
	}

	// SyncAll hands over shipments with their stored log already loaded.
	existing := sh.Statuses
	if existing == nil {
		existing, err = s.repo.ListShipmentStatuses(ctx, sh.ID)
		if err != nil {
			return 0, 0, errors.Wrap(err, "load statuses")
		}
	}

	merged := statusmerge.Merge(sh.ID, statusmerge.KeysOf(existing), raws, s.now())

	newCount := 0
	for _, st := range merged.ToInsert {
		inserted, err := s.repo.InsertStatusIfAbsent(ctx, st)
		if err != nil {
			return newCount, len(raws), errors.Wrap(err, "insert status")
		}
		if inserted {
			newCount++
		}
	}
	// total is the carrier's timeline length, not the number of stored rows.
	total := len(raws)

	if newCount > 0 {
		s.totalNewStatuses.Add(int64(newCount))
		metrics.NewStatusesTotal.Add(float64(newCount))
		s.log.Info("new statuses stored",
			zap.String("tracking_code", sh.TrackingCode),
			zap.Int("new_statuses", newCount),
			zap.Int("total_statuses", total),
		)
		// Statuses are already committed; a failed notification only delays cache invalidation.
		if err := s.publishSynced(ctx, sh, newCount); err != nil {
			s.setLastError(err)
			s.log.Warn("publish shipment synced", zap.String("tracking_code", sh.TrackingCode), zap.Error(err))
		}
	}
	return newCount, total, nil
}

func (s *Syncer) waitRateLimit(ctx context.Context) error {
	if s.rl == nil || s.rateLimitPerMinute <= 0 {
		return nil
	}
	for {
		now := time.Now().UTC()
		minuteKey := "rl:carrier:cdek:" + now.Format("200601021504")
		allowed, n, err := s.rl.Allow(ctx, minuteKey, s.rateLimitPerMinute, 70*time.Second)
		if err != nil {
			return errors.Wrap(err, "rate limit")
		}
		if allowed {
			return nil
		}
		s.log.Warn("carrier rate limit exceeded", zap.Int64("count", n))

		t := time.NewTimer(s.rateLimitWait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Syncer) publishSynced(ctx context.Context, sh *models.Shipment, newCount int) error {
	if s.producer == nil || s.topic == "" {
		return nil
	}
	b, err := json.Marshal(messages.ShipmentSynced{
		ShipmentID:   sh.ID,
		TrackingCode: sh.TrackingCode,
		NewStatuses:  newCount,
		SyncedAt:     s.now(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal kafka msg")
	}
	key := []byte(strconv.FormatInt(sh.ID, 10))

	// Kafka может быть не готова сразу после старта docker compose.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.publishInitial
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.producer.Publish(ctx, s.topic, key, b)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(s.publishTries))
	return err
}

func (s *Syncer) setLastError(err error) {
	s.lastErrorMu.Lock()
	s.lastError = err.Error()
	s.lastErrorMu.Unlock()
}
