package monitoring

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/cache"
	"github.com/BearBump/DeliveryMonitor/internal/metrics"
	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/BearBump/DeliveryMonitor/internal/services/classify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrInvalidInput marks caller mistakes (HTTP 400).
var ErrInvalidInput = errors.New("invalid input")

const maxTrackingCodes = 10_000

const (
	statisticsKey = "monitor:statistics"
	shipmentsKey  = "monitor:shipments"
)

type Repository interface {
	ListShipmentsWithStatuses(ctx context.Context) ([]*models.Shipment, error)
	GetShipmentByTrackingCode(ctx context.Context, trackingCode string) (*models.Shipment, error)
	ListShipmentStatuses(ctx context.Context, shipmentID int64) ([]*models.ShipmentStatus, error)
	CreateShipments(ctx context.Context, trackingCodes []string) (int, error)
}

type Syncer interface {
	SyncAll(ctx context.Context) ([]models.SyncResult, error)
	SyncOne(ctx context.Context, trackingCode string) (models.SyncResult, error)
}

type Service struct {
	repo   Repository
	syncer Syncer
	cache  cache.BytesCache
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func New(repo Repository, syncer Syncer, c cache.BytesCache, ttl time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		syncer: syncer,
		cache:  c,
		ttl:    ttl,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

// Statistics counts shipments by their latest status. Shipments without any
// status count towards the total only.
func (s *Service) Statistics(ctx context.Context) (models.Statistics, error) {
	return cached(ctx, s, "statistics", statisticsKey, func(ctx context.Context) (models.Statistics, error) {
		shipments, err := s.repo.ListShipmentsWithStatuses(ctx)
		if err != nil {
			return models.Statistics{}, err
		}
		now := s.now()
		st := models.Statistics{Total: len(shipments)}
		for _, sh := range shipments {
			if latest := classify.Latest(sh.Statuses); latest != nil {
				if classify.IsDeliveredCode(latest.StatusCode) {
					st.Delivered++
				} else {
					st.InTransit++
				}
			}
			if classify.IsProblematic(sh.Statuses, now) {
				st.Problematic++
			}
		}
		return st, nil
	})
}

func (s *Service) ShipmentDetails(ctx context.Context) ([]models.ShipmentDetails, error) {
	return cached(ctx, s, "shipments", shipmentsKey, func(ctx context.Context) ([]models.ShipmentDetails, error) {
		shipments, err := s.repo.ListShipmentsWithStatuses(ctx)
		if err != nil {
			return nil, err
		}
		now := s.now()
		out := make([]models.ShipmentDetails, 0, len(shipments))
		for _, sh := range shipments {
			d := models.ShipmentDetails{
				ID:           sh.ID,
				TrackingCode: sh.TrackingCode,
				CreatedAt:    sh.CreatedAt,
				Problem:      classify.IsProblematic(sh.Statuses, now),
			}
			if latest := classify.Latest(sh.Statuses); latest != nil {
				text, code, at := latest.StatusText, latest.StatusCode, latest.StatusDatetime
				d.CurrentStatus = &text
				d.CurrentStatusCode = &code
				d.CurrentStatusDatetime = &at
			}
			out = append(out, d)
		}
		return out, nil
	})
}

// ShipmentStatuses returns the status history of one shipment ordered by event time.
func (s *Service) ShipmentStatuses(ctx context.Context, trackingCode string) ([]*models.ShipmentStatus, error) {
	sh, err := s.repo.GetShipmentByTrackingCode(ctx, trackingCode)
	if err != nil {
		return nil, err
	}
	return s.repo.ListShipmentStatuses(ctx, sh.ID)
}

// CreateShipments registers tracking codes and returns how many were new.
func (s *Service) CreateShipments(ctx context.Context, trackingCodes []string) (int, error) {
	if len(trackingCodes) == 0 {
		return 0, errors.Wrap(ErrInvalidInput, "tracking_codes is empty")
	}
	if len(trackingCodes) > maxTrackingCodes {
		return 0, errors.Wrap(ErrInvalidInput, "too many tracking codes (max 10000)")
	}

	clean := make([]string, 0, len(trackingCodes))
	seen := make(map[string]struct{}, len(trackingCodes))
	for _, code := range trackingCodes {
		code = strings.TrimSpace(code)
		if code == "" {
			return 0, errors.Wrap(ErrInvalidInput, "tracking code is required")
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		clean = append(clean, code)
	}

	n, err := s.repo.CreateShipments(ctx, clean)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Invalidate(ctx)
	}
	return n, nil
}

// UpdateAll syncs every shipment. A failure to list shipments is reported in
// the summary rather than returned.
func (s *Service) UpdateAll(ctx context.Context) models.BatchSummary {
	results, err := s.syncer.SyncAll(ctx)
	if err != nil {
		s.log.Error("update all shipments", zap.Error(err))
		sum := models.Summarize(nil)
		sum.Success = false
		sum.Error = err.Error()
		return sum
	}
	sum := models.Summarize(results)
	if sum.TotalNewStatuses > 0 {
		s.Invalidate(ctx)
	}
	s.log.Info("shipments updated",
		zap.Int("total", sum.TotalShipments),
		zap.Int("failed", sum.Failed),
		zap.Int("new_statuses", sum.TotalNewStatuses),
	)
	return sum
}

func (s *Service) SyncOne(ctx context.Context, trackingCode string) (models.SyncResult, error) {
	trackingCode = strings.TrimSpace(trackingCode)
	if trackingCode == "" {
		return models.SyncResult{}, errors.Wrap(ErrInvalidInput, "tracking code is required")
	}
	res, err := s.syncer.SyncOne(ctx, trackingCode)
	if err != nil {
		return models.SyncResult{}, err
	}
	// даже без новых статусов shipment мог быть только что создан
	s.Invalidate(ctx)
	return res, nil
}

// Invalidate drops cached read views. Errors are logged only.
func (s *Service) Invalidate(ctx context.Context) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.Delete(ctx, statisticsKey, shipmentsKey); err != nil {
		s.log.Warn("invalidate read cache", zap.Error(err))
	}
}

func cached[T any](ctx context.Context, s *Service, view, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if s.cacheEnabled() {
		b, ok, err := s.cache.Get(ctx, key)
		if err == nil && ok {
			var v T
			if json.Unmarshal(b, &v) == nil {
				metrics.ReadCacheLookupsTotal.WithLabelValues(view, "hit").Inc()
				return v, nil
			}
		}
		if err != nil {
			s.log.Warn("read cache get", zap.String("key", key), zap.Error(err))
		}
		metrics.ReadCacheLookupsTotal.WithLabelValues(view, "miss").Inc()
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	if s.cacheEnabled() {
		if b, err := json.Marshal(v); err == nil {
			_ = s.cache.Set(ctx, key, b, s.ttl)
		}
	}
	return v, nil
}
