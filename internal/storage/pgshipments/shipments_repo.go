package pgshipments

import (
	"context"

	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// CreateShipment registers a tracking code; an existing code is returned as is.
func (s *Storage) CreateShipment(ctx context.Context, trackingCode string) (*models.Shipment, error) {
	var sh models.Shipment
	err := s.db.QueryRow(ctx, `
INSERT INTO shipments (tracking_code)
VALUES ($1)
ON CONFLICT (tracking_code)
DO UPDATE SET tracking_code = shipments.tracking_code
RETURNING id, tracking_code, created_at
`, trackingCode).Scan(&sh.ID, &sh.TrackingCode, &sh.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert shipment")
	}
	sh.CreatedAt = sh.CreatedAt.UTC()
	return &sh, nil
}

// CreateShipments registers tracking codes in one transaction and returns the
// number of codes that were not known before.
func (s *Storage) CreateShipments(ctx context.Context, trackingCodes []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created := 0
	for _, code := range trackingCodes {
		tag, err := tx.Exec(ctx, `
INSERT INTO shipments (tracking_code)
VALUES ($1)
ON CONFLICT (tracking_code) DO NOTHING
`, code)
		if err != nil {
			return 0, errors.Wrap(err, "insert shipment")
		}
		created += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit tx")
	}
	return created, nil
}

func (s *Storage) GetShipmentByTrackingCode(ctx context.Context, trackingCode string) (*models.Shipment, error) {
	var sh models.Shipment
	err := s.db.QueryRow(ctx, `
SELECT id, tracking_code, created_at
FROM shipments
WHERE tracking_code = $1
`, trackingCode).Scan(&sh.ID, &sh.TrackingCode, &sh.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrShipmentNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select shipment")
	}
	sh.CreatedAt = sh.CreatedAt.UTC()
	return &sh, nil
}

func (s *Storage) ListShipments(ctx context.Context) ([]*models.Shipment, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, tracking_code, created_at
FROM shipments
ORDER BY id
`)
	if err != nil {
		return nil, errors.Wrap(err, "select shipments")
	}
	defer rows.Close()

	out := make([]*models.Shipment, 0)
	for rows.Next() {
		var sh models.Shipment
		if err := rows.Scan(&sh.ID, &sh.TrackingCode, &sh.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		sh.CreatedAt = sh.CreatedAt.UTC()
		out = append(out, &sh)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return out, nil
}

// ListShipmentsWithStatuses returns every shipment with its full status log
// ordered by event time.
func (s *Storage) ListShipmentsWithStatuses(ctx context.Context) ([]*models.Shipment, error) {
	shipments, err := s.ListShipments(ctx)
	if err != nil {
		return nil, err
	}
	if len(shipments) == 0 {
		return shipments, nil
	}

	byID := make(map[int64]*models.Shipment, len(shipments))
	for _, sh := range shipments {
		sh.Statuses = []*models.ShipmentStatus{}
		byID[sh.ID] = sh
	}

	rows, err := s.db.Query(ctx, `
SELECT `+statusColumns+`
FROM shipment_statuses
ORDER BY shipment_id, status_datetime, id
`)
	if err != nil {
		return nil, errors.Wrap(err, "select statuses")
	}
	defer rows.Close()

	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		if sh, ok := byID[st.ShipmentID]; ok {
			sh.Statuses = append(sh.Statuses, st)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return shipments, nil
}

func (s *Storage) CountShipments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM shipments`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count shipments")
	}
	return n, nil
}
