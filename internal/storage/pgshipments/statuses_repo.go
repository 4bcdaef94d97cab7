package pgshipments

import (
	"context"

	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const statusColumns = `id, shipment_id, status_code, status_text, status_datetime, created_at`

// InsertStatusIfAbsent stores st unless (shipment, code, datetime) is already
// recorded. On insert st.ID and st.CreatedAt are filled in.
func (s *Storage) InsertStatusIfAbsent(ctx context.Context, st *models.ShipmentStatus) (bool, error) {
	err := s.db.QueryRow(ctx, `
INSERT INTO shipment_statuses (shipment_id, status_code, status_text, status_datetime)
VALUES ($1,$2,$3,$4)
ON CONFLICT (shipment_id, status_code, status_datetime) DO NOTHING
RETURNING id, created_at
`, st.ShipmentID, st.StatusCode, st.StatusText, st.StatusDatetime.UTC()).Scan(&st.ID, &st.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "insert status")
	}
	st.CreatedAt = st.CreatedAt.UTC()
	return true, nil
}

func (s *Storage) ListShipmentStatuses(ctx context.Context, shipmentID int64) ([]*models.ShipmentStatus, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+statusColumns+`
FROM shipment_statuses
WHERE shipment_id = $1
ORDER BY status_datetime, id
`, shipmentID)
	if err != nil {
		return nil, errors.Wrap(err, "select statuses")
	}
	defer rows.Close()

	out := make([]*models.ShipmentStatus, 0)
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return out, nil
}

func scanStatus(row pgx.Row) (*models.ShipmentStatus, error) {
	var st models.ShipmentStatus
	if err := row.Scan(&st.ID, &st.ShipmentID, &st.StatusCode, &st.StatusText, &st.StatusDatetime, &st.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "scan status")
	}
	st.StatusDatetime = st.StatusDatetime.UTC()
	st.CreatedAt = st.CreatedAt.UTC()
	return &st, nil
}
