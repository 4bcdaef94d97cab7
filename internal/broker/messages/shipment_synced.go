package messages

import "time"

// ShipmentSynced is published after a sync stored at least one new status.
type ShipmentSynced struct {
	ShipmentID   int64     `json:"shipment_id"`
	TrackingCode string    `json:"tracking_code"`
	NewStatuses  int       `json:"new_statuses"`
	SyncedAt     time.Time `json:"synced_at"`
}
