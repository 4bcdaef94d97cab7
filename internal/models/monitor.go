package models

import "time"

type Statistics struct {
	Total       int `json:"total"`
	InTransit   int `json:"in_transit"`
	Delivered   int `json:"delivered"`
	Problematic int `json:"problematic"`
}

// ShipmentDetails is the list-view projection of a shipment.
// CurrentStatus holds the status text of the latest event.
type ShipmentDetails struct {
	ID                    int64      `json:"id"`
	TrackingCode          string     `json:"tracking_code"`
	CreatedAt             time.Time  `json:"created_at"`
	CurrentStatus         *string    `json:"current_status"`
	CurrentStatusCode     *string    `json:"current_status_code,omitempty"`
	CurrentStatusDatetime *time.Time `json:"current_status_datetime"`
	Problem               bool       `json:"problem"`
}

type BatchSummary struct {
	Success             bool         `json:"success"`
	TotalShipments      int          `json:"total_shipments"`
	UpdatedSuccessfully int          `json:"updated_successfully"`
	Failed              int          `json:"failed"`
	TotalNewStatuses    int          `json:"total_new_statuses"`
	Details             []SyncResult `json:"details"`
	Error               string       `json:"error,omitempty"`
}

// Summarize folds per-shipment results into a batch summary.
func Summarize(results []SyncResult) BatchSummary {
	sum := BatchSummary{
		Success:        true,
		TotalShipments: len(results),
		Details:        results,
	}
	if sum.Details == nil {
		sum.Details = []SyncResult{}
	}
	for _, r := range results {
		if r.Success {
			sum.UpdatedSuccessfully++
			sum.TotalNewStatuses += r.NewStatuses
		}
	}
	sum.Failed = sum.TotalShipments - sum.UpdatedSuccessfully
	return sum
}
