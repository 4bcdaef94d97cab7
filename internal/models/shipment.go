package models

import (
	"time"

	"github.com/pkg/errors"
)

// Коды статусов CDEK, которые считаем финальной доставкой.
const (
	StatusCodeDelivered                = "DELIVERED"
	StatusCodeReceivedAtDeliveryOffice = "RECEIVED_AT_DELIVERY_OFFICE"
	StatusCodeInTransit                = "IN_TRANSIT"
)

type Shipment struct {
	ID           int64             `json:"id"`
	TrackingCode string            `json:"tracking_code"`
	CreatedAt    time.Time         `json:"created_at"`
	Statuses     []*ShipmentStatus `json:"statuses,omitempty"`
}

type ShipmentStatus struct {
	ID             int64     `json:"id"`
	ShipmentID     int64     `json:"shipment_id"`
	StatusCode     string    `json:"status_code"`
	StatusText     string    `json:"status_text"`
	StatusDatetime time.Time `json:"status_datetime"`
	CreatedAt      time.Time `json:"created_at"`
}

// RawStatus is one entry of the carrier's status timeline as received.
// Empty strings mean the field was absent.
type RawStatus struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	DateTime   string `json:"date_time"`
	City       string `json:"city,omitempty"`
	ReasonCode string `json:"reason_code,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// ShipmentRecord is the carrier's view of an order.
type ShipmentRecord struct {
	UUID         string      `json:"uuid,omitempty"`
	TrackingCode string      `json:"cdek_number,omitempty"`
	Number       string      `json:"number,omitempty"`
	Statuses     []RawStatus `json:"statuses"`
}

type SyncResult struct {
	TrackingCode  string `json:"tracking_code"`
	Success       bool   `json:"success"`
	NewStatuses   int    `json:"new_statuses"`
	TotalStatuses int    `json:"total_statuses"`
	Error         string `json:"error,omitempty"`
}

var ErrShipmentNotFound = errors.New("shipment not found")
