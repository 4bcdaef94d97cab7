// Package classify derives the current state of a shipment from its status log.
package classify

import (
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/models"
)

// ProblemThresholdDays is the number of whole days a shipment may stay
// undelivered before it is reported as problematic.
const ProblemThresholdDays = 3

// Latest returns the status with the greatest StatusDatetime, or nil.
// Ties go to the higher ID, then to the later position.
func Latest(statuses []*models.ShipmentStatus) *models.ShipmentStatus {
	var best *models.ShipmentStatus
	for _, s := range statuses {
		if s == nil {
			continue
		}
		switch {
		case best == nil, s.StatusDatetime.After(best.StatusDatetime):
			best = s
		case s.StatusDatetime.Equal(best.StatusDatetime) && s.ID >= best.ID:
			best = s
		}
	}
	return best
}

// Earliest returns the status with the smallest StatusDatetime, or nil.
// Ties go to the lower ID, then to the earlier position.
func Earliest(statuses []*models.ShipmentStatus) *models.ShipmentStatus {
	var best *models.ShipmentStatus
	for _, s := range statuses {
		if s == nil {
			continue
		}
		if best == nil || s.StatusDatetime.Before(best.StatusDatetime) ||
			s.StatusDatetime.Equal(best.StatusDatetime) && s.ID < best.ID {
			best = s
		}
	}
	return best
}

func IsDeliveredCode(code string) bool {
	return code == models.StatusCodeDelivered || code == models.StatusCodeReceivedAtDeliveryOffice
}

// IsDelivered reports whether the latest status is a terminal delivery code.
func IsDelivered(statuses []*models.ShipmentStatus) bool {
	latest := Latest(statuses)
	return latest != nil && IsDeliveredCode(latest.StatusCode)
}

// DaysInTransit is the whole number of days between the earliest status and now.
func DaysInTransit(statuses []*models.ShipmentStatus, now time.Time) (int, bool) {
	earliest := Earliest(statuses)
	if earliest == nil {
		return 0, false
	}
	return int(now.Sub(earliest.StatusDatetime) / (24 * time.Hour)), true
}

// IsProblematic is true when the shipment is not delivered and its first
// status is more than ProblemThresholdDays whole days old.
func IsProblematic(statuses []*models.ShipmentStatus, now time.Time) bool {
	if IsDelivered(statuses) {
		return false
	}
	days, ok := DaysInTransit(statuses, now)
	return ok && days > ProblemThresholdDays
}
