// Package statusmerge reconciles a carrier status timeline with the statuses
// already stored for a shipment. It does no I/O.
package statusmerge

import (
	"strings"
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/models"
)

// Key identifies a status event within one shipment.
type Key struct {
	Code string
	At   int64 // unix microseconds, UTC
}

func KeyOf(code string, at time.Time) Key {
	return Key{Code: code, At: normalizeTime(at).UnixMicro()}
}

type KeySet map[Key]struct{}

func (ks KeySet) Has(k Key) bool {
	_, ok := ks[k]
	return ok
}

// KeysOf builds the key set of already persisted statuses.
func KeysOf(statuses []*models.ShipmentStatus) KeySet {
	ks := make(KeySet, len(statuses))
	for _, s := range statuses {
		ks[KeyOf(s.StatusCode, s.StatusDatetime)] = struct{}{}
	}
	return ks
}

type Result struct {
	ToInsert []*models.ShipmentStatus
	Inserted int
}

// Merge returns the raw statuses that are not yet stored, in the order
// received. A missing or unparsable timestamp is replaced by now; such a
// status is kept rather than dropped. existing is not modified.
func Merge(shipmentID int64, existing KeySet, raws []models.RawStatus, now time.Time) Result {
	seen := make(KeySet, len(existing)+len(raws))
	for k := range existing {
		seen[k] = struct{}{}
	}

	res := Result{ToInsert: make([]*models.ShipmentStatus, 0, len(raws))}
	for _, raw := range raws {
		at, ok := ParseEventTime(raw.DateTime)
		if !ok {
			at = normalizeTime(now)
		}

		k := KeyOf(raw.Code, at)
		if seen.Has(k) {
			continue
		}
		seen[k] = struct{}{}

		res.ToInsert = append(res.ToInsert, &models.ShipmentStatus{
			ShipmentID:     shipmentID,
			StatusCode:     raw.Code,
			StatusText:     StatusText(raw),
			StatusDatetime: at,
		})
	}
	res.Inserted = len(res.ToInsert)
	return res
}

// StatusText renders "name (city) - reason", omitting absent parts.
func StatusText(raw models.RawStatus) string {
	var b strings.Builder
	b.WriteString(raw.Name)
	if raw.City != "" {
		b.WriteString(" (")
		b.WriteString(raw.City)
		b.WriteString(")")
	}
	if raw.Reason != "" {
		b.WriteString(" - ")
		b.WriteString(raw.Reason)
	}
	return b.String()
}

// Layouts seen from CDEK: "2006-01-02T15:04:05+0000" is the usual one.
// Fractional seconds are accepted by time.Parse without being in the layout.
var offsetLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseEventTime parses a carrier timestamp. Values without an offset are UTC.
func ParseEventTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return normalizeTime(t), true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return normalizeTime(t), true
		}
	}
	return time.Time{}, false
}

// Postgres keeps microseconds; truncating here makes in-memory keys match stored ones.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
