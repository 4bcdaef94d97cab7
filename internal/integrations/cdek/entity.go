package cdek

import (
	"bytes"
	"encoding/json"

	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/pkg/errors"
)

var errUnexpectedEntity = errors.New("unexpected entity shape")

type ordersResp struct {
	Entity json.RawMessage `json:"entity"`
}

type wireStatus struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	DateTime   string     `json:"date_time"`
	City       string     `json:"city"`
	ReasonCode jsonString `json:"reason_code"`
	Reason     string     `json:"reason"`
}

type wireOrder struct {
	UUID       string       `json:"uuid"`
	CDEKNumber string       `json:"cdek_number"`
	Number     string       `json:"number"`
	Statuses   []wireStatus `json:"statuses"`
}

// decodeEntity normalizes the "entity" field, which CDEK returns either as an
// object or as a list of objects. Empty object, empty list and null mean
// "not found"; any other shape is errUnexpectedEntity.
func decodeEntity(body []byte) (*models.ShipmentRecord, error) {
	var r ordersResp
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, errors.Wrap(err, "decode orders response")
	}

	raw := bytes.TrimSpace(r.Entity)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrNotFound
	}

	var obj json.RawMessage
	switch raw[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, errors.Wrap(err, "decode entity list")
		}
		if len(list) == 0 {
			return nil, ErrNotFound
		}
		obj = bytes.TrimSpace(list[0])
		if len(obj) == 0 || obj[0] != '{' {
			return nil, errUnexpectedEntity
		}
	case '{':
		obj = raw
	default:
		return nil, errUnexpectedEntity
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return nil, errors.Wrap(err, "decode entity")
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	var o wireOrder
	if err := json.Unmarshal(obj, &o); err != nil {
		return nil, errors.Wrap(err, "decode order")
	}

	rec := &models.ShipmentRecord{
		UUID:         o.UUID,
		TrackingCode: o.CDEKNumber,
		Number:       o.Number,
		Statuses:     make([]models.RawStatus, 0, len(o.Statuses)),
	}
	for _, s := range o.Statuses {
		rec.Statuses = append(rec.Statuses, models.RawStatus{
			Code:       s.Code,
			Name:       s.Name,
			DateTime:   s.DateTime,
			City:       s.City,
			ReasonCode: string(s.ReasonCode),
			Reason:     s.Reason,
		})
	}
	return rec, nil
}
