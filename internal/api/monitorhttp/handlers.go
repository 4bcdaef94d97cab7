package monitorhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/BearBump/DeliveryMonitor/internal/services/monitoring"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type createShipmentsRequest struct {
	TrackingCodes []string `json:"tracking_codes"`
}

type createShipmentsResponse struct {
	Created int `json:"created"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Statistics(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) listShipments(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ShipmentDetails(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) shipmentStatuses(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ShipmentStatuses(r.Context(), chi.URLParam(r, "trackingCode"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) createShipments(w http.ResponseWriter, r *http.Request) {
	var req createShipmentsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	n, err := h.svc.CreateShipments(r.Context(), req.TrackingCodes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createShipmentsResponse{Created: n})
}

// updateStatuses always answers 200; failures are reported inside the summary.
func (h *handlers) updateStatuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.UpdateAll(r.Context()))
}

func (h *handlers) syncShipment(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SyncOne(r.Context(), chi.URLParam(r, "trackingCode"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, monitoring.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrShipmentNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
