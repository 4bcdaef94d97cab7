package monitorhttp

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/models"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

var dashboardTmpl = template.Must(template.New("shipments.html").Funcs(template.FuncMap{
	"fmtTime": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04")
	},
	"deref": func(s *string) string {
		if s == nil {
			return "нет данных"
		}
		return *s
	},
}).ParseFS(templatesFS, "templates/shipments.html"))

type dashboardData struct {
	Statistics models.Statistics
	Shipments  []models.ShipmentDetails
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Statistics(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	shipments, err := h.svc.ShipmentDetails(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, dashboardData{Statistics: st, Shipments: shipments}); err != nil {
		h.log.Error("render dashboard", zap.Error(err))
	}
}
