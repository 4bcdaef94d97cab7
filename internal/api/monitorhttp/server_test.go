package monitorhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/BearBump/DeliveryMonitor/internal/services/monitoring"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	stats     models.Statistics
	statsErr  error
	details   []models.ShipmentDetails
	statuses  map[string][]*models.ShipmentStatus
	createdIn []string
	createErr error
	summary   models.BatchSummary
	syncRes   models.SyncResult
	syncErr   error
}

func (f *fakeService) Statistics(ctx context.Context) (models.Statistics, error) {
	return f.stats, f.statsErr
}

func (f *fakeService) ShipmentDetails(ctx context.Context) ([]models.ShipmentDetails, error) {
	return f.details, nil
}

func (f *fakeService) ShipmentStatuses(ctx context.Context, code string) ([]*models.ShipmentStatus, error) {
	st, ok := f.statuses[code]
	if !ok {
		return nil, models.ErrShipmentNotFound
	}
	return st, nil
}

func (f *fakeService) CreateShipments(ctx context.Context, codes []string) (int, error) {
	f.createdIn = codes
	if f.createErr != nil {
		return 0, f.createErr
	}
	return len(codes), nil
}

func (f *fakeService) UpdateAll(ctx context.Context) models.BatchSummary {
	return f.summary
}

func (f *fakeService) SyncOne(ctx context.Context, code string) (models.SyncResult, error) {
	return f.syncRes, f.syncErr
}

func newTestServer(t *testing.T, svc Service) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(svc, nil))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeService{})
	code, body := do(t, http.MethodGet, srv.URL+"/health", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"status":"ok"}`, body)
}

func TestStatistics(t *testing.T) {
	srv := newTestServer(t, &fakeService{stats: models.Statistics{Total: 4, InTransit: 2, Delivered: 1, Problematic: 1}})
	code, body := do(t, http.MethodGet, srv.URL+"/api/statistics", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"total":4,"in_transit":2,"delivered":1,"problematic":1}`, body)
}

func TestStatistics_InternalErrorHidesDetails(t *testing.T) {
	srv := newTestServer(t, &fakeService{statsErr: errors.New("pq: password authentication failed")})
	code, body := do(t, http.MethodGet, srv.URL+"/api/statistics", "")
	require.Equal(t, http.StatusInternalServerError, code)
	require.NotContains(t, body, "password")
}

func TestListShipments(t *testing.T) {
	text := "Вручен"
	at := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	srv := newTestServer(t, &fakeService{details: []models.ShipmentDetails{
		{ID: 1, TrackingCode: "A", CurrentStatus: &text, CurrentStatusDatetime: &at},
		{ID: 2, TrackingCode: "B", Problem: true},
	}})
	code, body := do(t, http.MethodGet, srv.URL+"/api/shipments", "")
	require.Equal(t, http.StatusOK, code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Len(t, out, 2)
	require.Equal(t, "Вручен", out[0]["current_status"])
	require.Equal(t, "2025-03-09T10:00:00Z", out[0]["current_status_datetime"])
	require.Nil(t, out[1]["current_status"])
	require.Equal(t, true, out[1]["problem"])
}

func TestShipmentStatuses(t *testing.T) {
	srv := newTestServer(t, &fakeService{statuses: map[string][]*models.ShipmentStatus{
		"A": {{ID: 1, StatusCode: "CREATED"}},
	}})

	code, body := do(t, http.MethodGet, srv.URL+"/api/shipments/A/statuses", "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `"status_code":"CREATED"`)

	code, _ = do(t, http.MethodGet, srv.URL+"/api/shipments/NOPE/statuses", "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestCreateShipments(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(t, svc)

	code, body := do(t, http.MethodPost, srv.URL+"/api/shipments", `{"tracking_codes":["A","B"]}`)
	require.Equal(t, http.StatusCreated, code)
	require.JSONEq(t, `{"created":2}`, body)
	require.Equal(t, []string{"A", "B"}, svc.createdIn)

	code, _ = do(t, http.MethodPost, srv.URL+"/api/shipments", `{not json`)
	require.Equal(t, http.StatusBadRequest, code)

	svc.createErr = pkgerrors.Wrap(monitoring.ErrInvalidInput, "tracking_codes is empty")
	code, body = do(t, http.MethodPost, srv.URL+"/api/shipments", `{"tracking_codes":[]}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body, "tracking_codes is empty")
}

func TestUpdateStatuses_AlwaysOK(t *testing.T) {
	srv := newTestServer(t, &fakeService{summary: models.BatchSummary{
		Success:             true,
		TotalShipments:      3,
		UpdatedSuccessfully: 2,
		Failed:              1,
		TotalNewStatuses:    2,
		Details: []models.SyncResult{
			{TrackingCode: "A", Success: true, NewStatuses: 2, TotalStatuses: 2},
			{TrackingCode: "B", Error: "carrier down"},
			{TrackingCode: "C", Success: true, TotalStatuses: 1},
		},
	}})
	code, body := do(t, http.MethodPost, srv.URL+"/update-statuses", "")
	require.Equal(t, http.StatusOK, code)

	var sum models.BatchSummary
	require.NoError(t, json.Unmarshal([]byte(body), &sum))
	require.Equal(t, 1, sum.Failed)
	require.Equal(t, "carrier down", sum.Details[1].Error)

	srv = newTestServer(t, &fakeService{summary: models.BatchSummary{Success: false, Error: "db down", Details: []models.SyncResult{}}})
	code, body = do(t, http.MethodPost, srv.URL+"/update-statuses", "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `"success":false`)
}

func TestSyncShipment(t *testing.T) {
	srv := newTestServer(t, &fakeService{syncRes: models.SyncResult{TrackingCode: "A", Success: true, NewStatuses: 1, TotalStatuses: 1}})
	code, body := do(t, http.MethodPost, srv.URL+"/api/shipments/A/sync", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"tracking_code":"A","success":true,"new_statuses":1,"total_statuses":1}`, body)
}

func TestDashboard(t *testing.T) {
	text := "<b>В пути</b>"
	srv := newTestServer(t, &fakeService{
		stats: models.Statistics{Total: 2, InTransit: 1, Problematic: 1},
		details: []models.ShipmentDetails{
			{ID: 1, TrackingCode: "1234567890", CurrentStatus: &text, Problem: true},
			{ID: 2, TrackingCode: "EMPTY"},
		},
	})
	for _, path := range []string{"/", "/shipments"} {
		code, body := do(t, http.MethodGet, srv.URL+path, "")
		require.Equal(t, http.StatusOK, code)
		require.Contains(t, body, `<b id="total">2</b>`)
		require.Contains(t, body, "1234567890")
		require.Contains(t, body, `class="problem"`)
		require.Contains(t, body, "&lt;b&gt;В пути&lt;/b&gt;")
		require.Contains(t, body, "нет данных")
	}
}

func TestSwaggerAndMetrics(t *testing.T) {
	srv := newTestServer(t, &fakeService{})

	code, body := do(t, http.MethodGet, srv.URL+"/swagger.json", "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `"swagger": "2.0"`)

	code, _ = do(t, http.MethodGet, srv.URL+"/docs/index.html", "")
	require.Equal(t, http.StatusOK, code)

	code, body = do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "go_goroutines")
}
