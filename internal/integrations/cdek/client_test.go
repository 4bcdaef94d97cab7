package cdek

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeCDEK struct {
	tokenCalls atomic.Int32
	tokenCode  int
	expiresIn  int

	orderCode int
	orderBody string
	lastAuth  atomic.Value
}

func (f *fakeCDEK) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		require.Equal(t, "id", r.URL.Query().Get("client_id"))
		require.Equal(t, "secret", r.URL.Query().Get("client_secret"))
		f.tokenCalls.Add(1)
		if f.tokenCode != 0 && f.tokenCode != http.StatusOK {
			w.WriteHeader(f.tokenCode)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		expiresIn := f.expiresIn
		if expiresIn == 0 {
			expiresIn = 3600
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":` + strconv.Itoa(expiresIn) + `}`))
	})
	mux.HandleFunc("/v2/orders", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth.Store(r.Header.Get("Authorization"))
		require.Equal(t, "10192769726", r.URL.Query().Get("cdek_number"))
		code := f.orderCode
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(f.orderBody))
	})
	mux.HandleFunc("/v2/orders/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/orders/df8841ea-7be3-46b3-bf13-67f3b19ba2fe", r.URL.Path)
		_, _ = w.Write([]byte(`{"entity":{"uuid":"df8841ea-7be3-46b3-bf13-67f3b19ba2fe","number":"IM-1","cdek_number":"10192769726","statuses":[]}}`))
	})
	return mux
}

const oneOrder = `{"entity":{"uuid":"u-1","cdek_number":"10192769726","statuses":[
  {"code":"CREATED","name":"Создан","date_time":"2025-01-01T10:00:00+0000","city":"Москва"},
  {"code":"NOT_DELIVERED","name":"Не вручен","date_time":"2025-01-03T10:00:00+0000","city":"Казань","reason_code":11,"reason":"Отказ"}
]}}`

func newTestClient(t *testing.T, f *fakeCDEK) (*Client, *httptest.Server) {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/v2", "id", "secret", 5*time.Second), srv
}

func TestClient_FetchShipment_OK(t *testing.T) {
	f := &fakeCDEK{orderBody: oneOrder}
	c, _ := newTestClient(t, f)

	rec, err := c.FetchShipment(context.Background(), "10192769726")
	require.NoError(t, err)
	require.Equal(t, "10192769726", rec.TrackingCode)
	require.Len(t, rec.Statuses, 2)
	require.Equal(t, "Москва", rec.Statuses[0].City)
	require.Equal(t, "11", rec.Statuses[1].ReasonCode)
	require.Equal(t, "Отказ", rec.Statuses[1].Reason)
	require.Equal(t, "Bearer tok", f.lastAuth.Load())
}

func TestClient_TokenReusedWithinValidity(t *testing.T) {
	f := &fakeCDEK{orderBody: oneOrder}
	c, _ := newTestClient(t, f)

	_, err := c.FetchShipment(context.Background(), "10192769726")
	require.NoError(t, err)
	_, err = c.FetchShipment(context.Background(), "10192769726")
	require.NoError(t, err)

	require.Equal(t, int32(1), f.tokenCalls.Load())
	require.Equal(t, 1, c.tokens.exchangeCount())
}

func TestClient_TokenRefreshedInsideSafetyMargin(t *testing.T) {
	f := &fakeCDEK{orderBody: oneOrder, expiresIn: 120}
	c, _ := newTestClient(t, f)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.tokens.now = func() time.Time { return now }

	_, err := c.FetchShipment(context.Background(), "10192769726")
	require.NoError(t, err)

	// expires_in=120 minus the 60s margin: valid for 59s, stale at 60s.
	now = now.Add(59 * time.Second)
	_, err = c.FetchShipment(context.Background(), "10192769726")
	require.NoError(t, err)
	require.Equal(t, int32(1), f.tokenCalls.Load())

	now = now.Add(time.Second)
	_, err = c.FetchShipment(context.Background(), "10192769726")
	require.NoError(t, err)
	require.Equal(t, int32(2), f.tokenCalls.Load())
}

func TestClient_ConcurrentCallersShareOneExchange(t *testing.T) {
	f := &fakeCDEK{orderBody: oneOrder}
	c, _ := newTestClient(t, f)

	errs := make([]error, 16)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.FetchStatuses(context.Background(), "10192769726")
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestClient_AuthError(t *testing.T) {
	f := &fakeCDEK{tokenCode: http.StatusUnauthorized, orderBody: oneOrder}
	c, _ := newTestClient(t, f)

	_, err := c.FetchShipment(context.Background(), "10192769726")
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	require.Equal(t, http.StatusUnauthorized, authErr.StatusCode)

	// not retried internally
	require.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestClient_NotFound(t *testing.T) {
	f := &fakeCDEK{orderCode: http.StatusNotFound, orderBody: `{"errors":[]}`}
	c, _ := newTestClient(t, f)

	_, err := c.FetchShipment(context.Background(), "10192769726")
	require.ErrorIs(t, err, ErrNotFound)

	statuses, err := c.FetchStatuses(context.Background(), "10192769726")
	require.NoError(t, err)
	require.Empty(t, statuses)
}

func TestClient_ForbiddenSignatureIsNotFound(t *testing.T) {
	f := &fakeCDEK{
		orderCode: http.StatusBadRequest,
		orderBody: `{"requests":[{"errors":[{"code":"v2_entity_forbidden","message":"Entity is forbidden"}]}]}`,
	}
	c, _ := newTestClient(t, f)

	_, err := c.FetchShipment(context.Background(), "10192769726")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_OtherBadRequestIsHTTPError(t *testing.T) {
	f := &fakeCDEK{orderCode: http.StatusBadRequest, orderBody: `{"errors":[{"code":"v2_bad_request"}]}`}
	c, _ := newTestClient(t, f)

	_, err := c.FetchShipment(context.Background(), "10192769726")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	require.Contains(t, httpErr.Body, "v2_bad_request")
}

func TestClient_ServerErrorIsHTTPError(t *testing.T) {
	f := &fakeCDEK{orderCode: http.StatusBadGateway, orderBody: `upstream down`}
	c, _ := newTestClient(t, f)

	_, err := c.FetchStatuses(context.Background(), "10192769726")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	require.Equal(t, "upstream down", httpErr.Body)
}

func TestClient_UnauthorizedDropsCachedToken(t *testing.T) {
	f := &fakeCDEK{orderBody: oneOrder}
	c, _ := newTestClient(t, f)

	_, err := c.FetchShipment(context.Background(), "10192769726")
	require.NoError(t, err)

	f.orderCode = http.StatusUnauthorized
	_, err = c.FetchShipment(context.Background(), "10192769726")
	require.Error(t, err)

	f.orderCode = http.StatusOK
	_, err = c.FetchShipment(context.Background(), "10192769726")
	require.NoError(t, err)
	require.Equal(t, int32(2), f.tokenCalls.Load())
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
			return
		}
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, "id", "secret", 50*time.Millisecond)
	_, err := c.FetchShipment(context.Background(), "1")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, 0, httpErr.StatusCode)
}

func TestClient_FetchShipmentByUUID(t *testing.T) {
	f := &fakeCDEK{}
	c, _ := newTestClient(t, f)

	rec, err := c.FetchShipmentByUUID(context.Background(), "df8841ea-7be3-46b3-bf13-67f3b19ba2fe")
	require.NoError(t, err)
	require.Equal(t, "10192769726", rec.TrackingCode)
	require.Equal(t, "IM-1", rec.Number)

	_, err = c.FetchShipmentByUUID(context.Background(), "not-a-uuid")
	require.Error(t, err)
}

func TestClient_TransportErrorHidesCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, "my-id", "TOPSECRET", 50*time.Millisecond)
	_, err := c.FetchShipment(context.Background(), "1")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "TOPSECRET")
	require.NotContains(t, err.Error(), "my-id")
	require.Contains(t, err.Error(), "REDACTED")

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, 0, httpErr.StatusCode)
}

func TestClient_TokenExchangeSurvivesCanceledCaller(t *testing.T) {
	f := &fakeCDEK{orderBody: oneOrder}
	hit := make(chan struct{}, 1)
	release := make(chan struct{})
	inner := f.handler(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/oauth/token" {
			select {
			case hit <- struct{}{}:
			default:
			}
			<-release
		}
		inner.ServeHTTP(w, r)
	}))
	defer srv.Close()
	c := New(srv.URL+"/v2", "id", "secret", 5*time.Second)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.FetchShipment(ctxA, "10192769726")
		errA <- err
	}()
	<-hit

	errB := make(chan error, 1)
	go func() {
		_, err := c.FetchShipment(context.Background(), "10192769726")
		errB <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	require.NoError(t, <-errB)
	require.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestClient_OversizedResponseRejected(t *testing.T) {
	f := &fakeCDEK{orderBody: strings.Repeat(" ", maxResponseBytes) + oneOrder}
	c, _ := newTestClient(t, f)

	_, err := c.FetchShipment(context.Background(), "10192769726")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, http.StatusOK, httpErr.StatusCode)
	require.Contains(t, httpErr.Body, "exceeds")
}
