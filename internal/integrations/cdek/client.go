package cdek

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/DeliveryMonitor/internal/httpclient"
	"github.com/BearBump/DeliveryMonitor/internal/metrics"
	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	// A single order document is a few kilobytes.
	maxResponseBytes = 4 << 20
)

// Client talks to the CDEK v2 API. It owns its token cache, so one instance
// should be shared by everything that syncs within a process.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  *tokenCache
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL, clientID, clientSecret string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL = strings.TrimRight(baseURL, "/")
	c := &Client{
		baseURL: baseURL,
		log:     zap.NewNop(),
		tokens: &tokenCache{
			baseURL:      baseURL,
			clientID:     clientID,
			clientSecret: clientSecret,
			now:          time.Now,
		},
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpc == nil {
		c.httpc = httpclient.NewClient(timeout, c.log)
	}
	c.tokens.httpc = c.httpc
	return c
}

// FetchShipment looks an order up by its CDEK tracking number.
// Returns ErrNotFound when the carrier has no such order.
func (c *Client) FetchShipment(ctx context.Context, trackingCode string) (*models.ShipmentRecord, error) {
	u, err := url.Parse(c.baseURL + "/orders")
	if err != nil {
		return nil, errors.Wrap(err, "parse orders url")
	}
	q := u.Query()
	q.Set("cdek_number", trackingCode)
	u.RawQuery = q.Encode()

	rec, err := c.getOrder(ctx, "orders_by_number", u.String())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "fetch shipment %s", trackingCode)
	}
	if rec.TrackingCode == "" {
		rec.TrackingCode = trackingCode
	}
	return rec, nil
}

// FetchShipmentByUUID resolves an order by the UUID returned at order creation;
// the tracking number may still be empty while CDEK is registering the order.
func (c *Client) FetchShipmentByUUID(ctx context.Context, orderUUID string) (*models.ShipmentRecord, error) {
	id, err := uuid.Parse(orderUUID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order uuid")
	}
	rec, err := c.getOrder(ctx, "orders_by_uuid", c.baseURL+"/orders/"+id.String())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "fetch order %s", id)
	}
	return rec, nil
}

// FetchStatuses returns the carrier status timeline; an unknown shipment
// yields an empty slice.
func (c *Client) FetchStatuses(ctx context.Context, trackingCode string) ([]models.RawStatus, error) {
	rec, err := c.FetchShipment(ctx, trackingCode)
	if errors.Is(err, ErrNotFound) {
		return []models.RawStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Statuses == nil {
		return []models.RawStatus{}, nil
	}
	return rec.Statuses, nil
}

func (c *Client) getOrder(ctx context.Context, endpoint, target string) (rec *models.ShipmentRecord, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveCarrierRequest(endpoint, outcome(err), time.Since(start))
	}()

	token, err := c.tokens.get(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, transportError(req, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: err.Error()}
	}
	if len(body) > maxResponseBytes {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("response body exceeds %d bytes", maxResponseBytes)}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusBadRequest && isForbiddenSignature(body):
		// Тестовый ключ против боевого заказа (или наоборот): CDEK отвечает 400,
		// а не 404. Считаем отправление неизвестным, чтобы не ронять пачку.
		c.log.Warn("order belongs to another account, treating as not found",
			zap.String("url", target),
			zap.String("body", truncate(body, 512)),
		)
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		c.tokens.invalidate()
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(body, 2048)}
	case resp.StatusCode/100 != 2:
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(body, 2048)}
	}

	rec, err = decodeEntity(body)
	if errors.Is(err, errUnexpectedEntity) {
		c.log.Warn("unexpected entity shape in carrier response",
			zap.String("url", target),
			zap.String("body", truncate(body, 512)),
		)
		return nil, ErrNotFound
	}
	return rec, err
}

var forbiddenSignatures = []string{
	"v2_entity_forbidden",
	"forbidden",
	"not found in the account",
}

func isForbiddenSignature(body []byte) bool {
	low := strings.ToLower(string(body))
	for _, sig := range forbiddenSignatures {
		if strings.Contains(low, sig) {
			return true
		}
	}
	return false
}

func outcome(err error) string {
	var httpErr *HTTPError
	var authErr *AuthError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &authErr):
		return "auth_error"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("http_%d", httpErr.StatusCode)
	default:
		return "error"
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// jsonString accepts both JSON strings and numbers (reason_code comes either way).
type jsonString string

func (s *jsonString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = jsonString(v)
		return nil
	}
	*s = jsonString(strings.TrimSpace(string(b)))
	return nil
}
