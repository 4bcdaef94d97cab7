package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Query parameters never written to logs; the carrier takes OAuth credentials in the query string.
var sensitiveParams = []string{"client_id", "client_secret", "access_token"}

// LoggingRoundTripper logs every outgoing request at debug level and failures at error level.
type LoggingRoundTripper struct {
	Proxied http.RoundTripper
	Log     *zap.Logger
}

func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	target := RedactURL(req.URL)

	lrt.Log.Debug("http request started",
		zap.String("method", req.Method),
		zap.String("url", target),
	)

	resp, err := lrt.Proxied.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		lrt.Log.Error("http request failed",
			zap.String("method", req.Method),
			zap.String("url", target),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	lrt.Log.Debug("http request completed",
		zap.String("method", req.Method),
		zap.String("url", target),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)
	return resp, nil
}

// RedactURL renders u with credential query parameters masked.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	changed := false
	for _, p := range sensitiveParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	cp := *u
	cp.RawQuery = q.Encode()
	return cp.String()
}

// NewClient returns an http.Client with request logging and the given overall timeout.
func NewClient(timeout time.Duration, log *zap.Logger) *http.Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &http.Client{
		Transport: &LoggingRoundTripper{
			Proxied: http.DefaultTransport,
			Log:     log,
		},
		Timeout: timeout,
	}
}
