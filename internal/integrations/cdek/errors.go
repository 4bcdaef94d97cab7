package cdek

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/BearBump/DeliveryMonitor/internal/httpclient"
	"github.com/pkg/errors"
)

// ErrNotFound means the carrier does not know the shipment (yet). It is an
// absence state, not a failure.
var ErrNotFound = errors.New("shipment not found on carrier")

// AuthError is returned when the OAuth credential exchange is rejected.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("cdek auth failed: http %d: %s", e.StatusCode, e.Body)
}

// HTTPError covers any other non-2xx answer. StatusCode is 0 when the request
// did not complete (timeout, connection refused).
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("cdek request failed: %s", e.Body)
	}
	return fmt.Sprintf("cdek http %d: %s", e.StatusCode, e.Body)
}

// transportError builds a StatusCode 0 HTTPError. *url.Error embeds the raw
// URL, which carries client_secret on the token exchange, so the cause is
// re-labelled with a redacted URL.
func transportError(req *http.Request, err error) *HTTPError {
	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause = urlErr.Err
	}
	return &HTTPError{Body: fmt.Sprintf("%s %s: %v", req.Method, httpclient.RedactURL(req.URL), cause)}
}
