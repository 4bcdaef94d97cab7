package cdek

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	tokenSafetyMargin = 60 * time.Second
	defaultExpiresIn  = 3600
)

type tokenResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// tokenCache holds the bearer token. The mutex guards the cached value;
// concurrent refreshes share a single credential exchange.
type tokenCache struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpc        *http.Client
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	group     singleflight.Group
	exchanges int
}

func (tc *tokenCache) cached() (string, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.token != "" && tc.now().Before(tc.expiresAt) {
		return tc.token, true
	}
	return "", false
}

func (tc *tokenCache) get(ctx context.Context) (string, error) {
	if tok, ok := tc.cached(); ok {
		return tok, nil
	}

	// The exchange is shared, so it must outlive the caller that started it.
	// Each caller still stops waiting when its own context ends.
	ch := tc.group.DoChan("token", func() (any, error) {
		// Another caller may have refreshed while we were waiting to enter.
		if tok, ok := tc.cached(); ok {
			return tok, nil
		}
		return tc.exchange(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "wait token")
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (tc *tokenCache) exchange(ctx context.Context) (string, error) {
	u, err := url.Parse(tc.baseURL + "/oauth/token")
	if err != nil {
		return "", errors.Wrap(err, "parse token url")
	}
	q := u.Query()
	q.Set("grant_type", "client_credentials")
	q.Set("client_id", tc.clientID)
	q.Set("client_secret", tc.clientSecret)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "new token request")
	}

	issuedAt := tc.now()
	resp, err := tc.httpc.Do(req)
	if err != nil {
		return "", transportError(req, err)
	}
	defer resp.Body.Close()

	tc.mu.Lock()
	tc.exchanges++
	tc.mu.Unlock()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", errors.Wrap(err, "decode token")
	}
	if tr.AccessToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: "empty access_token"}
	}
	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}

	tc.mu.Lock()
	tc.token = tr.AccessToken
	tc.expiresAt = issuedAt.Add(time.Duration(expiresIn)*time.Second - tokenSafetyMargin)
	tc.mu.Unlock()

	return tr.AccessToken, nil
}

// invalidate drops the cached token so the next call re-authenticates.
func (tc *tokenCache) invalidate() {
	tc.mu.Lock()
	tc.token = ""
	tc.expiresAt = time.Time{}
	tc.mu.Unlock()
}

func (tc *tokenCache) exchangeCount() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.exchanges
}
