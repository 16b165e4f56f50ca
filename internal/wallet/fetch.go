package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	userAgent      = "openpersona-economy/2.1"
)

var (
	// ErrUnauthorized indicates the provider rejected the credentials.
	ErrUnauthorized = errors.New("wallet: unauthorized (credentials expired or invalid)")
	// ErrRateLimited indicates the provider rate limit was hit.
	ErrRateLimited = errors.New("wallet: rate limited")
	// ErrMissingCredentials indicates the referenced credential is not set.
	ErrMissingCredentials = errors.New("wallet: missing credentials")
)

// Balances is a freshly fetched set of balances keyed by unit
// ("USDC", "ETH", "credits").
type Balances map[string]float64

// Fetcher queries an external provider for its current balances.
type Fetcher interface {
	FetchBalance(ctx context.Context) (Balances, error)
}

// httpGetter performs bounded, authenticated GET requests.
type httpGetter struct {
	http  *http.Client
	token string
}

func newHTTPGetter(client *http.Client, token string) httpGetter {
	if client == nil {
		client = &http.Client{}
	}
	return httpGetter{http: client, token: token}
}

// get performs an authenticated GET request and returns the response body.
func (g httpGetter) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet: creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	//nolint:gosec // URL is built from the persona's configured provider endpoint
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("wallet: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("wallet: reading response: %w", err)
	}
	return body, nil
}
