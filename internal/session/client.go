package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-variant-service/internal/variant"
)

// Predefined errors for session lookups
var (
	ErrUnauthenticated = errors.New("session: not authenticated")
	ErrNoStore         = errors.New("session: no store bound to session")
)

// Session is the subset of the session service's payload this service needs.
type Session struct {
	UserID  int64  `json:"user_id"`
	StoreID int64  `json:"store_id"`
	Role    string `json:"role,omitempty"`
}

// Client talks to the session service over HTTP.
type Client struct {
	baseURL    string
	path       string
	httpClient *http.Client
}

// NewClient creates a session client. A zero timeout leaves the request
// bounded only by the caller's context.
func NewClient(baseURL, path string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       "/" + strings.TrimLeft(path, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup fetches the current session, forwarding the shopper's cookies.
func (c *Client) Lookup(ctx context.Context, cookies []*http.Cookie) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.path, nil)
	if err != nil {
		return nil, fmt.Errorf("session: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthenticated
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("session: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("session: decoding response: %w", err)
	}
	if s.StoreID <= 0 {
		return nil, ErrNoStore
	}
	return &s, nil
}

// Source returns a StoreIDSource that looks up the session for cookies.
func (c *Client) Source(cookies []*http.Cookie) variant.StoreIDSource {
	return variant.StoreIDFunc(func(ctx context.Context) (int64, error) {
		s, err := c.Lookup(ctx, cookies)
		if err != nil {
			return 0, err
		}
		return s.StoreID, nil
	})
}
