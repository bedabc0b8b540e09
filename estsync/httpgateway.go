package estsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultListTimeout bounds remote list calls so a dead network degrades to
// local data instead of blocking the caller.
const DefaultListTimeout = 5 * time.Second

// HTTPGateway talks to the remote estimate store over JSON HTTP. The token
// func supplies a bearer token per request (owner identity travels in the
// token's sub claim on the server side).
type HTTPGateway struct {
	BaseURL     string
	Token       func(context.Context) (string, error)
	HTTP        *http.Client
	ListTimeout time.Duration
}

// NewHTTPGateway creates a gateway with default timeouts.
func NewHTTPGateway(baseURL string, token func(context.Context) (string, error)) *HTTPGateway {
	return &HTTPGateway{
		BaseURL:     baseURL,
		Token:       token,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
		ListTimeout: DefaultListTimeout,
	}
}

// Upsert inserts or replaces one estimate record. Safe to repeat.
func (g *HTTPGateway) Upsert(ctx context.Context, rec *Record, ownerID string) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	resp, err := g.do(ctx, http.MethodPut, "/v1/estimates/"+url.PathEscape(rec.ID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("upsert %s: %w: %v", rec.ID, ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	return g.checkStatus(resp, rec.ID)
}

// Delete removes one record. Deleting an already-deleted id is not an error.
func (g *HTTPGateway) Delete(ctx context.Context, id, ownerID string) error {
	resp, err := g.do(ctx, http.MethodDelete, "/v1/estimates/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("delete %s: %w: %v", id, ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return g.checkStatus(resp, id)
}

// ListByOwner fetches all remote records for an owner under a bounded
// timeout. A timeout surfaces as ErrRemoteUnavailable, never as a hang.
func (g *HTTPGateway) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	timeout := g.ListTimeout
	if timeout <= 0 {
		timeout = DefaultListTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := g.do(ctx, http.MethodGet, "/v1/estimates?owner="+url.QueryEscape(ownerID), nil)
	if err != nil {
		return nil, fmt.Errorf("list estimates: %w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	if err := g.checkStatus(resp, ""); err != nil {
		return nil, err
	}
	var recs []Record
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode estimate list: %w: %v", ErrRemoteUnavailable, err)
	}
	return recs, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if g.Token != nil {
		token, err := g.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := g.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

func (g *HTTPGateway) checkStatus(resp *http.Response, id string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("%w: status %d: %s", ErrRemoteConflict, resp.StatusCode, msg)
	}
	return fmt.Errorf("%w: status %d: %s", ErrRemoteUnavailable, resp.StatusCode, msg)
}
