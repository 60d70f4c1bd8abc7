package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
)

// Client talks to a running server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for addr, given as host:port or a URL.
func NewClient(addr, token string, timeout time.Duration) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Query runs SQL on the server. Numbers are decoded as json.Number so
// 64-bit addresses survive the round trip.
func (c *Client) Query(ctx context.Context, sql string) (*catalog.Result, error) {
	body, err := json.Marshal(QueryRequest{SQL: sql})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp, dec)
	}

	var qr QueryResponse
	if err := dec.Decode(&qr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &catalog.Result{Columns: qr.Columns, Rows: qr.Rows}, nil
}

// Status fetches the server status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	resp, err := c.do(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	dec := json.NewDecoder(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp, dec)
	}

	var st Status
	if err := dec.Decode(&st); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &st, nil
}

// Shutdown asks the server to stop.
func (c *Client) Shutdown(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/shutdown", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp, json.NewDecoder(resp.Body))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	return resp, nil
}

// decodeError turns a non-200 response into an error, preferring the
// server's JSON error message over the raw body.
func decodeError(resp *http.Response, dec *json.Decoder) error {
	raw, _ := io.ReadAll(io.MultiReader(dec.Buffered(), resp.Body))

	var er ErrorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error != "" {
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, er.Error)
	}
	return fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
