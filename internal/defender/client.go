// Package defender is the concrete hunting backend: an HTTP client for
// a Defender-style advanced hunting API plus the credential variants
// that establish a session with it.
package defender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"huntbook/internal/value"
)

// DefaultBaseURL is the production hunting API endpoint.
const DefaultBaseURL = "https://api.security.microsoft.com"

// Config holds backend connection settings.
type Config struct {
	BaseURL    string
	Credential Credential
}

// Client executes hunting queries over HTTP. It caches the session
// produced by the credential and refreshes it when it nears expiry.
type Client struct {
	HTTPClient *http.Client
	Config     Config

	mu      sync.Mutex
	session *Session
}

// NewClient returns a client with the given config. HTTPClient defaults
// to http.DefaultClient.
func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimSuffix(orDefault(cfg.BaseURL, DefaultBaseURL), "/")
	return &Client{Config: cfg, HTTPClient: http.DefaultClient}
}

// huntRequest is the advanced hunting request payload. Timespan bounds
// how far back the backend may fetch from, as an ISO 8601 duration;
// it is independent of any time filter inside the query text.
type huntRequest struct {
	Query    string `json:"Query"`
	Timespan string `json:"Timespan,omitempty"`
}

// huntResponse is the minimal advanced hunting response shape.
type huntResponse struct {
	Schema []struct {
		Name string `json:"Name"`
		Type string `json:"Type"`
	} `json:"Schema"`
	Results []map[string]any `json:"Results"`
}

// Hunt implements hunt.Backend: it executes query text over the given
// lookback window and returns the raw result rows. Row field order
// follows the response schema so normalization stays deterministic.
func (c *Client) Hunt(ctx context.Context, query string, lookback time.Duration) ([]*value.Row, error) {
	session, err := c.authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	body, err := json.Marshal(huntRequest{Query: query, Timespan: isoDays(lookback)})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	u := c.Config.BaseURL + "/api/advancedhunting/run"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("hunting query %s: %s", resp.Status, strings.TrimSpace(string(excerpt)))
	}

	var hr huntResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return rowsFromResponse(&hr), nil
}

// authenticate returns a valid session, establishing a fresh one via
// the credential when the cached session is missing or near expiry.
func (c *Client) authenticate(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Valid() {
		return c.session, nil
	}
	if c.Config.Credential == nil {
		return nil, fmt.Errorf("no credential configured")
	}
	session, err := c.Config.Credential.Token(ctx)
	if err != nil {
		return nil, err
	}
	c.session = session
	return session, nil
}

// rowsFromResponse converts the response payload to value rows. Fields
// follow schema column order; fields the schema does not mention (the
// API makes no hard contract) are appended in sorted order.
func rowsFromResponse(hr *huntResponse) []*value.Row {
	schemaCols := make([]string, 0, len(hr.Schema))
	inSchema := make(map[string]bool, len(hr.Schema))
	for _, col := range hr.Schema {
		schemaCols = append(schemaCols, col.Name)
		inSchema[col.Name] = true
	}

	rows := make([]*value.Row, 0, len(hr.Results))
	for _, obj := range hr.Results {
		row := value.NewRow()
		for _, name := range schemaCols {
			if raw, ok := obj[name]; ok {
				row.Set(name, value.FromAny(raw))
			}
		}
		var extras []string
		for name := range obj {
			if !inSchema[name] {
				extras = append(extras, name)
			}
		}
		sort.Strings(extras)
		for _, name := range extras {
			row.Set(name, value.FromAny(obj[name]))
		}
		rows = append(rows, row)
	}
	return rows
}

// isoDays renders a lookback duration as an ISO 8601 day span, e.g.
// 180 days -> "P180D". Sub-day lookbacks round up to one day.
func isoDays(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	days := int(d.Hours() / 24)
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("P%dD", days)
}
