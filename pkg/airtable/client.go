// Package airtable wraps the Airtable REST API for row creation in the
// destination bases.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/gc-feedback/feedback-sync/internal/resilience"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Client performs the Airtable operations used by this application.
type Client interface {
	// CreateRecord creates one record in the named table of the given
	// base. fields is marshalled as the record's field set; its JSON tags
	// name the destination columns.
	CreateRecord(ctx context.Context, baseID, table string, fields any) error
}

// Option configures the Airtable client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default rate limit (5 req/s, Airtable's
// documented ceiling).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Airtable client authenticated with the given API key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(5, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type createRequest struct {
	Fields   any  `json:"fields"`
	Typecast bool `json:"typecast"`
}

func (c *httpClient) CreateRecord(ctx context.Context, baseID, table string, fields any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "airtable: rate limit")
		}
	}

	body, err := json.Marshal(createRequest{Fields: fields, Typecast: true})
	if err != nil {
		return eris.Wrap(err, "airtable: marshal record")
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, baseID, url.PathEscape(table))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "airtable: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "airtable: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	apiErr := eris.Errorf("airtable: create in %s/%s: status %d: %s", baseID, table, resp.StatusCode, string(msg))
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(apiErr, resp.StatusCode)
	}
	return apiErr
}
