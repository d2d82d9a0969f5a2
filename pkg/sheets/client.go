// Package sheets talks to the spreadsheet API used for the tier-2 URL
// inventory and the duplicate-comment tracker.
package sheets

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

	"github.com/gc-feedback/feedback-sync/internal/resilience"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4"

// Client appends rows to a spreadsheet.
type Client interface {
	// Append adds one row of values after the last row of the given range.
	Append(ctx context.Context, spreadsheetID, appendRange string, values []string) error
}

// Option configures the client.
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

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a spreadsheet API client authenticated with a bearer
// token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type appendRequest struct {
	Values [][]string `json:"values"`
}

func (c *httpClient) Append(ctx context.Context, spreadsheetID, appendRange string, values []string) error {
	body, err := json.Marshal(appendRequest{Values: [][]string{values}})
	if err != nil {
		return eris.Wrap(err, "sheets: marshal request")
	}

	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED&insertDataOption=INSERT_ROWS",
		c.baseURL, spreadsheetID, url.PathEscape(appendRange))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "sheets: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "sheets: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	apiErr := eris.Errorf("sheets: append to %s: status %d: %s", spreadsheetID, resp.StatusCode, string(msg))
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(apiErr, resp.StatusCode)
	}
	return apiErr
}
