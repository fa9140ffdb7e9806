// Package fetcher provides a client for the external page-rendering
// service: given a URL, it returns the rendered page body and the raw
// text blocks (job cards) found on it. Rendering, stabilization waits,
// and DOM extraction all live on the service side.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jobsift/jobsift/internal/model"
)

// Fetcher fetches one rendered page.
type Fetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*Page, error)
}

// Page is one rendered page: its full body text plus the extracted
// card-level blocks with their links.
type Page struct {
	URL    string           `json:"url"`
	Body   string           `json:"body"`
	Blocks []model.RawBlock `json:"blocks"`
}

// Option configures the client.
type Option func(*httpClient)

// WithKey sets the service API key.
func WithKey(key string) Option {
	return func(c *httpClient) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a rendering-service client.
func NewClient(baseURL string, opts ...Option) Fetcher {
	c := &httpClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	endpoint := fmt.Sprintf("%s/render?url=%s", c.baseURL, url.QueryEscape(pageURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: build request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: fetch page")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("fetcher: status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrap(err, "fetcher: decode response")
	}
	if page.URL == "" {
		page.URL = pageURL
	}
	return &page, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
