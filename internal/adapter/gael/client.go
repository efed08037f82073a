// Package gael fetches the latest seismic reports from the public sismos API.
package gael

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/sismos-dashboard/internal/domain"
	"github.com/couchcryptid/sismos-dashboard/internal/observability"
)

// DefaultURL is the public endpoint the dashboard reads from.
const DefaultURL = "https://api.gael.cloud/general/public/sismos"

// StatusError is returned when the API answers with anything but 200 OK.
type StatusError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sismos API error: status %d: %s", e.StatusCode, e.Body)
}

// Client implements pipeline.Fetcher with a single unauthenticated GET.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a client for the given endpoint.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// URL returns the endpoint this client reads.
func (c *Client) URL() string {
	return c.url
}

// Fetch downloads and decodes the current list of reports. Each record keeps
// its original JSON in Payload.
func (c *Client) Fetch(ctx context.Context) ([]domain.RawQuake, error) {
	start := time.Now()
	raws, err := c.fetch(ctx)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	c.logger.Debug("fetched sismos", "count", len(raws), "duration", time.Since(start))
	return raws, nil
}

func (c *Client) fetch(ctx context.Context) ([]domain.RawQuake, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sismos request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	raws := make([]domain.RawQuake, 0, len(items))
	for i, item := range items {
		var raw domain.RawQuake
		if err := json.Unmarshal(item, &raw); err != nil {
			c.logger.Warn("skipping malformed record", "index", i, "error", err)
			c.metrics.MalformedRecords.Inc()
			continue
		}
		raw.Payload = item
		raws = append(raws, raw)
	}
	return raws, nil
}
