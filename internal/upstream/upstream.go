// Package upstream is the shared HTTP plumbing for the external services the
// toolkit talks to: OpenAI, the Midjourney proxy, Publer and the event site.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/metrics"
)

// DefaultMaxBody caps how much of any response is read.
const DefaultMaxBody = 10 * 1024 * 1024

// Client wraps an *http.Client with error mapping and metrics.
type Client struct {
	HTTP    *http.Client
	Metrics metrics.Recorder
	MaxBody int64
}

// New returns a Client with the given per-request timeout.
func New(timeout time.Duration, m metrics.Recorder) *Client {
	if m == nil {
		m = metrics.Nop()
	}
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		Metrics: m,
		MaxBody: DefaultMaxBody,
	}
}

// Do sends req and returns the body of a 2xx response.
// Transport failures are NETWORK_ERROR; other statuses are HTTP_ERROR.
func (c *Client) Do(service string, req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.HTTP.Do(req)
	c.Metrics.ObserveUpstreamDuration(service, time.Since(start))
	if err != nil {
		c.Metrics.IncUpstreamRequests(service, 0)
		return nil, errors.NewNetwork(service, err)
	}
	defer resp.Body.Close()
	c.Metrics.IncUpstreamRequests(service, resp.StatusCode)

	limit := c.MaxBody
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, errors.NewNetwork(service, err)
	}
	if int64(len(body)) > limit {
		return nil, errors.NewNetwork(service, fmt.Errorf("response body exceeds %d bytes", limit))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewHTTP(service, resp.StatusCode, string(body))
	}
	return body, nil
}

// Request describes one JSON call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// Body is marshalled to JSON when non-nil.
	Body any
}

// JSON performs r and decodes a 2xx reply into out (when out is non-nil).
// An undecodable reply is PARSE_ERROR.
func (c *Client) JSON(ctx context.Context, service string, r Request, out any) error {
	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return errors.NewInternal(err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return errors.NewInternal(err)
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	data, err := c.Do(service, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewParse(service, err)
	}
	return nil
}

// Download fetches url and returns the body.
func (c *Client) Download(ctx context.Context, service, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c.Do(service, req)
}
