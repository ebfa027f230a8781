// Package jobnimbus wraps the JobNimbus REST API. Every call is an opaque
// read against upstream state: no retries, no mutation, errors mapped to
// typed UPSTREAM_ERROR values.
package jobnimbus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hailworks/jnmcp/internal/config"
	"github.com/hailworks/jnmcp/internal/errors"
)

// requestTimeout bounds every upstream call. A timed-out call surfaces as
// a failed computation; nothing is cached for it.
const requestTimeout = 10 * time.Second

// maxResponseBytes caps a single upstream response body read.
const maxResponseBytes = 16 << 20

// Client talks to one JobNimbus instance.
type Client struct {
	baseURL    string
	apiKey     string
	instance   string
	httpClient *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		instance: cfg.Instance,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Instance reports the instance identifier this client is bound to. It
// participates in every cache key so two instances never share entries.
func (c *Client) Instance() string {
	return c.instance
}

// ListResponse is the envelope JobNimbus wraps around every list endpoint.
type ListResponse struct {
	Count   int              `json:"count"`
	Results []map[string]any `json:"results"`
}

// get performs a GET against path with query parameters, decoding the JSON
// body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.NewUpstream(path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.instance != "" {
		req.Header.Set("X-Instance", c.instance)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewUpstream(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewUpstreamStatus(path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.NewUpstream(path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewUpstream(path, fmt.Errorf("malformed JSON: %w", err))
	}
	return nil
}

// ListPage fetches one page of an entity list.
func (c *Client) ListPage(ctx context.Context, entity string, size, from int) (*ListResponse, error) {
	query := url.Values{}
	query.Set("size", strconv.Itoa(size))
	query.Set("from", strconv.Itoa(from))

	var page ListResponse
	if err := c.get(ctx, "/api1/"+entity, query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// fetchAllPageSize is the page size used when draining an entity.
const fetchAllPageSize = 100

// fetchAllMaxPages guards against an upstream that reports a bogus count.
const fetchAllMaxPages = 50

// FetchAll drains every page of an entity list, up to the page guard.
func (c *Client) FetchAll(ctx context.Context, entity string) ([]map[string]any, error) {
	var all []map[string]any
	from := 0

	for page := 0; page < fetchAllMaxPages; page++ {
		resp, err := c.ListPage(ctx, entity, fetchAllPageSize, from)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)
		from += len(resp.Results)

		if len(resp.Results) == 0 || from >= resp.Count {
			break
		}
	}
	return all, nil
}

// Get fetches a single record by jnid.
func (c *Client) Get(ctx context.Context, entity, jnid string) (map[string]any, error) {
	var record map[string]any
	if err := c.get(ctx, "/api1/"+entity+"/"+url.PathEscape(jnid), nil, &record); err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, errors.NewNotFound(jnid)
	}
	return record, nil
}
