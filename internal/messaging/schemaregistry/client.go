// Package schemaregistry looks up Avro writer schemas by id, from a Confluent
// compatible schema registry or from memory.
package schemaregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hamba/avro/v2"
	"golang.org/x/sync/singleflight"

	"wires/internal/messaging/metrics"
	"wires/pkg/platform/circuit"
	"wires/pkg/platform/sentinel"
)

const contentType = "application/vnd.schemaregistry.v1+json"

// Client fetches schemas over the registry REST API. Schemas are immutable per
// id, so every parsed schema is cached for the life of the client and
// concurrent first lookups of one id share a single request.
type Client struct {
	baseURL  string
	http     *http.Client
	username string
	password string
	timeout  time.Duration
	breaker  *circuit.Breaker
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[int]avro.Schema
	group singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithTimeout bounds one shared registry fetch. It applies independently of
// the caller's context, which only limits how long that caller waits.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a registry client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("schema registry URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse schema registry URL: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		timeout: 10 * time.Second,
		breaker: circuit.New("schema-registry"),
		logger:  slog.Default(),
		cache:   make(map[int]avro.Schema),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Schema returns the writer schema registered under id.
func (c *Client) Schema(ctx context.Context, id int) (avro.Schema, error) {
	c.mu.RLock()
	schema, ok := c.cache[id]
	c.mu.RUnlock()
	if ok {
		c.metrics.IncrementSchemaLookup("hit")
		return schema, nil
	}

	// The fetch outlives any one caller: a waiter whose context is still live
	// must not inherit the leader's cancellation.
	flight := c.group.DoChan(strconv.Itoa(id), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetch(fetchCtx, id)
	})
	select {
	case <-ctx.Done():
		c.metrics.IncrementSchemaLookup("error")
		return nil, fmt.Errorf("lookup schema %d: %w", id, ctx.Err())
	case res := <-flight:
		if res.Err != nil {
			c.metrics.IncrementSchemaLookup("error")
			return nil, res.Err
		}
		if res.Shared {
			c.metrics.IncrementSchemaLookup("shared")
		} else {
			c.metrics.IncrementSchemaLookup("miss")
		}
		return res.Val.(avro.Schema), nil
	}
}

type schemaResponse struct {
	Schema     string `json:"schema"`
	SchemaType string `json:"schemaType,omitempty"`
}

func (c *Client) fetch(ctx context.Context, id int) (avro.Schema, error) {
	c.mu.RLock()
	schema, ok := c.cache[id]
	c.mu.RUnlock()
	if ok {
		return schema, nil
	}

	if !c.breaker.Allow() {
		return nil, fmt.Errorf("schema registry circuit open: %w", sentinel.ErrUnavailable)
	}

	start := time.Now()
	var resp schemaResponse
	err := c.do(ctx, http.MethodGet, "/schemas/ids/"+strconv.Itoa(id), nil, &resp)
	c.metrics.ObserveSchemaFetch(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch schema %d: %w", id, err)
	}
	if resp.SchemaType != "" && resp.SchemaType != "AVRO" {
		return nil, fmt.Errorf("schema %d has unsupported type %s: %w", id, resp.SchemaType, sentinel.ErrInvalidState)
	}

	schema, err = avro.ParseWithCache(resp.Schema, "", &avro.SchemaCache{})
	if err != nil {
		return nil, fmt.Errorf("parse schema %d: %w", id, err)
	}

	c.mu.Lock()
	c.cache[id] = schema
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "cached schema", "schema_id", id, "type", schema.Type())
	return schema, nil
}

type registerRequest struct {
	Schema string `json:"schema"`
}

type registerResponse struct {
	ID int `json:"id"`
}

// Register adds schema under subject and returns its global id. The parsed
// schema is cached under that id.
func (c *Client) Register(ctx context.Context, subject string, schema avro.Schema) (int, error) {
	if !c.breaker.Allow() {
		return 0, fmt.Errorf("schema registry circuit open: %w", sentinel.ErrUnavailable)
	}

	body, err := json.Marshal(registerRequest{Schema: schema.String()})
	if err != nil {
		return 0, fmt.Errorf("marshal register request: %w", err)
	}
	var resp registerResponse
	path := "/subjects/" + url.PathEscape(subject) + "/versions"
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return 0, fmt.Errorf("register subject %s: %w", subject, err)
	}

	c.mu.Lock()
	c.cache[resp.ID] = schema
	c.mu.Unlock()
	return resp.ID, nil
}

// do performs one request and records its outcome on the breaker. 4xx
// responses are caller errors and do not count as failures.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", contentType)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.recordFailure(ctx)
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		c.breaker.RecordSuccess()
		return sentinel.ErrNotFound
	case res.StatusCode >= 500:
		c.recordFailure(ctx)
		return fmt.Errorf("%w: status %d", sentinel.ErrUnavailable, res.StatusCode)
	case res.StatusCode >= 400:
		c.breaker.RecordSuccess()
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("status %d: %s", res.StatusCode, bytes.TrimSpace(msg))
	}

	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "schema registry circuit closed", "breaker", c.breaker.Name())
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "schema registry circuit opened", "breaker", c.breaker.Name())
	}
}
