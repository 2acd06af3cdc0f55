// Package client provides the HTTP client for a node's JSON API with an
// error budget gate, response caching, retries and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/nrs-views/pkg/cache"
	"github.com/Sternrassler/nrs-views/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// APIPath is the node endpoint that dispatches on the requestType parameter.
const APIPath = "/nxt"

// Prometheus metrics for node client operations.
var (
	nodeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nrs_node_requests_total",
		Help: "Total node API requests by request type and status",
	}, []string{"request_type", "status"})

	nodeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nrs_node_request_duration_seconds",
		Help:    "Node API request duration in seconds by request type",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"request_type"})

	nodeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nrs_node_errors_total",
		Help: "Total node API errors by class",
	}, []string{"class"})
)

// Client is the node API client.
type Client struct {
	httpClient *http.Client
	redis      *redis.Client
	budget     *ratelimit.Tracker
	cache      *cache.Manager
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for caching and error budget state
	Redis *redis.Client

	// BaseURL of the node, e.g. "http://localhost:7876"
	BaseURL string

	// UserAgent sent with every request
	UserAgent string

	// RequestTimeout bounds a single HTTP attempt
	RequestTimeout time.Duration

	// CacheTTL applies to responses without an Expires header. Zero disables caching.
	CacheTTL time.Duration

	// Budget configures the shared node error budget
	Budget ratelimit.Config

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, baseURL, userAgent string) Config {
	return Config{
		Redis:          redis,
		BaseURL:        baseURL,
		UserAgent:      userAgent,
		RequestTimeout: 30 * time.Second,
		CacheTTL:       cache.DefaultTTL,
		Budget:         ratelimit.DefaultConfig(),
		MaxRetries:     3,
	}
}

// New creates a new node client.
func New(cfg Config) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache_ttl must be >= 0 (got %s)", cfg.CacheTTL)
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	logger := log.With().Str("component", "node-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		redis:   cfg.Redis,
		budget:  ratelimit.NewTracker(cfg.Redis, logger, cfg.Budget),
		cache:   cache.NewManager(cfg.Redis),
		baseURL: baseURL,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Do performs an HTTP request with the error budget gate, caching and retries.
// Non-retriable HTTP errors (4xx) are returned as responses for the caller to
// inspect; retriable ones surface as errors once retries are exhausted.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	requestType := req.URL.Query().Get("requestType")

	startTime := time.Now()
	defer func() {
		nodeRequestDuration.WithLabelValues(requestType).Observe(time.Since(startTime).Seconds())
	}()

	allowed, err := c.budget.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error budget check failed")
		return nil, fmt.Errorf("error budget check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("request_type", requestType).
			Msg("Request blocked by error budget")
		nodeRequestsTotal.WithLabelValues(requestType, "budget_blocked").Inc()
		return nil, ErrBudgetExhausted
	}

	cacheKey := cache.CacheKey{
		RequestType: requestType,
		Params:      req.URL.Query(),
	}

	var cachedEntry *cache.CacheEntry
	if c.cachingEnabled() {
		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("request_type", requestType).Msg("Cache get error")
		}
	}

	if cachedEntry != nil {
		if !cache.ShouldMakeConditionalRequest(cachedEntry) {
			c.logger.Debug().Str("request_type", requestType).Msg("Serving from cache")
			nodeRequestsTotal.WithLabelValues(requestType, "cache_hit").Inc()
			return cache.EntryToResponse(cachedEntry), nil
		}
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("request_type", requestType).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("request_type", requestType).
		Str("method", req.Method).
		Msg("Executing node request")

	var (
		resp     *http.Response
		errClass ErrorClass
	)

	policy := RetryPolicy{MaxAttempts: c.config.MaxRetries, InitialBackoff: c.config.InitialBackoff}
	retryErr := retryWithBackoff(ctx, policy, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		if reqErr != nil {
			errClass = c.classifyError(nil, reqErr)
			c.recordFailure(ctx, requestType, errClass, "network_error")
			c.logger.Warn().Err(reqErr).Str("request_type", requestType).Msg("HTTP request failed")
			return reqErr
		}

		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		if resp.StatusCode >= 400 {
			errClass = c.classifyError(resp, nil)
			c.recordFailure(ctx, requestType, errClass, strconv.Itoa(resp.StatusCode))

			c.logger.Warn().
				Str("request_type", requestType).
				Int("status_code", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Node request error")

			if shouldRetry(errClass) {
				resp.Body.Close()
				return &HTTPError{
					StatusCode: resp.StatusCode,
					ErrorClass: errClass,
					Message:    resp.Status,
				}
			}

			// client errors are returned to the caller as responses
			return nil
		}

		nodeRequestsTotal.WithLabelValues(requestType, strconv.Itoa(resp.StatusCode)).Inc()
		return nil
	}, func(error) ErrorClass {
		return errClass
	})

	if retryErr != nil {
		c.logger.Error().Err(retryErr).Str("request_type", requestType).Msg("Node request failed")
		return nil, retryErr
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		nodeRequestsTotal.WithLabelValues(requestType, "304").Inc()
		cache.NotModifiedResponses.Inc()

		if cachedEntry == nil {
			return nil, &HTTPError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassServer,
				Message:    "304 without cached entry",
			}
		}

		c.logger.Debug().Str("request_type", requestType).Msg("304 Not Modified - using cache")
		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if newExpires, err := http.ParseTime(expiresStr); err == nil {
				if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
				}
			}
		}

		return cache.EntryToResponse(cachedEntry), nil
	}

	if resp.StatusCode == http.StatusOK && c.cachingEnabled() {
		c.storeResponse(ctx, cacheKey, resp)
	}

	return resp, nil
}

// storeResponse caches a successful response unless its body is a node
// error envelope.
func (c *Client) storeResponse(ctx context.Context, key cache.CacheKey, resp *http.Response) {
	entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		return
	}

	if nodeErr := decodeNodeError(key.RequestType, entry.Data); nodeErr != nil {
		return
	}

	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
		return
	}

	c.logger.Debug().
		Str("request_type", key.RequestType).
		Dur("ttl", entry.TTL()).
		Msg("Cached response")
}

func (c *Client) recordFailure(ctx context.Context, requestType string, class ErrorClass, status string) {
	nodeErrorsTotal.WithLabelValues(string(class)).Inc()
	nodeRequestsTotal.WithLabelValues(requestType, status).Inc()

	if !countsAgainstBudget(class) {
		return
	}
	if _, err := c.budget.RecordFailure(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to record node failure")
	}
}

func (c *Client) cachingEnabled() bool {
	return c.config.CacheTTL > 0
}

// classifyError categorizes a failure for metrics and retry decisions.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp == nil:
		return ""
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// Query performs a GET request for one node requestType.
func (c *Client) Query(ctx context.Context, requestType string, params url.Values) (*http.Response, error) {
	if requestType == "" {
		return nil, fmt.Errorf("request type is required")
	}

	query := url.Values{}
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	query.Set("requestType", requestType)

	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + APIPath
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// QueryJSON performs Query and decodes the JSON body into out.
// Node error envelopes are returned as *NodeError, non-2xx responses as
// *HTTPError and undecodable bodies wrap ErrMalformedResponse.
func (c *Client) QueryJSON(ctx context.Context, requestType string, params url.Values, out any) error {
	resp, err := c.Query(ctx, requestType, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", requestType, err)
	}

	if resp.StatusCode >= 400 {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			ErrorClass: c.classifyError(resp, nil),
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if nodeErr := decodeNodeError(requestType, body); nodeErr != nil {
		nodeErrorsTotal.WithLabelValues(string(ErrorClassNode)).Inc()
		c.logger.Debug().
			Str("request_type", requestType).
			Int("node_error_code", nodeErr.Code).
			Msg("Node reported error")
		return nodeErr
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, requestType, err)
	}

	return nil
}

// Invalidate drops every cached response of requestType, e.g. after the
// properties of an account changed.
func (c *Client) Invalidate(ctx context.Context, requestType string) error {
	removed, err := c.cache.DeleteRequestType(ctx, requestType)
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", requestType, err)
	}
	c.logger.Debug().Str("request_type", requestType).Int("removed", removed).Msg("Cache invalidated")
	return nil
}

// nodeErrorEnvelope is the body the node returns for failed requests.
type nodeErrorEnvelope struct {
	ErrorCode        *int   `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

func decodeNodeError(requestType string, body []byte) *NodeError {
	var envelope nodeErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.ErrorCode == nil {
		return nil
	}
	return &NodeError{
		RequestType: requestType,
		Code:        *envelope.ErrorCode,
		Description: envelope.ErrorDescription,
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager (for testing).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// Budget returns the error budget tracker.
func (c *Client) Budget() *ratelimit.Tracker {
	return c.budget
}
