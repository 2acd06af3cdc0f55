package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/nrs-views/internal/testutil"
	"github.com/Sternrassler/nrs-views/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func newTestClient(t *testing.T, redisClient *redis.Client, baseURL string) *Client {
	t.Helper()

	cfg := DefaultConfig(redisClient, baseURL, "nrs-views-test/1.0")
	cfg.InitialBackoff = time.Millisecond
	cfg.Budget.ThrottleDelay = time.Millisecond

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

type accountProperties struct {
	Properties []testutil.Property `json:"properties"`
}

func TestNew_Validation(t *testing.T) {
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer redisClient.Close()

	tests := []struct {
		name     string
		config   Config
		errorMsg string
	}{
		{
			name:   "valid config",
			config: DefaultConfig(redisClient, "http://localhost:7876", "TestApp/1.0.0"),
		},
		{
			name:     "nil redis",
			config:   DefaultConfig(nil, "http://localhost:7876", "TestApp/1.0.0"),
			errorMsg: "redis client is required",
		},
		{
			name:     "empty user agent",
			config:   DefaultConfig(redisClient, "http://localhost:7876", ""),
			errorMsg: "user-agent is required",
		},
		{
			name:     "empty base url",
			config:   DefaultConfig(redisClient, "", "TestApp/1.0.0"),
			errorMsg: "base url is required",
		},
		{
			name:     "relative base url",
			config:   DefaultConfig(redisClient, "localhost", "TestApp/1.0.0"),
			errorMsg: `invalid base url "localhost"`,
		},
		{
			name: "negative cache ttl",
			config: Config{
				Redis:     redisClient,
				BaseURL:   "http://localhost:7876",
				UserAgent: "TestApp/1.0.0",
				CacheTTL:  -time.Second,
			},
			errorMsg: "cache_ttl must be >= 0 (got -1s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.errorMsg != "" {
				if err == nil {
					t.Fatalf("Expected error %q but got nil", tt.errorMsg)
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(nil, "http://node", "TestApp/1.0.0")

	if cfg.BaseURL != "http://node" || cfg.UserAgent != "TestApp/1.0.0" {
		t.Errorf("BaseURL/UserAgent not set: %+v", cfg)
	}
	if cfg.CacheTTL <= 0 {
		t.Errorf("CacheTTL = %v, should be > 0", cfg.CacheTTL)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.Budget != ratelimit.DefaultConfig() {
		t.Errorf("Budget = %+v, want defaults", cfg.Budget)
	}
}

func TestClassifyError(t *testing.T) {
	client := &Client{logger: zerolog.Nop()}

	tests := []struct {
		name       string
		statusCode int
		err        error
		expected   ErrorClass
	}{
		{"network error", 0, io.EOF, ErrorClassNetwork},
		{"client error 404", 404, nil, ErrorClassClient},
		{"client error 400", 400, nil, ErrorClassClient},
		{"rate limit 429", 429, nil, ErrorClassRateLimit},
		{"server error 500", 500, nil, ErrorClassServer},
		{"server error 503", 503, nil, ErrorClassServer},
		{"success 200", 200, nil, ""},
		{"no response", 0, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.statusCode > 0 {
				resp = &http.Response{StatusCode: tt.statusCode}
			}

			if got := client.classifyError(resp, tt.err); got != tt.expected {
				t.Errorf("classifyError() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDecodeNodeError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantNil  bool
	}{
		{"error envelope", `{"errorCode":5,"errorDescription":"Unknown account"}`, 5, false},
		{"zero code still an error", `{"errorCode":0,"errorDescription":"x"}`, 0, false},
		{"regular payload", `{"properties":[]}`, 0, true},
		{"array payload", `[1,2]`, 0, true},
		{"not json", `<html>`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeNodeError("getAccount", []byte(tt.body))
			if tt.wantNil {
				if got != nil {
					t.Errorf("decodeNodeError() = %v, want nil", got)
				}
				return
			}
			if got == nil || got.Code != tt.wantCode {
				t.Errorf("decodeNodeError() = %v, want code %d", got, tt.wantCode)
			}
		})
	}
}

func TestQuery_BuildsNodeRequest(t *testing.T) {
	mock := testutil.NewMockNode()
	defer mock.Close()
	mock.SetResponse("getAccountProperties", testutil.NewPropertiesResponse())

	client := newTestClient(t, setupTestRedis(t), mock.URL())

	params := url.Values{
		"recipient":  []string{"NXT-XK4R-7VJU-6EQG-7R335"},
		"firstIndex": []string{"0"},
		"lastIndex":  []string{"10"},
	}

	var out accountProperties
	if err := client.QueryJSON(context.Background(), "getAccountProperties", params, &out); err != nil {
		t.Fatalf("QueryJSON() error = %v", err)
	}

	q := mock.LastQuery()
	if q.Get("requestType") != "getAccountProperties" {
		t.Errorf("requestType = %q", q.Get("requestType"))
	}
	if q.Get("recipient") != "NXT-XK4R-7VJU-6EQG-7R335" || q.Get("lastIndex") != "10" {
		t.Errorf("query params not forwarded: %v", q)
	}
	if ua := mock.LastHeader().Get("User-Agent"); ua != "nrs-views-test/1.0" {
		t.Errorf("User-Agent = %q", ua)
	}
	if params.Get("requestType") != "" {
		t.Error("Query must not modify caller params")
	}
}

func TestQueryJSON_NodeErrorNotCached(t *testing.T) {
	mock := testutil.NewMockNode()
	defer mock.Close()
	mock.SetResponse("getAccount", testutil.NewNodeErrorResponse(5, "Unknown account"))

	client := newTestClient(t, setupTestRedis(t), mock.URL())
	params := url.Values{"account": []string{"NXT-NEW"}}

	for i := 0; i < 2; i++ {
		var out map[string]any
		err := client.QueryJSON(context.Background(), "getAccount", params, &out)

		var nodeErr *NodeError
		if !errors.As(err, &nodeErr) {
			t.Fatalf("Expected *NodeError, got %v", err)
		}
		if !IsUnknownAccount(err) {
			t.Errorf("IsUnknownAccount(%v) = false", err)
		}
	}

	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2 (node errors must not be cached)", mock.RequestCount())
	}
}

func TestQueryJSON_Malformed(t *testing.T) {
	mock := testutil.NewMockNode()
	defer mock.Close()
	mock.SetResponse("getAccountProperties", testutil.NewJSONResponse(`{"properties": "nope"}`))

	client := newTestClient(t, setupTestRedis(t), mock.URL())

	var out accountProperties
	err := client.QueryJSON(context.Background(), "getAccountProperties", nil, &out)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestQueryJSON_ClientErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockNode()
	defer mock.Close()
	mock.SetResponse("getAccount", testutil.MockResponse{StatusCode: http.StatusForbidden, Body: "forbidden"})

	client := newTestClient(t, setupTestRedis(t), mock.URL())

	var out map[string]any
	err := client.QueryJSON(context.Background(), "getAccount", nil, &out)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusForbidden || httpErr.ErrorClass != ErrorClassClient {
		t.Errorf("HTTPError = %+v", httpErr)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", mock.RequestCount())
	}
}

func TestDo_CacheHit(t *testing.T) {
	mock := testutil.NewMockNode()
	defer mock.Close()
	mock.SetResponse("getAccountProperties", testutil.NewPropertiesResponse(testutil.GenerateProperties("NXT-ME", 2)...))

	client := newTestClient(t, setupTestRedis(t), mock.URL())
	params := url.Values{"setter": []string{"NXT-ME"}}

	for i := 0; i < 3; i++ {
		var out accountProperties
		if err := client.QueryJSON(context.Background(), "getAccountProperties", params, &out); err != nil {
			t.Fatalf("QueryJSON() #%d error = %v", i, err)
		}
		if len(out.Properties) != 2 {
			t.Fatalf("QueryJSON() #%d returned %d properties", i, len(out.Properties))
		}
	}

	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1 (later calls served from cache)", mock.RequestCount())
	}

	if err := client.Invalidate(context.Background(), "getAccountProperties"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	var out accountProperties
	if err := client.QueryJSON(context.Background(), "getAccountProperties", params, &out); err != nil {
		t.Fatalf("QueryJSON() after invalidate error = %v", err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2 after invalidate", mock.RequestCount())
	}
}

func TestDo_CachingDisabled(t *testing.T) {
	mock := testutil.NewMockNode()
	defer mock.Close()
	mock.SetResponse("getAccount", testutil.NewJSONResponse(`{"account":"1"}`))

	cfg := DefaultConfig(setupTestRedis(t), mock.URL(), "TestApp/1.0.0")
	cfg.CacheTTL = 0
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		var out map[string]any
		if err := client.QueryJSON(context.Background(), "getAccount", nil, &out); err != nil {
			t.Fatalf("QueryJSON() error = %v", err)
		}
	}
	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2", mock.RequestCount())
	}
}

func TestDo_Handle304NotModified(t *testing.T) {
	mock := testutil.NewMockNode()
	defer mock.Close()
	mock.SetHandler("getAccount", testutil.NewConditionalHandler(`"v1"`, `{"account":"42"}`))

	client := newTestClient(t, setupTestRedis(t), mock.URL())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := client.Query(ctx, "getAccount", nil)
		if err != nil {
			t.Fatalf("Query() #%d error = %v", i, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("#%d status = %d, want 200", i, resp.StatusCode)
		}
		if !strings.Contains(string(body), `"42"`) {
			t.Errorf("#%d body = %q", i, body)
		}
	}

	if mock.ConditionalCount() != 1 {
		t.Errorf("ConditionalCount = %d, want 1", mock.ConditionalCount())
	}
}

func TestDo_ServerErrorRetriedAndSpendsBudget(t *testing.T) {
	mock := testutil.NewMockNode()
	defer mock.Close()
	mock.SetResponse("getAccount", testutil.NewServerErrorResponse())

	client := newTestClient(t, setupTestRedis(t), mock.URL())
	ctx := context.Background()

	var out map[string]any
	err := client.QueryJSON(ctx, "getAccount", nil, &out)
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Expected ErrRetryExhausted, got %v", err)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.ErrorClass != ErrorClassServer {
		t.Errorf("Expected wrapped server HTTPError, got %v", err)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", mock.RequestCount())
	}

	state, err := client.Budget().GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if want := ratelimit.DefaultConfig().Capacity - 3; state.ErrorsRemaining != want {
		t.Errorf("ErrorsRemaining = %d, want %d", state.ErrorsRemaining, want)
	}
}

func TestDo_RecoversAfterTransientError(t *testing.T) {
	mock := testutil.NewMockNode()
	defer mock.Close()
	mock.SetSequence("getAccount",
		testutil.NewServerErrorResponse(),
		testutil.NewJSONResponse(`{"account":"7"}`),
	)

	client := newTestClient(t, setupTestRedis(t), mock.URL())

	var out struct {
		Account string `json:"account"`
	}
	if err := client.QueryJSON(context.Background(), "getAccount", nil, &out); err != nil {
		t.Fatalf("QueryJSON() error = %v", err)
	}
	if out.Account != "7" {
		t.Errorf("Account = %q, want 7", out.Account)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2", mock.RequestCount())
	}
}

func TestDo_BudgetBlock(t *testing.T) {
	redisClient := setupTestRedis(t)
	ctx := context.Background()
	redisClient.Set(ctx, ratelimit.RedisKeyErrorsRemaining, 3, time.Minute)

	mock := testutil.NewMockNode()
	defer mock.Close()

	client := newTestClient(t, redisClient, mock.URL())

	_, err := client.Query(ctx, "getAccount", nil)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("Expected ErrBudgetExhausted, got %v", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("RequestCount = %d, want 0", mock.RequestCount())
	}
}

func TestQuery_RequiresRequestType(t *testing.T) {
	client := &Client{logger: zerolog.Nop()}
	if _, err := client.Query(context.Background(), "", nil); err == nil {
		t.Error("Expected error for empty request type")
	}
}
