// Package testutil provides a mock node API server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mocked requestType.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockNode is a configurable mock of the node's /nxt endpoint.
// Handlers are keyed by the requestType query parameter.
type MockNode struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount     int
	conditionalCount int
	lastQuery        url.Values
	lastHeader       http.Header
}

// NewMockNode starts a new mock node server.
func NewMockNode() *MockNode {
	mock := &MockNode{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		mock.mu.Lock()
		mock.requestCount++
		mock.lastQuery = query
		mock.lastHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[query.Get("requestType")]
		mock.mu.Unlock()

		if r.URL.Path != "/nxt" {
			http.NotFound(w, r)
			return
		}

		if exists {
			handler(w, r)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"errorCode":        1,
			"errorDescription": "Incorrect request",
		})
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockNode) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNode) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockNode) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.conditionalCount = 0
	m.lastQuery = nil
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a requestType.
func (m *MockNode) SetHandler(requestType string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[requestType] = handler
}

// SetResponse configures a fixed response for a requestType.
func (m *MockNode) SetResponse(requestType string, resp MockResponse) {
	m.SetHandler(requestType, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence answers successive calls with the given responses; the last
// one repeats.
func (m *MockNode) SetSequence(requestType string, responses ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(requestType, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[min(next, len(responses)-1)]
		next++
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockNode) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// ConditionalCount returns the number of conditional requests.
func (m *MockNode) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastQuery returns the query parameters of the most recent request.
func (m *MockNode) LastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery
}

// LastHeader returns the headers of the most recent request.
func (m *MockNode) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// Property is the wire shape of one getAccountProperties entry.
type Property struct {
	Setter      string `json:"setter,omitempty"`
	SetterRS    string `json:"setterRS,omitempty"`
	Recipient   string `json:"recipient,omitempty"`
	RecipientRS string `json:"recipientRS,omitempty"`
	Property    string `json:"property,omitempty"`
	Value       string `json:"value,omitempty"`
}

// NewPropertiesResponse creates a getAccountProperties response.
func NewPropertiesResponse(properties ...Property) MockResponse {
	if properties == nil {
		properties = []Property{}
	}
	body, _ := json.Marshal(map[string]any{
		"properties":            properties,
		"requestProcessingTime": 1,
	})
	return NewJSONResponse(string(body))
}

// GenerateProperties builds n properties set by setterRS on distinct recipients.
func GenerateProperties(setterRS string, n int) []Property {
	out := make([]Property, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Property{
			Setter:      "1000",
			SetterRS:    setterRS,
			Recipient:   fmt.Sprintf("%d", 2000+i),
			RecipientRS: fmt.Sprintf("NXT-TEST-%04d-AAAA-BBBBB", i),
			Property:    fmt.Sprintf("prop%d", i),
			Value:       fmt.Sprintf("value%d", i),
		})
	}
	return out
}

// NewJSONResponse creates a 200 OK JSON response.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNodeErrorResponse creates the 200 OK error envelope the node uses.
func NewNodeErrorResponse(code int, description string) MockResponse {
	body, _ := json.Marshal(map[string]any{
		"errorCode":        code,
		"errorDescription": description,
	})
	return NewJSONResponse(string(body))
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Too many requests"}`,
	}
}

// NewConditionalHandler answers 304 when If-None-Match equals etag.
func NewConditionalHandler(etag string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
