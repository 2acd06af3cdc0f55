package cache

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"
)

func newResponse(status int, headers http.Header, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     headers,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestResponseToEntry(t *testing.T) {
	t.Run("nil response", func(t *testing.T) {
		if _, err := ResponseToEntry(nil, time.Minute); err == nil {
			t.Error("Expected error for nil response")
		}
	})

	t.Run("headers parsed and body restored", func(t *testing.T) {
		lastMod := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
		resp := newResponse(200, http.Header{
			"Expires":       []string{time.Now().Add(time.Hour).Format(http.TimeFormat)},
			"Last-Modified": []string{lastMod.Format(http.TimeFormat)},
			"Etag":          []string{`"abc123"`},
		}, `{"properties":[]}`)

		entry, err := ResponseToEntry(resp, time.Minute)
		if err != nil {
			t.Fatalf("ResponseToEntry() error = %v", err)
		}
		if entry.ETag != `"abc123"` {
			t.Errorf("ETag = %q", entry.ETag)
		}
		if !entry.LastModified.Equal(lastMod) {
			t.Errorf("LastModified = %v, want %v", entry.LastModified, lastMod)
		}
		if entry.TTL() < 50*time.Minute {
			t.Errorf("TTL = %v, expected to follow Expires header", entry.TTL())
		}

		body, _ := io.ReadAll(resp.Body)
		if string(body) != `{"properties":[]}` {
			t.Errorf("Body not restored, got %q", body)
		}
	})

	t.Run("fallback TTL without expires", func(t *testing.T) {
		resp := newResponse(200, http.Header{}, `{}`)

		entry, err := ResponseToEntry(resp, 30*time.Second)
		if err != nil {
			t.Fatalf("ResponseToEntry() error = %v", err)
		}
		if ttl := entry.TTL(); ttl <= 25*time.Second || ttl > 30*time.Second {
			t.Errorf("TTL = %v, want ~30s", ttl)
		}
	})
}

func TestParseExpires(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantMin time.Duration
		wantMax time.Duration
	}{
		{"missing uses default", "", DefaultTTL - time.Second, DefaultTTL},
		{"invalid uses default", "not a date", DefaultTTL - time.Second, DefaultTTL},
		{"past is now", time.Now().Add(-time.Hour).Format(http.TimeFormat), -time.Second, time.Second},
		{"future honored", time.Now().Add(2 * time.Hour).Format(http.TimeFormat), 119 * time.Minute, 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Expires", tt.header)
			}
			got := time.Until(parseExpires(h, 0))
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("parseExpires() in %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestEntryToResponse(t *testing.T) {
	if EntryToResponse(nil) != nil {
		t.Error("EntryToResponse(nil) should be nil")
	}

	entry := &CacheEntry{
		Data:    []byte(`{"balanceNQT":"1"}`),
		Headers: http.Header{"Content-Type": []string{"application/json"}},
	}
	resp := EntryToResponse(entry)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Error("Expected X-Cache: HIT")
	}
	if entry.Headers.Get("X-Cache") != "" {
		t.Error("EntryToResponse must not modify entry headers")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != string(entry.Data) {
		t.Errorf("Body = %q", body)
	}
}

func TestConditionalHeaders(t *testing.T) {
	lastMod := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name          string
		entry         *CacheEntry
		wantCond      bool
		wantNoneMatch string
		wantModSince  string
	}{
		{"nil entry", nil, false, "", ""},
		{"no validators", &CacheEntry{}, false, "", ""},
		{"etag preferred", &CacheEntry{ETag: `"v1"`, LastModified: lastMod}, true, `"v1"`, ""},
		{"last modified only", &CacheEntry{LastModified: lastMod}, true, "", lastMod.Format(http.TimeFormat)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldMakeConditionalRequest(tt.entry); got != tt.wantCond {
				t.Errorf("ShouldMakeConditionalRequest() = %v, want %v", got, tt.wantCond)
			}

			req, _ := http.NewRequest(http.MethodGet, "http://node/nxt", nil)
			AddConditionalHeaders(req, tt.entry)
			if got := req.Header.Get("If-None-Match"); got != tt.wantNoneMatch {
				t.Errorf("If-None-Match = %q, want %q", got, tt.wantNoneMatch)
			}
			if got := req.Header.Get("If-Modified-Since"); got != tt.wantModSince {
				t.Errorf("If-Modified-Since = %q, want %q", got, tt.wantModSince)
			}
		})
	}
}

func TestCacheEntry_Expiry(t *testing.T) {
	fresh := &CacheEntry{Expires: time.Now().Add(time.Minute)}
	if fresh.IsExpired() || fresh.TTL() <= 0 {
		t.Error("Fresh entry reported as expired")
	}

	stale := &CacheEntry{Expires: time.Now().Add(-time.Minute)}
	if !stale.IsExpired() || stale.TTL() != 0 {
		t.Error("Stale entry should be expired with zero TTL")
	}
}
