package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces all cache keys in Redis.
const KeyPrefix = "nrs:cache"

// CacheKey identifies a cached node API response.
type CacheKey struct {
	// RequestType is the node requestType (e.g. "getAccountProperties").
	RequestType string

	// Params are the query parameters sent with the request, excluding requestType.
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: nrs:cache:requestType:param1=val1:param2=val2
//
// Example:
//
//	nrs:cache:getAccountProperties:firstIndex=0:lastIndex=10:recipient=NXT-XK4R-7VJU-6EQG-7R335
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if rt := strings.TrimSpace(k.RequestType); rt != "" {
		parts = append(parts, rt)
	}

	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			if key == "requestType" {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			values := append([]string(nil), k.Params[key]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}
