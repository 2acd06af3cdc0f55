// Package cache provides a Redis-backed cache for node API responses.
//
// Node list queries such as getAccountProperties are cheap to repeat but are
// requested on every page render, so responses are kept for a short TTL:
//
//   - TTL comes from the Expires header when the node sends one, otherwise
//     from the caller-supplied fallback
//   - ETag / Last-Modified are kept so a later request can be conditional
//   - keys are deterministic over requestType and sorted query parameters
//   - Prometheus metrics for hits, misses and errors
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		RequestType: "getAccountProperties",
//		Params:      url.Values{"recipient": []string{"NXT-XK4R-7VJU-6EQG-7R335"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// go to the node
//	}
//
// # HTTP Response Caching
//
//	entry, err := cache.ResponseToEntry(resp, 15*time.Second)
//	if err != nil {
//		return err
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Metrics
//
//   - nrs_cache_hits_total
//   - nrs_cache_misses_total
//   - nrs_cache_stored_bytes_total
//   - nrs_cache_not_modified_total
//   - nrs_cache_conditional_requests_total
//   - nrs_cache_errors_total{operation}
package cache
