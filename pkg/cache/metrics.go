package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts responses served from Redis.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nrs_cache_hits_total",
		Help: "Total number of node response cache hits",
	})

	// CacheMisses counts lookups that found nothing usable.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nrs_cache_misses_total",
		Help: "Total number of node response cache misses",
	})

	// CacheStoredBytes counts bytes written to Redis.
	CacheStoredBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nrs_cache_stored_bytes_total",
		Help: "Total bytes of node responses written to the cache",
	})

	// NotModifiedResponses counts 304 responses answered from cache.
	NotModifiedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nrs_cache_not_modified_total",
		Help: "Total number of 304 Not Modified node responses",
	})

	// ConditionalRequestsSent counts requests sent with If-None-Match or If-Modified-Since.
	ConditionalRequestsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nrs_cache_conditional_requests_total",
		Help: "Total number of conditional node requests sent",
	})

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nrs_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
