package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

type CacheAdaptor interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type cacheTtlKey struct{}

type cachingTransport struct {
	next     http.RoundTripper
	cacheKey func(*http.Request) string
	cache    CacheAdaptor
	logger   *zap.Logger
}

func (c *cachingTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	// only cache idempotent requests
	if request.Method != http.MethodGet && request.Method != http.MethodHead {
		return c.next.RoundTrip(request)
	}

	ctx := request.Context()

	ttl, ttlOk := ctx.Value(cacheTtlKey{}).(time.Duration)
	if !ttlOk || ttl <= 0 {
		return c.next.RoundTrip(request)
	}

	requestKey := c.cacheKey(request)
	if cachedResponse, cacheErr := c.cache.Get(ctx, requestKey); cacheErr == nil {
		reader := bufio.NewReader(strings.NewReader(cachedResponse))
		response, readErr := http.ReadResponse(reader, request)
		if readErr == nil {
			c.logger.Debug("serving cached response", zap.String("url", request.URL.Redacted()))
			return response, nil
		}
		c.logger.Warn("discarding unreadable cached response", zap.String("key", requestKey), zap.Error(readErr))
	}

	response, err := c.next.RoundTrip(request)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response, nil
	}

	if err := c.cacheResponse(ctx, requestKey, response, ttl); err != nil {
		c.logger.Warn("couldn't cache response", zap.String("key", requestKey), zap.Error(err))
	}

	return response, nil
}

func (c *cachingTransport) cacheResponse(
	ctx context.Context,
	key string,
	response *http.Response,
	ttl time.Duration,
) error {
	// DumpResponse buffers the body and puts an unread copy back on response
	responseDump, dumpErr := httputil.DumpResponse(response, true)
	if dumpErr != nil {
		return dumpErr
	}

	return c.cache.Set(ctx, key, string(responseDump), ttl)
}

func ContextWithCachingTtl(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, cacheTtlKey{}, ttl)
}

func newCachingTransport(next http.RoundTripper, cache CacheAdaptor, logger *zap.Logger) http.RoundTripper {
	return &cachingTransport{
		next:     next,
		cacheKey: func(request *http.Request) string { return request.URL.String() },
		cache:    cache,
		logger:   logger,
	}
}

var ErrCacheMiss = cacheMissError{}

type cacheMissError struct{}

func (cacheMissError) Error() string { return "cache miss" }

// DefaultMemoryCacheSize is how many responses a MemoryCache holds when no size is given.
const DefaultMemoryCacheSize = 1024

type memoryCacheEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is a process local CacheAdaptor. It holds at most size responses and evicts anything older than
// maxTTL in the background, whether or not it is read again. Shorter per-entry TTLs are enforced on Get.
type MemoryCache struct {
	entries *expirable.LRU[string, memoryCacheEntry]
	now     func() time.Time
}

func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}

	return &MemoryCache{
		entries: expirable.NewLRU[string, memoryCacheEntry](size, nil, maxTTL),
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	entry, ok := m.entries.Get(key)
	if !ok {
		return "", ErrCacheMiss
	}

	if !m.now().Before(entry.expiresAt) {
		m.entries.Remove(key)
		return "", ErrCacheMiss
	}

	return entry.value, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.entries.Add(key, memoryCacheEntry{value: value, expiresAt: m.now().Add(ttl)})
	return nil
}

func (m *MemoryCache) Len() int {
	return m.entries.Len()
}
