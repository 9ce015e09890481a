// Package client implements RecommendationClient, the caching, fail-open
// HTTP client for the recommendation API.
//
// Each query first looks in a per-client TTL cache. On a miss it issues a GET,
// stores the expected field of the JSON body and returns it. Any failure
// (transport, non-2xx status, malformed or incomplete body) yields an empty
// slice; details go to the logger, error hooks and metrics, never to the caller.
package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	recsys "github.com/deeplooplabs/recsys-client"
	"github.com/deeplooplabs/recsys-client/cache"
	"github.com/deeplooplabs/recsys-client/hook"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCount is the number of items requested when count <= 0
const DefaultCount = 10

const (
	fieldRecommendations = "recommendations"
	fieldSimilarItems    = "similar_items"
	fieldResults         = "results"
)

const operationBatch = "batch"

// fetchFunc performs one API call and returns the raw JSON it produced
type fetchFunc func(ctx context.Context) ([]byte, error)

// Client is the recommendation API client.
// A Client is safe for concurrent use; instances share no state.
type Client struct {
	baseURL    string
	config     *Config
	httpClient *http.Client
	headers    map[string]string
	logger     *slog.Logger
	hooks      *hook.Registry
	extraHooks []hook.Hook
	metrics    *Metrics
	monitor    *monitor

	cache         cache.Cache
	cacheMaxItems int
	now           func() time.Time

	breakerConfig *BreakerConfig
	breaker       *gobreaker.CircuitBreaker[[]byte]

	coalesce bool
	sf       singleflight.Group
}

// New creates a client for the recommendation API at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		config:  DefaultConfig(),
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		logger: slog.Default(),
		hooks:  hook.NewRegistry(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Single hooks go into a private registry; one passed to WithHooks is never modified
	if len(c.extraHooks) > 0 {
		hooks := hook.NewRegistry()
		hooks.Register(c.hooks.All()...)
		hooks.Register(c.extraHooks...)
		c.hooks = hooks
	}

	c.monitor = newMonitor(c.now())

	if c.httpClient == nil {
		c.httpClient = c.config.GetHTTPClient()
	}

	c.cache = cache.NewLRUCache(&cache.Config{
		TTL:      cache.DefaultTTL,
		MaxItems: c.cacheMaxItems,
		Now:      c.now,
	})

	if c.breakerConfig != nil {
		c.breaker = newBreaker(*c.breakerConfig, func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		})
	}

	return c
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UserRecommendations returns personalized recommendations for userID.
// exclude is sent and cached in the order given.
func (c *Client) UserRecommendations(ctx context.Context, userID int64, count int, exclude []int64) []recsys.Item {
	count = normalizeCount(count)
	key := cache.UserKey(userID, count, exclude)

	endpoint := "/api/v1/recommendations/user/" + strconv.FormatInt(userID, 10) + "?n=" + strconv.Itoa(count)
	if key.Exclude != "" {
		endpoint += "&exclude=" + key.Exclude
	}

	return c.query(ctx, key, endpoint, fieldRecommendations)
}

// SimilarItems returns items similar to itemID
func (c *Client) SimilarItems(ctx context.Context, itemID int64, count int) []recsys.Item {
	count = normalizeCount(count)
	key := cache.SimilarKey(itemID, count)

	endpoint := "/api/v1/recommendations/similar/" + strconv.FormatInt(itemID, 10) + "?n=" + strconv.Itoa(count)

	return c.query(ctx, key, endpoint, fieldSimilarItems)
}

// PopularItems returns popular items, optionally restricted to category.
// An empty category means all categories.
func (c *Client) PopularItems(ctx context.Context, count int, category string) []recsys.Item {
	count = normalizeCount(count)
	key := cache.PopularKey(count, category)

	endpoint := "/api/v1/recommendations/popular?n=" + strconv.Itoa(count)
	if category != "" {
		endpoint += "&category=" + url.QueryEscape(category)
	}

	return c.query(ctx, key, endpoint, fieldRecommendations)
}

// ClearCache discards every cached response
func (c *Client) ClearCache() {
	_ = c.cache.Clear(context.Background())
}

// CacheStats returns cache hit/miss statistics
func (c *Client) CacheStats() cache.CacheStats {
	return c.cache.Stats()
}

// BatchUserRecommendations returns recommendations for several users. Users
// already cached are served from the cache and the rest are fetched with a
// single batch request, each cached under the same key UserRecommendations
// uses with no exclusions. Every requested user has an entry in the result;
// it is empty when that user's recommendations could not be obtained.
func (c *Client) BatchUserRecommendations(ctx context.Context, userIDs []int64, count int) map[int64][]recsys.Item {
	count = normalizeCount(count)
	results := make(map[int64][]recsys.Item, len(userIDs))

	var missing []int64
	for _, userID := range userIDs {
		if _, seen := results[userID]; seen {
			continue
		}
		if items, ok := c.cached(ctx, cache.UserKey(userID, count, nil)); ok {
			results[userID] = items
			continue
		}
		results[userID] = []recsys.Item{}
		missing = append(missing, userID)
	}

	if len(missing) == 0 {
		return results
	}

	rc := recsys.NewContext(operationBatch, "batch:"+cache.JoinIDs(missing)+":n:"+strconv.Itoa(count))

	raw, err := c.guard(ctx, rc, func(ctx context.Context) ([]byte, error) {
		return c.fetchBatch(ctx, rc, missing, count)
	})
	if err != nil {
		c.report(ctx, rc, err)
		return results
	}

	byUser, err := decodeBatchResults(raw)
	if err != nil {
		c.report(ctx, rc, recsys.NewShapeError(rc.Operation, "decode results", err))
		return results
	}

	for _, userID := range missing {
		userRaw, ok := byUser[userID]
		if !ok {
			continue
		}
		items, err := decodeItems(userRaw)
		if err != nil {
			c.report(ctx, rc, recsys.NewShapeError(rc.Operation, "results for user "+strconv.FormatInt(userID, 10)+" are not a list of items", err))
			continue
		}
		results[userID] = items
		_ = c.cache.Set(ctx, cache.UserKey(userID, count, nil), userRaw)
	}

	return results
}

// HealthReport summarizes the outcomes of API calls made by this client
func (c *Client) HealthReport() HealthReport {
	return c.monitor.report(c.now())
}

// query serves key from the cache or fetches endpoint, failing open to an empty slice
func (c *Client) query(ctx context.Context, key cache.Key, endpoint, field string) []recsys.Item {
	if items, ok := c.cached(ctx, key); ok {
		return items
	}

	rc := recsys.NewContext(key.Kind.String(), key.String())

	raw, err := c.load(ctx, rc, func(ctx context.Context) ([]byte, error) {
		return c.fetchField(ctx, rc, endpoint, field)
	})
	if err != nil {
		c.report(ctx, rc, err)
		return []recsys.Item{}
	}

	items, err := decodeItems(raw)
	if err != nil {
		c.report(ctx, rc, recsys.NewShapeError(rc.Operation, "decode items", err))
		return []recsys.Item{}
	}

	_ = c.cache.Set(ctx, key, raw)

	return items
}

// cached returns a fresh copy of the items stored under key. An entry that no
// longer decodes is dropped and reported as a miss.
func (c *Client) cached(ctx context.Context, key cache.Key) ([]recsys.Item, bool) {
	keyStr := key.String()
	kind := key.Kind.String()

	raw, ok := c.cache.Get(ctx, key)
	if ok {
		items, err := decodeItems(raw)
		if err == nil {
			c.hooks.CacheLookup(ctx, keyStr, true)
			c.metrics.observeCache(kind, true)
			return items, true
		}
		_ = c.cache.Delete(ctx, key)
	}

	c.hooks.CacheLookup(ctx, keyStr, false)
	c.metrics.observeCache(kind, false)
	return nil, false
}

// load runs fetch through the breaker and, when enabled, request coalescing.
// A coalesced fetch is detached from the context of the caller that started it
// and is bounded by the transport timeouts; each caller still stops waiting
// when its own context ends.
func (c *Client) load(ctx context.Context, rc *recsys.Context, fetch fetchFunc) ([]byte, error) {
	if !c.coalesce {
		return c.guard(ctx, rc, fetch)
	}

	shared := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(rc.CacheKey, func() (interface{}, error) {
		return c.guard(shared, rc, fetch)
	})

	select {
	case res := <-ch:
		rc.Set("shared", res.Shared)
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, recsys.NewTransportError(rc.Operation, ctx.Err())
	}
}

// guard runs fetch through the circuit breaker when one is configured
func (c *Client) guard(ctx context.Context, rc *recsys.Context, fetch fetchFunc) ([]byte, error) {
	if c.breaker == nil {
		return fetch(ctx)
	}

	if err := ctx.Err(); err != nil {
		return nil, recsys.NewTransportError(rc.Operation, err)
	}

	raw, err := c.breaker.Execute(func() ([]byte, error) {
		raw, err := fetch(ctx)
		if err != nil && ctx.Err() != nil {
			return nil, &callerError{err: err}
		}
		return raw, err
	})
	if isBreakerRejection(err) {
		return nil, recsys.NewTransportError(rc.Operation, err)
	}

	var ce *callerError
	if errors.As(err, &ce) {
		return nil, ce.err
	}
	return raw, err
}

// report sends a failure to the diagnostic side channel
func (c *Client) report(ctx context.Context, rc *recsys.Context, err error) {
	c.logger.Warn("recommendation request failed",
		"operation", rc.Operation,
		"key", rc.CacheKey,
		"request_id", rc.RequestID,
		"elapsed", rc.Elapsed(),
		"error", err,
	)
	c.hooks.Error(ctx, err)
}

func normalizeCount(count int) int {
	if count <= 0 {
		return DefaultCount
	}
	return count
}
