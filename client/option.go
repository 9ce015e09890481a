package client

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/deeplooplabs/recsys-client/hook"
)

// Option configures the Client
type Option func(*Client)

// WithConfig sets the transport configuration
func WithConfig(config *Config) Option {
	return func(c *Client) {
		c.config = config
	}
}

// WithHTTPClient sets the HTTP client used for all requests
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeaders adds headers to every request. They are merged over the
// defaults; on a key collision the value given here wins.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[http.CanonicalHeaderKey(k)] = v
		}
	}
}

// WithLogger sets the logger that receives request failures
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHooks sets the hook registry
func WithHooks(hooks *hook.Registry) Option {
	return func(c *Client) {
		c.hooks = hooks
	}
}

// WithHook adds a single hook. Hooks added this way run after those of the
// registry given to WithHooks, regardless of option order.
func WithHook(h hook.Hook) Option {
	return func(c *Client) {
		c.extraHooks = append(c.extraHooks, h)
	}
}

// WithMetrics enables Prometheus metrics
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithCircuitBreaker stops calling the API after repeated failures. While the
// breaker is open, queries return empty results without touching the network.
func WithCircuitBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		c.breakerConfig = &cfg
	}
}

// WithRequestCoalescing collapses concurrent cache misses for the same key
// into a single API request. Callers sharing a request share its outcome. The
// shared request is bounded by the transport timeouts, not by any caller's
// context; a caller whose context ends stops waiting and gets an empty result.
func WithRequestCoalescing() Option {
	return func(c *Client) {
		c.coalesce = true
	}
}

// WithCacheMaxItems bounds the cache; 0 (the default) means unbounded
func WithCacheMaxItems(maxItems int) Option {
	return func(c *Client) {
		c.cacheMaxItems = maxItems
	}
}

// WithClock sets the time source used for cache expiry
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}
