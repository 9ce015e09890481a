package recsys

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the per-request ID
const RequestIDHeader = "X-Request-ID"

// Context represents a single outbound API call throughout its lifecycle
type Context struct {
	RequestID string
	StartTime time.Time
	Operation string
	CacheKey  string
	Metadata  map[string]any
	mu        sync.RWMutex
}

// NewContext creates a new request context for the given operation and cache key
func NewContext(operation, cacheKey string) *Context {
	return &Context{
		RequestID: uuid.New().String(),
		StartTime: time.Now(),
		Operation: operation,
		CacheKey:  cacheKey,
		Metadata:  make(map[string]any),
	}
}

// Elapsed returns the time since the request started
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.StartTime)
}

// Set stores a value in the context metadata
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Metadata[key] = value
}

// Get retrieves a value from the context metadata
func (c *Context) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Metadata[key]
}
