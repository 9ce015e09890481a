package hook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// Hook is the base interface for all hooks
type Hook interface {
	// Name returns the unique name of this hook
	Name() string
}

// RequestHook is called around each outbound API request
type RequestHook interface {
	Hook
	// BeforeRequest is called before the request is sent (can add headers).
	// A non-nil error aborts the request, which then fails open like a transport error.
	BeforeRequest(ctx context.Context, req *http.Request) error
	// AfterResponse is called once response headers are received
	AfterResponse(ctx context.Context, req *http.Request, resp *http.Response)
}

// CacheHook is called on every cache lookup
type CacheHook interface {
	Hook
	// OnCacheLookup reports whether the lookup for key was a hit
	OnCacheLookup(ctx context.Context, key string, hit bool)
}

// ErrorHook is called when a request fails.
// The error never reaches the query's caller; hooks are the place to observe it.
type ErrorHook interface {
	Hook
	// OnError is called with the *recsys.RequestError describing the failure
	OnError(ctx context.Context, err error)
}

// Registry manages registered hooks
type Registry struct {
	hooks        []Hook
	requestHooks []RequestHook
	cacheHooks   []CacheHook
	errorHooks   []ErrorHook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		hooks:        make([]Hook, 0),
		requestHooks: make([]RequestHook, 0),
		cacheHooks:   make([]CacheHook, 0),
		errorHooks:   make([]ErrorHook, 0),
	}
}

// Register registers a hook under every hook interface it implements
func (r *Registry) Register(hooks ...Hook) {
	for _, hook := range hooks {
		r.hooks = append(r.hooks, hook)

		known := false
		if h, ok := hook.(RequestHook); ok {
			r.requestHooks = append(r.requestHooks, h)
			known = true
		}
		if h, ok := hook.(CacheHook); ok {
			r.cacheHooks = append(r.cacheHooks, h)
			known = true
		}
		if h, ok := hook.(ErrorHook); ok {
			r.errorHooks = append(r.errorHooks, h)
			known = true
		}
		if !known {
			slog.Warn(fmt.Sprintf("unknown hook type: %T", hook))
		}
	}
}

// RequestHooks returns all request hooks
func (r *Registry) RequestHooks() []RequestHook {
	return r.requestHooks
}

// CacheHooks returns all cache hooks
func (r *Registry) CacheHooks() []CacheHook {
	return r.cacheHooks
}

// ErrorHooks returns all error hooks
func (r *Registry) ErrorHooks() []ErrorHook {
	return r.errorHooks
}

// All returns all registered hooks
func (r *Registry) All() []Hook {
	return r.hooks
}

// BeforeRequest runs every request hook in registration order, stopping at the first error
func (r *Registry) BeforeRequest(ctx context.Context, req *http.Request) error {
	for _, h := range r.requestHooks {
		if err := h.BeforeRequest(ctx, req); err != nil {
			return fmt.Errorf("hook %s: %w", h.Name(), err)
		}
	}
	return nil
}

// AfterResponse runs every request hook's AfterResponse
func (r *Registry) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response) {
	for _, h := range r.requestHooks {
		h.AfterResponse(ctx, req, resp)
	}
}

// CacheLookup notifies every cache hook
func (r *Registry) CacheLookup(ctx context.Context, key string, hit bool) {
	for _, h := range r.cacheHooks {
		h.OnCacheLookup(ctx, key, hit)
	}
}

// Error notifies every error hook
func (r *Registry) Error(ctx context.Context, err error) {
	for _, h := range r.errorHooks {
		h.OnError(ctx, err)
	}
}
