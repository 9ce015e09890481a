package hook

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

// mockHook implements Hook interface for testing
type mockHook struct {
	name string
}

func (m *mockHook) Name() string {
	return m.name
}

func TestHookRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	h1 := &mockHook{name: "hook1"}
	h2 := &mockHook{name: "hook2"}

	registry.Register(h1)
	registry.Register(h2)

	if len(registry.All()) != 2 {
		t.Errorf("expected 2 hooks, got %d", len(registry.All()))
	}
}

// mockRequestHook implements RequestHook
type mockRequestHook struct {
	mockHook
	beforeFunc func(ctx context.Context, req *http.Request) error
	after      int
}

func (m *mockRequestHook) BeforeRequest(ctx context.Context, req *http.Request) error {
	if m.beforeFunc != nil {
		return m.beforeFunc(ctx, req)
	}
	return nil
}

func (m *mockRequestHook) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response) {
	m.after++
}

func TestRequestHook(t *testing.T) {
	registry := NewRegistry()

	h := &mockRequestHook{
		mockHook: mockHook{name: "tenant"},
		beforeFunc: func(ctx context.Context, req *http.Request) error {
			req.Header.Set("X-Tenant", "shop-1")
			return nil
		},
	}
	registry.Register(h)

	if len(registry.RequestHooks()) != 1 {
		t.Fatalf("expected 1 request hook, got %d", len(registry.RequestHooks()))
	}

	req, _ := http.NewRequest(http.MethodGet, "http://localhost/health", nil)
	if err := registry.BeforeRequest(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Header.Get("X-Tenant") != "shop-1" {
		t.Error("expected hook to set header")
	}

	registry.AfterResponse(context.Background(), req, &http.Response{StatusCode: http.StatusOK})
	if h.after != 1 {
		t.Errorf("expected AfterResponse to be called once, got %d", h.after)
	}
}

func TestRequestHook_ErrorStopsChain(t *testing.T) {
	registry := NewRegistry()

	second := false
	registry.Register(
		&mockRequestHook{
			mockHook: mockHook{name: "deny"},
			beforeFunc: func(ctx context.Context, req *http.Request) error {
				return errors.New("denied")
			},
		},
		&mockRequestHook{
			mockHook: mockHook{name: "second"},
			beforeFunc: func(ctx context.Context, req *http.Request) error {
				second = true
				return nil
			},
		},
	)

	req, _ := http.NewRequest(http.MethodGet, "http://localhost/health", nil)
	err := registry.BeforeRequest(context.Background(), req)
	if err == nil {
		t.Fatal("expected error")
	}
	if second {
		t.Error("expected chain to stop at first error")
	}
}

// multiHook implements both CacheHook and ErrorHook
type multiHook struct {
	mockHook
	lookups []bool
	errs    []error
}

func (m *multiHook) OnCacheLookup(ctx context.Context, key string, hit bool) {
	m.lookups = append(m.lookups, hit)
}

func (m *multiHook) OnError(ctx context.Context, err error) {
	m.errs = append(m.errs, err)
}

func TestRegistry_MultiInterfaceHook(t *testing.T) {
	registry := NewRegistry()
	h := &multiHook{mockHook: mockHook{name: "diag"}}
	registry.Register(h)

	if len(registry.CacheHooks()) != 1 || len(registry.ErrorHooks()) != 1 {
		t.Fatal("expected hook to be registered as both cache and error hook")
	}

	registry.CacheLookup(context.Background(), "popular:n:10:cat:all", false)
	registry.CacheLookup(context.Background(), "popular:n:10:cat:all", true)
	registry.Error(context.Background(), errors.New("boom"))

	if len(h.lookups) != 2 || h.lookups[0] || !h.lookups[1] {
		t.Errorf("unexpected lookups: %v", h.lookups)
	}
	if len(h.errs) != 1 {
		t.Errorf("expected 1 error, got %d", len(h.errs))
	}
}
