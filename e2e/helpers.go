package e2e

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/deeplooplabs/recsys-client/client"
	"github.com/deeplooplabs/recsys-client/tracking"
	"github.com/deeplooplabs/recsys-client/web"
)

// TestEnvironment wires a mock recommendation API, a client, a tracking
// dispatcher and the widget server the way the example binary does
type TestEnvironment struct {
	API       *MockAPI
	APIServer *httptest.Server
	Client    *client.Client
	Tracker   *tracking.Dispatcher
	Widgets   *httptest.Server
	Registry  *prometheus.Registry
	Metrics   *client.Metrics
	T         *testing.T
}

// NewTestEnvironment creates a new test environment with all necessary components
func NewTestEnvironment(t *testing.T, opts ...client.Option) *TestEnvironment {
	api := NewMockAPI()
	apiServer := httptest.NewServer(api)

	registry := prometheus.NewRegistry()
	metrics := client.NewMetrics("e2e", registry)

	opts = append([]client.Option{client.WithMetrics(metrics)}, opts...)
	c := client.New(apiServer.URL, opts...)

	tracker := tracking.NewDispatcher(apiServer.URL,
		tracking.WithMetrics(tracking.NewMetrics("e2e", registry)),
	)

	widgets := httptest.NewServer(web.New(c,
		web.WithTracker(tracker),
		web.WithMetrics(registry),
	))

	env := &TestEnvironment{
		API:       api,
		APIServer: apiServer,
		Client:    c,
		Tracker:   tracker,
		Widgets:   widgets,
		Registry:  registry,
		Metrics:   metrics,
		T:         t,
	}

	t.Cleanup(func() {
		widgets.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tracker.Close(ctx)
		apiServer.Close()
	})

	return env
}

// FlushTracking closes the dispatcher so every queued event has been delivered
func (env *TestEnvironment) FlushTracking() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(env.T, env.Tracker.Close(ctx))
}
