package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/deeplooplabs/recsys-client/client"
	"github.com/deeplooplabs/recsys-client/hook"
	"github.com/deeplooplabs/recsys-client/tracking"
	"github.com/deeplooplabs/recsys-client/web"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using system environment variables")
	} else {
		slog.Info("Loaded .env file")
	}

	apiBaseURL := getenv("RECSYS_API_BASE_URL", "http://localhost:5000")
	trackingBaseURL := getenv("RECSYS_TRACKING_BASE_URL", apiBaseURL)
	listenAddr := getenv("LISTEN_ADDR", ":8084")
	slog.Info("Configuration", "RECSYS_API_BASE_URL", apiBaseURL, "RECSYS_TRACKING_BASE_URL", trackingBaseURL, "LISTEN_ADDR", listenAddr)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hooks := hook.NewRegistry()
	hooks.Register(&LoggingHook{}, &ErrorHook{})

	transport := client.DefaultConfig().
		WithTimeout(5*time.Second).
		WithConnectionPool(200, 50, 50, 90*time.Second)

	recClient := client.New(apiBaseURL,
		client.WithConfig(transport),
		client.WithHooks(hooks),
		client.WithMetrics(client.NewMetrics("recsys", registry)),
		client.WithCircuitBreaker(client.DefaultBreakerConfig()),
		client.WithRequestCoalescing(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if status, err := recClient.Health(ctx); err != nil {
		slog.Warn("Recommendation API not reachable, widgets will render empty until it is", "error", err)
	} else {
		slog.Info("Recommendation API healthy", "status", status.Status, "model_type", status.ModelType)
	}
	cancel()

	tracker := tracking.NewDispatcher(trackingBaseURL,
		tracking.WithHTTPClient(client.DefaultConfig().WithTimeout(2*time.Second).GetHTTPClient()),
		tracking.WithMetrics(tracking.NewMetrics("recsys", registry)),
	)

	server := &http.Server{
		Addr: listenAddr,
		Handler: web.New(recClient,
			web.WithTracker(tracker),
			web.WithMetrics(registry),
			web.WithCORS(web.DefaultCORSConfig()),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Recommendation widgets listening on " + listenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
	if err := tracker.Close(shutdownCtx); err != nil {
		slog.Warn("Tracking events dropped on shutdown", "error", err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LoggingHook logs every request to the recommendation API
type LoggingHook struct{}

func (h *LoggingHook) Name() string {
	return "logging"
}

func (h *LoggingHook) BeforeRequest(ctx context.Context, req *http.Request) error {
	slog.DebugContext(ctx, "[Hook] BeforeRequest", "url", req.URL.String(), "request_id", req.Header.Get("X-Request-ID"))
	return nil
}

func (h *LoggingHook) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response) {
	slog.DebugContext(ctx, "[Hook] AfterResponse", "url", req.URL.String(), "status", resp.StatusCode)
}

var _ hook.RequestHook = new(LoggingHook)

type ErrorHook struct{}

func (h *ErrorHook) Name() string {
	return "error"
}

func (h *ErrorHook) OnError(ctx context.Context, err error) {
	slog.ErrorContext(ctx, "[Hook] OnError", "error", err)
}

var _ hook.ErrorHook = new(ErrorHook)
