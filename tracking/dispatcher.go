package tracking

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/deeplooplabs/recsys-client/ratelimit"
)

// DefaultQueueSize is the number of events buffered before new ones are dropped
const DefaultQueueSize = 256

// Dispatcher is a Tracker that posts events to the tracking endpoints from a
// background worker, so a slow endpoint never stalls rendering
type Dispatcher struct {
	baseURL    string
	httpClient *http.Client
	limiter    ratelimit.Limiter
	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time
	queueSize  int
	workers    int

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup

	// ctx bounds in-flight sends; Close cancels it when its own ctx ends first
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures the Dispatcher
type Option func(*Dispatcher)

// WithHTTPClient sets the HTTP client used to post events
func WithHTTPClient(httpClient *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = httpClient
	}
}

// WithQueueSize sets the event buffer size
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		d.queueSize = size
	}
}

// WithWorkers sets the number of background senders (default: 1)
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		d.workers = n
	}
}

// WithLimiter sets the rate limiter; events are limited per event kind
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(d *Dispatcher) {
		d.limiter = limiter
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics enables Prometheus metrics
func WithMetrics(metrics *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// WithClock sets the time source for event timestamps
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher creates a dispatcher posting to baseURL and starts its workers
func NewDispatcher(baseURL string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    ratelimit.NewTokenBucket(ratelimit.DefaultConfig()),
		logger:     slog.Default(),
		now:        time.Now,
		queueSize:  DefaultQueueSize,
		workers:    1,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.queueSize <= 0 {
		d.queueSize = DefaultQueueSize
	}
	if d.workers <= 0 {
		d.workers = 1
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.queue = make(chan Event, d.queueSize)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}

	return d
}

// TrackClick implements Tracker
func (d *Dispatcher) TrackClick(itemID int64) {
	d.enqueue(Event{Kind: EventClick, ItemIDs: []int64{itemID}, Timestamp: d.now()})
}

// TrackImpressions implements Tracker. An empty list is ignored.
func (d *Dispatcher) TrackImpressions(itemIDs []int64) {
	if len(itemIDs) == 0 {
		return
	}
	ids := make([]int64, len(itemIDs))
	copy(ids, itemIDs)
	d.enqueue(Event{Kind: EventImpressions, ItemIDs: ids, Timestamp: d.now()})
}

// Pending returns the number of queued events
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Close stops accepting events and waits for queued ones to be sent or for
// ctx to end, whichever comes first. When ctx ends first, the send in flight
// is aborted and the remaining events are dropped.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return fmt.Errorf("tracking: close: %w", ctx.Err())
	}
}

// enqueue never blocks
func (d *Dispatcher) enqueue(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.observe(ev.Kind, OutcomeClosed)
		return
	}

	if !d.limiter.Allow(context.Background(), string(ev.Kind)) {
		d.metrics.observe(ev.Kind, OutcomeRateLimited)
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.metrics.observe(ev.Kind, OutcomeQueueFull)
		d.logger.Debug("tracking queue full, dropping event", "event", ev.Kind)
	}
}

// run drains the queue until it is closed
func (d *Dispatcher) run() {
	defer d.wg.Done()

	for ev := range d.queue {
		if d.ctx.Err() != nil {
			d.metrics.observe(ev.Kind, OutcomeClosed)
			continue
		}
		if err := d.send(d.ctx, ev); err != nil {
			d.metrics.observe(ev.Kind, OutcomeFailed)
			d.logger.Debug("tracking event not delivered", "event", ev.Kind, "error", err)
			continue
		}
		d.metrics.observe(ev.Kind, OutcomeSent)
	}
}

// send posts a single event; the response body is discarded
func (d *Dispatcher) send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev.payload())
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+ev.path(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

var _ Tracker = (*Dispatcher)(nil)
