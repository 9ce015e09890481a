package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recsys "github.com/deeplooplabs/recsys-client"
	"github.com/deeplooplabs/recsys-client/client"
)

// fakeRecommender records calls and returns canned items
type fakeRecommender struct {
	items []recsys.Item

	mu       sync.Mutex
	userID   int64
	itemID   int64
	count    int
	exclude  []int64
	category string
}

func (f *fakeRecommender) UserRecommendations(ctx context.Context, userID int64, count int, exclude []int64) []recsys.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userID, f.count, f.exclude = userID, count, exclude
	return f.items
}

func (f *fakeRecommender) SimilarItems(ctx context.Context, itemID int64, count int) []recsys.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemID, f.count = itemID, count
	return f.items
}

func (f *fakeRecommender) PopularItems(ctx context.Context, count int, category string) []recsys.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count, f.category = count, category
	return f.items
}

// recordingTracker captures tracking calls
type recordingTracker struct {
	mu          sync.Mutex
	clicks      []int64
	impressions [][]int64
}

func (r *recordingTracker) TrackClick(itemID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks = append(r.clicks, itemID)
}

func (r *recordingTracker) TrackImpressions(itemIDs []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.impressions = append(r.impressions, itemIDs)
}

var sampleItems = []recsys.Item{
	{ItemID: 42, Name: "Widget", Category: "Tools", Price: 9.99},
	{ItemID: 7, Name: "Gadget", Category: "Tools", Price: 19.5},
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestServer_UserWidget(t *testing.T) {
	rec := &fakeRecommender{items: sampleItems}
	tracker := &recordingTracker{}
	s := New(rec, WithTracker(tracker))

	w := serve(s, http.MethodGet, "/widgets/user/1?n=5&exclude=9,%203,,4")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `id="user-recommendations"`)
	assert.Contains(t, w.Body.String(), "Widget")

	assert.Equal(t, int64(1), rec.userID)
	assert.Equal(t, 5, rec.count)
	assert.Equal(t, []int64{9, 3, 4}, rec.exclude)

	require.Len(t, tracker.impressions, 1)
	assert.Equal(t, []int64{42, 7}, tracker.impressions[0])
}

func TestServer_SimilarWidget(t *testing.T) {
	rec := &fakeRecommender{items: sampleItems}
	s := New(rec)

	w := serve(s, http.MethodGet, "/widgets/similar/42?container=also-viewed")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="also-viewed"`)
	assert.Equal(t, int64(42), rec.itemID)
	assert.Equal(t, 0, rec.count)
}

func TestServer_PopularWidget(t *testing.T) {
	rec := &fakeRecommender{items: sampleItems}
	s := New(rec)

	w := serve(s, http.MethodGet, "/widgets/popular?n=3&category=Tools")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="popular-items"`)
	assert.Equal(t, 3, rec.count)
	assert.Equal(t, "Tools", rec.category)
}

func TestServer_EmptyWidget(t *testing.T) {
	rec := &fakeRecommender{items: []recsys.Item{}}
	tracker := &recordingTracker{}
	s := New(rec, WithTracker(tracker))

	w := serve(s, http.MethodGet, "/widgets/popular")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No recommendations available")
	assert.Empty(t, tracker.impressions)
}

func TestServer_Click(t *testing.T) {
	tracker := &recordingTracker{}
	s := New(&fakeRecommender{}, WithTracker(tracker), WithProductURL(func(id int64) string {
		return "https://shop.example.com/p/42"
	}))

	w := serve(s, http.MethodGet, "/widgets/click/42")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://shop.example.com/p/42", w.Header().Get("Location"))
	assert.Equal(t, []int64{42}, tracker.clicks)
}

func TestServer_BadRequests(t *testing.T) {
	s := New(&fakeRecommender{})

	for _, target := range []string{
		"/widgets/user/abc",
		"/widgets/user/1?n=-1",
		"/widgets/user/1?n=ten",
		"/widgets/user/1?exclude=1,x",
		"/widgets/click/abc",
	} {
		t.Run(target, func(t *testing.T) {
			w := serve(s, http.MethodGet, target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid_request_error")
		})
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(&fakeRecommender{})

	w := serve(s, http.MethodGet, "/invalid/path")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestServer_Health(t *testing.T) {
	s := New(&fakeRecommender{})

	w := serve(s, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

// reportingRecommender is a fakeRecommender that also reports API health
type reportingRecommender struct {
	fakeRecommender
	report client.HealthReport
}

func (r *reportingRecommender) HealthReport() client.HealthReport {
	return r.report
}

func TestServer_HealthReport(t *testing.T) {
	s := New(&reportingRecommender{report: client.HealthReport{
		Status:           client.StatusDegraded,
		TotalRequests:    10,
		TotalErrors:      2,
		ErrorRatePercent: 20,
	}})

	w := serve(s, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), `"total_errors":2`)
	assert.Contains(t, w.Body.String(), `"error_rate_percent":20`)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "widget_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	s := New(&fakeRecommender{}, WithMetrics(reg))
	w := serve(s, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "widget_test_total 1"))

	// Without a gatherer /metrics is not served
	w = serve(New(&fakeRecommender{}), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_CORS(t *testing.T) {
	s := New(&fakeRecommender{items: sampleItems}, WithCORS(&CORSConfig{
		AllowedOrigins: []string{"https://shop.example.com"},
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"*"},
	}))

	req := httptest.NewRequest(http.MethodOptions, "/widgets/popular", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Headers", "X-Session")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "X-Session", w.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/widgets/popular", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
