package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	recsys "github.com/deeplooplabs/recsys-client"
)

// MockAPI is an in-process stand-in for the recommendation API and the
// tracking endpoints. It serves a small catalog and records every request.
type MockAPI struct {
	mu sync.Mutex

	catalog []recsys.Item

	// Error simulation
	failStatus int
	dropField  bool

	requests []string
	tracked  []TrackedEvent
}

// TrackedEvent is a tracking post received by the mock
type TrackedEvent struct {
	Path string
	Body map[string]any
}

// NewMockAPI creates a mock API with a default catalog
func NewMockAPI() *MockAPI {
	rating := 4.5
	return &MockAPI{
		catalog: []recsys.Item{
			{ItemID: 42, Name: "Widget", Category: "Tools", Price: 9.99},
			{ItemID: 7, Name: "Gadget", Category: "Tools", Price: 19.5, Rating: &rating, ImageURL: "https://cdn.example.com/7.png"},
			{ItemID: 3, Name: "Lamp", Category: "Home", Price: 24},
			{ItemID: 5, Name: "Rug", Category: "Home", Price: 80},
		},
	}
}

// SetCatalog replaces the served items
func (m *MockAPI) SetCatalog(items []recsys.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = items
}

// SetError makes every recommendation request fail with status (0 clears it)
func (m *MockAPI) SetError(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus = status
}

// SetDropField makes responses omit the expected list field
func (m *MockAPI) SetDropField(drop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropField = drop
}

// Requests returns the recommendation requests received, as "path?query"
func (m *MockAPI) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// Tracked returns the tracking posts received
func (m *MockAPI) Tracked() []TrackedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TrackedEvent(nil), m.tracked...)
}

// ServeHTTP implements http.Handler
func (m *MockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/track/") {
		m.handleTrack(w, r)
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, r.URL.RequestURI())
	failStatus, dropField := m.failStatus, m.dropField
	m.mu.Unlock()

	if failStatus != 0 {
		writeJSON(w, failStatus, map[string]any{"error": "simulated failure"})
		return
	}

	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	if n <= 0 {
		n = 10
	}

	path := r.URL.Path
	switch {
	case path == "/health":
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "healthy",
			"model_type": "collaborative",
			"timestamp":  time.Now().Format(time.RFC3339),
		})

	case strings.HasPrefix(path, "/api/v1/recommendations/user/"):
		userID, err := strconv.ParseInt(strings.TrimPrefix(path, "/api/v1/recommendations/user/"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		items := m.pick(n, "", parseExclude(r.URL.Query().Get("exclude")))
		m.writeList(w, dropField, "recommendations", items, map[string]any{"user_id": userID})

	case strings.HasPrefix(path, "/api/v1/recommendations/similar/"):
		itemID, err := strconv.ParseInt(strings.TrimPrefix(path, "/api/v1/recommendations/similar/"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		items := m.pick(n, "", map[int64]bool{itemID: true})
		m.writeList(w, dropField, "similar_items", items, map[string]any{"item_id": itemID})

	case path == "/api/v1/batch_recommendations" && r.Method == http.MethodPost:
		var req struct {
			UserIDs []int64 `json:"user_ids"`
			N       int     `json:"n"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		if req.N <= 0 {
			req.N = 10
		}
		results := make(map[string][]recsys.Item, len(req.UserIDs))
		for _, userID := range req.UserIDs {
			results[strconv.FormatInt(userID, 10)] = m.pick(req.N, "", nil)
		}
		body := map[string]any{
			"count":     len(results),
			"timestamp": time.Now().Format(time.RFC3339),
		}
		if !dropField {
			body["results"] = results
		}
		writeJSON(w, http.StatusOK, body)

	case path == "/api/v1/recommendations/popular":
		category := r.URL.Query().Get("category")
		items := m.pick(n, category, nil)
		extra := map[string]any{"type": "popular", "category": nil}
		if category != "" {
			extra["category"] = category
		}
		m.writeList(w, dropField, "recommendations", items, extra)

	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	}
}

// pick returns up to n catalog items in catalog order
func (m *MockAPI) pick(n int, category string, exclude map[int64]bool) []recsys.Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]recsys.Item, 0, n)
	for _, item := range m.catalog {
		if len(items) == n {
			break
		}
		if exclude[item.ItemID] || (category != "" && item.Category != category) {
			continue
		}
		items = append(items, item)
	}
	return items
}

func (m *MockAPI) writeList(w http.ResponseWriter, dropField bool, field string, items []recsys.Item, extra map[string]any) {
	body := map[string]any{
		"count":     len(items),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	for k, v := range extra {
		body[k] = v
	}
	if !dropField {
		body[field] = items
	}
	writeJSON(w, http.StatusOK, body)
}

func (m *MockAPI) handleTrack(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	m.mu.Lock()
	m.tracked = append(m.tracked, TrackedEvent{Path: r.URL.Path, Body: body})
	m.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func parseExclude(raw string) map[int64]bool {
	exclude := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			exclude[id] = true
		}
	}
	return exclude
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		panic(fmt.Sprintf("mock api: encode: %v", err))
	}
}
