// Package web serves rendered recommendation widgets to the storefront.
//
// Widget routes call the recommendation client, render the result and record
// impressions; the click route records the click and redirects to the product.
// Recommendation failures surface only as the empty placeholder.
package web

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	recsys "github.com/deeplooplabs/recsys-client"
	"github.com/deeplooplabs/recsys-client/client"
	"github.com/deeplooplabs/recsys-client/render"
	"github.com/deeplooplabs/recsys-client/tracking"
)

// Recommender is the query surface of the recommendation client
type Recommender interface {
	UserRecommendations(ctx context.Context, userID int64, count int, exclude []int64) []recsys.Item
	SimilarItems(ctx context.Context, itemID int64, count int) []recsys.Item
	PopularItems(ctx context.Context, count int, category string) []recsys.Item
}

// HealthReporter is implemented by recommenders that keep track of how their
// API calls went; /health then serves the report
type HealthReporter interface {
	HealthReport() client.HealthReport
}

// Default container IDs for each widget
const (
	UserContainer    = "user-recommendations"
	SimilarContainer = "similar-items"
	PopularContainer = "popular-items"
)

// Server is the widget HTTP handler
type Server struct {
	recommender Recommender
	tracker     tracking.Tracker
	renderer    *render.Renderer
	mux         *http.ServeMux
	cors        *CORSConfig
	gatherer    prometheus.Gatherer
	logger      *slog.Logger
	productURL  func(itemID int64) string
}

// New creates a widget server backed by recommender
func New(recommender Recommender, opts ...Option) *Server {
	s := &Server{
		recommender: recommender,
		tracker:     tracking.NoopTracker{},
		renderer:    render.New(),
		mux:         http.NewServeMux(),
		logger:      slog.Default(),
		productURL:  defaultProductURL,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	return s
}

func defaultProductURL(itemID int64) string {
	return "/products/" + strconv.FormatInt(itemID, 10)
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /widgets/user/{id}", s.handleUser)
	s.mux.HandleFunc("GET /widgets/similar/{id}", s.handleSimilar)
	s.mux.HandleFunc("GET /widgets/popular", s.handlePopular)
	s.mux.HandleFunc("GET /widgets/click/{id}", s.handleClick)

	s.mux.HandleFunc("GET /health", s.handleHealth)

	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.mux.HandleFunc("/", s.handleNotFound)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cors != nil && s.applyCORS(w, r) {
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	count, ok := s.queryCount(w, r)
	if !ok {
		return
	}
	exclude, err := parseIDs(r.URL.Query().Get("exclude"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "exclude must be a comma-separated list of item ids")
		return
	}

	items := s.recommender.UserRecommendations(r.Context(), userID, count, exclude)
	s.writeWidget(w, r, UserContainer, items)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	itemID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	count, ok := s.queryCount(w, r)
	if !ok {
		return
	}

	items := s.recommender.SimilarItems(r.Context(), itemID, count)
	s.writeWidget(w, r, SimilarContainer, items)
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	count, ok := s.queryCount(w, r)
	if !ok {
		return
	}

	items := s.recommender.PopularItems(r.Context(), count, r.URL.Query().Get("category"))
	s.writeWidget(w, r, PopularContainer, items)
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	itemID, ok := s.pathID(w, r)
	if !ok {
		return
	}

	s.tracker.TrackClick(itemID)
	http.Redirect(w, r, s.productURL(itemID), http.StatusFound)
}

// writeWidget renders items and records them as impressions
func (s *Server) writeWidget(w http.ResponseWriter, r *http.Request, container string, items []recsys.Item) {
	if c := r.URL.Query().Get("container"); c != "" {
		container = c
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, container, items); err != nil {
		s.logger.Error("render failed", "container", container, "error", err)
		s.writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	if len(items) > 0 {
		s.tracker.TrackImpressions(recsys.IDs(items))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}

// queryCount parses n; a missing n yields 0, which the client treats as the default
func (s *Server) queryCount(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		s.writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// parseIDs parses a comma-separated id list, keeping order and skipping blanks
func parseIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	errType := "invalid_request_error"
	if status >= http.StatusInternalServerError {
		errType = "server_error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorDetail{Message: message, Type: errType}})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// Degraded is reported in the body only; the status stays 200
	if hr, ok := s.recommender.(HealthReporter); ok {
		json.NewEncoder(w).Encode(hr.HealthReport())
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "Not found")
}
