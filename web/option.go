package web

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deeplooplabs/recsys-client/render"
	"github.com/deeplooplabs/recsys-client/tracking"
)

// Option configures the Server
type Option func(*Server)

// WithTracker sets the click/impression tracker
func WithTracker(tracker tracking.Tracker) Option {
	return func(s *Server) {
		s.tracker = tracker
	}
}

// WithRenderer sets the widget renderer
func WithRenderer(renderer *render.Renderer) Option {
	return func(s *Server) {
		s.renderer = renderer
	}
}

// WithCORS enables CORS handling
func WithCORS(cors *CORSConfig) Option {
	return func(s *Server) {
		s.cors = cors
	}
}

// WithMetrics exposes the gatherer's metrics on /metrics
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithProductURL sets where a tracked click redirects to
func WithProductURL(fn func(itemID int64) string) Option {
	return func(s *Server) {
		s.productURL = fn
	}
}
