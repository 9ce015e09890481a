package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CORSConfig controls cross-origin access to the widget endpoints
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig allows any origin to fetch widgets
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         12 * time.Hour,
	}
}

// applyCORS sets CORS headers and reports whether the request was a
// preflight that has been fully answered
func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if !s.isOriginAllowed(origin) {
		return false
	}

	if s.cors.AllowedOrigins[0] == "*" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}

	if r.Method == http.MethodOptions {
		s.handlePreflight(w, r)
		w.WriteHeader(http.StatusNoContent)
		return true
	}

	if s.cors.AllowCredentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}

	if len(s.cors.ExposedHeaders) > 0 {
		w.Header().Set("Access-Control-Expose-Headers", strings.Join(s.cors.ExposedHeaders, ", "))
	}

	return false
}

// isOriginAllowed checks if the origin is allowed
func (s *Server) isOriginAllowed(origin string) bool {
	for _, allowed := range s.cors.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// handlePreflight handles OPTIONS preflight requests
func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	if len(s.cors.AllowedMethods) > 0 {
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(s.cors.AllowedMethods, ", "))
	} else if method := r.Header.Get("Access-Control-Request-Method"); method != "" {
		w.Header().Set("Access-Control-Allow-Methods", method)
	}

	if len(s.cors.AllowedHeaders) > 0 {
		if s.cors.AllowedHeaders[0] == "*" {
			// Echo back the requested headers
			if headers := r.Header.Get("Access-Control-Request-Headers"); headers != "" {
				w.Header().Set("Access-Control-Allow-Headers", headers)
			}
		} else {
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(s.cors.AllowedHeaders, ", "))
		}
	}

	if s.cors.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%.0f", s.cors.MaxAge.Seconds()))
	}

	if s.cors.AllowCredentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
}
