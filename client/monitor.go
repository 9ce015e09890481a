package client

import (
	"sync"
	"time"
)

// Health report states
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// DegradedErrorRate is the API error rate, in percent, at which the client
// reports itself degraded
const DegradedErrorRate = 1.0

// HealthReport is the client's own view of the API since it was created
type HealthReport struct {
	Status           string    `json:"status"`
	UptimeSeconds    float64   `json:"uptime_seconds"`
	TotalRequests    int64     `json:"total_requests"`
	TotalErrors      int64     `json:"total_errors"`
	ErrorRatePercent float64   `json:"error_rate_percent"`
	LastRequest      time.Time `json:"last_request"`
}

// monitor counts API call outcomes
type monitor struct {
	mu       sync.Mutex
	start    time.Time
	requests int64
	errors   int64
	last     time.Time
}

func newMonitor(start time.Time) *monitor {
	return &monitor{start: start}
}

func (m *monitor) record(now time.Time, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	if !success {
		m.errors++
	}
	m.last = now
}

func (m *monitor) report(now time.Time) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rate float64
	if m.requests > 0 {
		rate = float64(m.errors) / float64(m.requests) * 100
	}

	status := StatusHealthy
	if rate >= DegradedErrorRate {
		status = StatusDegraded
	}

	return HealthReport{
		Status:           status,
		UptimeSeconds:    now.Sub(m.start).Seconds(),
		TotalRequests:    m.requests,
		TotalErrors:      m.errors,
		ErrorRatePercent: rate,
		LastRequest:      m.last,
	}
}
