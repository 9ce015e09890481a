package client

import (
	"net"
	"net/http"
	"time"
)

// Config holds the HTTP transport settings used to reach the recommendation API
type Config struct {
	// Timeout is the total request timeout (default: 10s)
	Timeout time.Duration

	// ConnectTimeout is the connection timeout (default: 3s)
	ConnectTimeout time.Duration

	// ReadTimeout is the time to wait for response headers (default: 5s)
	ReadTimeout time.Duration

	// ConnectionPool settings
	MaxIdleConns        int           // Maximum idle connections (default: 100)
	MaxConnsPerHost     int           // Maximum connections per host (default: 10)
	IdleConnTimeout     time.Duration // Idle connection timeout (default: 90s)
	MaxIdleConnsPerHost int           // Maximum idle connections per host (default: 10)
}

// DefaultConfig returns a default transport configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:             10 * time.Second,
		ConnectTimeout:      3 * time.Second,
		ReadTimeout:         5 * time.Second,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 10,
	}
}

// WithTimeout sets the timeout
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithConnectTimeout sets the connection timeout
func (c *Config) WithConnectTimeout(timeout time.Duration) *Config {
	c.ConnectTimeout = timeout
	return c
}

// WithReadTimeout sets the read timeout
func (c *Config) WithReadTimeout(timeout time.Duration) *Config {
	c.ReadTimeout = timeout
	return c
}

// WithConnectionPool sets the connection pool parameters
func (c *Config) WithConnectionPool(maxIdleConns, maxConnsPerHost, maxIdleConnsPerHost int, idleConnTimeout time.Duration) *Config {
	c.MaxIdleConns = maxIdleConns
	c.MaxConnsPerHost = maxConnsPerHost
	c.MaxIdleConnsPerHost = maxIdleConnsPerHost
	c.IdleConnTimeout = idleConnTimeout
	return c
}

// GetHTTPClient builds an HTTP client from the configuration
func (c *Config) GetHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          c.MaxIdleConns,
		MaxConnsPerHost:       c.MaxConnsPerHost,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		IdleConnTimeout:       c.IdleConnTimeout,
		ResponseHeaderTimeout: c.ReadTimeout,
	}

	if c.ConnectTimeout > 0 {
		transport.DialContext = (&net.Dialer{
			Timeout:   c.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
	}

	return &http.Client{
		Timeout:   c.Timeout,
		Transport: transport,
	}
}
