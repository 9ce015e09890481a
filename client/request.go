package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	recsys "github.com/deeplooplabs/recsys-client"
)

// maxErrorBody caps how much of a non-2xx body is kept for diagnostics
const maxErrorBody = 512

var (
	jsonNull     = []byte("null")
	errNullItems = errors.New("null item list")
)

// newRequest builds a request with the default headers, the configured
// overrides and the request ID
func (c *Client) newRequest(ctx context.Context, rc *recsys.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set(recsys.RequestIDHeader, rc.RequestID)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// do sends a request to endpoint, running request hooks around it
func (c *Client) do(ctx context.Context, rc *recsys.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := c.newRequest(ctx, rc, method, endpoint, body)
	if err != nil {
		return nil, err
	}

	if err := c.hooks.BeforeRequest(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	c.hooks.AfterResponse(ctx, req, resp)

	return resp, nil
}

// fetchField issues the request and returns the raw JSON of field, which is
// guaranteed to decode as a list of items
func (c *Client) fetchField(ctx context.Context, rc *recsys.Context, endpoint, field string) ([]byte, error) {
	raw, err := c.fetchEnvelopeField(ctx, rc, http.MethodGet, endpoint, nil, field)
	if err == nil {
		if _, err = decodeItems(raw); err != nil {
			err = recsys.NewShapeError(rc.Operation, fmt.Sprintf("field %q is not a list of items", field), err)
		}
	}
	c.observe(ctx, rc, err)

	if err != nil {
		return nil, err
	}
	return raw, nil
}

// batchRequest is the body of a batch recommendation request
type batchRequest struct {
	UserIDs []int64 `json:"user_ids"`
	N       int     `json:"n"`
}

// fetchBatch posts a batch request and returns the raw JSON of its results
// object, which is guaranteed to map user IDs to JSON values
func (c *Client) fetchBatch(ctx context.Context, rc *recsys.Context, userIDs []int64, count int) ([]byte, error) {
	body, err := json.Marshal(batchRequest{UserIDs: userIDs, N: count})
	if err != nil {
		return nil, recsys.NewTransportError(rc.Operation, fmt.Errorf("marshal request: %w", err))
	}

	raw, err := c.fetchEnvelopeField(ctx, rc, http.MethodPost, "/api/v1/batch_recommendations", bytes.NewReader(body), fieldResults)
	if err == nil {
		if _, err = decodeBatchResults(raw); err != nil {
			err = recsys.NewShapeError(rc.Operation, fmt.Sprintf("field %q is not a map of user IDs", fieldResults), err)
		}
	}
	c.observe(ctx, rc, err)

	if err != nil {
		return nil, err
	}
	return raw, nil
}

// fetchEnvelopeField sends the request and returns the raw JSON of field from
// the response object
func (c *Client) fetchEnvelopeField(ctx context.Context, rc *recsys.Context, method, endpoint string, body io.Reader, field string) ([]byte, error) {
	resp, err := c.do(ctx, rc, method, endpoint, body)
	if err != nil {
		return nil, recsys.NewTransportError(rc.Operation, err)
	}
	defer resp.Body.Close()

	rc.Set("status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, recsys.NewStatusError(rc.Operation, resp.StatusCode, string(body))
	}

	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, recsys.NewShapeError(rc.Operation, "decode response", err)
	}

	raw, ok := envelope[field]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil, recsys.NewShapeError(rc.Operation, fmt.Sprintf("missing field %q", field), nil)
	}

	return raw, nil
}

// observe records the outcome of one API call. Calls cut short by the
// caller's context are left out of the health report.
func (c *Client) observe(ctx context.Context, rc *recsys.Context, err error) {
	outcome := "success"
	if err != nil {
		outcome = recsys.KindOf(err).String()
	}
	c.metrics.observeRequest(rc.Operation, outcome, rc.Elapsed())

	if err != nil && ctx.Err() != nil {
		return
	}
	c.monitor.record(c.now(), err == nil)
}

// decodeBatchResults decodes a results object keyed by decimal user ID
func decodeBatchResults(raw []byte) (map[int64]json.RawMessage, error) {
	var byKey map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, err
	}

	byUser := make(map[int64]json.RawMessage, len(byKey))
	for k, v := range byKey {
		userID, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("user ID %q: %w", k, err)
		}
		byUser[userID] = v
	}
	return byUser, nil
}

// decodeItems decodes a JSON array of items into a fresh slice
func decodeItems(raw []byte) ([]recsys.Item, error) {
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil, errNullItems
	}
	var items []recsys.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []recsys.Item{}
	}
	return items, nil
}

// HealthStatus is the body of the API's health endpoint
type HealthStatus struct {
	Status    string `json:"status"`
	ModelType string `json:"model_type"`
	Timestamp string `json:"timestamp"`
}

// Health calls the API's health endpoint. Unlike the query operations it
// reports failures to the caller; it bypasses the cache and the circuit breaker.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	rc := recsys.NewContext("health", "")

	resp, err := c.do(ctx, rc, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, recsys.NewTransportError(rc.Operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, recsys.NewStatusError(rc.Operation, resp.StatusCode, string(body))
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, recsys.NewShapeError(rc.Operation, "decode response", err)
	}

	return &status, nil
}
