// Package services provides the Wayfarer service layer: provider clients,
// the session store, the itinerary resolver and the trip orchestrator.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wayfarer/internal/logger"
)

// HTTPRequestService is the shared HTTP transport for provider clients
// (planner, directions, transcription).
type HTTPRequestService struct {
	initialized bool
	timeout     time.Duration
	client      *http.Client
}

// HTTPRequest represents an outgoing provider request.
type HTTPRequest struct {
	Method  string
	URL     string
	Query   url.Values
	Headers map[string]string
	Body    []byte
}

// HTTPResponse represents a provider response with the body fully read.
type HTTPResponse struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
}

// OK reports a 2xx status.
func (r *HTTPResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NewHTTPRequestService creates a new HTTPRequestService instance with default timeout of 30 seconds.
func NewHTTPRequestService() *HTTPRequestService {
	return &HTTPRequestService{
		timeout: 30 * time.Second,
	}
}

// Name returns the service name "http_request" for registration.
func (h *HTTPRequestService) Name() string {
	return "http_request"
}

// Initialize sets up the HTTPRequestService for operation.
func (h *HTTPRequestService) Initialize() error {
	h.client = &http.Client{
		Timeout: h.timeout,
	}
	h.initialized = true
	logger.Debug("HTTPRequestService initialized", "timeout", h.timeout.String())
	return nil
}

// SetTimeout configures the request timeout.
func (h *HTTPRequestService) SetTimeout(timeout time.Duration) {
	oldTimeout := h.timeout
	h.timeout = timeout
	if h.client != nil {
		h.client.Timeout = timeout
	}
	logger.Debug("HTTP request timeout updated", "old_timeout", oldTimeout.String(), "new_timeout", timeout.String())
}

// SendRequest sends an HTTP request and returns the response. Non-2xx
// statuses are returned as responses, not errors.
func (h *HTTPRequestService) SendRequest(ctx context.Context, request HTTPRequest) (*HTTPResponse, error) {
	if !h.initialized {
		logger.Error("HTTP request attempted on uninitialized service")
		return nil, fmt.Errorf("http request service not initialized")
	}
	if request.URL == "" {
		logger.Error("HTTP request attempted with empty URL")
		return nil, fmt.Errorf("URL is required")
	}

	method := strings.ToUpper(request.Method)
	if method == "" {
		method = http.MethodGet
	}

	target := request.URL
	if len(request.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + request.Query.Encode()
	}

	var bodyReader io.Reader
	if len(request.Body) > 0 {
		bodyReader = bytes.NewReader(request.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		logger.Error("Failed to create HTTP request", "error", err, "method", method, "url", request.URL)
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for key, value := range request.Headers {
		httpReq.Header.Set(key, value)
	}

	// Query strings carry API keys, so only the base URL is logged.
	logger.Debug("Starting HTTP request", "method", method, "url", request.URL, "body_length", len(request.Body))

	resp, err := h.client.Do(httpReq)
	if err != nil {
		logger.Error("Failed to execute HTTP request", "error", err, "method", method, "url", request.URL)
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("Failed to read response body", "error", err, "url", request.URL, "status_code", resp.StatusCode)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	logger.Debug("HTTP request completed", "method", method, "url", request.URL,
		"status_code", resp.StatusCode, "body_length", len(bodyBytes))

	return &HTTPResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    headers,
		Body:       bodyBytes,
	}, nil
}

// Get performs a GET request with query parameters.
func (h *HTTPRequestService) Get(ctx context.Context, url string, query url.Values, headers map[string]string) (*HTTPResponse, error) {
	return h.SendRequest(ctx, HTTPRequest{
		Method:  http.MethodGet,
		URL:     url,
		Query:   query,
		Headers: headers,
	})
}

// PostJSON marshals payload and POSTs it with a JSON content type.
func (h *HTTPRequestService) PostJSON(ctx context.Context, url string, payload any, headers map[string]string) (*HTTPResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	merged := map[string]string{"Content-Type": "application/json"}
	for key, value := range headers {
		merged[key] = value
	}
	return h.SendRequest(ctx, HTTPRequest{
		Method:  http.MethodPost,
		URL:     url,
		Headers: merged,
		Body:    body,
	})
}
