package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; the probe only ever talks to one host
const (
	defaultMaxIdleConns    = 2
	defaultMaxConnsPerHost = 2
	defaultIdleConnTimeout = 60 * time.Second
)

// HTTP checks a store through an HTTP health endpoint (for example a
// document store's REST ping, or a sidecar exposing /health).
//
// Each Check issues one request and hands the response to the configured
// [Classifier]. Timeouts are applied by the caller's context.
type HTTP struct {
	url        string
	method     string
	headers    map[string]string
	classify   Classifier
	httpClient *http.Client
}

// HTTPOption configures an [HTTP] probe.
type HTTPOption func(*HTTP)

// WithMethod sets the request method. Defaults to GET.
func WithMethod(method string) HTTPOption {
	return func(h *HTTP) {
		if method != "" {
			h.method = method
		}
	}
}

// WithHeaders sets request headers sent on every check.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(h *HTTP) {
		h.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			h.headers[k] = v
		}
	}
}

// WithClassifier sets how responses are judged. Defaults to [StatusCodeClassifier].
func WithClassifier(c Classifier) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.classify = c
		}
	}
}

// NewHTTP creates an [HTTP] probe for url.
func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		url:      url,
		method:   http.MethodGet,
		classify: StatusCodeClassifier,
		httpClient: &http.Client{
			// no default timeout - the monitor bounds each check via context
			Transport: &http.Transport{
				MaxIdleConns:    defaultMaxIdleConns,
				MaxConnsPerHost: defaultMaxConnsPerHost,
				IdleConnTimeout: defaultIdleConnTimeout,
			},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Check performs one request and classifies the response.
// Response bodies are limited to 1MB.
func (h *HTTP) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, h.method, h.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range h.headers {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	return h.classify(body, resp.StatusCode)
}

// Close closes idle connections. The probe remains usable afterwards.
func (h *HTTP) Close() error {
	if transport, ok := h.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}
