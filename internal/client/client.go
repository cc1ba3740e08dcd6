// Package client is the authenticated JSON-over-HTTP executor behind every
// Redirectly API call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/binSaed/flutter-redirectly/internal/build"
	"github.com/binSaed/flutter-redirectly/internal/metrics"
)

const (
	// ConnectTimeout bounds dialing the API host.
	ConnectTimeout = 10 * time.Second

	// ReadTimeout bounds waiting for the response after the request is sent.
	ReadTimeout = 10 * time.Second
)

// Config is the session configuration. It is never mutated once stored;
// Initialize replaces it as a whole.
type Config struct {
	APIKey       string
	BaseURL      string
	DebugLogging bool
}

// Client executes API requests. It is safe for concurrent use.
type Client struct {
	cfg  atomic.Pointer[Config]
	http *http.Client
	log  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its timeouts and
// transport are used as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns an unconfigured Client. Requests fail with ErrNotConfigured
// until Initialize succeeds.
func New(opts ...Option) *Client {
	c := &Client{
		http: newHTTPClient(),
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(newTransport()),
		Timeout:   ConnectTimeout + ReadTimeout,
	}
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: ConnectTimeout, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   ConnectTimeout,
		ResponseHeaderTimeout: ReadTimeout,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
	}
}

// Initialize validates cfg and makes it the active configuration.
func (c *Client) Initialize(cfg Config) error {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.APIKey == "" || cfg.BaseURL == "" {
		return ErrInvalidConfig
	}
	c.cfg.Store(&cfg)
	if cfg.DebugLogging {
		c.log.Debug().Str("base_url", cfg.BaseURL).Msg("redirectly client initialized")
	}
	return nil
}

// Config returns the active configuration and whether one is set.
func (c *Client) Config() (Config, bool) {
	cfg := c.cfg.Load()
	if cfg == nil {
		return Config{}, false
	}
	return *cfg, true
}

// Request sends one request to BaseURL+path and decodes the JSON response.
// body is serialized for POST and PUT only. The result is nil for an empty
// body, []map[string]any for a JSON array and map[string]any otherwise.
// There are no retries.
func (c *Client) Request(ctx context.Context, method, path string, body map[string]any) (any, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	cfg := c.cfg.Load()
	if cfg == nil {
		metrics.ClientRequestsTotal.WithLabelValues(method, metrics.OutcomeNotConfigured).Inc()
		return nil, ErrNotConfigured
	}

	var reader io.Reader
	if body != nil && (method == http.MethodPost || method == http.MethodPut) {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.BaseURL+path, reader)
	if err != nil {
		metrics.ClientRequestsTotal.WithLabelValues(method, metrics.OutcomeRequestError).Inc()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", build.UserAgent())

	start := time.Now()
	result, outcome, err := c.do(req)
	metrics.ClientRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	metrics.ClientRequestsTotal.WithLabelValues(method, outcome).Inc()

	if cfg.DebugLogging {
		ev := c.log.Debug().Str("method", method).Str("path", path).Str("outcome", outcome).Dur("elapsed", time.Since(start))
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("redirectly api request")
	}
	return result, err
}

func (c *Client) do(req *http.Request) (any, string, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportOutcome(err), transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportOutcome(err), transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, metrics.OutcomeAPIError, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	result, err := decodeBody(respBody)
	if err != nil {
		return nil, metrics.OutcomeParseError, err
	}
	return result, metrics.OutcomeSuccess, nil
}

func transportError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func transportOutcome(err error) string {
	if isTimeout(err) {
		return metrics.OutcomeTimeout
	}
	return metrics.OutcomeNetworkError
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
