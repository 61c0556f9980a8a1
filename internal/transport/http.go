package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	appLog "eventfeed/internal/log"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "eventfeed/0.1"

	// errorBodyLimit bounds how much of a non-2xx body is kept for errors.
	errorBodyLimit = 512
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

// DecodeError is returned when a 2xx response body is not the expected JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// HTTP implements the pipeline transport over net/http.
type HTTP struct {
	client    *http.Client
	userAgent string
}

type Option func(*HTTP)

// WithClient replaces the underlying client (TLS, proxies, pooling).
func WithClient(c *http.Client) Option {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(h *HTTP) {
		if ua != "" {
			h.userAgent = ua
		}
	}
}

// WithTimeout bounds each request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// NewHTTP creates a transport with its own client and DefaultTimeout.
func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// PostJSON POSTs body as JSON to url and decodes the JSON response into dst.
func (h *HTTP) PostJSON(ctx context.Context, url string, body any, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		return &DecodeError{Err: err}
	}
	return nil
}

// Get retrieves url and returns the whole body.
func (h *HTTP) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// do sends req and turns non-2xx responses into a StatusError. On success
// the caller owns resp.Body.
func (h *HTTP) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", h.userAgent)

	started := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		appLog.Debug("http request failed", "method", req.Method, "url", appLog.RedactURL(req.URL.String()), "err", err)
		return nil, err
	}

	appLog.Debug("http request done",
		"method", req.Method,
		"url", appLog.RedactURL(req.URL.String()),
		"status", resp.StatusCode,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   string(bytes.TrimSpace(snippet)),
		}
	}
	return resp, nil
}
