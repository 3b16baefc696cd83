// Package httpclient performs single logical fetches with timeout, retry and
// a typed error taxonomy. Every stage that talks to the network goes through it.
package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/metrics"
)

// HTTPError is a non-2xx response. 4xx variants are never retried.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d fetching %s", e.StatusCode, e.URL)
}

// NetworkError is a transport-level failure (DNS, connection refused, timeout).
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Response is the outcome of a successful logical fetch.
type Response struct {
	StatusCode int
	Body       []byte
	FinalURL   string
	// Redirected is set when the final request host differs from the
	// requested one, which discovery uses to trigger canonical-host probing.
	Redirected bool
}

// Config holds HTTP client configuration.
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string

	// RetryWait is the base backoff delay. Defaults to 1s, doubling per
	// attempt up to RetryMaxWait. Tests shrink it.
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// Client wraps a resty client with a fixed retry policy: 4xx fails
// immediately, 429/5xx and transport errors retry with exponential backoff.
type Client struct {
	rc     *resty.Client
	logger *zap.Logger
}

// New creates a configured Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	if cfg.RetryMaxWait <= 0 {
		cfg.RetryMaxWait = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "sitemap-qa/1.0"
	}

	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := r.StatusCode()
			return code == 429 || code >= 500
		})

	return &Client{rc: rc, logger: logger}
}

// Fetch performs one logical GET against url. Retries are internal; the
// caller observes either a Response or one error from the taxonomy.
func (c *Client) Fetch(ctx context.Context, url string) (*Response, error) {
	start := time.Now()
	resp, err := c.rc.R().SetContext(ctx).Get(url)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FetchesTotal.WithLabelValues("network_error").Inc()
		c.logger.Debug("fetch failed", zap.String("url", url), zap.Error(err))
		return nil, &NetworkError{URL: url, Err: err}
	}

	code := resp.StatusCode()
	if code < 200 || code > 299 {
		metrics.FetchesTotal.WithLabelValues("http_error").Inc()
		return nil, &HTTPError{URL: url, StatusCode: code}
	}

	finalURL := url
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	metrics.FetchesTotal.WithLabelValues("ok").Inc()
	return &Response{
		StatusCode: code,
		Body:       resp.Body(),
		FinalURL:   finalURL,
		Redirected: hostOf(finalURL) != hostOf(url),
	}, nil
}

func hostOf(rawURL string) string {
	rest := rawURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(rest)
}
