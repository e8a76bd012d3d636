package seismic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/quake-felt-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultRetryAfter is used when a 429 carries no usable Retry-After.
	DefaultRetryAfter = 2 * time.Second

	maxBodyBytes = 32 << 20
)

var (
	// ErrNoContent is returned for HTTP 204 responses.
	ErrNoContent = errors.New("upstream returned no content")

	// ErrFetchExhausted matches every FetchExhaustedError.
	ErrFetchExhausted = errors.New("fetch retries exhausted")
)

// FetchExhaustedError is returned once the retry budget is spent.
type FetchExhaustedError struct {
	URL      string
	Attempts int
	Err      error // last failure
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s: gave up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }

func (e *FetchExhaustedError) Is(target error) bool { return target == ErrFetchExhausted }

// StatusError describes a non-success HTTP status from the provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// RetryPolicy bounds how a Fetcher retries.
type RetryPolicy struct {
	MaxRetries  int
	BackoffBase float64
}

// DefaultRetryPolicy is three attempts with base-2 exponential backoff.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BackoffBase: 2}

// Backoff returns the wait after a failed attempt (1-based): BackoffBase^attempt seconds.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(p.BackoffBase, float64(attempt)) * float64(time.Second))
}

// Budget is the worst-case time a Fetch may take under this policy: every
// backoff wait plus one full attempt timeout per attempt.
func (p RetryPolicy) Budget(attemptTimeout time.Duration) time.Duration {
	total := time.Duration(p.MaxRetries) * attemptTimeout
	for k := 1; k <= p.MaxRetries; k++ {
		total += p.Backoff(k)
	}
	return total
}

// Fetcher issues GET requests and retries rate limiting, network failures,
// and error statuses. Every failed attempt consumes one retry and blocks the
// caller for its wait before the next attempt.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	policy     RetryPolicy
	budget     time.Duration
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher with a per-attempt timeout.
func NewFetcher(userAgent string, timeout time.Duration, policy RetryPolicy, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Fetcher {
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = DefaultRetryPolicy.MaxRetries
	}
	if policy.BackoffBase <= 0 {
		policy.BackoffBase = DefaultRetryPolicy.BackoffBase
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		policy:     policy,
		budget:     policy.Budget(timeout),
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// Fetch returns the response body of the first successful attempt.
// A 204 returns ErrNoContent without retrying. When every attempt fails the
// error is a *FetchExhaustedError wrapping the last failure.
//
// The whole call is bounded by Budget: a long Retry-After cannot hold the
// caller past the policy's worst case.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, f.budget)
	defer cancel()

	body, err := f.fetch(ctx, url)
	if err != nil && parent.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		f.metrics.UpstreamExhausted.Inc()
		return nil, fmt.Errorf("upstream retry budget %s exceeded: %w", f.budget, err)
	}
	return body, err
}

// Budget returns the upper bound on a single Fetch.
func (f *Fetcher) Budget() time.Duration { return f.budget }

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxRetries; attempt++ {
		body, wait, reason, err := f.attempt(ctx, url, attempt)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrNoContent) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err

		f.metrics.UpstreamRetries.WithLabelValues(reason).Inc()
		f.logger.Warn("upstream attempt failed, backing off",
			"url", url,
			"attempt", attempt,
			"max_retries", f.policy.MaxRetries,
			"reason", reason,
			"wait", wait,
			"error", err,
		)
		if err := f.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	f.metrics.UpstreamExhausted.Inc()
	return nil, &FetchExhaustedError{URL: url, Attempts: f.policy.MaxRetries, Err: lastErr}
}

// attempt performs one GET. On failure it returns how long to wait and why.
func (f *Fetcher) attempt(ctx context.Context, url string, n int) (body []byte, wait time.Duration, reason string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	start := f.clock.Now()
	resp, err := f.httpClient.Do(req)
	f.metrics.UpstreamDuration.Observe(f.clock.Since(start).Seconds())
	if err != nil {
		f.metrics.UpstreamRequests.WithLabelValues("network_error").Inc()
		return nil, f.policy.Backoff(n), "network_error", fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		f.metrics.UpstreamRequests.WithLabelValues("rate_limited").Inc()
		wait := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, wait, "rate_limited", fmt.Errorf("upstream rate limited, retry after %s", wait)

	case resp.StatusCode == http.StatusNoContent:
		f.metrics.UpstreamRequests.WithLabelValues("no_content").Inc()
		return nil, 0, "", ErrNoContent

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		f.metrics.UpstreamRequests.WithLabelValues("http_error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, f.policy.Backoff(n), "http_error", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		f.metrics.UpstreamRequests.WithLabelValues("network_error").Inc()
		return nil, f.policy.Backoff(n), "network_error", fmt.Errorf("read upstream body: %w", err)
	}
	f.metrics.UpstreamRequests.WithLabelValues("success").Inc()
	return body, 0, "", nil
}

func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := f.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

// parseRetryAfter reads a delay in whole seconds, falling back to
// DefaultRetryAfter when the header is absent or malformed.
func parseRetryAfter(v string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return DefaultRetryAfter
	}
	return time.Duration(n) * time.Second
}
