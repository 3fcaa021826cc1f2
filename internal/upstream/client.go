// Package upstream reads trip-execution records from the external
// scheduling API. It is the only component that talks to the outside,
// and the only one with a retry policy.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frotaviva/trip-compliance/internal/core/model"
	"github.com/frotaviva/trip-compliance/internal/core/observability"
)

// Terminal failure kinds, surfaced after retries are exhausted. The
// router maps them to 504 and 502 respectively.
var (
	ErrUpstreamTimeout = errors.New("scheduling api timed out")
	ErrUpstreamFailure = errors.New("scheduling api request failed")
)

// RetryPolicy is the named resilience policy around Fetch: bounded
// attempts with full-jitter exponential backoff between them.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// backoff returns the sleep before attempt n (0-based): a uniform draw
// from [0, min(MaxDelay, BaseDelay*2^n)].
func (p RetryPolicy) backoff(attempt int) time.Duration {
	ceil := p.BaseDelay << uint(attempt)
	if ceil <= 0 || ceil > p.MaxDelay {
		ceil = p.MaxDelay
	}
	if ceil <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(ceil)))
}

type Client struct {
	base   *url.URL
	http   *http.Client
	retry  RetryPolicy
	logger *slog.Logger
}

func NewClient(baseURL string, hc *http.Client, retry RetryPolicy, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse scheduler api url: %w", err)
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{base: u, http: hc, retry: retry, logger: logger}, nil
}

// Fetch retrieves the raw records for q. It returns the full result or
// an error; never partial data. The last attempt's failure decides the
// error kind.
func (c *Client) Fetch(ctx context.Context, q model.ImportQuery) ([]model.TripRecord, error) {
	u := *c.base
	u.RawQuery = buildQuery(q).Encode()

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			observability.IncUpstreamRetry()
			c.logger.Warn("upstream retry", "attempt", attempt+1, "err", lastErr)
			select {
			case <-time.After(c.retry.backoff(attempt - 1)):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrUpstreamTimeout, ctx.Err())
			}
		}

		records, err := c.fetchOnce(ctx, u.String())
		if err == nil {
			return records, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	if isTimeout(lastErr) {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamTimeout, lastErr)
	}
	return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) ([]model.TripRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.ObserveUpstream(err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("scheduling api get: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("close response body", "err", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("scheduling api status=%d body=%q", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var records []model.TripRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode scheduling api response: %w", err)
	}
	return records, nil
}

// only the non-empty optional fields are sent; absent is absent, not ""
func buildQuery(q model.ImportQuery) url.Values {
	v := url.Values{}
	v.Set("data", q.Date)
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("idservico", q.ServiceID)
	set("idempresa", q.CompanyID)
	set("linha", q.Line)
	set("prefixoPrevisto", q.ScheduledPrefix)
	set("prefixoRealizado", q.OperatedPrefix)
	set("statusInicio", q.StatusStart)
	set("statusFim", q.StatusEnd)
	return v
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	// http.Client surfaces its own deadline as a url.Error with a
	// "Client.Timeout" text and Timeout()==true, caught above.
	return false
}
