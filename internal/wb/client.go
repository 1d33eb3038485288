// Package wb is the Wildberries seller API client: seller profile, account
// balance and token diagnostics. It owns retries, per-endpoint rate
// limiting and response normalization; credential decryption happens
// upstream, the package only ever sees plaintext API keys.
package wb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kuzkabot/sellerbot/internal/logging"
	"golang.org/x/time/rate"
)

const (
	commonAPI    = "https://common-api.wildberries.ru"
	financeAPI   = "https://finance-api.wildberries.ru"
	analyticsAPI = "https://seller-analytics-api.wildberries.ru"

	userAgent      = "KuzkaSellerBot/1.0 (+wb)"
	defaultTimeout = 20 * time.Second

	// retries apply to network errors, 5xx and 429 only
	maxRetries  = 2
	baseBackoff = 400 * time.Millisecond
	maxBackoff  = 2500 * time.Millisecond
)

// Error is the high-level error for WB API operations. Status carries the
// upstream HTTP status when one was received, 0 otherwise.
type Error struct {
	Status int
	Msg    string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("wb: %d %s", e.Status, e.Msg)
	}
	return "wb: " + e.Msg
}

// ErrUnauthorized is returned on 401 responses: the stored API key is wrong
// or lacks permissions.
var ErrUnauthorized = errors.New("wb: unauthorized (check API key and scopes)")

// ErrRateLimited is returned when the local per-endpoint limiter rejects a
// call before it reaches WB. Cached values should be used instead.
var ErrRateLimited = errors.New("wb: local rate limit exceeded")

// Client talks to the WB seller APIs. Safe for concurrent use.
type Client struct {
	httpc  *http.Client
	logger logging.Logger

	// WB publishes roughly one request per minute per endpoint, counted
	// per API key; one limiter per endpoint+key keeps us inside that
	// without one seller's burst locking the others out.
	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	// overridable in tests
	commonBase    string
	financeBase   string
	analyticsBase string
}

func NewClient(logger logging.Logger) *Client {
	return &Client{
		httpc:         &http.Client{Timeout: defaultTimeout},
		logger:        logger.With("module", "wb_client"),
		limiters:      make(map[string]*rate.Limiter),
		commonBase:    commonAPI,
		financeBase:   financeAPI,
		analyticsBase: analyticsAPI,
	}
}

func (c *Client) limiter(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute), 5)
		c.limiters[key] = l
	}
	return l
}

// request performs one WB API call with auth headers, retry on transient
// failures, JSON decoding and {"data": ...} envelope unwrapping. The result
// is decoded into out (a pointer), which may be nil to discard the body.
func (c *Client) request(ctx context.Context, method, url, token string, body any, out any) error {

	if !c.limiter(method + " " + url + " " + hashToken(token)).Allow() {
		return ErrRateLimited
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
	}

	var lastErr error
	delay := time.Duration(0)

	for attempt := 0; attempt <= maxRetries; attempt++ {

		if attempt > 0 {
			if delay == 0 {
				delay = backoff(attempt)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", token) // WB wants the bare key, no Bearer
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr, delay = err, 0
			c.logger.Warn(ctx, "wb request failed", "url", url, "attempt", attempt, "error", err)
			continue
		}

		var done bool
		done, delay, err = c.handleResponse(resp, out)
		if done {
			return err
		}
		lastErr = err
		c.logger.Warn(ctx, "wb request will be retried", "url", url, "attempt", attempt, "error", err)
	}

	var werr *Error
	if errors.As(lastErr, &werr) {
		return lastErr
	}
	return &Error{Msg: fmt.Sprintf("network error: %v", lastErr)}
}

// handleResponse consumes resp. done=false means the attempt may be
// retried, with delay overriding the default backoff when non-zero.
func (c *Client) handleResponse(resp *http.Response, out any) (done bool, delay time.Duration, err error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, 0, &Error{Msg: fmt.Sprintf("reading body: %v", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return true, 0, ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		d, _ := retryAfter(resp.Header)
		if d > maxBackoff {
			d = maxBackoff
		}
		return false, d, &Error{Status: resp.StatusCode, Msg: "too many requests, retry later"}
	case resp.StatusCode >= 500:
		return false, 0, &Error{Status: resp.StatusCode, Msg: shorten(string(raw), 800)}
	case resp.StatusCode >= 400:
		return true, 0, &Error{Status: resp.StatusCode, Msg: shorten(string(raw), 800)}
	}

	if out == nil {
		return true, 0, nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	// WB often wraps the payload in {"data": {...}}; unwrap when present
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 && envelope.Data[0] == '{' {
		raw = envelope.Data
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return true, 0, &Error{Msg: fmt.Sprintf("bad JSON from WB: %v; payload: %s", err, shorten(string(raw), 500))}
	}
	return true, 0, nil
}

func backoff(attempt int) time.Duration {
	d := baseBackoff * time.Duration(1<<(attempt-1))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// retryAfter parses a Retry-After header value in seconds.
func retryAfter(h http.Header) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
