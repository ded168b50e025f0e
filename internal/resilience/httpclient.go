// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package resilience

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/metrics"
)

// maxErrorBody bounds how much of an error response is read for the message.
const maxErrorBody = 4096

// maxRetryDelay caps a single backoff or Retry-After wait.
const maxRetryDelay = 120 * time.Second

var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// safeMethods are always retried. POST and PUT are retried only when the
// request context is marked with MarkIdempotent.
var safeMethods = map[string]bool{
	http.MethodHead:    true,
	http.MethodGet:     true,
	http.MethodOptions: true,
}

type idempotentKey struct{}

// MarkIdempotent flags requests sent with ctx as safe to replay even when
// their method is POST or PUT. Use it for reads and logins carried over POST.
func MarkIdempotent(ctx context.Context) context.Context {
	return context.WithValue(ctx, idempotentKey{}, true)
}

func isMarkedIdempotent(ctx context.Context) bool {
	v, _ := ctx.Value(idempotentKey{}).(bool)
	return v
}

func retryableRequest(req *http.Request) bool {
	if safeMethods[req.Method] {
		return true
	}
	switch req.Method {
	case http.MethodPost, http.MethodPut:
		return isMarkedIdempotent(req.Context())
	}
	return false
}

// HTTPClientOptions configures a RobustClient.
type HTTPClientOptions struct {
	MaxRetries          int
	BackoffFactor       time.Duration
	Timeout             time.Duration
	RateLimit           float64 // requests per second, 0 disables
	RateBurst           int
	MaxIdleConnsPerHost int
	UserAgent           string

	// Sleep waits between attempts. Nil uses SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultHTTPClientOptions returns 3 retries, 300ms backoff and a 30s timeout.
func DefaultHTTPClientOptions() HTTPClientOptions {
	return HTTPClientOptions{
		MaxRetries:          3,
		BackoffFactor:       300 * time.Millisecond,
		Timeout:             30 * time.Second,
		RateBurst:           10,
		MaxIdleConnsPerHost: 10,
		UserAgent:           "LMS-Backend/1.0",
	}
}

// RobustClient is a pooled HTTP client that retries transient failures and
// maps every failure onto the lmserr taxonomy.
type RobustClient struct {
	client  *http.Client
	opts    HTTPClientOptions
	limiter *rate.Limiter
}

// NewRobustClient creates a client with its own pooled transport.
func NewRobustClient(opts HTTPClientOptions) *RobustClient {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultHTTPClientOptions().Timeout
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = DefaultHTTPClientOptions().MaxIdleConnsPerHost
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	c := &RobustClient{
		client: &http.Client{Transport: transport},
		opts:   opts,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// WithTimeout returns a client sharing this client's pool and limiter but
// using a different per-request timeout.
func (c *RobustClient) WithTimeout(d time.Duration) *RobustClient {
	cp := *c
	cp.opts.Timeout = d
	return &cp
}

// Timeout returns the per-request timeout.
func (c *RobustClient) Timeout() time.Duration { return c.opts.Timeout }

// Do sends req. Safe methods and requests marked with MarkIdempotent are
// retried on transient failures; other writes are sent once. Responses with status >= 400 are converted to *lmserr.Error
// after retries are exhausted; a returned response always has status < 400
// and the caller must close its body.
func (c *RobustClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	host := req.URL.Host
	op := req.Method + " " + req.URL.Path

	if c.opts.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
	maxRetries := c.opts.MaxRetries
	if !retryableRequest(req) || !replayable {
		maxRetries = 0
	}
	backoff := RetryPolicy{BackoffFactor: c.opts.BackoffFactor, MaxDelay: maxRetryDelay, Exponential: true}

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, lmserr.FromTransport(err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		attemptReq := req.Clone(attemptCtx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				cancel()
				return nil, lmserr.Wrap(lmserr.KindRequest, "replay request body", err)
			}
			attemptReq.Body = body
		}

		resp, err := c.client.Do(attemptReq)
		if err != nil {
			cancel()
			metrics.RecordHTTPClientRequest(host, req.Method, 0)
			lerr := lmserr.FromTransport(err)
			lerr.Op = op
			retryable := lerr.Kind == lmserr.KindTimeout || lerr.Kind == lmserr.KindConnection
			if !retryable || ctx.Err() != nil || attempt >= maxRetries {
				return nil, lerr
			}
			metrics.HTTPClientRetries.WithLabelValues(host, lerr.Kind.String()).Inc()
			if err := c.wait(ctx, op, attempt, backoff.Delay(attempt), lerr); err != nil {
				return nil, lmserr.FromTransport(err)
			}
			continue
		}

		metrics.RecordHTTPClientRequest(host, req.Method, resp.StatusCode)

		if resp.StatusCode < 400 {
			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		cancel()

		lerr := lmserr.FromStatus(resp.StatusCode, body, resp.Header)
		lerr.Op = op
		if !retryStatuses[resp.StatusCode] || attempt >= maxRetries {
			return nil, lerr
		}

		delay := backoff.Delay(attempt)
		if lerr.RetryAfter > delay {
			delay = min(lerr.RetryAfter, maxRetryDelay)
		}
		metrics.HTTPClientRetries.WithLabelValues(host, fmt.Sprintf("status_%d", resp.StatusCode)).Inc()
		if err := c.wait(ctx, op, attempt, delay, lerr); err != nil {
			return nil, lmserr.FromTransport(err)
		}
	}
}

func (c *RobustClient) wait(ctx context.Context, op string, attempt int, delay time.Duration, cause error) error {
	logging.Ctx(ctx).Warn().Err(cause).
		Str("operation", op).
		Int("attempt", attempt+1).
		Int("max_retries", c.opts.MaxRetries).
		Dur("delay", delay).
		Msg("Retrying HTTP request")

	if c.opts.Sleep != nil {
		return c.opts.Sleep(ctx, delay)
	}
	return SleepContext(ctx, delay)
}

// DoJSON sends req and decodes a JSON response into out. A nil out discards the body.
func (c *RobustClient) DoJSON(req *http.Request, out any) error {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return lmserr.Wrap(lmserr.KindIntegration, "invalid JSON response from "+req.URL.Host, err)
	}
	return nil
}

// GetJSON issues a GET and decodes the JSON response.
func (c *RobustClient) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return lmserr.Wrap(lmserr.KindRequest, "create request", err)
	}
	copyHeader(req.Header, header)
	return c.DoJSON(req, out)
}

// SendJSON issues a request with a JSON body and decodes the JSON response.
func (c *RobustClient) SendJSON(ctx context.Context, method, rawURL string, header http.Header, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return lmserr.Wrap(lmserr.KindRequest, "marshal request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(data))
	if err != nil {
		return lmserr.Wrap(lmserr.KindRequest, "create request", err)
	}
	copyHeader(req.Header, header)
	req.Header.Set("Content-Type", "application/json")
	return c.DoJSON(req, out)
}

// PostForm issues a form-encoded POST and decodes the JSON response.
func (c *RobustClient) PostForm(ctx context.Context, rawURL string, header http.Header, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return lmserr.Wrap(lmserr.KindRequest, "create request", err)
	}
	copyHeader(req.Header, header)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.DoJSON(req, out)
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// cancelOnClose releases the per-request timeout when the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
