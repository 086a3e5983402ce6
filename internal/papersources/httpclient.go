package papersources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/observability"
)

const maxResponseBodySize = 10 << 20

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Timeout bounds each upstream call.
	Timeout time.Duration

	// RateLimit is the sustained ceiling in requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed by the ceiling.
	BurstSize int

	// CacheTTL is how long successful responses are cached.
	CacheTTL time.Duration

	// UserAgent is sent with every request. It should carry a contact
	// address as upstream etiquette requires.
	UserAgent string

	// Limiter configures the reactive limiter.
	Limiter LimiterConfig
}

func (c *HTTPClientConfig) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RateLimit == 0 {
		c.RateLimit = 10
	}
	if c.BurstSize == 0 {
		c.BurstSize = 10
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 30 * 24 * time.Hour
	}
	if c.UserAgent == "" {
		c.UserAgent = "papernet/1.1 (https://github.com/camrobjones/papernet)"
	}
	c.Limiter.applyDefaults()
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithLedger sets the call ledger.
func WithLedger(l CallLedger) Option {
	return func(c *HTTPClient) { c.ledger = l }
}

// WithCache sets the response cache.
func WithCache(rc ResponseCache) Option {
	return func(c *HTTPClient) { c.cache = rc }
}

// WithAlertHook sets the slow call alert hook.
func WithAlertHook(h AlertHook) Option {
	return func(c *HTTPClient) { c.alert = h }
}

// WithMetrics enables metric recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

// HTTPClient performs cached, ledgered GET requests against upstream APIs.
// Retries are left to the caller; a failed call is still recorded so the
// limiter sees it. It is safe for concurrent use.
type HTTPClient struct {
	client   *http.Client
	ceiling  *RateLimiter
	limiter  *ReactiveLimiter
	ledger   CallLedger
	cache    ResponseCache
	alert    AlertHook
	metrics  *observability.Metrics
	logger   zerolog.Logger
	config   HTTPClientConfig
	now      func() time.Time
	callLock sync.Mutex
}

// NewHTTPClient creates a client. Without WithLedger and WithCache an
// in-memory store backs both.
func NewHTTPClient(cfg HTTPClientConfig, opts ...Option) *HTTPClient {
	cfg.applyDefaults()

	c := &HTTPClient{
		client:  &http.Client{},
		ceiling: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		logger:  zerolog.Nop(),
		config:  cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ledger == nil || c.cache == nil {
		store := NewMemoryStore(0)
		if c.ledger == nil {
			c.ledger = store
		}
		if c.cache == nil {
			c.cache = store
		}
	}
	c.logger = c.logger.With().Str("component", "papersources_http").Logger()
	c.limiter = NewReactiveLimiter(cfg.Limiter, c.alert, c.logger)
	return c
}

// Fetch issues a GET for rawURL with params. A cache hit returns without
// touching the network unless opts.Force is set. Non-2xx responses are
// returned as-is and never cached; use CheckStatus to turn them into errors.
func (c *HTTPClient) Fetch(ctx context.Context, rawURL string, params url.Values, opts FetchOptions) (*Response, error) {
	key := CacheKey(rawURL, params)

	if !opts.Force {
		body, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			c.logger.Warn().Err(err).Str("key", key).Msg("response cache lookup failed")
		case ok:
			c.recordCacheLookup(true)
			return &Response{StatusCode: http.StatusOK, Body: body, Cached: true}, nil
		default:
			c.recordCacheLookup(false)
		}
	}

	var resp *Response
	err := c.serialize(ctx, func(ctx context.Context) error {
		r, callErr := c.call(ctx, rawURL, params, opts)
		resp = r
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if resp.OK() {
		if err := c.cache.Set(ctx, key, resp.Body, c.config.CacheTTL); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("response cache store failed")
		}
	}
	return resp, nil
}

// GetJSON fetches rawURL and decodes a successful body into dst. Error
// statuses are mapped by CheckStatus using source as the upstream name.
func (c *HTTPClient) GetJSON(ctx context.Context, source, rawURL string, params url.Values, opts FetchOptions, dst any) error {
	resp, err := c.Fetch(ctx, rawURL, params, opts)
	if err != nil {
		return err
	}
	if err := CheckStatus(source, rawURL, resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, dst); err != nil {
		return domain.NewExternalAPIError(source, resp.StatusCode, "failed to decode response", err)
	}
	return nil
}

// serialize runs fn so that no two calls interleave their
// read-wait-call-record sections. The in-process lock is always taken;
// ledgers implementing Serializer extend the guard across processes.
func (c *HTTPClient) serialize(ctx context.Context, fn func(ctx context.Context) error) error {
	c.callLock.Lock()
	defer c.callLock.Unlock()

	if s, ok := c.ledger.(Serializer); ok {
		return s.Serialize(ctx, fn)
	}
	return fn(ctx)
}

func (c *HTTPClient) call(ctx context.Context, rawURL string, params url.Values, opts FetchOptions) (*Response, error) {
	var wait time.Duration
	if !opts.NoWait {
		last, err := c.ledger.LastCall(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("reading last call failed, not throttling")
		}
		wait, err = c.limiter.Wait(ctx, last)
		if err != nil {
			return nil, fmt.Errorf("reactive limiter wait: %w", err)
		}
		if wait > 0 && c.metrics != nil {
			c.metrics.RecordLimiterWait(wait)
		}
		if err := c.ceiling.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	target := rawURL
	if len(params) > 0 {
		target = rawURL + "?" + params.Encode()
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	entry := &domain.RequestLog{
		URL:       rawURL,
		Params:    flattenParams(params),
		UserAgent: c.config.UserAgent,
		StartTime: c.now(),
		Wait:      wait,
	}

	resp, doErr := c.client.Do(req)
	var body []byte
	if doErr == nil {
		body, doErr = io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		resp.Body.Close()
		entry.StatusCode = resp.StatusCode
	}
	entry.EndTime = c.now()
	entry.Elapsed = entry.EndTime.Sub(entry.StartTime)

	c.record(ctx, entry)

	if doErr != nil {
		if c.metrics != nil {
			c.metrics.RecordUpstreamFailure(req.URL.Host, failureReason(doErr))
		}
		if errors.Is(doErr, context.Canceled) && ctx.Err() != nil {
			return nil, doErr
		}
		return nil, fmt.Errorf("request %s: %w", rawURL, doErr)
	}

	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(req.URL.Host, resp.StatusCode, entry.Elapsed)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (c *HTTPClient) record(ctx context.Context, entry *domain.RequestLog) {
	if entry.Elapsed > c.config.Limiter.MinWait {
		c.logger.Warn().
			Str("url", entry.URL).
			Dur("elapsed", entry.Elapsed).
			Int("status", entry.StatusCode).
			Msg("slow upstream request")
	}

	// The ledger write must survive a cancelled caller, otherwise the
	// limiter would not see the call.
	if err := c.ledger.RecordCall(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Error().Err(err).Str("url", entry.URL).Msg("failed to record request")
	}
}

func (c *HTTPClient) recordCacheLookup(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(hit)
	}
}

// CheckStatus maps an error status to a domain error: 404 becomes
// NotFoundError, 429 becomes RateLimitError honouring Retry-After, anything
// else outside 2xx becomes ExternalAPIError.
func CheckStatus(source, rawURL string, resp *Response) error {
	switch {
	case resp.OK():
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError(source+" resource", rawURL)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewRateLimitError(source, retryAfter(resp.Header))
	default:
		msg := string(resp.Body)
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return domain.NewExternalAPIError(source, resp.StatusCode, msg, nil)
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h http.Header) time.Duration {
	const fallback = time.Second

	value := h.Get("Retry-After")
	if value == "" {
		return fallback
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return fallback
	}
	if t, err := http.ParseTime(value); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return fallback
}

func flattenParams(params url.Values) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "transport"
	}
}
