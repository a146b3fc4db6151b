package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/david/rfp-desk/internal/apperr"
	"github.com/david/rfp-desk/internal/ingest"
	"github.com/david/rfp-desk/internal/models"
)

const (
	userAgent       = "rfp-desk/1.0"
	maxResponseSize = 16 << 20
)

// Config controls how the client talks to the collaborator service.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RateLimitRPS float64
	// RetryInitialInterval is the first backoff delay; later delays grow
	// exponentially.
	RetryInitialInterval time.Duration
}

// Observer receives one call per request attempt sequence.
type Observer interface {
	ObserveRequest(endpoint string, err error, elapsed time.Duration)
}

// Client reads opportunities, the submission ledger and matched products
// from the collaborator, and posts proposal submissions.
type Client struct {
	base       *url.URL
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	initial    time.Duration
	observer   Observer
}

type Option func(*Client)

// WithHTTPClient replaces the default transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 500 * time.Millisecond
	}
	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}

	c := &Client{
		base:       base,
		http:       &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: cfg.MaxRetries,
		initial:    cfg.RetryInitialInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the collaborator root the client was built with.
func (c *Client) BaseURL() string { return c.base.String() }

// envelope is the common response shape of every collaborator endpoint.
type envelope struct {
	Success         *bool           `json:"success"`
	Error           string          `json:"error"`
	Message         string          `json:"message"`
	Data            json.RawMessage `json:"data"`
	RFP             json.RawMessage `json:"rfp"`
	MatchedProducts json.RawMessage `json:"matched_products"`
}

func (e envelope) failure() string {
	return strings.TrimSpace(firstNonEmpty(e.Error, e.Message))
}

// FetchOpportunities reads one opportunity feed.
func (c *Client) FetchOpportunities(ctx context.Context, feed Feed) ([]ingest.RawOpportunity, error) {
	if !feed.Valid() {
		return nil, apperr.Validation("fetch opportunities", fmt.Sprintf("unknown feed %q", feed))
	}
	op := "fetch " + string(feed)
	env, err := c.get(ctx, op, feed.Path())
	if err != nil {
		return nil, err
	}
	var raws []ingest.RawOpportunity
	if err := decodeField(op, "data", env.Data, &raws); err != nil {
		return nil, err
	}
	return raws, nil
}

// FetchSubmitted reads the submission ledger.
func (c *Client) FetchSubmitted(ctx context.Context) ([]models.SubmissionRecord, error) {
	const op = "fetch submitted"
	env, err := c.get(ctx, op, "/submitted")
	if err != nil {
		return nil, err
	}
	var subs []models.SubmissionRecord
	if err := decodeField(op, "data", env.Data, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// MatchResult is an opportunity together with its rank-ordered products.
type MatchResult struct {
	RFP      ingest.RawOpportunity
	Products []models.MatchedProduct
}

// FetchMatchedProducts reads the ranked catalogue matches for one
// opportunity. Rank order is kept as received.
func (c *Client) FetchMatchedProducts(ctx context.Context, rfpID string) (*MatchResult, error) {
	const op = "fetch matched products"
	rfpID = strings.TrimSpace(rfpID)
	if rfpID == "" {
		return nil, apperr.Validation(op, "missing rfp id")
	}
	env, err := c.get(ctx, op, "/rfps/"+url.PathEscape(rfpID)+"/matched-products")
	if err != nil {
		return nil, err
	}
	res := &MatchResult{}
	if err := decodeField(op, "rfp", env.RFP, &res.RFP); err != nil {
		return nil, err
	}
	if err := decodeField(op, "matched_products", env.MatchedProducts, &res.Products); err != nil {
		return nil, err
	}
	if ingest.RecordID(res.RFP) == "" {
		res.RFP.RFPID = models.Attr(rfpID)
	}
	return res, nil
}

// SubmitProposal posts a proposal. Submissions are never retried since the
// collaborator does not deduplicate them.
func (c *Client) SubmitProposal(ctx context.Context, req models.SubmissionRequest) error {
	const op = "submit proposal"
	if strings.TrimSpace(req.RFPID) == "" {
		return apperr.Validation(op, "missing rfp id")
	}
	if strings.TrimSpace(req.ProposalText) == "" {
		return apperr.Validation(op, "proposal text is empty")
	}
	if strings.TrimSpace(req.ToEmail) == "" {
		return apperr.Validation(op, "missing destination address")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return apperr.Validation(op, err.Error())
	}

	start := time.Now()
	_, err = c.do(ctx, op, http.MethodPost, "/submit-proposal", body)
	var retry *retryable
	if errors.As(err, &retry) {
		err = retry.err
	}
	c.observe("/submit-proposal", err, time.Since(start))
	if err != nil {
		return err
	}
	log.Printf("[backend] submitted proposal for %s to %s", req.RFPID, req.ToEmail)
	return nil
}

// get performs a read with rate limiting and retries on transient failures.
func (c *Client) get(ctx context.Context, op, path string) (envelope, error) {
	var env envelope
	start := time.Now()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var err error
		env, err = c.do(ctx, op, http.MethodGet, path, nil)
		if err == nil {
			return nil
		}
		var retry *retryable
		if errors.As(err, &retry) {
			log.Printf("[backend] %s attempt %d failed: %v", op, attempt, retry.err)
			return retry.err
		}
		return backoff.Permanent(err)
	}, policy)

	if err != nil && apperr.KindOf(err) == "" {
		// context ended between attempts
		err = apperr.Network(op, err)
	}
	c.observe(endpointLabel(path), err, time.Since(start))
	return env, err
}

// endpointLabel collapses per-opportunity paths so metrics stay bounded.
func endpointLabel(path string) string {
	if strings.HasPrefix(path, "/rfps/") {
		return "/rfps/:id/matched-products"
	}
	return path
}

// retryable marks a failure worth another attempt.
type retryable struct{ err error }

func (r *retryable) Error() string { return r.err.Error() }
func (r *retryable) Unwrap() error { return r.err }

func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return envelope{}, apperr.Network(op, err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return envelope{}, apperr.Network(op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		netErr := apperr.Network(op, fmt.Errorf("failed to execute request: %w", err))
		if ctx.Err() != nil {
			return envelope{}, netErr
		}
		return envelope{}, &retryable{netErr}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return envelope{}, &retryable{apperr.Network(op, fmt.Errorf("read response: %w", err))}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		if decodeErr == nil && env.failure() != "" {
			msg = env.failure()
		}
		upErr := apperr.Upstream(op, msg)
		if shouldRetry(resp.StatusCode) && method == http.MethodGet {
			return envelope{}, &retryable{upErr}
		}
		return envelope{}, upErr
	}

	if decodeErr != nil {
		return envelope{}, apperr.Malformed(op, fmt.Errorf("decode response: %w", decodeErr))
	}
	if env.Success == nil {
		return envelope{}, apperr.Malformed(op, errors.New(`response has no "success" field`))
	}
	if !*env.Success {
		return envelope{}, apperr.Upstream(op, env.failure())
	}
	return env, nil
}

// shouldRetry reports whether a status code is transient.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) observe(endpoint string, err error, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, err, elapsed)
	}
}

func decodeField(op, name string, raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return apperr.Malformed(op, fmt.Errorf("response has no %q field", name))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperr.Malformed(op, fmt.Errorf("decode %s: %w", name, err))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
