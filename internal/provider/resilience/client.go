package resilience

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without calling the provider while its breaker
// is open or saturated in half-open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Client defaults.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 100 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
)

// ClientConfig configures a Client. Zero durations and retry counts take
// the package defaults.
type ClientConfig struct {
	Name            string // breaker, log and registry name
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// CircuitBreaker overrides DefaultCircuitBreakerConfig(Name).
	CircuitBreaker *CircuitBreakerConfig

	// Registry, when set, learns about the client and each call outcome.
	Registry *Registry

	Logger    zerolog.Logger
	Transport http.RoundTripper // nil means http.DefaultTransport
}

// DefaultClientConfig returns the configuration used for the trail source.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         DefaultTimeout,
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		CircuitBreaker:  &cb,
		Logger:          zerolog.Nop(),
	}
}

// Client sends HTTP requests through a circuit breaker, retrying network
// errors, 429 and 5xx answers with exponential backoff.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewClient builds a client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	cfg.Timeout = orDuration(cfg.Timeout, DefaultTimeout)
	cfg.InitialInterval = orDuration(cfg.InitialInterval, DefaultInitialInterval)
	cfg.MaxInterval = orDuration(cfg.MaxInterval, DefaultMaxInterval)
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	cb := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cb = *cfg.CircuitBreaker
	}
	if cb.OnStateChange == nil {
		log := cfg.Logger
		cb.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).Stringer("from", from).Stringer("to", to).
				Msg("circuit breaker state changed")
		}
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		breaker: NewCircuitBreaker[*http.Response](cb), //nolint:bodyclose // type param, not response
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}
	return c
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Do sends req under the request's context. Once retries run out on a
// retryable status, the last response is returned with a nil error so the
// caller can inspect it. An open breaker yields ErrCircuitOpen.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.retry(req.Context(), req)
	if c.cfg.Registry != nil {
		outcome := err
		if outcome == nil && resp.StatusCode >= http.StatusInternalServerError {
			outcome = &ServerError{StatusCode: resp.StatusCode}
		}
		c.cfg.Registry.Observe(c.cfg.Name, outcome)
	}
	return resp, err
}

func (c *Client) retry(ctx context.Context, req *http.Request) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var last *http.Response
	err := backoff.Retry(func() error {
		if last != nil {
			drain(last)
			last = nil
		}
		attempt, err := replay(ctx, req)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to the caller
			return c.send(attempt)
		})
		last = resp
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, policy)

	if err == nil {
		return last, nil
	}
	if last != nil {
		if ctx.Err() == nil && !errors.Is(err, ErrCircuitOpen) {
			return last, nil
		}
		drain(last)
	}
	return nil, err
}

// send performs one attempt, classifying retryable statuses as errors for
// the breaker while still handing back the response.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return resp, &ServerError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return resp, &ThrottledError{RetryAfter: resp.Header.Get("Retry-After")}
	}
	return resp, nil
}

// replay clones req for another attempt, rewinding its body.
func replay(ctx context.Context, req *http.Request) (*http.Request, error) {
	attempt := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return attempt, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	attempt.Body = body
	return attempt, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// ServerError is a 5xx answer from the provider.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// ThrottledError is a 429 from the provider. It is retried but does not
// count against the circuit breaker.
type ThrottledError struct {
	RetryAfter string
}

func (e *ThrottledError) Error() string {
	if e.RetryAfter != "" {
		return "provider throttled, retry after " + e.RetryAfter
	}
	return "provider throttled"
}

// Name returns the configured provider name.
func (c *Client) Name() string { return c.cfg.Name }

// CircuitBreakerState returns the breaker's current state.
func (c *Client) CircuitBreakerState() gobreaker.State { return c.breaker.State() }

// CircuitBreakerCounts returns the breaker's current counts.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts { return c.breaker.Counts() }
