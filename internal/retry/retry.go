// Package retry runs an operation with capped exponential backoff. Client
// errors (HTTP 4xx) stop immediately; everything else is retried until the
// attempt budget is spent, and the last error is returned.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/IsaacDSC/eeudesk/pkg/ctxlogger"
	"github.com/cenkalti/backoff/v5"
)

type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries     int
	BaseDelay      time.Duration
	Multiplier     float64
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		Multiplier:     2,
		MaxDelay:       10 * time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

// Delay returns the wait before retry n (0-indexed): min(Base*Multiplier^n, MaxDelay).
func (p Policy) Delay(n int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < n; i++ {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// RetryFunc observes a failed attempt (1-based) before waiting delay.
type RetryFunc func(attempt int, err error, delay time.Duration)

type Controller struct {
	policy  Policy
	onRetry RetryFunc
}

type Option func(*Controller)

func WithOnRetry(fn RetryFunc) Option {
	return func(c *Controller) {
		c.onRetry = fn
	}
}

func New(p Policy, opts ...Option) *Controller {
	def := DefaultPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = def.AttemptTimeout
	}

	c := &Controller{policy: p}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Policy() Policy {
	return c.policy
}

// Do calls fn until it succeeds, fails permanently or the retry budget runs
// out. Every attempt gets its own context bounded by AttemptTimeout.
func (c *Controller) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.policy.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          c.policy.Multiplier,
		MaxInterval:         c.policy.MaxDelay,
	}

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++

		actx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
		defer cancel()

		err := fn(actx)
		if err == nil {
			return struct{}{}, nil
		}

		if !Retryable(ctx, err) {
			return struct{}{}, backoff.Permanent(err)
		}

		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.policy.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			ctxlogger.GetLogger(ctx).Warn("Attempt failed, retrying",
				"attempt", attempt,
				"max_attempts", c.policy.MaxRetries+1,
				"delay", delay,
				"error", err,
			)
			if c.onRetry != nil {
				c.onRetry(attempt, err, delay)
			}
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Unwrap()
	}

	return err
}

// statusCoder is implemented by errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// permanentError is implemented by errors that a new attempt cannot fix.
type permanentError interface {
	Permanent() bool
}

// Retryable reports whether err is worth another attempt. ctx is the
// caller's context: once it is done nothing is retried.
func Retryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if ctx.Err() != nil {
		return false
	}

	var p permanentError
	if errors.As(err, &p) && p.Permanent() {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		code := sc.HTTPStatus()
		return code < 400 || code >= 500
	}

	// network failures, per-attempt timeouts and malformed bodies
	return true
}
