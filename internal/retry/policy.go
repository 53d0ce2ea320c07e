// Package retry reruns failing operation commands with a backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/hierbuild/internal/config"
	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/logfields"
	"git.home.luguber.info/inful/hierbuild/internal/observability"
)

// Policy encapsulates retry/backoff settings for failing commands.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // maximum retry attempts after the first failure
}

// DefaultPolicy returns linear backoff, 1s initial, 30s cap, 2 retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from raw fields; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	default:
		// unknown -> keep default
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromSpec builds the policy declared on a manifest operation.
func FromSpec(spec *config.RetrySpec) Policy {
	if spec == nil {
		return NewPolicy("", 0, 0, 0)
	}
	mode, _ := config.ParseRetryBackoff(string(spec.Backoff))
	return NewPolicy(mode, spec.Initial, spec.Max, spec.Attempts)
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Do calls fn until it succeeds, fails permanently or the retries are used up.
// The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	for attempt := 1; err != nil && attempt <= p.MaxRetries && Retryable(err); attempt++ {
		delay := p.Delay(attempt)
		observability.WarnContext(ctx, "Retrying after failure",
			logfields.Error(err),
			logfields.Attempt(attempt),
			logfields.DurationMS(float64(delay.Milliseconds())))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		err = fn(ctx)
	}
	return err
}

// Wrap returns an action running fn under the policy.
func (p Policy) Wrap(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error { return p.Do(ctx, fn) }
}

// Retryable reports whether err may succeed when repeated. Cancellation and
// errors needing user intervention never are.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch ferrors.GetCategory(err) {
	case ferrors.CategoryCanceled, ferrors.CategoryNotFound, ferrors.CategoryConfig, ferrors.CategoryValidation:
		return false
	}
	if ce, ok := ferrors.AsClassified(err); ok && ce.RetryStrategy() == ferrors.RetryUserAction {
		return false
	}
	return true
}
