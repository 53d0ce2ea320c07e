package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"git.home.luguber.info/inful/hierbuild/internal/config"
	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Mode != config.RetryBackoffLinear {
		t.Fatalf("expected linear default mode got %s", p.Mode)
	}
	if p.Initial != time.Second || p.Max != 30*time.Second || p.MaxRetries != 2 {
		t.Fatalf("unexpected defaults %+v", p)
	}
}

// TestNewPolicyOverrides checks override precedence and clamping when initial > max.
func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	if p.Initial != 2*time.Second {
		t.Fatalf("expected clamped initial 2s got %v", p.Initial)
	}
	if p.Mode != config.RetryBackoffFixed || p.MaxRetries != 5 {
		t.Fatalf("unexpected policy %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	cases := []struct {
		mode config.RetryBackoffMode
		want []time.Duration
	}{
		{config.RetryBackoffFixed, []time.Duration{100 * ms, 100 * ms, 100 * ms, 100 * ms}},
		{config.RetryBackoffLinear, []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
		{config.RetryBackoffExponential, []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
	}
	for _, c := range cases {
		p := NewPolicy(c.mode, 100*ms, 250*ms, 5)
		for i, want := range c.want {
			if got := p.Delay(i + 1); got != want {
				t.Fatalf("%s attempt %d expected %v got %v", c.mode, i+1, want, got)
			}
		}
		if p.Delay(0) != 0 {
			t.Fatalf("%s: attempt 0 must not delay", c.mode)
		}
	}
}

func TestFromSpec(t *testing.T) {
	p := FromSpec(&config.RetrySpec{Attempts: 3, Backoff: config.RetryBackoffExponential, Initial: time.Millisecond})
	if p.MaxRetries != 3 || p.Mode != config.RetryBackoffExponential || p.Initial != time.Millisecond {
		t.Fatalf("unexpected policy %+v", p)
	}
	if p := FromSpec(&config.RetrySpec{Backoff: " Fixed "}); p.Mode != config.RetryBackoffFixed {
		t.Fatalf("expected normalized fixed mode got %s", p.Mode)
	}
	if p := FromSpec(nil); p.MaxRetries != 0 {
		t.Fatalf("nil spec must not retry, got %d retries", p.MaxRetries)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return ferrors.OperationError("flaky").Build()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls got %d", calls)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	calls := 0
	boom := errors.New("boom")
	err := p.Wrap(func(context.Context) error { calls++; return boom })(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 1 call plus 2 retries, got %d", calls)
	}
}

func TestDoSkipsPermanentFailures(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 5)
	calls := 0
	_ = p.Do(context.Background(), func(context.Context) error {
		calls++
		return ferrors.NotFoundError("program not found").Build()
	})
	if calls != 1 {
		t.Fatalf("not found must not be retried, got %d calls", calls)
	}
}

func TestDoStopsOnCancellation(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(context.Context) error { calls++; return errors.New("transient") })
	}()
	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error after cancellation")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), true},
		{"operation", ferrors.OperationError("exit 1").Build(), true},
		{"canceled", context.Canceled, false},
		{"config", ferrors.ConfigError("bad").Build(), false},
		{"user action", ferrors.NewError(ferrors.CategoryRuntime, "fix me").UserAction().Build(), false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Errorf("%s: expected %v got %v", c.name, c.want, got)
		}
	}
}
