package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      false,
	}
}

func TestExecuteSucceedsFirstAttempt(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "test", func(context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "test", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestExecuteExhaustsRetries(t *testing.T) {
	exec := NewExecutor(fastConfig())

	wantErr := errors.New("persistent")
	calls := 0
	err := exec.Execute(context.Background(), "test", func(context.Context) error {
		calls++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("Expected persistent error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	exec := NewExecutor(fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := exec.Execute(ctx, "test", func(context.Context) error {
		calls++
		return nil
	})

	if err == nil {
		t.Error("Expected error for cancelled context")
	}
	if calls != 0 {
		t.Errorf("Expected 0 calls after cancellation, got %d", calls)
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg)

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		exec.Execute(context.Background(), "flaky", func(context.Context) error {
			return boom
		})
	}

	err := exec.Execute(context.Background(), "flaky", func(context.Context) error {
		t.Error("Callback should not run while breaker is open")
		return nil
	})

	if !IsCircuitOpen(err) {
		t.Errorf("Expected open-circuit error, got %v", err)
	}
}

func TestBreakersAreScopedPerOperation(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg)

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		exec.Execute(context.Background(), "flaky", func(context.Context) error {
			return boom
		})
	}

	// A different operation still executes
	err := exec.Execute(context.Background(), "healthy", func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Errorf("Expected healthy operation to run, got %v", err)
	}
}
