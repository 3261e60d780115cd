package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsFirst(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsRetries(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	calls := 0
	retryErr := errors.New("always fail")

	err := Retry(context.Background(), cfg, func() error {
		calls++
		return retryErr
	})

	if !errors.Is(err, retryErr) {
		t.Errorf("Retry() = %v, want %v", err, retryErr)
	}
	if calls != 3 { // initial + 2 retries
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryNonRetryable(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:  3,
		BaseDelay:   time.Millisecond,
		IsRetryable: func(error) bool { return false },
	}
	calls := 0

	err := Retry(context.Background(), cfg, func() error {
		calls++
		return errors.New("fatal")
	})

	if err == nil {
		t.Error("Retry() should return the error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries for non-retryable)", calls)
	}
}

func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, DefaultRetryConfig(), func() error {
		t.Error("fn should not run after cancellation")
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
}

func TestIsRetryableSQLite(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("database table is locked"), true},
		{errors.New("sqlite3: busy"), true},
		{errors.New("UNIQUE constraint failed"), false},
	}

	for _, tt := range tests {
		if got := IsRetryableSQLite(tt.err); got != tt.want {
			t.Errorf("IsRetryableSQLite(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
