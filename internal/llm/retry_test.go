package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recordingSleeper(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestPolicyBackoffSchedule(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	policy := Policy{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(3 * time.Second),
		Retryable:   func(error) bool { return true },
		Sleep:       recordingSleeper(&delays),
	}

	calls := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return &APIError{StatusCode: StatusOverloaded, Retryable: true}
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{3 * time.Second, 6 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestPolicySucceedsMidway(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	policy := Policy{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(3 * time.Second),
		Retryable:   IsRetryable,
		Sleep:       recordingSleeper(&delays),
	}

	calls := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return &APIError{StatusCode: StatusUnavailable, Retryable: true}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(delays) != 1 || delays[0] != 3*time.Second {
		t.Errorf("delays = %v, want one 3s delay", delays)
	}
}

func TestPolicyStopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	policy := Policy{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(3 * time.Second),
		Retryable:   IsRetryable,
		Sleep:       recordingSleeper(&delays),
	}

	authErr := &APIError{StatusCode: 401, Message: "bad key"}
	calls := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return authErr
	})
	if !errors.Is(err, authErr) {
		t.Fatalf("err = %v, want the auth error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries on auth failure)", calls)
	}
	if len(delays) != 0 {
		t.Errorf("delays = %v, want none", delays)
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"overloaded 529", &APIError{StatusCode: StatusOverloaded}, true},
		{"unavailable 503", &APIError{StatusCode: StatusUnavailable}, true},
		{"transport failure", &APIError{Message: "connection reset", Retryable: true}, true},
		{"auth 401", &APIError{StatusCode: 401}, false},
		{"rate limit 429", &APIError{StatusCode: 429}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAPIErrorClassification(t *testing.T) {
	t.Parallel()

	if !(&APIError{StatusCode: 529}).Overloaded() {
		t.Error("529 should classify as overloaded")
	}
	if !(&APIError{StatusCode: 503}).Overloaded() {
		t.Error("503 should classify as overloaded")
	}
	if (&APIError{StatusCode: 500}).Overloaded() {
		t.Error("500 should not classify as overloaded")
	}
	if !(&APIError{StatusCode: 401}).AuthFailure() || !(&APIError{StatusCode: 403}).AuthFailure() {
		t.Error("401/403 should classify as auth failures")
	}
}
