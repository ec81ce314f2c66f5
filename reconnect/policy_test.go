package reconnect

import (
	"testing"
	"time"
)

func TestNonePolicyNeverRetries(t *testing.T) {
	p := None{}
	if _, ok := p.NextRetryDelay(0, 0); ok {
		t.Fatalf("None policy should never retry")
	}
}

func TestConstantPolicyRespectsMaxAttempts(t *testing.T) {
	p := Constant{Delay: 5 * time.Second, MaxAttempts: 2}
	if d, ok := p.NextRetryDelay(0, 0); !ok || d != 5*time.Second {
		t.Fatalf("attempt 0: got (%v, %v), want (5s, true)", d, ok)
	}
	if d, ok := p.NextRetryDelay(1, 0); !ok || d != 5*time.Second {
		t.Fatalf("attempt 1: got (%v, %v), want (5s, true)", d, ok)
	}
	if _, ok := p.NextRetryDelay(2, 0); ok {
		t.Fatalf("attempt 2: should be exhausted")
	}
}

func TestLinearPolicyGrowsAndCaps(t *testing.T) {
	p := Linear{Initial: time.Second, Step: time.Second, MaxDelay: 3 * time.Second}
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 3 * time.Second},
		{3, 3 * time.Second}, // capped
	}
	for _, c := range cases {
		got, ok := p.NextRetryDelay(c.retry, 0)
		if !ok || got != c.want {
			t.Errorf("retry %d: got (%v, %v), want (%v, true)", c.retry, got, ok, c.want)
		}
	}
}

func TestExponentialPolicyGrowsAndCaps(t *testing.T) {
	p := Exponential{Initial: time.Second, Factor: 2.0, MaxDelay: 5 * time.Second}
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second}, // 8s capped to 5s
	}
	for _, c := range cases {
		got, ok := p.NextRetryDelay(c.retry, 0)
		if !ok || got != c.want {
			t.Errorf("retry %d: got (%v, %v), want (%v, true)", c.retry, got, ok, c.want)
		}
	}
}

func TestExponentialPolicyMaxAttempts(t *testing.T) {
	p := Exponential{Initial: time.Second, Factor: 2.0, MaxAttempts: 1}
	if _, ok := p.NextRetryDelay(1, 0); ok {
		t.Fatalf("should be exhausted at retry count == MaxAttempts")
	}
}
