package reconnect

import (
	"errors"
	"testing"
	"time"
)

func TestRunWithPolicySucceedsAfterRetries(t *testing.T) {
	attempts := 0
	c := NewController(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("boom")
		}
		return nil
	}, Constant{Delay: time.Millisecond})

	if err := c.RunWithPolicy(); err != nil {
		t.Fatalf("RunWithPolicy() error = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRunWithPolicyExhausted(t *testing.T) {
	c := NewController(func() error { return errors.New("boom") }, Constant{Delay: time.Millisecond, MaxAttempts: 2})
	err := c.RunWithPolicy()
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("err = %v, want ErrAttemptsExhausted", err)
	}
}

func TestRunWithPolicyAbortsOnLocalClose(t *testing.T) {
	attempts := 0
	c := NewController(func() error {
		attempts++
		return ErrLocallyDisconnected
	}, Constant{Delay: time.Millisecond, MaxAttempts: 10})

	err := c.RunWithPolicy()
	if !errors.Is(err, ErrLocallyDisconnected) {
		t.Fatalf("err = %v, want ErrLocallyDisconnected", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry past local close)", attempts)
	}
}

func TestRunWithPolicyDefaultsToNone(t *testing.T) {
	c := NewController(func() error { return errors.New("boom") }, nil)
	if err := c.RunWithPolicy(); !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("err = %v, want ErrAttemptsExhausted", err)
	}
}

func TestAutomaticControllerSleepsBeforeFirstAttempt(t *testing.T) {
	const delay = 30 * time.Millisecond
	attempts := 0
	c := NewAutomaticController(func() error {
		attempts++
		if attempts < 2 {
			return errors.New("boom")
		}
		return nil
	}, Constant{Delay: delay})

	start := time.Now()
	if err := c.RunWithPolicy(); err != nil {
		t.Fatalf("RunWithPolicy() error = %v, want nil", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("RunWithPolicy() returned after %v, want at least %v before the first attempt", elapsed, delay)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestManualControllerSkipsFirstSleep(t *testing.T) {
	c := NewController(func() error { return nil }, Constant{Delay: time.Hour})
	done := make(chan error, 1)
	go func() { done <- c.RunWithPolicy() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunWithPolicy() error = %v, want nil", err)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("RunWithPolicy() blocked on a first-attempt sleep in manual mode")
	}
}
