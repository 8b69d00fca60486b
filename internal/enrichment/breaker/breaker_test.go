package breaker

import (
	"testing"
	"time"
)

func TestClosedAlwaysAllows(t *testing.T) {
	b := New(3, time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() on closed breaker = %v, want nil", err)
	}
	if b.State() != Closed {
		t.Errorf("State() = %q, want %q", b.State(), Closed)
	}
}

func TestOpensAtFailureThreshold(t *testing.T) {
	b := New(3, time.Minute)
	b.RecordFailure()
	b.RecordFailure()
	if b.State() != Closed {
		t.Fatalf("State() = %q after 2 failures, want still closed", b.State())
	}
	b.RecordFailure()
	if b.State() != Open {
		t.Errorf("State() = %q after 3 failures, want %q", b.State(), Open)
	}
	if err := b.Allow(); err != ErrOpen {
		t.Errorf("Allow() on open breaker = %v, want ErrOpen", err)
	}
}

func TestHalfOpenAfterResetTimeout(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("State() = %q, want %q", b.State(), Open)
	}

	time.Sleep(20 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() after reset timeout = %v, want nil", err)
	}
	if b.State() != HalfOpen {
		t.Errorf("State() = %q, want %q", b.State(), HalfOpen)
	}

	if err := b.Allow(); err != ErrOpen {
		t.Errorf("second concurrent Allow() during half_open probe = %v, want ErrOpen", err)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() = %v, want nil", err)
	}
	b.RecordFailure()
	if b.State() != Open {
		t.Errorf("State() = %q after half_open probe failure, want %q", b.State(), Open)
	}
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() = %v, want nil", err)
	}
	b.RecordSuccess()
	if b.State() != Closed {
		t.Errorf("State() = %q after half_open probe success, want %q", b.State(), Closed)
	}
}
