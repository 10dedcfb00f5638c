package resilience

import (
	"testing"
	"time"
)

func newTestBreaker(cfg Config) (*Breaker, *time.Time) {
	b := NewBreaker(cfg)
	now := time.Unix(5000, 0)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(Config{Name: "wtype", MaxFailures: 3, Cooldown: 10 * time.Second})

	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("Allow() = false after %d failures, want true while closed", i)
		}
		b.RecordFailure()
	}
	if b.State() != StateOpen {
		t.Fatalf("State() = %v, want open", b.State())
	}
	if b.Allow() {
		t.Error("Allow() = true while open, want false")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(Config{MaxFailures: 3})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Errorf("State() = %v, want closed (success reset the streak)", b.State())
	}
}

func TestBreaker_ProbeAfterCooldown(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(Config{MaxFailures: 1, Cooldown: 10 * time.Second})
	b.RecordFailure()

	if b.Allow() {
		t.Fatal("Allow() = true during cooldown, want false")
	}
	*now = now.Add(11 * time.Second)

	if !b.Allow() {
		t.Fatal("Allow() = false after cooldown, want one probe admitted")
	}
	if b.Allow() {
		t.Error("Allow() = true for second concurrent probe, want false")
	}
}

func TestBreaker_FailedProbeRestartsCooldown(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(Config{MaxFailures: 1, Cooldown: 10 * time.Second})
	b.RecordFailure()
	*now = now.Add(11 * time.Second)

	if !b.Allow() {
		t.Fatal("probe not admitted")
	}
	b.RecordFailure()

	if b.Allow() {
		t.Error("Allow() = true right after failed probe, want false until next cooldown")
	}
	*now = now.Add(11 * time.Second)
	if !b.Allow() {
		t.Error("Allow() = false after second cooldown, want probe admitted")
	}
}

func TestBreaker_SuccessfulProbeCloses(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(Config{MaxFailures: 1, Cooldown: 10 * time.Second})
	b.RecordFailure()
	*now = now.Add(11 * time.Second)

	if !b.Allow() {
		t.Fatal("probe not admitted")
	}
	b.RecordSuccess()

	if b.State() != StateClosed {
		t.Errorf("State() = %v after successful probe, want closed", b.State())
	}
	if !b.Allow() {
		t.Error("Allow() = false after breaker closed, want true")
	}
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(Config{MaxFailures: 1})
	b.RecordFailure()
	b.Reset()
	if b.State() != StateClosed || !b.Allow() {
		t.Error("Reset did not close the breaker")
	}
}
