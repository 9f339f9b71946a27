package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }
func succeeding(context.Context) error { return nil }

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *time.Time) {
	b := NewBreaker(BreakerOpts{FailThreshold: threshold, Cooldown: cooldown})
	now := time.Now()
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, failing); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if err := b.Do(ctx, succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open breaker should fail fast, got %v", err)
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	b.Do(ctx, failing)
	b.Do(ctx, succeeding)
	b.Do(ctx, failing)
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed (count reset by success)", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)
	ctx := context.Background()

	b.Do(ctx, failing)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	*now = now.Add(2 * time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after cooldown", b.State())
	}

	// Successful probe closes the breaker.
	if err := b.Do(ctx, succeeding); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)
	ctx := context.Background()

	b.Do(ctx, failing)
	*now = now.Add(2 * time.Minute)
	b.Do(ctx, failing)
	if b.State() != StateOpen {
		t.Errorf("state = %v, want open after failed probe", b.State())
	}
}

func TestBreaker_Defaults(t *testing.T) {
	b := NewBreaker(BreakerOpts{})
	if b.opts.FailThreshold != 5 || b.opts.Cooldown != 30*time.Second {
		t.Errorf("defaults = %+v", b.opts)
	}
}
