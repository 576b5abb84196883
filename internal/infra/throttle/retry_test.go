package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"gds-ingestion/internal/domain"

	"github.com/rs/zerolog"
)

func testRetrier(clock Clock, max int) *Retrier {
	log := zerolog.Nop()
	return NewRetrier(RetryPolicy{
		MaxAttempts: max,
		Base:        15 * time.Second,
		Cap:         120 * time.Second,
		Jitter:      0,
	}, clock, &log)
}

func rateLimited() error {
	return &domain.RateLimitedError{Err: errors.New("http 429")}
}

func TestRetrierExhaustsBudgetOnPersistentRateLimit(t *testing.T) {
	clock := newFakeClock()
	r := testRetrier(clock, 3)

	attempts := 0
	_, err := r.Call(context.Background(), func(ctx context.Context) (any, error) {
		attempts++
		return nil, rateLimited()
	})

	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	var ex *domain.ExhaustedRetriesError
	if !errors.As(err, &ex) {
		t.Fatalf("err = %v, want ExhaustedRetriesError", err)
	}
	if ex.Attempts != 3 || ex.Guidance == "" {
		t.Fatalf("exhausted error missing detail: %+v", ex)
	}

	// Backoff grows ×3 from the base: 15s then 45s.
	slept := clock.Slept()
	if len(slept) != 2 || slept[0] != 15*time.Second || slept[1] != 45*time.Second {
		t.Fatalf("slept = %v, want [15s 45s]", slept)
	}
}

func TestRetrierNeverRetriesOtherFailures(t *testing.T) {
	clock := newFakeClock()
	r := testRetrier(clock, 3)

	boom := errors.New("schema mismatch")
	attempts := 0
	_, err := r.Call(context.Background(), func(ctx context.Context) (any, error) {
		attempts++
		return nil, boom
	})

	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want original error", err)
	}
	if len(clock.Slept()) != 0 {
		t.Fatalf("slept %v, want no backoff", clock.Slept())
	}
}

func TestRetrierRecoversAfterRateLimit(t *testing.T) {
	clock := newFakeClock()
	r := testRetrier(clock, 3)

	attempts := 0
	v, err := r.Call(context.Background(), func(ctx context.Context) (any, error) {
		attempts++
		if attempts == 1 {
			return nil, rateLimited()
		}
		return "extracted", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "extracted" || attempts != 2 {
		t.Fatalf("v=%v attempts=%d, want extracted/2", v, attempts)
	}
}

func TestRetrierCapsBackoffDelay(t *testing.T) {
	clock := newFakeClock()
	r := testRetrier(clock, 4)

	_, _ = r.Call(context.Background(), func(ctx context.Context) (any, error) {
		return nil, rateLimited()
	})

	// 15s, 45s, then 135s capped to 120s.
	slept := clock.Slept()
	if len(slept) != 3 || slept[2] != 120*time.Second {
		t.Fatalf("slept = %v, want third delay capped at 120s", slept)
	}
}

func TestRetrierHonorsContextDuringBackoff(t *testing.T) {
	clock := newFakeClock()
	r := testRetrier(clock, 3)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := r.Call(ctx, func(ctx context.Context) (any, error) {
		attempts++
		cancel()
		return nil, rateLimited()
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}
