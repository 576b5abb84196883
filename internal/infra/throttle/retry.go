package throttle

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Operation is one deferred unit of work against the rate-limited service.
type Operation func(ctx context.Context) (any, error)

// RetryPolicy bounds the per-call retry loop. Only rate-limit failures are
// re-attempted; anything else propagates immediately.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	Base        time.Duration // first backoff delay
	Cap         time.Duration // backoff ceiling
	Jitter      time.Duration // uniform random addition in [0, Jitter)
}

const exhaustedGuidance = "wait 10-15 minutes before retrying"

// Retrier wraps a single operation invocation with bounded retry,
// exponential backoff (×3 per attempt) and jitter. The executor's adaptive
// spacing and this per-call backoff are independent mechanisms that
// compound under sustained overload.
type Retrier struct {
	policy RetryPolicy
	clock  Clock
	log    *zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRetrier(policy RetryPolicy, clock Clock, logger *zerolog.Logger) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	l := logger.With().Str("component", "Retrier").Logger()
	return &Retrier{
		policy: policy,
		clock:  clock,
		log:    &l,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Call runs op, retrying rate-limited failures up to the attempt budget.
// After the budget is spent it returns *domain.ExhaustedRetriesError.
func (r *Retrier) Call(ctx context.Context, op Operation) (any, error) {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.backoff(attempt - 1)
			r.log.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("rate limited, backing off before retry")
			metrics.IncRetry()
			if err := r.clock.Sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !domain.IsRateLimited(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, &domain.ExhaustedRetriesError{
		Attempts: r.policy.MaxAttempts,
		Guidance: exhaustedGuidance,
		Err:      lastErr,
	}
}

// backoff computes min(base × 3^n + jitter, cap).
func (r *Retrier) backoff(n int) time.Duration {
	d := r.policy.Base
	for i := 0; i < n; i++ {
		d *= 3
		if d >= r.policy.Cap {
			break
		}
	}
	d += r.jitter()
	if d > r.policy.Cap {
		d = r.policy.Cap
	}
	return d
}

func (r *Retrier) jitter() time.Duration {
	if r.policy.Jitter <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Duration(r.rng.Int63n(int64(r.policy.Jitter)))
}
