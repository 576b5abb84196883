package usecase

import (
	"context"
	"time"

	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/infra/throttle"
)

// Executor is the slice of the rate-limited executor the pipeline needs.
// Satisfied by *throttle.Executor; tests substitute a synchronous fake.
type Executor interface {
	Submit(ctx context.Context, op throttle.Operation) <-chan throttle.Result
	Status() throttle.Status
}

// Guard is the system-protection breaker checked before batch work.
// Satisfied by *throttle.CooldownGuard.
type Guard interface {
	Trigger(d time.Duration, reason string)
	Active() bool
	Remaining() time.Duration
	Reason() string
}

// BatchLocker serializes batch submission across processes/tabs.
type BatchLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// DedupeCache fronts the synced-file registry. Nil-able: the orchestrator
// falls back to the repository when no cache is wired.
type DedupeCache interface {
	Store(ctx context.Context, f *model.SyncedFile) error
	Lookup(ctx context.Context, agencyID, fingerprint string) (*model.SyncedFile, error)
}
