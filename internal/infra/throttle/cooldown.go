package throttle

import (
	"sync"
	"time"

	"gds-ingestion/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// CooldownGuard is the coarse breaker layered on top of the executor's own
// backoff: once triggered, Active() stays true until the duration elapses,
// and the orchestrator refuses to start new batch work. Expiry is purely
// time-based.
type CooldownGuard struct {
	clock Clock
	log   *zerolog.Logger

	mu     sync.Mutex
	until  time.Time
	reason string
}

func NewCooldownGuard(clock Clock, logger *zerolog.Logger) *CooldownGuard {
	l := logger.With().Str("component", "CooldownGuard").Logger()
	return &CooldownGuard{clock: clock, log: &l}
}

// Trigger activates the guard for d. A trigger that would end earlier than
// the current window is ignored; a longer one extends it.
func (g *CooldownGuard) Trigger(d time.Duration, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	until := g.clock.Now().Add(d)
	if until.Before(g.until) {
		return
	}
	g.until = until
	g.reason = reason
	metrics.IncCooldown()
	g.log.Warn().Dur("duration", d).Str("reason", reason).Time("until", until).Msg("cooldown activated")
}

// Active reports whether the protection window is still open.
func (g *CooldownGuard) Active() bool {
	return g.Remaining() > 0
}

// Remaining returns how long the window has left, zero when inactive.
func (g *CooldownGuard) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	rem := g.until.Sub(g.clock.Now())
	if rem < 0 {
		return 0
	}
	return rem
}

// Reason returns what last triggered the guard.
func (g *CooldownGuard) Reason() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reason
}
