package adapter

import (
	"context"
	"time"

	"gds-ingestion/internal/domain/model"
)

// OpsNotifier pushes operational events (batch summaries, cooldown
// activations) to whoever is on call. Failures are logged, never fatal.
type OpsNotifier interface {
	BatchFinished(ctx context.Context, summary *model.JobSummary) error
	CooldownTriggered(ctx context.Context, d time.Duration, reason string) error
}
