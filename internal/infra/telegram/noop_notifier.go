package telegram

import (
	"context"
	"time"

	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/adapter"
)

var _ adapter.OpsNotifier = (*NoopNotifier)(nil)

// NoopNotifier is wired when no telegram token is configured.
type NoopNotifier struct{}

func (NoopNotifier) BatchFinished(ctx context.Context, s *model.JobSummary) error { return nil }

func (NoopNotifier) CooldownTriggered(ctx context.Context, d time.Duration, reason string) error {
	return nil
}
