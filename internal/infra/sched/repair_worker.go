package sched

import (
	"context"
	"time"

	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/repository"
	"gds-ingestion/internal/usecase"

	"github.com/rs/zerolog"
)

// RepairWorker periodically finishes record chains for tickets left in
// pending status by a failed fallback step. It covers crashes and
// transient storage errors that the inline fallback could not absorb.
type RepairWorker struct {
	interval  time.Duration
	batchSize int
	tickets   repository.TicketRepository
	chain     usecase.ChainBuilder
	guard     usecase.Guard
	log       *zerolog.Logger
}

func NewRepairWorker(interval time.Duration, batchSize int, tickets repository.TicketRepository, chain usecase.ChainBuilder, guard usecase.Guard, logger *zerolog.Logger) *RepairWorker {
	repLog := logger.With().Str("component", "RepairWorker").Logger()
	return &RepairWorker{
		interval:  interval,
		batchSize: batchSize,
		tickets:   tickets,
		chain:     chain,
		guard:     guard,
		log:       &repLog,
	}
}

func (w *RepairWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting chain repair worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping chain repair worker")
			return ctx.Err()
		case <-ticker.C:
			n := w.RunOnce(ctx)
			if n > 0 {
				w.log.Info().Int("count", n).Msg("stuck record chains repaired")
			}
		}
	}
}

// RunOnce repairs at most one batch of stuck tickets and returns how many
// chains were completed. The pass is skipped entirely while a protection
// cooldown is active so repairs never compete with it.
func (w *RepairWorker) RunOnce(ctx context.Context) int {
	if w.guard.Active() {
		w.log.Debug().Dur("remaining", w.guard.Remaining()).Msg("skipping repair pass during cooldown")
		return 0
	}

	var stuck []*model.Ticket
	for _, status := range []model.TicketProcessingStatus{model.TicketProcessingPending, model.TicketProcessingFailed} {
		if len(stuck) >= w.batchSize {
			break
		}
		batch, err := w.tickets.FindByProcessingStatus(ctx, nil, status, w.batchSize-len(stuck))
		if err != nil {
			w.log.Error().Err(err).Str("status", string(status)).Msg("could not list stuck tickets")
			continue
		}
		stuck = append(stuck, batch...)
	}

	repaired := 0
	for _, t := range stuck {
		if ctx.Err() != nil {
			return repaired
		}
		// Fresh tickets are usually still being handled by their batch;
		// only pick up ones that have been stuck for a while.
		if time.Since(t.UpdatedAt) < w.interval {
			continue
		}
		res, rerr := w.chain.Repair(ctx, t)
		if rerr != nil {
			w.log.Error().Err(rerr).Str("ticket_id", t.ID).Msg("chain repair failed")
			continue
		}
		if res.ClientID != "" && res.BookingID != "" && res.InvoiceID != "" {
			repaired++
		}
	}
	return repaired
}
