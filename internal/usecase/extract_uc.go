// File: internal/usecase/extract_uc.go
package usecase

import (
	"context"
	"time"

	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/adapter"
	"gds-ingestion/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ExtractionStage = (*extractionStage)(nil)

// ExtractionStage turns one raw document into zero or more candidate
// ticket records via the schema-constrained extraction collaborator.
// Zero candidates is a soft outcome, not an error.
type ExtractionStage interface {
	Extract(ctx context.Context, doc *model.Document) ([]model.TicketCandidate, error)
}

// Truncator bounds document content before submission. Wired to the
// tokenizer-based truncation in infra; the stage itself only guarantees
// it tolerates truncated input.
type Truncator func(text string) (truncated string, cut bool)

type extractionStage struct {
	executor Executor
	ai       adapter.ExtractionAdapter
	truncate Truncator
	provider string
	model    string
	log      *zerolog.Logger
}

func NewExtractionStage(executor Executor, ai adapter.ExtractionAdapter, truncate Truncator, provider, modelName string, logger *zerolog.Logger) *extractionStage {
	l := logger.With().Str("component", "ExtractionStage").Logger()
	return &extractionStage{
		executor: executor,
		ai:       ai,
		truncate: truncate,
		provider: provider,
		model:    modelName,
		log:      &l,
	}
}

func (s *extractionStage) Extract(ctx context.Context, doc *model.Document) ([]model.TicketCandidate, error) {
	content := doc.Content
	if s.truncate != nil {
		var cut bool
		content, cut = s.truncate(content)
		if cut {
			s.log.Warn().Str("document", doc.Name).Msg("document content truncated to token budget")
		}
	}

	req := adapter.ExtractionRequest{
		Content: content,
		Schema:  model.CandidateJSONSchema(),
	}
	if doc.FileURL != "" {
		req.FileURLs = []string{doc.FileURL}
	}

	start := time.Now()
	res := <-s.executor.Submit(ctx, func(ctx context.Context) (any, error) {
		return s.ai.Extract(ctx, req)
	})
	latencyMs := int(time.Since(start) / time.Millisecond)

	if res.Err != nil {
		metrics.ObserveExtraction(s.provider, s.model, latencyMs, 0, false)
		return nil, res.Err
	}

	candidates, _ := res.Value.([]model.TicketCandidate)
	metrics.ObserveExtraction(s.provider, s.model, latencyMs, len(candidates), true)
	s.log.Info().Str("document", doc.Name).Int("candidates", len(candidates)).Msg("extraction finished")
	return candidates, nil
}
