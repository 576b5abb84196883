// File: internal/usecase/ingest_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/adapter"
	"gds-ingestion/internal/domain/ports/repository"
	"gds-ingestion/internal/infra/logging"
	"gds-ingestion/internal/infra/metrics"
	"gds-ingestion/internal/infra/redis"
	"gds-ingestion/internal/infra/throttle"
)

// Compile-time check
var _ Ingestor = (*ingestor)(nil)

// Ingestor runs batches of raw documents through the pipeline:
// dedup -> upload -> extraction -> record chain, one document at a time,
// under the shared rate budget and the system-protection guard.
type Ingestor interface {
	Run(ctx context.Context, docs []model.Document) (*model.JobSummary, error)
	Status() IngestionStatus
	ForceCooldown(d time.Duration, reason string)
}

// IngestionStatus merges the executor snapshot with the guard state for
// the status endpoint.
type IngestionStatus struct {
	Executor          throttle.Status `json:"executor"`
	CooldownActive    bool            `json:"cooldown_active"`
	CooldownRemaining time.Duration   `json:"cooldown_remaining"`
	CooldownReason    string          `json:"cooldown_reason,omitempty"`
}

// IngestorConfig carries the batch-level tunables. Zero values are not
// defaulted here; config loading owns the defaults.
type IngestorConfig struct {
	AgencyID      string
	MaxDocuments  int
	DocumentDelay time.Duration // between documents in a batch
	TicketDelay   time.Duration // between tickets in a document
	FileCooldown  time.Duration // overload on a single-document batch
	BatchCooldown time.Duration // overload on a multi-document batch
}

type ingestor struct {
	cfg         IngestorConfig
	clock       throttle.Clock
	executor    Executor
	guard       Guard
	locker      BatchLocker
	dedupe      DedupeCache
	syncedFiles repository.SyncedFileRepository
	upload      adapter.UploadAdapter
	extraction  ExtractionStage
	chain       ChainBuilder
	notifier    adapter.OpsNotifier
	log         *zerolog.Logger
}

func NewIngestor(
	cfg IngestorConfig,
	clock throttle.Clock,
	executor Executor,
	guard Guard,
	locker BatchLocker,
	dedupe DedupeCache,
	syncedFiles repository.SyncedFileRepository,
	upload adapter.UploadAdapter,
	extraction ExtractionStage,
	chain ChainBuilder,
	notifier adapter.OpsNotifier,
	logger *zerolog.Logger,
) *ingestor {
	l := logger.With().Str("component", "Ingestor").Logger()
	return &ingestor{
		cfg:         cfg,
		clock:       clock,
		executor:    executor,
		guard:       guard,
		locker:      locker,
		dedupe:      dedupe,
		syncedFiles: syncedFiles,
		upload:      upload,
		extraction:  extraction,
		chain:       chain,
		notifier:    notifier,
		log:         &l,
	}
}

func (in *ingestor) Status() IngestionStatus {
	return IngestionStatus{
		Executor:          in.executor.Status(),
		CooldownActive:    in.guard.Active(),
		CooldownRemaining: in.guard.Remaining(),
		CooldownReason:    in.guard.Reason(),
	}
}

func (in *ingestor) ForceCooldown(d time.Duration, reason string) {
	in.guard.Trigger(d, reason)
}

// Run processes docs sequentially and returns the batch summary. The
// batch is rejected outright, before any document work, when it is
// empty, over the size cap, a cooldown is active, or another batch holds
// the lock.
func (in *ingestor) Run(ctx context.Context, docs []model.Document) (*model.JobSummary, error) {
	if len(docs) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	if len(docs) > in.cfg.MaxDocuments {
		metrics.IncBatch("rejected")
		return nil, domain.ErrBatchTooLarge
	}
	if in.guard.Active() {
		metrics.IncBatch("rejected")
		in.log.Warn().
			Dur("remaining", in.guard.Remaining()).
			Str("reason", in.guard.Reason()).
			Msg("batch rejected while cooldown active")
		return nil, domain.ErrSystemProtection
	}

	lockKey := redis.BatchLockKey(in.cfg.AgencyID)
	lockTTL := time.Duration(len(docs))*(in.cfg.DocumentDelay+2*time.Minute) + time.Minute
	token, err := in.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		if err == domain.ErrBatchInProgress {
			metrics.IncBatch("rejected")
		}
		return nil, err
	}
	defer func() {
		if uerr := in.locker.Unlock(context.Background(), lockKey, token); uerr != nil {
			in.log.Error().Err(uerr).Msg("could not release batch lock")
		}
	}()

	jobID := ulid.Make().String()
	ctx = logging.WithJobID(ctx, jobID)
	summary := &model.JobSummary{
		JobID:     jobID,
		StartedAt: in.clock.Now(),
		Documents: make([]model.DocumentProgress, len(docs)),
	}
	in.log.Info().Str("job_id", jobID).Int("documents", len(docs)).Msg("batch started")

	for i := range docs {
		if i > 0 {
			if err := in.clock.Sleep(ctx, in.cfg.DocumentDelay); err != nil {
				in.halt(summary, "cancelled: "+err.Error())
				in.markRemainingFailed(summary, i, docs)
				break
			}
		}
		progress := &summary.Documents[i]
		progress.Name = docs[i].Name
		progress.State = model.DocumentWaiting

		overloaded := in.processDocument(ctx, &docs[i], progress, summary)
		in.accountDocument(summary, progress)
		if overloaded {
			in.tripCooldown(ctx, len(docs), progress.Name)
			in.halt(summary, "systemic overload on "+progress.Name)
			in.markRemainingFailed(summary, i+1, docs)
			break
		}
		if ctx.Err() != nil {
			in.halt(summary, "cancelled: "+ctx.Err().Error())
			in.markRemainingFailed(summary, i+1, docs)
			break
		}
	}

	summary.FinishedAt = in.clock.Now()
	if summary.Halted {
		metrics.IncBatch("halted")
	} else {
		metrics.IncBatch("completed")
	}
	if err := in.notifier.BatchFinished(ctx, summary); err != nil {
		in.log.Warn().Err(err).Msg("batch summary notification failed")
	}
	in.log.Info().
		Str("job_id", jobID).
		Int("processed", summary.FilesProcessed).
		Int("skipped", summary.FilesSkipped).
		Int("failed", summary.FilesFailed).
		Bool("halted", summary.Halted).
		Msg("batch finished")
	return summary, nil
}

// processDocument drives one document through dedup, upload, extraction
// and record creation. The returned flag reports systemic overload, which
// halts the batch.
func (in *ingestor) processDocument(ctx context.Context, doc *model.Document, progress *model.DocumentProgress, summary *model.JobSummary) (overloaded bool) {
	ctx = logging.WithDocument(ctx, doc.Name)
	log := in.log.With().Str("document", doc.Name).Logger()

	fingerprint := doc.Fingerprint()
	if seen := in.alreadySynced(ctx, fingerprint); seen != nil {
		progress.State = model.DocumentSkipped
		log.Info().Str("synced_at", seen.SyncedAt.Format(time.RFC3339)).Msg("document already ingested, skipping")
		return false
	}

	if doc.Kind == model.DocumentGDSFile && doc.FileURL == "" {
		progress.State = model.DocumentUploading
		url, err := in.upload.Store(ctx, doc.Name, []byte(doc.Content))
		if err != nil {
			// Extraction still works from pasted content; keep going.
			log.Warn().Err(err).Msg("file upload failed, extracting from raw content")
		} else {
			doc.FileURL = url
		}
	}

	progress.State = model.DocumentExtracting
	candidates, err := in.extraction.Extract(ctx, doc)
	if err != nil {
		progress.State = model.DocumentFailed
		progress.Error = err.Error()
		if domain.IsOverload(err) {
			return true
		}
		log.Error().Err(err).Msg("extraction failed")
		return false
	}
	if len(candidates) == 0 {
		progress.State = model.DocumentNoData
		log.Info().Msg("no ticket data found in document")
		return false
	}

	progress.State = model.DocumentCreatingRecords
	for ti := range candidates {
		if ti > 0 {
			if err := in.clock.Sleep(ctx, in.cfg.TicketDelay); err != nil {
				progress.State = model.DocumentFailed
				progress.Error = err.Error()
				return false
			}
		}
		res, cerr := in.chain.Build(ctx, candidates[ti], in.cfg.AgencyID, fingerprint)
		if res != nil {
			in.accountChain(progress, res)
		}
		if cerr != nil {
			var verr *domain.ValidationError
			if errors.As(cerr, &verr) {
				log.Warn().Str("field", verr.Field).Str("reason", verr.Reason).Msg("candidate rejected")
				continue
			}
			if domain.IsOverload(cerr) {
				progress.State = model.DocumentFailed
				progress.Error = cerr.Error()
				return true
			}
			log.Error().Err(cerr).Msg("record chain failed for candidate")
		}
	}

	progress.State = model.DocumentCompleted
	in.recordSynced(ctx, doc, fingerprint, progress.TicketsCreated)
	return false
}

// alreadySynced consults the cache first, then the registry; a registry
// hit backfills the cache.
func (in *ingestor) alreadySynced(ctx context.Context, fingerprint string) *model.SyncedFile {
	if in.dedupe != nil {
		if f, err := in.dedupe.Lookup(ctx, in.cfg.AgencyID, fingerprint); err == nil && f != nil {
			return f
		}
	}
	f, err := in.syncedFiles.FindByFingerprint(ctx, nil, in.cfg.AgencyID, fingerprint)
	if err != nil {
		if err != domain.ErrNotFound {
			in.log.Warn().Err(err).Msg("synced-file lookup failed, treating as unseen")
		}
		return nil
	}
	if in.dedupe != nil {
		_ = in.dedupe.Store(ctx, f)
	}
	return f
}

func (in *ingestor) recordSynced(ctx context.Context, doc *model.Document, fingerprint string, tickets int) {
	f := &model.SyncedFile{
		AgencyID:    in.cfg.AgencyID,
		Name:        doc.Name,
		Fingerprint: fingerprint,
		FileURL:     doc.FileURL,
		TicketCount: tickets,
		SyncedAt:    in.clock.Now(),
	}
	if err := in.syncedFiles.Save(ctx, nil, f); err != nil {
		in.log.Error().Err(err).Str("document", doc.Name).Msg("could not record synced file")
		return
	}
	if in.dedupe != nil {
		_ = in.dedupe.Store(ctx, f)
	}
}

func (in *ingestor) tripCooldown(ctx context.Context, batchSize int, docName string) {
	window := in.cfg.FileCooldown
	if batchSize > 1 {
		window = in.cfg.BatchCooldown
	}
	reason := "rate-limit retries exhausted on " + docName
	in.guard.Trigger(window, reason)
	if err := in.notifier.CooldownTriggered(ctx, window, reason); err != nil {
		in.log.Warn().Err(err).Msg("cooldown notification failed")
	}
}

func (in *ingestor) halt(summary *model.JobSummary, reason string) {
	summary.Halted = true
	summary.HaltReason = reason
}

// markRemainingFailed accounts for documents the halt prevented from
// running; they stay in waiting state with the halt as their error.
func (in *ingestor) markRemainingFailed(summary *model.JobSummary, from int, docs []model.Document) {
	for i := from; i < len(docs); i++ {
		p := &summary.Documents[i]
		p.Name = docs[i].Name
		p.State = model.DocumentWaiting
		p.Error = "batch halted before this document"
	}
}

func (in *ingestor) accountDocument(summary *model.JobSummary, p *model.DocumentProgress) {
	metrics.IncDocument(string(p.State))
	switch p.State {
	case model.DocumentCompleted, model.DocumentNoData:
		summary.FilesProcessed++
	case model.DocumentSkipped:
		summary.FilesSkipped++
	case model.DocumentFailed:
		summary.FilesFailed++
	}
	summary.TicketsCreated += p.TicketsCreated
	summary.ClientsCreated += p.ClientsCreated
	summary.BookingsCreated += p.BookingsCreated
	summary.InvoicesCreated += p.InvoicesCreated
}

func (in *ingestor) accountChain(p *model.DocumentProgress, res *model.ChainResult) {
	if res.TicketID != "" {
		p.TicketsCreated++
		metrics.IncRecordsCreated("ticket", 1)
	}
	if res.CreatedClient {
		p.ClientsCreated++
		metrics.IncRecordsCreated("client", 1)
	}
	if res.CreatedBooking {
		p.BookingsCreated++
		metrics.IncRecordsCreated("booking", 1)
	}
	if res.CreatedInvoice {
		p.InvoicesCreated++
		metrics.IncRecordsCreated("invoice", 1)
	}
}
