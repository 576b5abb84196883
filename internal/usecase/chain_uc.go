// File: internal/usecase/chain_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/adapter"
	"gds-ingestion/internal/domain/ports/repository"
	"gds-ingestion/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ChainBuilder = (*chainBuilder)(nil)

// ChainBuilder creates the dependent record chain for one candidate:
// Ticket first, then Client/Booking/Invoice via the workflow collaborator,
// falling back to manual idempotent creation when the workflow fails.
//
// Build may return a non-nil result together with a non-nil error: the
// error then carries the escalation signal (systemic overload observed on
// the workflow call) while the result reports the records that still got
// created through the fallback.
type ChainBuilder interface {
	Build(ctx context.Context, cand model.TicketCandidate, agencyID, sourceFileID string) (*model.ChainResult, error)
	// Repair re-runs the fallback chain for a ticket stuck in
	// pending/failed processing status.
	Repair(ctx context.Context, t *model.Ticket) (*model.ChainResult, error)
}

type chainBuilder struct {
	txm      repository.TransactionManager
	tickets  repository.TicketRepository
	clients  repository.ClientRepository
	bookings repository.BookingRepository
	invoices repository.InvoiceRepository
	workflow adapter.WorkflowAdapter
	executor Executor
	log      *zerolog.Logger
}

func NewChainBuilder(
	txm repository.TransactionManager,
	tickets repository.TicketRepository,
	clients repository.ClientRepository,
	bookings repository.BookingRepository,
	invoices repository.InvoiceRepository,
	workflow adapter.WorkflowAdapter,
	executor Executor,
	logger *zerolog.Logger,
) *chainBuilder {
	l := logger.With().Str("component", "ChainBuilder").Logger()
	return &chainBuilder{
		txm:      txm,
		tickets:  tickets,
		clients:  clients,
		bookings: bookings,
		invoices: invoices,
		workflow: workflow,
		executor: executor,
		log:      &l,
	}
}

func (b *chainBuilder) Build(ctx context.Context, cand model.TicketCandidate, agencyID, sourceFileID string) (*model.ChainResult, error) {
	if err := cand.Validate(); err != nil {
		return nil, err
	}

	t := b.ticketFromCandidate(cand, agencyID, sourceFileID)
	if err := b.tickets.Create(ctx, nil, t); err != nil {
		return nil, &domain.DependencyError{Op: "tickets.create", Err: err}
	}
	result := &model.ChainResult{TicketID: t.ID}

	// Primary path: one workflow call builds the whole dependent chain.
	wfRes, wfErr := b.executeWorkflow(ctx, t)
	if wfErr == nil && wfRes.Success {
		b.applyWorkflowResult(ctx, t, wfRes, result)
		return result, nil
	}

	if wfErr != nil {
		b.log.Warn().Err(wfErr).Str("ticket_id", t.ID).Msg("workflow failed, taking fallback path")
	} else {
		b.log.Warn().Str("ticket_id", t.ID).Msg("workflow reported failure, taking fallback path")
	}
	metrics.IncChainFallback()

	b.fallback(ctx, t, &cand, result)

	// A spent retry budget on the workflow call still means the platform
	// is saturated; surface it so the orchestrator can halt the batch.
	if wfErr != nil && domain.IsOverload(wfErr) {
		return result, wfErr
	}
	return result, nil
}

func (b *chainBuilder) Repair(ctx context.Context, t *model.Ticket) (*model.ChainResult, error) {
	result := &model.ChainResult{
		TicketID:  t.ID,
		ClientID:  t.ClientID,
		BookingID: t.BookingID,
		InvoiceID: t.InvoiceID,
	}
	cand := model.TicketCandidate{
		PassengerName:  t.PassengerName,
		PassengerEmail: &t.PassengerEmail,
		TotalAmount:    &t.TotalAmount,
	}
	b.fallback(ctx, t, &cand, result)
	return result, nil
}

func (b *chainBuilder) ticketFromCandidate(cand model.TicketCandidate, agencyID, sourceFileID string) *model.Ticket {
	amount, defaulted := cand.ChargeableAmount()
	t := &model.Ticket{
		AgencyID:         agencyID,
		TicketNumber:     model.StrOr(cand.TicketNumber, ""),
		PNR:              model.StrOr(cand.PNR, ""),
		PassengerName:    cand.PassengerName,
		PassengerEmail:   cand.EmailOrPlaceholder(),
		Airline:          model.StrOr(cand.Airline, ""),
		Origin:           model.StrOr(cand.Origin, ""),
		Destination:      model.StrOr(cand.Destination, ""),
		TotalAmount:      amount,
		Currency:         model.StrOr(cand.Currency, "USD"),
		AmountDefaulted:  defaulted,
		ProcessingStatus: model.TicketProcessingPending,
		SourceFileID:     sourceFileID,
	}
	if cand.BaseFare != nil {
		t.BaseFare = *cand.BaseFare
	}
	if d := model.StrOr(cand.TravelDate, ""); d != "" {
		if parsed, err := time.Parse("2006-01-02", d); err == nil {
			t.TravelDate = &parsed
		}
	}
	return t
}

// executeWorkflow submits the workflow call through the executor so it
// shares the same rate budget and retry policy as extraction.
func (b *chainBuilder) executeWorkflow(ctx context.Context, t *model.Ticket) (adapter.WorkflowResult, error) {
	req := adapter.WorkflowRequest{
		Type: "ticket_chain",
		TriggerData: map[string]any{
			"ticket_id":      t.ID,
			"agency_id":      t.AgencyID,
			"passenger":      t.PassengerName,
			"email":          t.PassengerEmail,
			"reference":      t.TicketNumber,
			"amount":         t.TotalAmount,
			"currency":       t.Currency,
			"source_file_id": t.SourceFileID,
		},
	}
	res := <-b.executor.Submit(ctx, func(ctx context.Context) (any, error) {
		return b.workflow.Execute(ctx, req)
	})
	if res.Err != nil {
		return adapter.WorkflowResult{}, res.Err
	}
	wf, _ := res.Value.(adapter.WorkflowResult)
	return wf, nil
}

func (b *chainBuilder) applyWorkflowResult(ctx context.Context, t *model.Ticket, wf adapter.WorkflowResult, result *model.ChainResult) {
	result.ClientID = wf.ClientID
	result.BookingID = wf.BookingID
	result.InvoiceID = wf.InvoiceID
	result.CreatedClient = wf.ClientID != ""
	result.CreatedBooking = wf.BookingID != ""
	result.CreatedInvoice = wf.InvoiceID != ""

	t.ClientID = wf.ClientID
	t.BookingID = wf.BookingID
	t.InvoiceID = wf.InvoiceID
	t.ProcessingStatus = model.TicketProcessingCompleted
	t.ProcessingError = ""
	if err := b.tickets.Update(ctx, nil, t); err != nil {
		b.log.Error().Err(err).Str("ticket_id", t.ID).Msg("could not link workflow records to ticket")
	}
}

// fallback creates the dependent records manually and idempotently. Each
// step may fail independently; the ticket keeps whatever linkage
// succeeded and records the first error.
func (b *chainBuilder) fallback(ctx context.Context, t *model.Ticket, cand *model.TicketCandidate, result *model.ChainResult) {
	var firstErr error
	note := func(step string, err error) {
		b.log.Error().Err(err).Str("ticket_id", t.ID).Str("step", step).Msg("fallback step failed")
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", step, err)
		}
	}

	// 1. Client: lookup by (agency, email) before create, never duplicate.
	if t.ClientID == "" {
		client, created, err := b.lookupOrCreateClient(ctx, t, cand)
		if err != nil {
			note("clients", err)
		} else {
			t.ClientID = client.ID
			result.ClientID = client.ID
			result.CreatedClient = created
			result.ReusedClient = !created
		}
	}

	// 2. Booking, only with a client to hang it off.
	if t.ClientID != "" && t.BookingID == "" {
		booking := &model.Booking{
			AgencyID:      t.AgencyID,
			TicketID:      t.ID,
			ClientID:      t.ClientID,
			Reference:     firstNonEmpty(t.TicketNumber, t.PNR, t.ID),
			PassengerName: t.PassengerName,
			Amount:        t.TotalAmount,
			Currency:      t.Currency,
		}
		if err := b.bookings.Create(ctx, nil, booking); err != nil {
			note("bookings", err)
		} else {
			t.BookingID = booking.ID
			result.BookingID = booking.ID
			result.CreatedBooking = true
		}
	}

	// 3. Draft invoice with a single line equal to the ticket total.
	if t.ClientID != "" && t.InvoiceID == "" {
		inv := &model.Invoice{
			AgencyID:  t.AgencyID,
			TicketID:  t.ID,
			ClientID:  t.ClientID,
			BookingID: t.BookingID,
			Status:    model.InvoiceDraft,
			Currency:  t.Currency,
			Lines: []model.InvoiceLine{{
				Description: fmt.Sprintf("Air ticket %s - %s", firstNonEmpty(t.TicketNumber, t.PNR, t.ID), t.PassengerName),
				Amount:      t.TotalAmount,
			}},
			Total: t.TotalAmount,
		}
		if err := b.invoices.Create(ctx, nil, inv); err != nil {
			note("invoices", err)
		} else {
			t.InvoiceID = inv.ID
			result.InvoiceID = inv.ID
			result.CreatedInvoice = true
		}
	}

	// 4. Persist whatever linkage we got. The ticket is never discarded:
	// full chain -> completed, partial -> pending (repairable), nothing
	// linked at all -> failed.
	switch {
	case firstErr == nil && t.ClientID != "" && t.BookingID != "" && t.InvoiceID != "":
		t.ProcessingStatus = model.TicketProcessingCompleted
		t.ProcessingError = ""
	case t.ClientID == "":
		t.ProcessingStatus = model.TicketProcessingFailed
		if firstErr != nil {
			t.ProcessingError = firstErr.Error()
		}
	default:
		t.ProcessingStatus = model.TicketProcessingPending
		if firstErr != nil {
			t.ProcessingError = firstErr.Error()
		}
	}
	if err := b.tickets.Update(ctx, nil, t); err != nil {
		b.log.Error().Err(err).Str("ticket_id", t.ID).Msg("could not persist ticket linkage")
	}
}

// lookupOrCreateClient enforces the (agency, email) uniqueness rule:
// lookup before create, inside one transaction so the window for a
// duplicate-create race stays minimal. The unique index is the second
// line of defense; losing that race is handled by re-looking up the
// winner's row.
func (b *chainBuilder) lookupOrCreateClient(ctx context.Context, t *model.Ticket, cand *model.TicketCandidate) (*model.Client, bool, error) {
	var client *model.Client
	var created bool
	err := b.txm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		existing, err := b.clients.FindByAgencyEmail(ctx, tx, t.AgencyID, t.PassengerEmail)
		if err == nil {
			if ierr := b.clients.IncrementBookings(ctx, tx, existing.ID); ierr != nil {
				return ierr
			}
			existing.BookingsCount++
			client = existing
			return nil
		}
		if err != domain.ErrNotFound {
			return err
		}
		fresh := &model.Client{
			AgencyID:      t.AgencyID,
			Name:          t.PassengerName,
			Email:         t.PassengerEmail,
			Phone:         model.StrOr(cand.PassengerPhone, ""),
			BookingsCount: 1,
		}
		if err := b.clients.Create(ctx, tx, fresh); err != nil {
			return err
		}
		client = fresh
		created = true
		return nil
	})
	if err == domain.ErrAlreadyExists {
		// Lost a creation race; the winner's row is the client.
		if again, lerr := b.clients.FindByAgencyEmail(ctx, nil, t.AgencyID, t.PassengerEmail); lerr == nil {
			_ = b.clients.IncrementBookings(ctx, nil, again.ID)
			return again, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return client, created, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
