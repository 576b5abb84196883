// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/adapter"
	"gds-ingestion/internal/domain/ports/repository"
	"gds-ingestion/internal/infra/throttle"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// --- clock ---

// fakeClock advances virtual time instead of sleeping and records every
// sleep so tests can assert the pacing delays.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.slept))
	copy(out, c.slept)
	return out
}

// --- executor ---

// syncExecutor runs submitted operations inline. Adapters simulate a
// spent retry budget by returning *domain.ExhaustedRetriesError directly.
type syncExecutor struct {
	mu          sync.Mutex
	submissions int
	status      throttle.Status
}

func (e *syncExecutor) Submit(ctx context.Context, op throttle.Operation) <-chan throttle.Result {
	e.mu.Lock()
	e.submissions++
	e.mu.Unlock()
	out := make(chan throttle.Result, 1)
	v, err := op(ctx)
	out <- throttle.Result{Value: v, Err: err}
	return out
}

func (e *syncExecutor) Status() throttle.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *syncExecutor) Submissions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submissions
}

// --- guard ---

type fakeGuard struct {
	active    bool
	remaining time.Duration
	reason    string
	triggered []time.Duration
}

func (g *fakeGuard) Trigger(d time.Duration, reason string) {
	g.triggered = append(g.triggered, d)
	g.active = true
	g.remaining = d
	g.reason = reason
}

func (g *fakeGuard) Active() bool             { return g.active }
func (g *fakeGuard) Remaining() time.Duration { return g.remaining }
func (g *fakeGuard) Reason() string           { return g.reason }

// --- batch lock ---

type fakeLocker struct {
	held    bool
	locks   int
	unlocks int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.held {
		return "", domain.ErrBatchInProgress
	}
	l.held = true
	l.locks++
	return "tok", nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key, token string) error {
	l.held = false
	l.unlocks++
	return nil
}

// --- dedupe cache ---

type fakeDedupe struct {
	mu    sync.Mutex
	files map[string]*model.SyncedFile
}

func newFakeDedupe() *fakeDedupe { return &fakeDedupe{files: map[string]*model.SyncedFile{}} }

func (c *fakeDedupe) Store(ctx context.Context, f *model.SyncedFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[f.AgencyID+":"+f.Fingerprint] = f
	return nil
}

func (c *fakeDedupe) Lookup(ctx context.Context, agencyID, fingerprint string) (*model.SyncedFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files[agencyID+":"+fingerprint], nil
}

// --- repositories ---

// fakeTxManager runs the callback without a real transaction; the
// in-memory repos ignore the qx handle anyway.
type fakeTxManager struct{}

var _ repository.TransactionManager = (*fakeTxManager)(nil)

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

type memTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*model.Ticket
	// createErr, when set, fails the next Create.
	createErr error
}

var _ repository.TicketRepository = (*memTicketRepo)(nil)

func newMemTicketRepo() *memTicketRepo { return &memTicketRepo{tickets: map[string]*model.Ticket{}} }

func (r *memTicketRepo) Create(ctx context.Context, qx repository.Tx, t *model.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return err
	}
	r.seq++
	t.ID = fmt.Sprintf("tkt-%d", r.seq)
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r *memTicketRepo) Update(ctx context.Context, qx repository.Tx, t *model.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[t.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r *memTicketRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTicketRepo) FindByProcessingStatus(ctx context.Context, qx repository.Tx, status model.TicketProcessingStatus, limit int) ([]*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Ticket
	for _, t := range r.tickets {
		if t.ProcessingStatus == status && len(out) < limit {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memClientRepo struct {
	mu      sync.Mutex
	seq     int
	clients map[string]*model.Client
}

var _ repository.ClientRepository = (*memClientRepo)(nil)

func newMemClientRepo() *memClientRepo { return &memClientRepo{clients: map[string]*model.Client{}} }

func (r *memClientRepo) Create(ctx context.Context, qx repository.Tx, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.clients {
		if existing.AgencyID == c.AgencyID && strings.EqualFold(existing.Email, c.Email) {
			return domain.ErrAlreadyExists
		}
	}
	r.seq++
	c.ID = fmt.Sprintf("cli-%d", r.seq)
	cp := *c
	r.clients[c.ID] = &cp
	return nil
}

func (r *memClientRepo) Update(ctx context.Context, qx repository.Tx, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *c
	r.clients[c.ID] = &cp
	return nil
}

func (r *memClientRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memClientRepo) FindByAgencyEmail(ctx context.Context, qx repository.Tx, agencyID, email string) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.AgencyID == agencyID && strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memClientRepo) IncrementBookings(ctx context.Context, qx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.BookingsCount++
	return nil
}

func (r *memClientRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

type memBookingRepo struct {
	mu        sync.Mutex
	seq       int
	bookings  map[string]*model.Booking
	createErr error
}

var _ repository.BookingRepository = (*memBookingRepo)(nil)

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: map[string]*model.Booking{}}
}

func (r *memBookingRepo) Create(ctx context.Context, qx repository.Tx, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return err
	}
	r.seq++
	b.ID = fmt.Sprintf("bkg-%d", r.seq)
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memBookingRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) FindByTicket(ctx context.Context, qx repository.Tx, ticketID string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.TicketID == ticketID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memInvoiceRepo struct {
	mu       sync.Mutex
	seq      int
	invoices map[string]*model.Invoice
}

var _ repository.InvoiceRepository = (*memInvoiceRepo)(nil)

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: map[string]*model.Invoice{}}
}

func (r *memInvoiceRepo) Create(ctx context.Context, qx repository.Tx, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	inv.ID = fmt.Sprintf("inv-%d", r.seq)
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *memInvoiceRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvoiceRepo) FindByTicket(ctx context.Context, qx repository.Tx, ticketID string) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.TicketID == ticketID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memSyncedFileRepo struct {
	mu    sync.Mutex
	seq   int
	files map[string]*model.SyncedFile
}

var _ repository.SyncedFileRepository = (*memSyncedFileRepo)(nil)

func newMemSyncedFileRepo() *memSyncedFileRepo {
	return &memSyncedFileRepo{files: map[string]*model.SyncedFile{}}
}

func (r *memSyncedFileRepo) Save(ctx context.Context, qx repository.Tx, f *model.SyncedFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == "" {
		r.seq++
		f.ID = fmt.Sprintf("sf-%d", r.seq)
	}
	cp := *f
	r.files[f.AgencyID+":"+f.Fingerprint] = &cp
	return nil
}

func (r *memSyncedFileRepo) FindByFingerprint(ctx context.Context, qx repository.Tx, agencyID, fingerprint string) (*model.SyncedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[agencyID+":"+fingerprint]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

// --- adapters ---

// fakeWorkflow replays a scripted sequence of results; once the script is
// spent it keeps returning the last element.
type fakeWorkflow struct {
	mu       sync.Mutex
	script   []workflowStep
	calls    int
	requests []adapter.WorkflowRequest
}

type workflowStep struct {
	res adapter.WorkflowResult
	err error
}

func (w *fakeWorkflow) Execute(ctx context.Context, req adapter.WorkflowRequest) (adapter.WorkflowResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.requests = append(w.requests, req)
	i := w.calls
	if i >= len(w.script) {
		i = len(w.script) - 1
	}
	w.calls++
	if i < 0 {
		return adapter.WorkflowResult{}, &domain.DependencyError{Op: "workflow.execute", Err: fmt.Errorf("no script")}
	}
	return w.script[i].res, w.script[i].err
}

type fakeUpload struct {
	calls int
	err   error
}

func (u *fakeUpload) Store(ctx context.Context, name string, content []byte) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return "https://files.example/" + name, nil
}

// fakeExtractionStage replays one scripted outcome per document, keyed by
// call order.
type fakeExtractionStage struct {
	mu     sync.Mutex
	script []extractionStep
	calls  int
}

type extractionStep struct {
	candidates []model.TicketCandidate
	err        error
}

func (s *fakeExtractionStage) Extract(ctx context.Context, doc *model.Document) ([]model.TicketCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.calls++
	if i < 0 {
		return nil, nil
	}
	return s.script[i].candidates, s.script[i].err
}

func (s *fakeExtractionStage) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeNotifier struct {
	mu        sync.Mutex
	summaries []*model.JobSummary
	cooldowns []time.Duration
}

var _ adapter.OpsNotifier = (*fakeNotifier)(nil)

func (n *fakeNotifier) BatchFinished(ctx context.Context, s *model.JobSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, s)
	return nil
}

func (n *fakeNotifier) CooldownTriggered(ctx context.Context, d time.Duration, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cooldowns = append(n.cooldowns, d)
	return nil
}

// --- helpers ---

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
