package throttle

import (
	"context"
	"sync"
	"time"

	"gds-ingestion/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Result is what a submitted operation eventually resolves to.
type Result struct {
	Value any
	Err   error
}

// Status is a read-only snapshot of the executor for observability.
type Status struct {
	QueueLength         int           `json:"queue_length"`
	Processing          bool          `json:"processing"`
	EstimatedWait       time.Duration `json:"estimated_wait"`
	Multiplier          float64       `json:"backoff_multiplier"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

// ExecutorConfig tunes the adaptive spacing between operation starts.
type ExecutorConfig struct {
	BaseInterval  time.Duration // minimum spacing between call starts
	SuccessDelay  time.Duration // pause after a successful operation
	FailureDelay  time.Duration // pause after a failed operation
	MaxMultiplier float64       // backoff multiplier ceiling
}

type entry struct {
	ctx context.Context
	op  Operation
	out chan Result
}

// Executor serializes operations against the rate-limited extraction
// service: strict FIFO, at most one operation in flight, with a minimum
// spacing between call starts that widens on failure and relaxes on
// success. Every submission eventually receives a Result, in submission
// order. A single drainer goroutine owns all processing; shared state is
// guarded by one mutex so Status() stays cheap.
type Executor struct {
	cfg     ExecutorConfig
	clock   Clock
	retrier *Retrier
	log     *zerolog.Logger

	mu            sync.Mutex
	queue         []*entry
	processing    bool
	lastCallStart time.Time
	multiplier    float64
	failures      int

	wake chan struct{}
	done chan struct{}
}

func NewExecutor(cfg ExecutorConfig, clock Clock, retrier *Retrier, logger *zerolog.Logger) *Executor {
	if cfg.MaxMultiplier < 1 {
		cfg.MaxMultiplier = 5
	}
	l := logger.With().Str("component", "Executor").Logger()
	return &Executor{
		cfg:        cfg,
		clock:      clock,
		retrier:    retrier,
		log:        &l,
		multiplier: 1,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start launches the drainer goroutine. It returns immediately; cancel ctx
// to stop. Queued entries are failed with ctx.Err() on shutdown so no
// caller is left waiting.
func (e *Executor) Start(ctx context.Context) {
	go e.loop(ctx)
}

// Done is closed once the drainer has exited.
func (e *Executor) Done() <-chan struct{} { return e.done }

// Submit enqueues op and returns a channel that will deliver exactly one
// Result. If ctx is cancelled while the entry is still queued, the entry
// resolves to ctx.Err() without consuming rate budget; an operation
// already started runs to completion.
func (e *Executor) Submit(ctx context.Context, op Operation) <-chan Result {
	ent := &entry{ctx: ctx, op: op, out: make(chan Result, 1)}

	e.mu.Lock()
	e.queue = append(e.queue, ent)
	depth := len(e.queue)
	e.mu.Unlock()

	metrics.SetExecutorQueueDepth(depth)
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return ent.out
}

// Status returns a snapshot without mutating any state.
func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	interval := e.effectiveIntervalLocked()
	return Status{
		QueueLength:         len(e.queue),
		Processing:          e.processing,
		EstimatedWait:       time.Duration(len(e.queue)) * interval,
		Multiplier:          e.multiplier,
		ConsecutiveFailures: e.failures,
	}
}

func (e *Executor) effectiveIntervalLocked() time.Duration {
	return time.Duration(float64(e.cfg.BaseInterval) * e.multiplier)
}

func (e *Executor) loop(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			e.failQueued(ctx.Err())
			return
		case <-e.wake:
		}
		e.drain(ctx)
	}
}

func (e *Executor) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		ent := e.pop()
		if ent == nil {
			return
		}
		if err := ent.ctx.Err(); err != nil {
			// Abandoned while queued; resolve without spending budget.
			ent.out <- Result{Err: err}
			e.setProcessing(false)
			continue
		}
		e.runOne(ctx, ent)
	}
}

func (e *Executor) pop() *entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		e.processing = false
		return nil
	}
	ent := e.queue[0]
	e.queue = e.queue[1:]
	e.processing = true
	metrics.SetExecutorQueueDepth(len(e.queue))
	return ent
}

func (e *Executor) setProcessing(v bool) {
	e.mu.Lock()
	e.processing = v
	e.mu.Unlock()
}

func (e *Executor) runOne(ctx context.Context, ent *entry) {
	// Enforce the adaptive minimum spacing between call starts.
	e.mu.Lock()
	interval := e.effectiveIntervalLocked()
	var wait time.Duration
	if !e.lastCallStart.IsZero() {
		elapsed := e.clock.Now().Sub(e.lastCallStart)
		if elapsed < interval {
			wait = interval - elapsed
		}
	}
	e.mu.Unlock()

	if wait > 0 {
		e.log.Debug().Dur("wait", wait).Msg("pacing before next call")
		if err := e.clock.Sleep(ctx, wait); err != nil {
			ent.out <- Result{Err: err}
			return
		}
	}

	e.mu.Lock()
	e.lastCallStart = e.clock.Now()
	e.mu.Unlock()

	v, err := e.retrier.Call(ent.ctx, ent.op)

	e.mu.Lock()
	if err == nil {
		e.failures = 0
		e.multiplier = e.multiplier * 0.8
		if e.multiplier < 1 {
			e.multiplier = 1
		}
	} else {
		e.failures++
		e.multiplier = 1 + 0.5*float64(e.failures)
		if e.multiplier > e.cfg.MaxMultiplier {
			e.multiplier = e.cfg.MaxMultiplier
		}
	}
	mult := e.multiplier
	fails := e.failures
	e.mu.Unlock()

	metrics.SetExecutorBackoff(mult, fails)
	if err != nil {
		metrics.IncExecutorOp("failed")
		e.log.Warn().Err(err).Float64("multiplier", mult).Int("consecutive_failures", fails).Msg("operation failed")
	} else {
		metrics.IncExecutorOp("completed")
	}

	ent.out <- Result{Value: v, Err: err}

	// Post-call cooldown before the next entry is popped.
	pause := e.cfg.SuccessDelay
	if err != nil {
		pause = e.cfg.FailureDelay
	}
	if pause > 0 {
		_ = e.clock.Sleep(ctx, pause)
	}
}

func (e *Executor) failQueued(err error) {
	e.mu.Lock()
	queued := e.queue
	e.queue = nil
	e.processing = false
	e.mu.Unlock()

	for _, ent := range queued {
		ent.out <- Result{Err: err}
	}
	metrics.SetExecutorQueueDepth(0)
}
