package throttle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testExecutor(clock Clock) *Executor {
	log := zerolog.Nop()
	retrier := NewRetrier(RetryPolicy{MaxAttempts: 1, Base: time.Second, Cap: time.Second}, clock, &log)
	return NewExecutor(ExecutorConfig{
		BaseInterval:  8 * time.Second,
		SuccessDelay:  2 * time.Second,
		FailureDelay:  5 * time.Second,
		MaxMultiplier: 5,
	}, clock, retrier, &log)
}

func TestExecutorFIFOWithMinimumSpacing(t *testing.T) {
	clock := newFakeClock()
	ex := testExecutor(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ex.Start(ctx)

	var mu sync.Mutex
	var order []int
	var starts []time.Time

	var results []<-chan Result
	for i := 0; i < 3; i++ {
		i := i
		results = append(results, ex.Submit(ctx, func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, i)
			starts = append(starts, clock.Now())
			mu.Unlock()
			return i, nil
		}))
	}

	for i, ch := range results {
		res := <-ch
		if res.Err != nil {
			t.Fatalf("op %d failed: %v", i, res.Err)
		}
		if res.Value != i {
			t.Fatalf("result %d = %v, want %d (FIFO order)", i, res.Value, i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < 3; i++ {
		if order[i] != i {
			t.Fatalf("execution order = %v, want FIFO", order)
		}
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < 8*time.Second {
			t.Fatalf("start gap %d = %s, want >= 8s", i, gap)
		}
	}
}

func TestExecutorBackoffGrowsAndDecays(t *testing.T) {
	clock := newFakeClock()
	ex := testExecutor(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ex.Start(ctx)

	fail := func(ctx context.Context) (any, error) { return nil, errors.New("boom") }
	for i := 0; i < 3; i++ {
		<-ex.Submit(ctx, fail)
	}

	st := ex.Status()
	if st.ConsecutiveFailures != 3 {
		t.Fatalf("failures = %d, want 3", st.ConsecutiveFailures)
	}
	if st.Multiplier != 2.5 { // 1 + 0.5*3
		t.Fatalf("multiplier = %v, want 2.5", st.Multiplier)
	}

	<-ex.Submit(ctx, func(ctx context.Context) (any, error) { return "ok", nil })
	st = ex.Status()
	if st.ConsecutiveFailures != 0 {
		t.Fatalf("failures after success = %d, want 0", st.ConsecutiveFailures)
	}
	if st.Multiplier != 2.0 { // 2.5 * 0.8
		t.Fatalf("multiplier after success = %v, want 2.0", st.Multiplier)
	}
}

func TestExecutorMultiplierIsCapped(t *testing.T) {
	clock := newFakeClock()
	ex := testExecutor(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ex.Start(ctx)

	fail := func(ctx context.Context) (any, error) { return nil, errors.New("boom") }
	for i := 0; i < 12; i++ {
		<-ex.Submit(ctx, fail)
	}
	if st := ex.Status(); st.Multiplier != 5 {
		t.Fatalf("multiplier = %v, want capped at 5", st.Multiplier)
	}
}

func TestExecutorMultiplierNeverDecaysBelowOne(t *testing.T) {
	clock := newFakeClock()
	ex := testExecutor(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ex.Start(ctx)

	ok := func(ctx context.Context) (any, error) { return nil, nil }
	for i := 0; i < 5; i++ {
		<-ex.Submit(ctx, ok)
	}
	if st := ex.Status(); st.Multiplier != 1 {
		t.Fatalf("multiplier = %v, want 1", st.Multiplier)
	}
}

func TestExecutorSerializesConcurrentSubmitters(t *testing.T) {
	clock := newFakeClock()
	ex := testExecutor(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ex.Start(ctx)

	var inFlight, maxInFlight int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ex.Submit(ctx, func(ctx context.Context) (any, error) {
				cur := atomic.AddInt64(&inFlight, 1)
				for {
					prev := atomic.LoadInt64(&maxInFlight)
					if cur <= prev || atomic.CompareAndSwapInt64(&maxInFlight, prev, cur) {
						break
					}
				}
				atomic.AddInt64(&inFlight, -1)
				return nil, nil
			})
		}()
	}
	wg.Wait()

	if m := atomic.LoadInt64(&maxInFlight); m != 1 {
		t.Fatalf("max in flight = %d, want 1", m)
	}
}

func TestExecutorStatusDoesNotMutate(t *testing.T) {
	clock := newFakeClock()
	ex := testExecutor(clock)

	// Not started: two queued entries stay queued across Status calls.
	ctx := context.Background()
	ex.Submit(ctx, func(ctx context.Context) (any, error) { return nil, nil })
	ex.Submit(ctx, func(ctx context.Context) (any, error) { return nil, nil })

	st1 := ex.Status()
	st2 := ex.Status()
	if st1 != st2 {
		t.Fatalf("status mutated between reads: %+v vs %+v", st1, st2)
	}
	if st1.QueueLength != 2 {
		t.Fatalf("queue length = %d, want 2", st1.QueueLength)
	}
	if st1.EstimatedWait != 16*time.Second { // 2 × 8s × multiplier 1
		t.Fatalf("estimated wait = %s, want 16s", st1.EstimatedWait)
	}
}

func TestExecutorSkipsEntriesCancelledWhileQueued(t *testing.T) {
	clock := newFakeClock()
	ex := testExecutor(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ex.Start(ctx)

	opCtx, opCancel := context.WithCancel(context.Background())
	opCancel()

	invoked := false
	res := <-ex.Submit(opCtx, func(ctx context.Context) (any, error) {
		invoked = true
		return nil, nil
	})

	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", res.Err)
	}
	if invoked {
		t.Fatal("cancelled entry must not consume rate budget")
	}
}
