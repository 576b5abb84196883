package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid query execution context")
	ErrBatchTooLarge      = errors.New("batch exceeds maximum document count")
	ErrSystemProtection   = errors.New("system protection cooldown is active")
	ErrBatchInProgress    = errors.New("another ingestion batch is already running")
	ErrNoData             = errors.New("no ticket data found in document")
)

// RateLimitedError marks a collaborator failure caused by the upstream
// rate limit (HTTP 429 or equivalent). It is the only failure class the
// retry layer will re-attempt.
type RateLimitedError struct {
	RetryAfter time.Duration // zero when the upstream gave no hint
	Err        error
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// ExhaustedRetriesError is terminal for one operation: the whole retry
// budget was spent on rate-limit failures. Seeing it means the upstream is
// saturated, so the orchestrator escalates to a batch-wide cooldown.
type ExhaustedRetriesError struct {
	Attempts int
	Guidance string // operator-facing, e.g. "wait 10-15 minutes"
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("rate limit persisted after %d attempts (%s): %v", e.Attempts, e.Guidance, e.Err)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Err }

// ValidationError reports a bad or missing input field. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// DependencyError wraps a storage or workflow collaborator failure. Inside
// the record chain it triggers the manual fallback path; elsewhere the item
// is logged and skipped.
type DependencyError struct {
	Op  string // e.g. "workflow.execute", "clients.create"
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s failed: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is (or wraps) a rate-limit failure.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// IsOverload reports whether err indicates sustained upstream saturation,
// i.e. a retry budget already spent on rate limiting. This is the signal
// that promotes a per-call failure to a batch-wide cooldown.
func IsOverload(err error) bool {
	var ex *ExhaustedRetriesError
	return errors.As(err, &ex)
}
