package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/domain/ports/adapter"
)

var _ adapter.WorkflowAdapter = (*HTTPWorkflow)(nil)

// HTTPWorkflow calls the record-workflow service that builds the
// dependent chain (client, booking, invoice) for a persisted ticket.
// The service sits behind the same rate-limited platform as extraction,
// so 429s are surfaced as retryable domain errors.
type HTTPWorkflow struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPWorkflow(url, apiKey string, timeout time.Duration) (*HTTPWorkflow, error) {
	if url == "" {
		return nil, errors.New("workflow url empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPWorkflow{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (w *HTTPWorkflow) Execute(ctx context.Context, req adapter.WorkflowRequest) (adapter.WorkflowResult, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return adapter.WorkflowResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(b))
	if err != nil {
		return adapter.WorkflowResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return adapter.WorkflowResult{}, &domain.DependencyError{Op: "workflow.execute", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return adapter.WorkflowResult{}, &domain.RateLimitedError{Err: fmt.Errorf("workflow http %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 300 {
		return adapter.WorkflowResult{}, &domain.DependencyError{Op: "workflow.execute", Err: fmt.Errorf("workflow http %d", resp.StatusCode)}
	}

	var result adapter.WorkflowResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return adapter.WorkflowResult{}, &domain.DependencyError{Op: "workflow.decode", Err: err}
	}
	return result, nil
}
