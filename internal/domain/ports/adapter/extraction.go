package adapter

import (
	"context"

	"gds-ingestion/internal/domain/model"
)

// ExtractionRequest carries one document into the structured-extraction
// service. Schema is the JSON-schema shape the service must return;
// FileURLs point at stored raw files when the input was an upload.
type ExtractionRequest struct {
	Content  string
	FileURLs []string
	Schema   map[string]any
}

// ExtractionAdapter is the port for the schema-constrained extraction
// collaborator. Implementations must surface upstream rate limiting as
// *domain.RateLimitedError so the retry layer can distinguish it.
type ExtractionAdapter interface {
	Extract(ctx context.Context, req ExtractionRequest) ([]model.TicketCandidate, error)
}
