package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/adapter"
)

var _ adapter.ExtractionAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter is the alternate extraction backend using the official
// SDK. The target schema travels in the prompt with JSON response mode
// enforced; Gemini's structured-output schema type is stricter than the
// shape we carry, so prompt-side constraint keeps the two backends on one
// request shape.
type GeminiAdapter struct {
	client *genai.Client
	model  string
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, model string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, model: model}, nil
}

func (g *GeminiAdapter) Extract(ctx context.Context, req adapter.ExtractionRequest) ([]model.TicketCandidate, error) {
	schemaJSON, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("%s\n\nRespond with a single JSON object matching this JSON schema exactly:\n%s\n\nDocument:\n%s",
		systemPrompt, schemaJSON, req.Content)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, &domain.DependencyError{Op: "extraction.invoke", Err: errors.New("empty gemini response")}
	}

	var payload struct {
		Tickets []model.TicketCandidate `json:"tickets"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, &domain.DependencyError{Op: "extraction.decode", Err: err}
	}
	return payload.Tickets, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return &domain.RateLimitedError{Err: err}
	}
	return err
}
