package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ExtractionAdapter = (*OpenAIAdapter)(nil)

const systemPrompt = `You extract airline ticket data from raw GDS output and e-ticket emails.
Return every distinct ticket you can identify. Copy values exactly as printed;
never invent values for fields that are not present - leave them null.
Input may be truncated mid-document; extract what is complete and ignore the torn tail.`

// OpenAIAdapter implements the extraction port with Chat Completions
// structured outputs. SDK-level retries are disabled: the throttle layer
// owns all retry behavior.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return &OpenAIAdapter{client: client, model: model}, nil
}

func (o *OpenAIAdapter) Extract(ctx context.Context, req adapter.ExtractionRequest) ([]model.TicketCandidate, error) {
	user := req.Content
	if len(req.FileURLs) > 0 {
		user = fmt.Sprintf("Source files: %v\n\n%s", req.FileURLs, user)
	}

	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "ticket_extraction",
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.DependencyError{Op: "extraction.invoke", Err: errors.New("no choices returned")}
	}

	var payload struct {
		Tickets []model.TicketCandidate `json:"tickets"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, &domain.DependencyError{Op: "extraction.decode", Err: err}
	}
	return payload.Tickets, nil
}

// classifyOpenAIError maps 429 onto the retryable domain error so the
// throttle layer can tell overload apart from everything else.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return &domain.RateLimitedError{RetryAfter: retryAfter(apiErr), Err: err}
	}
	return err
}

func retryAfter(apiErr *openai.Error) time.Duration {
	if apiErr.Response == nil {
		return 0
	}
	if v := apiErr.Response.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
