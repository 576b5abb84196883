package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/usecase"
)

// The expected JSON request body for submitting a batch.
type batchCreateRequest struct {
	Documents []documentPayload `json:"documents"`
}

type documentPayload struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // "gds_file" | "email_text"
	Content string `json:"content"`
}

// batchCreateHandler runs an ingestion batch synchronously and returns
// its summary. The batch-level rejections map onto HTTP statuses the
// dashboard can show directly.
func batchCreateHandler(ing usecase.Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req batchCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		docs := make([]model.Document, 0, len(req.Documents))
		for _, d := range req.Documents {
			kind := model.DocumentKind(d.Kind)
			if kind != model.DocumentGDSFile && kind != model.DocumentEmailText {
				http.Error(w, fmt.Sprintf("unknown document kind %q", d.Kind), http.StatusBadRequest)
				return
			}
			docs = append(docs, model.Document{Name: d.Name, Kind: kind, Content: d.Content})
		}

		summary, err := ing.Run(ctx, docs)
		if err != nil {
			writeBatchError(w, ing, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(summary)
	}
}

func writeBatchError(w http.ResponseWriter, ing usecase.Ingestor, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, "batch must contain at least one document", http.StatusBadRequest)
	case errors.Is(err, domain.ErrBatchTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, domain.ErrSystemProtection):
		st := ing.Status()
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(st.CooldownRemaining/time.Second)))
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, domain.ErrBatchInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Failed to run ingestion batch", http.StatusInternalServerError)
	}
}

// statusHandler exposes the executor queue and cooldown state for the
// dashboard's throttle widget.
func statusHandler(ing usecase.Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(ing.Status())
	}
}

type cooldownRequest struct {
	Duration string `json:"duration"` // Go duration string, e.g. "10m"
	Reason   string `json:"reason"`
}

// cooldownHandler lets an operator impose a protection window manually,
// for instance ahead of a known provider maintenance.
func cooldownHandler(ing usecase.Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cooldownRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		d, err := time.ParseDuration(req.Duration)
		if err != nil || d <= 0 {
			http.Error(w, "duration must be a positive Go duration string", http.StatusBadRequest)
			return
		}
		if req.Reason == "" {
			req.Reason = "manual operator cooldown"
		}

		ing.ForceCooldown(d, req.Reason)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(ing.Status())
	}
}
