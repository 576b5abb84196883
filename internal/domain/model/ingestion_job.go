package model

import "time"

type DocumentState string

const (
	DocumentWaiting         DocumentState = "waiting"
	DocumentUploading       DocumentState = "uploading"
	DocumentExtracting      DocumentState = "extracting"
	DocumentCreatingRecords DocumentState = "creating_records"
	DocumentCompleted       DocumentState = "completed"
	DocumentNoData          DocumentState = "no_data"
	DocumentSkipped         DocumentState = "skipped"
	DocumentFailed          DocumentState = "failed"
)

// DocumentProgress tracks one document through a batch.
type DocumentProgress struct {
	Name            string        `json:"name"`
	State           DocumentState `json:"state"`
	Error           string        `json:"error,omitempty"`
	TicketsCreated  int           `json:"tickets_created"`
	ClientsCreated  int           `json:"clients_created"`
	BookingsCreated int           `json:"bookings_created"`
	InvoicesCreated int           `json:"invoices_created"`
}

// JobSummary is what a batch run returns to its caller. Halted marks a
// batch cut short by a systemic-overload escalation; the per-document
// slice still accounts for every submitted document.
type JobSummary struct {
	JobID           string             `json:"job_id"`
	FilesProcessed  int                `json:"files_processed"`
	FilesSkipped    int                `json:"files_skipped"`
	FilesFailed     int                `json:"files_failed"`
	TicketsCreated  int                `json:"tickets_created"`
	ClientsCreated  int                `json:"clients_created"`
	BookingsCreated int                `json:"bookings_created"`
	InvoicesCreated int                `json:"invoices_created"`
	Documents       []DocumentProgress `json:"documents"`
	Halted          bool               `json:"halted"`
	HaltReason      string             `json:"halt_reason,omitempty"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
}

// ChainResult reports how far the record chain got for one candidate.
type ChainResult struct {
	TicketID       string `json:"ticket_id"`
	ClientID       string `json:"client_id,omitempty"`
	BookingID      string `json:"booking_id,omitempty"`
	InvoiceID      string `json:"invoice_id,omitempty"`
	CreatedClient  bool   `json:"created_client"`
	CreatedBooking bool   `json:"created_booking"`
	CreatedInvoice bool   `json:"created_invoice"`
	// ReusedClient is set when an existing client matched by
	// (agency, email) was linked instead of created.
	ReusedClient bool `json:"reused_client"`
}
