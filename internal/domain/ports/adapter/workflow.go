package adapter

import "context"

// WorkflowRequest triggers the primary record-creation workflow for a
// freshly persisted ticket.
type WorkflowRequest struct {
	Type        string         `json:"type"`
	TriggerData map[string]any `json:"trigger_data"`
}

// WorkflowResult reports which dependent records the workflow created.
// Ids are empty for records the workflow chose not to create.
type WorkflowResult struct {
	Success   bool   `json:"success"`
	ClientID  string `json:"client_id,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
	InvoiceID string `json:"invoice_id,omitempty"`
}

// WorkflowAdapter is the port for the record-workflow collaborator. An
// error (or Success=false) sends the chain builder down the manual
// fallback path.
type WorkflowAdapter interface {
	Execute(ctx context.Context, req WorkflowRequest) (WorkflowResult, error)
}
