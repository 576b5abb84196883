package model

import "time"

type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoicePaid  InvoiceStatus = "paid"
)

type InvoiceLine struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Invoice is created in draft status with a single line item equal to the
// ticket total. The dashboard takes it from there.
type Invoice struct {
	ID        string
	AgencyID  string
	TicketID  string
	ClientID  string
	BookingID string
	Number    string
	Status    InvoiceStatus
	Currency  string
	Lines     []InvoiceLine
	Total     float64
	CreatedAt time.Time
}
