package model

import "time"

type TicketProcessingStatus string

const (
	TicketProcessingPending   TicketProcessingStatus = "pending"
	TicketProcessingCompleted TicketProcessingStatus = "completed"
	TicketProcessingFailed    TicketProcessingStatus = "failed"
)

// Ticket is the root of the record chain. It is persisted before any
// dependent record so that a downstream failure never loses the ticket.
type Ticket struct {
	ID             string
	AgencyID       string
	TicketNumber   string
	PNR            string
	PassengerName  string
	PassengerEmail string
	Airline        string
	Origin         string
	Destination    string
	TravelDate     *time.Time
	BaseFare       float64
	TotalAmount    float64
	Currency       string
	// AmountDefaulted records that TotalAmount was filled from base_fare
	// or the placeholder constant rather than extracted.
	AmountDefaulted bool

	ClientID  string
	BookingID string
	InvoiceID string

	ProcessingStatus TicketProcessingStatus
	ProcessingError  string
	SourceFileID     string

	CreatedAt time.Time
	UpdatedAt time.Time
}
