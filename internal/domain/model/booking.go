package model

import "time"

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking links a ticket to its client with the charged amount.
type Booking struct {
	ID            string
	AgencyID      string
	TicketID      string
	ClientID      string
	Reference     string // the ticket number / PNR the booking was made under
	PassengerName string
	Amount        float64
	Currency      string
	Status        BookingStatus
	CreatedAt     time.Time
}
