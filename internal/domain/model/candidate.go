package model

import (
	"strings"

	"gds-ingestion/internal/domain"
)

// PlaceholderAmount is used when a candidate carries neither total_amount
// nor base_fare. The value is deliberately visible on the resulting
// records so an operator notices it, never a silent zero.
const PlaceholderAmount = 100.0

// PlaceholderEmailDomain hosts deterministic placeholder addresses derived
// from passenger names when the extraction produced no email.
const PlaceholderEmailDomain = "placeholder.invalid"

// TicketCandidate is one extraction result, not yet persisted. Every field
// except the passenger name is optional; the extraction collaborator is
// schema-constrained to exactly this shape.
type TicketCandidate struct {
	PassengerName  string   `json:"passenger_name"`
	PassengerEmail *string  `json:"passenger_email,omitempty"`
	PassengerPhone *string  `json:"passenger_phone,omitempty"`
	TicketNumber   *string  `json:"ticket_number,omitempty"`
	PNR            *string  `json:"pnr,omitempty"`
	Airline        *string  `json:"airline,omitempty"`
	Origin         *string  `json:"origin,omitempty"`
	Destination    *string  `json:"destination,omitempty"`
	TravelDate     *string  `json:"travel_date,omitempty"` // YYYY-MM-DD when present
	BaseFare       *float64 `json:"base_fare,omitempty"`
	TotalAmount    *float64 `json:"total_amount,omitempty"`
	Currency       *string  `json:"currency,omitempty"`
}

// Validate checks the fields a candidate cannot do without.
func (c *TicketCandidate) Validate() error {
	if strings.TrimSpace(c.PassengerName) == "" {
		return &domain.ValidationError{Field: "passenger_name", Reason: "required"}
	}
	return nil
}

// ChargeableAmount resolves the amount policy: total_amount, falling back
// to base_fare, falling back to the placeholder constant. The bool reports
// whether a fallback was taken so callers can record the default.
func (c *TicketCandidate) ChargeableAmount() (float64, bool) {
	if c.TotalAmount != nil && *c.TotalAmount > 0 {
		return *c.TotalAmount, false
	}
	if c.BaseFare != nil && *c.BaseFare > 0 {
		return *c.BaseFare, true
	}
	return PlaceholderAmount, true
}

// EmailOrPlaceholder returns the extracted email, or a deterministic
// placeholder derived from the passenger name. The same name always maps
// to the same address so client dedup still works.
func (c *TicketCandidate) EmailOrPlaceholder() string {
	if c.PassengerEmail != nil && strings.TrimSpace(*c.PassengerEmail) != "" {
		return strings.ToLower(strings.TrimSpace(*c.PassengerEmail))
	}
	local := strings.ToLower(strings.TrimSpace(c.PassengerName))
	var b strings.Builder
	lastDot := false
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDot = false
		default:
			if !lastDot && b.Len() > 0 {
				b.WriteByte('.')
				lastDot = true
			}
		}
	}
	name := strings.TrimSuffix(b.String(), ".")
	if name == "" {
		name = "unknown"
	}
	return name + "@" + PlaceholderEmailDomain
}

// StrOr dereferences an optional string field with a default.
func StrOr(s *string, def string) string {
	if s != nil && strings.TrimSpace(*s) != "" {
		return strings.TrimSpace(*s)
	}
	return def
}

// CandidateJSONSchema is the exact shape the extraction collaborator is
// instructed to return: an object with a "tickets" array of candidates.
func CandidateJSONSchema() map[string]any {
	prop := func(t, desc string) map[string]any {
		return map[string]any{"type": []string{t, "null"}, "description": desc}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"tickets"},
		"properties": map[string]any{
			"tickets": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"passenger_name"},
					"properties": map[string]any{
						"passenger_name":  map[string]any{"type": "string", "description": "full passenger name as printed"},
						"passenger_email": prop("string", "passenger contact email if present"),
						"passenger_phone": prop("string", "passenger phone if present"),
						"ticket_number":   prop("string", "13-digit airline ticket number"),
						"pnr":             prop("string", "booking reference / record locator"),
						"airline":         prop("string", "marketing carrier name or code"),
						"origin":          prop("string", "origin airport IATA code"),
						"destination":     prop("string", "final destination IATA code"),
						"travel_date":     prop("string", "departure date, YYYY-MM-DD"),
						"base_fare":       prop("number", "base fare amount"),
						"total_amount":    prop("number", "total charged amount incl. taxes"),
						"currency":        prop("string", "ISO 4217 currency code"),
					},
				},
			},
		},
	}
}
