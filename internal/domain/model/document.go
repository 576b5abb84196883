package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type DocumentKind string

const (
	DocumentGDSFile   DocumentKind = "gds_file"
	DocumentEmailText DocumentKind = "email_text"
)

// Document is one raw input to an ingestion batch: either the text of an
// uploaded GDS file or a pasted e-ticket email.
type Document struct {
	Name    string
	Kind    DocumentKind
	Content string
	// FileURL is set after the upload collaborator stored the raw file.
	FileURL string
}

// Fingerprint identifies a document by content, independent of its name.
// It is what the synced-file registry records for dedup.
func (d *Document) Fingerprint() string {
	sum := sha256.Sum256([]byte(d.Content))
	return hex.EncodeToString(sum[:])
}

// SyncedFile records a document that was already ingested. Documents whose
// fingerprint matches a synced file are skipped, not reprocessed.
type SyncedFile struct {
	ID          string
	AgencyID    string
	Name        string
	Fingerprint string
	FileURL     string
	TicketCount int
	SyncedAt    time.Time
}
