package reconlink

import (
	"context"
	"time"
)

// Event kinds appended to the link audit trail.
const (
	EventLinkIssued       = "link.issued"
	EventTaxFailed        = "tax.failed"
	EventTaxLocked        = "tax.locked"
	EventTaxPassed        = "tax.passed"
	EventOtpIssued        = "otp.issued"
	EventOtpFailed        = "otp.failed"
	EventOtpVerified      = "otp.verified"
	EventResponseRecorded = "response.recorded"
)

// Event is one audit row written in the same transaction as the link change it describes.
type Event struct {
	ID        string
	LinkID    string
	Kind      string
	Meta      map[string]any
	CreatedAt time.Time
}

// UpdateFunc inspects and mutates rec.Link under the store's per-link lock.
//
// Returning an error aborts the transaction: nothing is written. Returning an Event with an
// empty Kind writes the link without an audit row.
type UpdateFunc func(rec *Record) (Event, error)

// Store abstracts persistence for reconciliation links.
//
// Implementations must serialize UpdateByReference per link: two concurrent calls for the
// same reference code never observe the same pre-update state.
type Store interface {
	// GetByReference loads a link and its joined data without locking.
	GetByReference(ctx context.Context, referenceCode string) (Record, error)

	// UpdateByReference locks the link, runs fn, and persists fn's changes to rec.Link
	// together with the returned event in one atomic step. It returns the record as written.
	UpdateByReference(ctx context.Context, referenceCode string, fn UpdateFunc) (Record, error)

	// LookupRecord resolves a counterparty record for link issuance.
	LookupRecord(ctx context.Context, recordID string) (RecordRef, error)

	// Create inserts a new link.
	Create(ctx context.Context, in CreateRecord) (Link, error)
}
