// Package reconlink implements the counterparty side of a balance reconciliation.
//
// A company sends each counterparty a single-use link identified by an opaque reference
// code. Depending on the company's policy the counterparty must pass a tax-number challenge
// (last four digits, limited attempts with a timed lock), an emailed one-time code, both,
// or neither, before the letter is revealed and an agree/dispute answer can be recorded.
//
// State is derived from stored link fields plus the current policy on every request
// (see DeriveState). Every mutation runs under a per-link lock through Store.UpdateByReference
// and writes an audit event in the same transaction.
//
// Transport (HTTP) lives in publicapi; email delivery lives in mailer.
package reconlink
