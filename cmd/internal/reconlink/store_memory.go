package reconlink

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/letter"
)

// MemoryStore is a dev/test fallback when no database is configured.
// A single mutex serializes every update, which satisfies the per-link ordering guarantee.
type MemoryStore struct {
	mu sync.Mutex

	companies       map[string]memCompany
	reconciliations map[string]memReconciliation
	records         map[string]memRecord
	links           map[string]Link // by reference code
	events          map[string][]Event
}

type memCompany struct {
	company Company
	policy  Policy
}

type memReconciliation struct {
	companyID string
	rec       Reconciliation
}

type memRecord struct {
	reconciliationID string
	party            Counterparty
}

// NewMemoryStore constructs an empty in-memory Store and PolicyResolver.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		companies:       make(map[string]memCompany),
		reconciliations: make(map[string]memReconciliation),
		records:         make(map[string]memRecord),
		links:           make(map[string]Link),
		events:          make(map[string][]Event),
	}
}

// PutCompany inserts or replaces a company and its verification policy.
func (s *MemoryStore) PutCompany(c Company, p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = memCompany{company: c, policy: p}
}

// SetPolicy changes a company's policy in place. It reports false for unknown companies.
func (s *MemoryStore) SetPolicy(companyID string, p Policy) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[companyID]
	if !ok {
		return false
	}
	c.policy = p
	s.companies[companyID] = c
	return true
}

// DeleteCompany removes a company; links pointing at it become unresolvable.
func (s *MemoryStore) DeleteCompany(companyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.companies, companyID)
}

// PutReconciliation inserts or replaces a reconciliation run owned by companyID.
func (s *MemoryStore) PutReconciliation(companyID string, r Reconciliation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconciliations[r.ID] = memReconciliation{companyID: companyID, rec: r}
}

// PutRecord inserts or replaces a counterparty record.
func (s *MemoryStore) PutRecord(reconciliationID, recordID string, party Counterparty) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordID] = memRecord{reconciliationID: reconciliationID, party: party}
}

// Events returns a copy of the audit trail of one link, oldest first.
func (s *MemoryStore) Events(linkID string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events[linkID]...)
}

// ResolvePolicy implements PolicyResolver.
func (s *MemoryStore) ResolvePolicy(ctx context.Context, companyID string) (Policy, error) {
	if err := ctx.Err(); err != nil {
		return Policy{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[companyID]
	if !ok {
		return Policy{}, ErrNotFound
	}
	return c.policy, nil
}

// GetByReference implements Store.
func (s *MemoryStore) GetByReference(ctx context.Context, referenceCode string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(strings.TrimSpace(referenceCode))
}

// UpdateByReference implements Store.
func (s *MemoryStore) UpdateByReference(ctx context.Context, referenceCode string, fn UpdateFunc) (Record, error) {
	if fn == nil {
		return Record{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.recordLocked(strings.TrimSpace(referenceCode))
	if err != nil {
		return Record{}, err
	}

	ev, err := fn(&rec)
	if err != nil {
		return Record{}, err
	}

	rec.Link = cloneLink(rec.Link)
	s.links[rec.Link.ReferenceCode] = rec.Link
	if ev.Kind != "" {
		ev = fillEvent(ev, rec.Link.ID)
		s.events[rec.Link.ID] = append(s.events[rec.Link.ID], ev)
	}
	return rec, nil
}

// LookupRecord implements Store.
func (s *MemoryStore) LookupRecord(ctx context.Context, recordID string) (RecordRef, error) {
	if err := ctx.Err(); err != nil {
		return RecordRef{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[recordID]
	if !ok {
		return RecordRef{}, ErrNotFound
	}
	rc, ok := s.reconciliations[r.reconciliationID]
	if !ok {
		return RecordRef{}, ErrNotFound
	}
	c, ok := s.companies[rc.companyID]
	if !ok {
		return RecordRef{}, ErrNotFound
	}
	return RecordRef{
		RecordID:         recordID,
		ReconciliationID: r.reconciliationID,
		CompanyID:        rc.companyID,
		RecipientName:    r.party.Name,
		RecipientEmail:   r.party.Email,
		CompanyName:      c.company.Name,
	}, nil
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, in CreateRecord) (Link, error) {
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.ReferenceCode) == "" {
		return Link{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.links[in.ReferenceCode]; exists {
		return Link{}, ErrInvalidInput
	}
	l := in.link()
	s.links[in.ReferenceCode] = l
	s.events[l.ID] = append(s.events[l.ID], fillEvent(Event{Kind: EventLinkIssued}, l.ID))
	return cloneLink(l), nil
}

func (s *MemoryStore) recordLocked(ref string) (Record, error) {
	if ref == "" {
		return Record{}, ErrNotFound
	}
	l, ok := s.links[ref]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec := Record{Link: cloneLink(l)}

	if r, ok := s.records[l.RecordID]; ok {
		rec.Counterparty = r.party
	}
	if rc, ok := s.reconciliations[l.ReconciliationID]; ok {
		rec.Reconciliation = rc.rec
	}
	if c, ok := s.companies[l.CompanyID]; ok {
		rec.Company = c.company
	}
	if rec.Counterparty.BalanceType == "" {
		rec.Counterparty.BalanceType = letter.SideDebit
	}
	return rec, nil
}

func fillEvent(ev Event, linkID string) Event {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.ID == "" {
		ev.ID, _ = newULID(ev.CreatedAt)
	}
	ev.LinkID = linkID
	return ev
}

// cloneLink copies pointer fields so stored state never aliases caller state.
func cloneLink(l Link) Link {
	out := l
	out.VerificationLockedUntil = clonePtr(l.VerificationLockedUntil)
	out.TaxVerifiedAt = clonePtr(l.TaxVerifiedAt)
	out.VerificationCode = clonePtr(l.VerificationCode)
	out.VerificationCodeExpiresAt = clonePtr(l.VerificationCodeExpiresAt)
	out.ResponseStatus = clonePtr(l.ResponseStatus)
	out.ResponseNote = clonePtr(l.ResponseNote)
	out.DisputedAmount = clonePtr(l.DisputedAmount)
	out.DisputedCurrency = clonePtr(l.DisputedCurrency)
	out.RespondedAt = clonePtr(l.RespondedAt)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
