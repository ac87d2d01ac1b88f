package reconlink

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/security/token"
)

// IssueInput describes link creation for one counterparty record.
type IssueInput struct {
	RecordID string
	// TTL overrides Config.LinkTTL when positive.
	TTL time.Duration
	Now time.Time
}

// Issued is a created link plus the context needed to dispatch it.
type Issued struct {
	Link   Link
	Record RecordRef
	URL    string
}

// IssueLink creates a new single-use link for a record and returns its public URL.
// The reference code is returned once here; it is the counterparty's only credential.
func (s *Service) IssueLink(ctx context.Context, in IssueInput) (Issued, error) {
	if s == nil || s.store == nil {
		return Issued{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Issued{}, err
	}
	recordID := strings.TrimSpace(in.RecordID)
	if recordID == "" {
		return Issued{}, s.observe(OpIssueLink, ErrInvalidInput)
	}

	now := in.Now
	if now.IsZero() {
		now = s.now()
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.cfg.LinkTTL
	}

	ref, err := s.store.LookupRecord(ctx, recordID)
	if err != nil {
		return Issued{}, s.observe(OpIssueLink, err)
	}
	if _, err := s.policies.ResolvePolicy(ctx, ref.CompanyID); err != nil {
		return Issued{}, s.observe(OpIssueLink, err)
	}

	code, err := token.NewOpaqueToken(s.cfg.ReferenceBytes)
	if err != nil {
		return Issued{}, err
	}
	id, err := newULID(now)
	if err != nil {
		return Issued{}, err
	}

	link, err := s.store.Create(ctx, CreateRecord{
		ID:               id,
		ReferenceCode:    code,
		RecordID:         ref.RecordID,
		ReconciliationID: ref.ReconciliationID,
		CompanyID:        ref.CompanyID,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	})
	if err != nil {
		return Issued{}, s.observe(OpIssueLink, err)
	}

	s.log.Info("reconlink.link.issued", "ref", token.Fingerprint(code), "link_id", link.ID, "expires_at", link.ExpiresAt)
	return Issued{Link: link, Record: ref, URL: s.PublicURL(code)}, s.observe(OpIssueLink, nil)
}

// DispatchLink emails an issued link to its counterparty.
func (s *Service) DispatchLink(ctx context.Context, iss Issued) error {
	if s == nil {
		return ErrInvalidInput
	}
	if s.links == nil {
		return errors.New("reconlink: no link mailer configured")
	}
	err := s.links.SendLinkEmail(ctx,
		iss.Record.RecipientEmail,
		iss.Record.RecipientName,
		iss.Record.CompanyName,
		iss.URL,
		iss.Link.ExpiresAt,
	)
	if err != nil {
		s.metrics.ObserveDelivery("link", "failed")
		return errors.Join(ErrDeliveryFailed, err)
	}
	s.metrics.ObserveDelivery("link", "sent")
	return nil
}

// PublicURL builds the counterparty-facing URL for a reference code.
func (s *Service) PublicURL(code string) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	route := "/" + strings.Trim(s.cfg.PublicLinkRoute, "/") + "/"
	return base + route + url.PathEscape(code)
}
