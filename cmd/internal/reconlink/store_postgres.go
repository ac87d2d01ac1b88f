package reconlink

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/letter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists links in PostgreSQL and resolves company policies.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "mutabakat").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return ErrInvalidInput
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore. The pool is owned by the caller.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: DefaultSchema}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, ErrInvalidInput
	}
	return st, nil
}

// ResolvePolicy implements PolicyResolver.
func (s *PostgresStore) ResolvePolicy(ctx context.Context, companyID string) (Policy, error) {
	if s == nil || s.pool == nil {
		return Policy{}, ErrInvalidInput
	}
	if strings.TrimSpace(companyID) == "" {
		return Policy{}, ErrNotFound
	}

	var p Policy
	err := s.pool.QueryRow(ctx,
		`SELECT require_tax_verification, require_otp_verification
		   FROM `+pgIdent(s.schema, "companies")+`
		  WHERE id = $1`,
		companyID,
	).Scan(&p.RequireTax, &p.RequireOTP)
	if errors.Is(err, pgx.ErrNoRows) {
		return Policy{}, ErrNotFound
	}
	if err != nil {
		return Policy{}, err
	}
	return p, nil
}

// GetByReference implements Store.
func (s *PostgresStore) GetByReference(ctx context.Context, referenceCode string) (Record, error) {
	if s == nil || s.pool == nil {
		return Record{}, ErrInvalidInput
	}
	referenceCode = strings.TrimSpace(referenceCode)
	if referenceCode == "" {
		return Record{}, ErrNotFound
	}
	return scanRecord(s.pool.QueryRow(ctx, s.selectRecordSQL(false), referenceCode))
}

// UpdateByReference implements Store.
//
// The link row is locked with SELECT ... FOR UPDATE for the whole read-validate-write
// cycle, so concurrent requests on the same reference code run one after another.
func (s *PostgresStore) UpdateByReference(ctx context.Context, referenceCode string, fn UpdateFunc) (Record, error) {
	if s == nil || s.pool == nil || fn == nil {
		return Record{}, ErrInvalidInput
	}
	referenceCode = strings.TrimSpace(referenceCode)
	if referenceCode == "" {
		return Record{}, ErrNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := scanRecord(tx.QueryRow(ctx, s.selectRecordSQL(true), referenceCode))
	if err != nil {
		return Record{}, err
	}

	ev, err := fn(&rec)
	if err != nil {
		return Record{}, err
	}

	if err := s.updateLinkTx(ctx, tx, rec.Link); err != nil {
		return Record{}, err
	}
	if ev.Kind != "" {
		if err := s.insertEventTx(ctx, tx, fillEvent(ev, rec.Link.ID)); err != nil {
			return Record{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// LookupRecord implements Store.
func (s *PostgresStore) LookupRecord(ctx context.Context, recordID string) (RecordRef, error) {
	if s == nil || s.pool == nil {
		return RecordRef{}, ErrInvalidInput
	}
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return RecordRef{}, ErrNotFound
	}

	var ref RecordRef
	err := s.pool.QueryRow(ctx, `
		SELECT r.id, r.reconciliation_id, c.id, r.recipient_name, r.recipient_email, c.name
		  FROM `+pgIdent(s.schema, "reconciliation_records")+` r
		  JOIN `+pgIdent(s.schema, "reconciliations")+` rc ON rc.id = r.reconciliation_id
		  JOIN `+pgIdent(s.schema, "companies")+` c ON c.id = rc.company_id
		 WHERE r.id = $1`,
		recordID,
	).Scan(&ref.RecordID, &ref.ReconciliationID, &ref.CompanyID, &ref.RecipientName, &ref.RecipientEmail, &ref.CompanyName)
	if errors.Is(err, pgx.ErrNoRows) {
		return RecordRef{}, ErrNotFound
	}
	if err != nil {
		return RecordRef{}, err
	}
	return ref, nil
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, in CreateRecord) (Link, error) {
	if s == nil || s.pool == nil {
		return Link{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.ReferenceCode) == "" {
		return Link{}, ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Link{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO `+pgIdent(s.schema, "reconciliation_links")+` (
		     id, reference_code, record_id, reconciliation_id, company_id,
		     is_verified, is_used, created_at, expires_at, verification_attempts
		   ) VALUES ($1, $2, $3, $4, $5, false, false, $6, $7, 0)`,
		in.ID,
		in.ReferenceCode,
		in.RecordID,
		in.ReconciliationID,
		in.CompanyID,
		in.CreatedAt,
		in.ExpiresAt,
	)
	if err != nil {
		return Link{}, err
	}
	if err := s.insertEventTx(ctx, tx, fillEvent(Event{Kind: EventLinkIssued, CreatedAt: in.CreatedAt}, in.ID)); err != nil {
		return Link{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Link{}, err
	}
	return in.link(), nil
}

func (s *PostgresStore) selectRecordSQL(forUpdate bool) string {
	q := `
		SELECT
			l.id, l.reference_code, l.record_id, l.reconciliation_id, l.company_id,
			l.is_verified, l.is_used, l.created_at, l.expires_at,
			l.verification_attempts, l.verification_locked_until, l.tax_verified_at,
			l.verification_code, l.verification_code_expires_at,
			l.response_status, l.response_note, l.disputed_amount::text, l.disputed_currency, l.responded_at,
			r.recipient_name, r.recipient_email, r.tax_number, r.amount::text, r.currency, r.balance_type,
			rc.period, rc.letter_subject, rc.letter_body, rc.letter_notes,
			COALESCE(c.name, ''), COALESCE(c.address, ''), COALESCE(c.phone, ''), COALESCE(c.email, '')
		FROM ` + pgIdent(s.schema, "reconciliation_links") + ` l
		JOIN ` + pgIdent(s.schema, "reconciliation_records") + ` r ON r.id = l.record_id
		JOIN ` + pgIdent(s.schema, "reconciliations") + ` rc ON rc.id = l.reconciliation_id
		LEFT JOIN ` + pgIdent(s.schema, "companies") + ` c ON c.id = l.company_id
		WHERE l.reference_code = $1`
	if forUpdate {
		q += `
		FOR UPDATE OF l`
	}
	return q
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec         Record
		status      *string
		disputed    *string
		amount      string
		balanceType string
	)
	l := &rec.Link
	err := row.Scan(
		&l.ID, &l.ReferenceCode, &l.RecordID, &l.ReconciliationID, &l.CompanyID,
		&l.IsVerified, &l.IsUsed, &l.CreatedAt, &l.ExpiresAt,
		&l.VerificationAttempts, &l.VerificationLockedUntil, &l.TaxVerifiedAt,
		&l.VerificationCode, &l.VerificationCodeExpiresAt,
		&status, &l.ResponseNote, &disputed, &l.DisputedCurrency, &l.RespondedAt,
		&rec.Counterparty.Name, &rec.Counterparty.Email, &rec.Counterparty.TaxNumber, &amount, &rec.Counterparty.Currency, &balanceType,
		&rec.Reconciliation.Period, &rec.Reconciliation.Template.Subject, &rec.Reconciliation.Template.Body, &rec.Reconciliation.Template.Notes,
		&rec.Company.Name, &rec.Company.Address, &rec.Company.Phone, &rec.Company.Email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	rec.Reconciliation.ID = l.ReconciliationID
	rec.Company.ID = l.CompanyID

	if status != nil {
		rs := ResponseStatus(*status)
		l.ResponseStatus = &rs
	}
	if disputed != nil {
		d, err := decimal.NewFromString(*disputed)
		if err != nil {
			return Record{}, err
		}
		l.DisputedAmount = &d
	}
	rec.Counterparty.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return Record{}, err
	}
	side, ok := letter.ParseSide(balanceType)
	if !ok {
		side = letter.SideDebit
	}
	rec.Counterparty.BalanceType = side

	l.CreatedAt = l.CreatedAt.UTC()
	l.ExpiresAt = l.ExpiresAt.UTC()
	return rec, nil
}

func (s *PostgresStore) updateLinkTx(ctx context.Context, tx pgx.Tx, l Link) error {
	var status *string
	if l.ResponseStatus != nil {
		v := string(*l.ResponseStatus)
		status = &v
	}
	var disputed *string
	if l.DisputedAmount != nil {
		v := l.DisputedAmount.String()
		disputed = &v
	}

	tag, err := tx.Exec(ctx,
		`UPDATE `+pgIdent(s.schema, "reconciliation_links")+`
		    SET is_verified = $2,
		        is_used = $3,
		        verification_attempts = $4,
		        verification_locked_until = $5,
		        tax_verified_at = $6,
		        verification_code = $7,
		        verification_code_expires_at = $8,
		        response_status = $9,
		        response_note = $10,
		        disputed_amount = $11::numeric,
		        disputed_currency = $12,
		        responded_at = $13
		  WHERE id = $1`,
		l.ID,
		l.IsVerified,
		l.IsUsed,
		l.VerificationAttempts,
		l.VerificationLockedUntil,
		l.TaxVerifiedAt,
		l.VerificationCode,
		l.VerificationCodeExpiresAt,
		status,
		l.ResponseNote,
		disputed,
		l.DisputedCurrency,
		l.RespondedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) insertEventTx(ctx context.Context, tx pgx.Tx, ev Event) error {
	var meta *string
	if len(ev.Meta) > 0 {
		b, err := json.Marshal(ev.Meta)
		if err != nil {
			return err
		}
		v := string(b)
		meta = &v
	}
	created := ev.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO `+pgIdent(s.schema, "link_events")+` (id, link_id, kind, meta, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		ev.ID, ev.LinkID, ev.Kind, meta, created,
	)
	return err
}
