package reconlink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema is the Postgres schema used when none is configured.
const DefaultSchema = "mutabakat"

// SchemaSQL returns idempotent DDL for every table this package reads or writes.
// companies, reconciliations and reconciliation_records are owned by the dashboard;
// they are declared here with the columns the link protocol depends on.
func SchemaSQL(schema string) string {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = DefaultSchema
	}
	companies := pgIdent(schema, "companies")
	reconciliations := pgIdent(schema, "reconciliations")
	records := pgIdent(schema, "reconciliation_records")
	links := pgIdent(schema, "reconciliation_links")
	events := pgIdent(schema, "link_events")

	return fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[2]s (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  address TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  require_tax_verification BOOLEAN NOT NULL DEFAULT false,
  require_otp_verification BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS %[3]s (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL REFERENCES %[2]s(id),
  period TEXT NOT NULL,
  letter_subject TEXT NOT NULL DEFAULT '',
  letter_body TEXT NOT NULL DEFAULT '',
  letter_notes TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS %[4]s (
  id TEXT PRIMARY KEY,
  reconciliation_id TEXT NOT NULL REFERENCES %[3]s(id),
  recipient_name TEXT NOT NULL,
  recipient_email TEXT NOT NULL,
  tax_number TEXT NOT NULL DEFAULT '',
  amount NUMERIC(18,2) NOT NULL,
  currency TEXT NOT NULL DEFAULT 'TRY',
  balance_type TEXT NOT NULL DEFAULT 'borc',
  CONSTRAINT chk_records_balance_type CHECK (balance_type IN ('borc', 'alacak'))
);

CREATE TABLE IF NOT EXISTS %[5]s (
  id TEXT PRIMARY KEY,
  reference_code TEXT NOT NULL,
  record_id TEXT NOT NULL REFERENCES %[4]s(id),
  reconciliation_id TEXT NOT NULL REFERENCES %[3]s(id),
  company_id TEXT NOT NULL,
  is_verified BOOLEAN NOT NULL DEFAULT false,
  is_used BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  expires_at TIMESTAMPTZ NOT NULL,
  verification_attempts INT NOT NULL DEFAULT 0,
  verification_locked_until TIMESTAMPTZ NULL,
  tax_verified_at TIMESTAMPTZ NULL,
  verification_code TEXT NULL,
  verification_code_expires_at TIMESTAMPTZ NULL,
  response_status TEXT NULL,
  response_note TEXT NULL,
  disputed_amount NUMERIC(18,2) NULL,
  disputed_currency TEXT NULL,
  responded_at TIMESTAMPTZ NULL,
  CONSTRAINT chk_links_id_ulid_len CHECK (char_length(id) = 26),
  CONSTRAINT chk_links_attempts CHECK (verification_attempts >= 0),
  CONSTRAINT chk_links_code_format CHECK (verification_code IS NULL OR verification_code ~ '^[0-9]{6}$'),
  CONSTRAINT chk_links_response_status CHECK (response_status IS NULL OR response_status IN ('agree', 'dispute')),
  CONSTRAINT chk_links_dispute_fields CHECK (
    response_status IS DISTINCT FROM 'dispute'
    OR (disputed_amount > 0 AND response_note IS NOT NULL AND btrim(response_note) <> '')
  ),
  CONSTRAINT chk_links_used_has_response CHECK (
    NOT is_used OR (response_status IS NOT NULL AND responded_at IS NOT NULL)
  )
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_reconciliation_links_reference_code ON %[5]s (reference_code);
CREATE INDEX IF NOT EXISTS ix_reconciliation_links_record ON %[5]s (record_id);

CREATE TABLE IF NOT EXISTS %[6]s (
  id TEXT PRIMARY KEY,
  link_id TEXT NOT NULL REFERENCES %[5]s(id),
  kind TEXT NOT NULL,
  meta JSONB NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS ix_link_events_link ON %[6]s (link_id, created_at);
`, pgx.Identifier{schema}.Sanitize(), companies, reconciliations, records, links, events)
}

// ApplySchema executes SchemaSQL against pool.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if pool == nil {
		return ErrInvalidInput
	}
	if _, err := pool.Exec(ctx, SchemaSQL(schema)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
