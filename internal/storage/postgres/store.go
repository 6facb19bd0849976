// Package postgres persists verification outcomes in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"regverify/internal/storage"
	"regverify/pkg/platform/sentinel"
)

// Schema creates the tables this package writes to. The service runs it at
// startup; deployments with managed migrations can apply it there instead.
const Schema = `
CREATE TABLE IF NOT EXISTS verification_audit (
	correlation_id  TEXT PRIMARY KEY,
	identity_id     TEXT NOT NULL DEFAULT '',
	registry        TEXT NOT NULL,
	registry_number TEXT NOT NULL,
	document_type   TEXT NOT NULL DEFAULT '',
	result          JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verified_profiles (
	identity_id        TEXT PRIMARY KEY,
	verified           BOOLEAN NOT NULL,
	full_name          TEXT NOT NULL DEFAULT '',
	primary_profession TEXT NOT NULL DEFAULT '',
	primary_license    TEXT NOT NULL DEFAULT '',
	specialty_display  TEXT NOT NULL DEFAULT '',
	verified_at        TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure verification schema: %w", err)
	}
	return nil
}

// AuditStore is the PostgreSQL audit trail.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore constructs a PostgreSQL-backed audit store.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Append inserts the record. The correlation id is the primary key; a replay
// inserts nothing and reports false.
func (s *AuditStore) Append(ctx context.Context, rec *storage.AuditRecord) (bool, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	result := rec.Result
	if result == nil {
		result = json.RawMessage(`{}`)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_audit
			(correlation_id, identity_id, registry, registry_number, document_type, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (correlation_id) DO NOTHING`,
		rec.CorrelationID, rec.IdentityID, string(rec.Registry),
		rec.RegistryNumber, rec.DocumentType, []byte(result), createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("append audit record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append audit record: rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *AuditStore) FindByCorrelationID(ctx context.Context, correlationID string) (*storage.AuditRecord, error) {
	var rec storage.AuditRecord
	var registry string
	var result []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT correlation_id, identity_id, registry, registry_number, document_type, result, created_at
		FROM verification_audit
		WHERE correlation_id = $1`,
		correlationID,
	).Scan(&rec.CorrelationID, &rec.IdentityID, &registry,
		&rec.RegistryNumber, &rec.DocumentType, &result, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find audit record: %w", err)
	}

	rec.Registry = storage.Registry(registry)
	rec.Result = result
	return &rec, nil
}

// ProfileStore writes verified-profile flags to PostgreSQL.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore constructs a PostgreSQL-backed profile store.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) SetVerified(ctx context.Context, identityID string, flag storage.ProfileFlag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verified_profiles
			(identity_id, verified, full_name, primary_profession,
			 primary_license, specialty_display, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity_id) DO UPDATE SET
			verified           = EXCLUDED.verified,
			full_name          = EXCLUDED.full_name,
			primary_profession = EXCLUDED.primary_profession,
			primary_license    = EXCLUDED.primary_license,
			specialty_display  = EXCLUDED.specialty_display,
			verified_at        = EXCLUDED.verified_at`,
		identityID, flag.Verified, flag.FullName,
		flag.PrimaryProfession, flag.PrimaryLicense, flag.SpecialtyDisplay, flag.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("set verified profile: %w", err)
	}
	return nil
}
