// Package storage persists verification outcomes: an append-only audit trail
// keyed by correlation id, and a profile flag pushed to the caller's backing
// store once a professional verifies.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Registry names the upstream a verification ran against.
type Registry string

const (
	RegistryTaxpayer     Registry = "taxpayer"
	RegistryProfessional Registry = "professional"
)

// AuditRecord is one verification attempt's outcome as persisted.
type AuditRecord struct {
	CorrelationID  string
	IdentityID     string
	Registry       Registry
	RegistryNumber string
	DocumentType   string
	Result         json.RawMessage
	CreatedAt      time.Time
}

// ProfileFlag is the verified-professional marker written to a profile once
// an eligible verification completes. Ineligible and failed lookups never
// produce one.
type ProfileFlag struct {
	Verified          bool      `json:"verified"`
	FullName          string    `json:"fullName,omitempty"`
	PrimaryProfession string    `json:"primaryProfession,omitempty"`
	PrimaryLicense    string    `json:"primaryLicense,omitempty"`
	SpecialtyDisplay  string    `json:"specialtyDisplay,omitempty"`
	VerifiedAt        time.Time `json:"verifiedAt"`
}

// AuditStore appends verification outcomes. Append reports whether the record
// was inserted; a false return with a nil error means the correlation id was
// already recorded, which is how replays are detected.
type AuditStore interface {
	Append(ctx context.Context, rec *AuditRecord) (inserted bool, err error)
	FindByCorrelationID(ctx context.Context, correlationID string) (*AuditRecord, error)
}

// ProfileStore updates the caller's profile with the verification flag.
type ProfileStore interface {
	SetVerified(ctx context.Context, identityID string, flag ProfileFlag) error
}
