// Package service coordinates the verification flows: it fronts the registry
// drivers, records every outcome in the audit trail, and flags verified
// professionals on their profile.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"regverify/internal/storage"
	"regverify/internal/verification/metrics"
	"regverify/internal/verification/models"
	"regverify/pkg/platform/sentinel"
)

// ChallengeOrchestrator runs the taxpayer challenge phase.
type ChallengeOrchestrator interface {
	BeginChallenge(ctx context.Context) (*models.Challenge, error)
}

// TaxpayerExecutor runs the taxpayer submission phase.
type TaxpayerExecutor interface {
	Submit(ctx context.Context, req *models.Request) (*models.Result, error)
}

// ProfessionalVerifier runs the health-professional consultation.
type ProfessionalVerifier interface {
	Verify(ctx context.Context, documentType, cedula string) (*models.Result, error)
}

// Service is the verification gateway.
type Service struct {
	orchestrator ChallengeOrchestrator
	executor     TaxpayerExecutor
	professional ProfessionalVerifier
	audits       storage.AuditStore
	profiles     storage.ProfileStore
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time
}

// New constructs the verification service.
func New(
	orchestrator ChallengeOrchestrator,
	executor TaxpayerExecutor,
	professional ProfessionalVerifier,
	audits storage.AuditStore,
	profiles storage.ProfileStore,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		orchestrator: orchestrator,
		executor:     executor,
		professional: professional,
		audits:       audits,
		profiles:     profiles,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

// BeginChallenge obtains a fresh challenge from the taxpayer portal.
func (s *Service) BeginChallenge(ctx context.Context) (*models.Challenge, error) {
	start := s.now()
	s.metrics.IncrementBrowserLaunch("taxpayer", "challenge")

	ch, err := s.orchestrator.BeginChallenge(ctx)
	s.metrics.ObserveNavigation("taxpayer", "challenge", s.now().Sub(start))
	if err != nil {
		s.metrics.IncrementOutcome("taxpayer", string(models.ReasonSessionEstablishmentFailed))
		s.logger.ErrorContext(ctx, "challenge establishment failed", "error", err)
		return nil, err
	}
	return ch, nil
}

// ValidateTaxpayer runs the taxpayer submission phase and records the
// outcome. A request with a correlation id already in the audit trail is a
// replay and returns the recorded outcome without touching the portal.
func (s *Service) ValidateTaxpayer(ctx context.Context, req *models.Request) (*models.Result, error) {
	correlationID, replay, err := s.replayedResult(ctx, req.CorrelationID)
	if replay != nil || err != nil {
		return replay, err
	}

	start := s.now()
	s.metrics.IncrementBrowserLaunch("taxpayer", "submit")
	res, err := s.executor.Submit(ctx, req)
	s.metrics.ObserveNavigation("taxpayer", "submit", s.now().Sub(start))
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementOutcome("taxpayer", outcomeLabel(res))

	s.appendAudit(ctx, &storage.AuditRecord{
		CorrelationID:  correlationID,
		Registry:       storage.RegistryTaxpayer,
		RegistryNumber: req.RegistryNumber,
	}, res)
	return res, nil
}

// VerifyProfessional runs the health-professional consultation, records the
// outcome, and on an eligible record flags the caller's profile. A replayed
// correlation id still re-attempts the profile flag, so a write that failed
// on the first pass is repaired by retrying the same request.
func (s *Service) VerifyProfessional(ctx context.Context, req *models.ProfessionalRequest) (*models.Result, error) {
	correlationID, replay, err := s.replayedResult(ctx, req.CorrelationID)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		s.flagProfile(ctx, req.CallerIdentityID, correlationID, replay)
		return replay, nil
	}

	start := s.now()
	s.metrics.IncrementBrowserLaunch("professional", "lookup")
	res, err := s.professional.Verify(ctx, req.DocumentType, req.Cedula)
	s.metrics.ObserveNavigation("professional", "lookup", s.now().Sub(start))
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementOutcome("professional", outcomeLabel(res))

	s.appendAudit(ctx, &storage.AuditRecord{
		CorrelationID:  correlationID,
		IdentityID:     req.CallerIdentityID,
		Registry:       storage.RegistryProfessional,
		RegistryNumber: req.Cedula,
		DocumentType:   req.DocumentType,
	}, res)

	s.flagProfile(ctx, req.CallerIdentityID, correlationID, res)
	return res, nil
}

// flagProfile marks the caller's profile verified after an eligible
// consultation. Ineligible and failed lookups leave the profile untouched.
// The verdict stands even when the write fails; replaying the correlation id
// retries it.
func (s *Service) flagProfile(ctx context.Context, identityID, correlationID string, res *models.Result) {
	rec := res.Professional
	if identityID == "" || rec == nil || !rec.Eligible {
		return
	}

	flag := storage.ProfileFlag{
		Verified:          true,
		FullName:          rec.FullName,
		PrimaryProfession: rec.PrimaryProfession,
		PrimaryLicense:    rec.PrimaryLicense,
		SpecialtyDisplay:  rec.SpecialtyDisplay,
		VerifiedAt:        s.now(),
	}
	if err := s.profiles.SetVerified(ctx, identityID, flag); err != nil {
		s.logger.ErrorContext(ctx, "profile flag update failed",
			"identity_id", identityID,
			"correlation_id", correlationID,
			"error", err,
		)
	}
}

// replayedResult resolves the correlation id, defaulting a fresh one, and
// returns the recorded outcome when the id already carries a successful
// record. A recorded failure does not stick: the caller re-runs the
// verification, and the audit append stays idempotent.
func (s *Service) replayedResult(ctx context.Context, correlationID string) (string, *models.Result, error) {
	if correlationID == "" {
		return uuid.NewString(), nil, nil
	}

	rec, err := s.audits.FindByCorrelationID(ctx, correlationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return correlationID, nil, nil
		}
		return "", nil, err
	}

	var res models.Result
	if err := json.Unmarshal(rec.Result, &res); err != nil {
		s.logger.ErrorContext(ctx, "recorded outcome is unreadable",
			"correlation_id", correlationID,
			"error", err,
		)
		return "", nil, err
	}
	if !res.Success {
		s.logger.InfoContext(ctx, "re-running after recorded failure",
			"correlation_id", correlationID,
		)
		return correlationID, nil, nil
	}
	s.logger.InfoContext(ctx, "replayed recorded outcome", "correlation_id", correlationID)
	return correlationID, &res, nil
}

func (s *Service) appendAudit(ctx context.Context, rec *storage.AuditRecord, res *models.Result) {
	payload, err := json.Marshal(res)
	if err != nil {
		s.logger.ErrorContext(ctx, "audit payload marshal failed", "error", err)
		return
	}
	rec.Result = payload
	rec.CreatedAt = s.now()

	inserted, err := s.audits.Append(ctx, rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "audit append failed",
			"correlation_id", rec.CorrelationID,
			"error", err,
		)
		return
	}
	if !inserted {
		s.logger.WarnContext(ctx, "audit record already present",
			"correlation_id", rec.CorrelationID,
		)
	}
}

func outcomeLabel(res *models.Result) string {
	if res.RejectionReason != "" {
		return string(res.RejectionReason)
	}
	if res.Verified {
		return "ok"
	}
	return "unverified"
}
