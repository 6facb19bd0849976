package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"regverify/internal/storage"
	"regverify/internal/storage/memory"
	"regverify/internal/verification/metrics"
	"regverify/internal/verification/models"
)

type fakeOrchestrator struct {
	challenge *models.Challenge
	err       error
	calls     int
}

func (f *fakeOrchestrator) BeginChallenge(context.Context) (*models.Challenge, error) {
	f.calls++
	return f.challenge, f.err
}

type fakeExecutor struct {
	result *models.Result
	err    error
	calls  int
}

func (f *fakeExecutor) Submit(context.Context, *models.Request) (*models.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeVerifier struct {
	result *models.Result
	err    error
	calls  int
}

func (f *fakeVerifier) Verify(context.Context, string, string) (*models.Result, error) {
	f.calls++
	return f.result, f.err
}

type failingProfileStore struct {
	err error
}

func (f *failingProfileStore) SetVerified(context.Context, string, storage.ProfileFlag) error {
	return f.err
}

// flakyProfileStore fails the first n writes, then delegates.
type flakyProfileStore struct {
	fails int
	inner *memory.ProfileStore
}

func (f *flakyProfileStore) SetVerified(ctx context.Context, identityID string, flag storage.ProfileFlag) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("backend down")
	}
	return f.inner.SetVerified(ctx, identityID, flag)
}

var testMetrics = metrics.New()

type ServiceSuite struct {
	suite.Suite
	orchestrator *fakeOrchestrator
	executor     *fakeExecutor
	verifier     *fakeVerifier
	audits       *memory.AuditStore
	profiles     *memory.ProfileStore
	svc          *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.orchestrator = &fakeOrchestrator{
		challenge: &models.Challenge{SessionID: "sess-1", ImagePNG: []byte("png")},
	}
	s.executor = &fakeExecutor{
		result: &models.Result{
			Success:  true,
			Verified: true,
			Message:  "Verificación exitosa",
			Taxpayer: &models.TaxpayerRecord{RIF: "V123456781", BusinessName: "Farmacia Ejemplo C.A."},
		},
	}
	s.verifier = &fakeVerifier{
		result: &models.Result{
			Success:  true,
			Verified: true,
			Professional: &models.ProfessionalRecord{
				Cedula:            "12345678",
				DocumentType:      "V",
				FullName:          "MARÍA PÉREZ",
				PrimaryProfession: "MÉDICO(A) CIRUJANO(A)",
				PrimaryLicense:    "MPPS-98765",
				SpecialtyDisplay:  "CARDIOLOGÍA",
				HumanHealth:       true,
				Eligible:          true,
			},
		},
	}
	s.audits = memory.NewAuditStore()
	s.profiles = memory.NewProfileStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = New(s.orchestrator, s.executor, s.verifier, s.audits, s.profiles, testMetrics, logger)
}

func (s *ServiceSuite) TestBeginChallenge() {
	ch, err := s.svc.BeginChallenge(context.Background())
	s.Require().NoError(err)
	s.Equal("sess-1", ch.SessionID)
}

func (s *ServiceSuite) TestBeginChallengeFailure() {
	s.orchestrator.err = errors.New("portal down")
	s.orchestrator.challenge = nil

	_, err := s.svc.BeginChallenge(context.Background())
	s.Error(err)
}

func (s *ServiceSuite) TestValidateTaxpayerRecordsAudit() {
	res, err := s.svc.ValidateTaxpayer(context.Background(), &models.Request{
		RegistryNumber:  "V123456781",
		ChallengeAnswer: "abc12",
		SessionID:       "sess-1",
		CorrelationID:   "corr-1",
	})
	s.Require().NoError(err)
	s.True(res.Verified)

	rec, err := s.audits.FindByCorrelationID(context.Background(), "corr-1")
	s.Require().NoError(err)
	s.Equal(storage.RegistryTaxpayer, rec.Registry)
	s.Equal("V123456781", rec.RegistryNumber)
	s.Contains(string(rec.Result), "Farmacia Ejemplo C.A.")
}

func (s *ServiceSuite) TestValidateTaxpayerReplaysRecordedOutcome() {
	req := &models.Request{
		RegistryNumber:  "V123456781",
		ChallengeAnswer: "abc12",
		SessionID:       "sess-1",
		CorrelationID:   "corr-1",
	}

	first, err := s.svc.ValidateTaxpayer(context.Background(), req)
	s.Require().NoError(err)

	second, err := s.svc.ValidateTaxpayer(context.Background(), req)
	s.Require().NoError(err)

	s.Equal(first.Verified, second.Verified)
	s.Require().NotNil(second.Taxpayer)
	s.Equal("Farmacia Ejemplo C.A.", second.Taxpayer.BusinessName)
	s.Equal(1, s.executor.calls)
}

func (s *ServiceSuite) TestVerifyProfessionalFlagsProfile() {
	res, err := s.svc.VerifyProfessional(context.Background(), &models.ProfessionalRequest{
		Cedula:           "12345678",
		DocumentType:     "V",
		CallerIdentityID: "ident-1",
		CorrelationID:    "corr-2",
	})
	s.Require().NoError(err)
	s.True(res.Verified)

	flag, ok := s.profiles.Flag("ident-1")
	s.Require().True(ok)
	s.True(flag.Verified)
	s.Equal("MARÍA PÉREZ", flag.FullName)
	s.Equal("CARDIOLOGÍA", flag.SpecialtyDisplay)
	s.False(flag.VerifiedAt.IsZero())
}

func (s *ServiceSuite) TestVerifyProfessionalIneligibleSkipsProfile() {
	s.verifier.result = &models.Result{
		Success:         true,
		Verified:        false,
		RejectionReason: models.ReasonIneligible,
		Professional:    &models.ProfessionalRecord{Veterinary: true},
	}

	res, err := s.svc.VerifyProfessional(context.Background(), &models.ProfessionalRequest{
		Cedula:           "12345678",
		DocumentType:     "V",
		CallerIdentityID: "ident-1",
	})
	s.Require().NoError(err)
	s.False(res.Verified)

	// An ineligible record is audited but never reaches the profile.
	_, ok := s.profiles.Flag("ident-1")
	s.False(ok)
}

func (s *ServiceSuite) TestRecordedFailureDoesNotStickToCorrelationID() {
	s.verifier.result = models.Rejected(models.ReasonNetworkError,
		"Error al consultar el SACS. Por favor intenta nuevamente.")

	req := &models.ProfessionalRequest{
		Cedula:        "12345678",
		DocumentType:  "V",
		CorrelationID: "corr-3",
	}
	first, err := s.svc.VerifyProfessional(context.Background(), req)
	s.Require().NoError(err)
	s.False(first.Success)

	// The portal recovers; the same correlation id must reach it again.
	s.verifier.result = &models.Result{
		Success:      true,
		Verified:     true,
		Professional: &models.ProfessionalRecord{Eligible: true},
	}
	second, err := s.svc.VerifyProfessional(context.Background(), req)
	s.Require().NoError(err)
	s.True(second.Verified)
	s.Equal(2, s.verifier.calls)
}

func (s *ServiceSuite) TestReplayRepairsFailedProfileFlag() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	profiles := &flakyProfileStore{fails: 1, inner: s.profiles}
	svc := New(s.orchestrator, s.executor, s.verifier, s.audits, profiles, testMetrics, logger)

	req := &models.ProfessionalRequest{
		Cedula:           "12345678",
		DocumentType:     "V",
		CallerIdentityID: "ident-1",
		CorrelationID:    "corr-4",
	}
	first, err := svc.VerifyProfessional(context.Background(), req)
	s.Require().NoError(err)
	s.True(first.Verified)
	_, ok := s.profiles.Flag("ident-1")
	s.Require().False(ok)

	// The retry replays the recorded outcome yet still writes the flag.
	second, err := svc.VerifyProfessional(context.Background(), req)
	s.Require().NoError(err)
	s.True(second.Verified)
	s.Equal(1, s.verifier.calls)

	flag, ok := s.profiles.Flag("ident-1")
	s.Require().True(ok)
	s.True(flag.Verified)
	s.Equal("CARDIOLOGÍA", flag.SpecialtyDisplay)
}

func (s *ServiceSuite) TestVerifyProfessionalFailedLookupSkipsProfile() {
	s.verifier.result = models.Rejected(models.ReasonNetworkError, "Error al consultar el SACS.")

	res, err := s.svc.VerifyProfessional(context.Background(), &models.ProfessionalRequest{
		Cedula:           "12345678",
		DocumentType:     "V",
		CallerIdentityID: "ident-1",
	})
	s.Require().NoError(err)
	s.False(res.Success)

	_, ok := s.profiles.Flag("ident-1")
	s.False(ok)
}

func (s *ServiceSuite) TestProfileFailureDoesNotFailVerification() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(s.orchestrator, s.executor, s.verifier, s.audits,
		&failingProfileStore{err: errors.New("backend down")}, testMetrics, logger)

	res, err := svc.VerifyProfessional(context.Background(), &models.ProfessionalRequest{
		Cedula:           "12345678",
		DocumentType:     "V",
		CallerIdentityID: "ident-1",
	})
	s.Require().NoError(err)
	s.True(res.Verified)
}

func (s *ServiceSuite) TestMissingCorrelationIDGetsDefaulted() {
	res, err := s.svc.VerifyProfessional(context.Background(), &models.ProfessionalRequest{
		Cedula:       "12345678",
		DocumentType: "V",
	})
	s.Require().NoError(err)
	s.True(res.Verified)
	s.Equal(1, s.verifier.calls)

	// A second call without a correlation id is a fresh verification.
	_, err = s.svc.VerifyProfessional(context.Background(), &models.ProfessionalRequest{
		Cedula:       "12345678",
		DocumentType: "V",
	})
	s.Require().NoError(err)
	s.Equal(2, s.verifier.calls)
}
