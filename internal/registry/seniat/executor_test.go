package seniat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"regverify/internal/retry"
	"regverify/internal/session"
	"regverify/internal/verification/models"
	"regverify/pkg/platform/sentinel"
)

const resultPage = `<html><body>Nombre o Razón Social: <b>Farmacia Ejemplo C.A.</b></body></html>`

type ExecutorSuite struct {
	suite.Suite
	driver *fakeDriver
	store  *session.InMemoryStore
	exec   *Executor

	now time.Time
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorSuite))
}

func (s *ExecutorSuite) SetupTest() {
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.driver = &fakeDriver{pageHTML: resultPage}
	s.store = session.NewMemory(10*time.Minute, session.WithClock(func() time.Time { return s.now }))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.exec = NewExecutor(s.driver, s.store, retry.Policy{Attempts: 3, Delay: time.Millisecond}, logger)
}

// seed stores a live session and returns its id.
func (s *ExecutorSuite) seed() string {
	sess := &session.VerificationSession{
		ID:        "sess-1",
		Cookies:   []session.Cookie{{Name: "JSESSIONID", Value: "abc123"}},
		CreatedAt: s.now,
	}
	s.Require().NoError(s.store.Put(context.Background(), sess))
	return sess.ID
}

func (s *ExecutorSuite) submit(rif, answer, sessionID string) *models.Result {
	res, err := s.exec.Submit(context.Background(), &models.Request{
		RegistryNumber:  rif,
		ChallengeAnswer: answer,
		SessionID:       sessionID,
	})
	s.Require().NoError(err)
	s.Require().NotNil(res)
	return res
}

func (s *ExecutorSuite) TestVerifiedTaxpayer() {
	id := s.seed()

	res := s.submit("V123456781", "abc12", id)

	s.True(res.Success)
	s.True(res.Verified)
	s.Empty(res.RejectionReason)
	s.Require().NotNil(res.Taxpayer)
	s.Equal("V123456781", res.Taxpayer.RIF)
	s.Equal("Farmacia Ejemplo C.A.", res.Taxpayer.BusinessName)

	s.Equal(1, s.driver.submitCalls)
	s.Equal("V123456781", s.driver.lastRegistryNumber)
	s.Equal("abc12", s.driver.lastAnswer)
	s.Equal([]session.Cookie{{Name: "JSESSIONID", Value: "abc123"}}, s.driver.lastCookies)
}

func (s *ExecutorSuite) TestNormalizesRegistryNumber() {
	id := s.seed()

	res := s.submit("v-12345678-1", "abc12", id)

	s.True(res.Verified)
	s.Equal("V123456781", s.driver.lastRegistryNumber)
}

func (s *ExecutorSuite) TestUnknownSession() {
	res := s.submit("V123456781", "abc12", "no-such-session")

	s.False(res.Success)
	s.Equal(models.ReasonSessionExpired, res.RejectionReason)
	s.Zero(s.driver.submitCalls)
}

func (s *ExecutorSuite) TestExpiredSession() {
	id := s.seed()
	s.now = s.now.Add(11 * time.Minute)

	res := s.submit("V123456781", "abc12", id)

	s.False(res.Success)
	s.Equal(models.ReasonSessionExpired, res.RejectionReason)
	s.Zero(s.driver.submitCalls)
}

func (s *ExecutorSuite) TestInvalidCheckDigit() {
	id := s.seed()

	res := s.submit("V123456780", "abc12", id)

	s.False(res.Success)
	s.Equal(models.ReasonInvalidFormat, res.RejectionReason)
	s.Zero(s.driver.submitCalls)

	// A locally rejected number must not burn the session.
	_, err := s.store.Get(context.Background(), id)
	s.NoError(err)
}

func (s *ExecutorSuite) TestMalformedRegistryNumber() {
	id := s.seed()

	res := s.submit("X123456781", "abc12", id)

	s.Equal(models.ReasonInvalidFormat, res.RejectionReason)
	s.Zero(s.driver.submitCalls)
}

func (s *ExecutorSuite) TestSessionIsSingleUse() {
	id := s.seed()

	first := s.submit("V123456781", "abc12", id)
	s.True(first.Verified)

	second := s.submit("V123456781", "abc12", id)
	s.False(second.Success)
	s.Equal(models.ReasonSessionExpired, second.RejectionReason)
	s.Equal(1, s.driver.submitCalls)
}

func (s *ExecutorSuite) TestIncorrectChallengeAnswerConsumesSession() {
	s.driver.pageHTML = `<html><body>El código de seguridad es incorrecto</body></html>`
	id := s.seed()

	res := s.submit("V123456781", "wrong", id)

	s.False(res.Success)
	s.Equal(models.ReasonCaptchaIncorrect, res.RejectionReason)

	// The answer reached the portal, so the session is spent.
	_, err := s.store.Get(context.Background(), id)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ExecutorSuite) TestTaxpayerNotFound() {
	s.driver.pageHTML = `<html><body>No existe el contribuyente</body></html>`
	id := s.seed()

	res := s.submit("V123456781", "abc12", id)

	s.False(res.Success)
	s.Equal(models.ReasonNotFound, res.RejectionReason)
}

func (s *ExecutorSuite) TestNetworkFailureExhaustsRetryBudget() {
	boom := errors.New("net::ERR_TUNNEL_CONNECTION_FAILED")
	s.driver.submitErrs = []error{boom, boom, boom}
	id := s.seed()

	res := s.submit("V123456781", "abc12", id)

	s.False(res.Success)
	s.Equal(models.ReasonNetworkError, res.RejectionReason)
	s.Equal(3, s.driver.submitCalls)
}

func (s *ExecutorSuite) TestTransientFailureThenSuccess() {
	s.driver.submitErrs = []error{retry.MarkTransient(errors.New("flap"))}
	id := s.seed()

	res := s.submit("V123456781", "abc12", id)

	s.True(res.Verified)
	s.Equal(2, s.driver.submitCalls)
}
