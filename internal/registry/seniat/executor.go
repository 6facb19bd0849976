package seniat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"regverify/internal/checksum"
	"regverify/internal/retry"
	"regverify/internal/session"
	"regverify/internal/verification/models"
	"regverify/pkg/platform/sentinel"
)

// Executor runs the submission phase: consume a stored session, replay its
// cookies, submit the registry number plus the challenge answer, and read the
// verdict off the result page.
type Executor struct {
	driver Driver
	store  session.Store
	policy retry.Policy
	logger *slog.Logger
}

// NewExecutor constructs an Executor.
func NewExecutor(driver Driver, store session.Store, policy retry.Policy, logger *slog.Logger) *Executor {
	return &Executor{driver: driver, store: store, policy: policy, logger: logger}
}

// Submit validates a taxpayer registry number. Domain rejections come back as
// structured results; the error return is reserved for store failures.
//
// A session is consumed by any attempt that reaches the portal. One challenge
// image maps to at most one submitted answer; after a wrong answer the caller
// starts over with a fresh challenge.
func (e *Executor) Submit(ctx context.Context, req *models.Request) (*models.Result, error) {
	if _, err := e.store.Get(ctx, req.SessionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return models.Rejected(models.ReasonSessionExpired, "Sesión expirada o inválida"), nil
		}
		return nil, fmt.Errorf("look up session: %w", err)
	}

	rif := checksum.NormalizeRIF(req.RegistryNumber)
	if !checksum.ValidRIF(rif) {
		return models.Rejected(models.ReasonInvalidFormat,
			"El formato del RIF es inválido o el dígito verificador es incorrecto"), nil
	}

	// Atomic gate: from here the session cannot satisfy a second submission.
	sess, err := e.store.Take(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return models.Rejected(models.ReasonSessionExpired, "Sesión expirada o inválida"), nil
		}
		return nil, fmt.Errorf("take session: %w", err)
	}

	var pageHTML string
	err = e.policy.Navigation(ctx, func(ctx context.Context) error {
		var err error
		pageHTML, err = e.driver.SubmitQuery(ctx, sess.Cookies, rif, req.ChallengeAnswer)
		return err
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "query submission failed",
			"session_id", req.SessionID,
			"error", err,
		)
		return models.Rejected(models.ReasonNetworkError,
			"Error al consultar el portal. Por favor intenta nuevamente."), nil
	}

	parsed := ParseResult(pageHTML)
	switch parsed.Outcome {
	case OutcomeCaptchaIncorrect:
		return models.Rejected(models.ReasonCaptchaIncorrect, "Código de seguridad incorrecto"), nil
	case OutcomeRecord:
		return &models.Result{
			Success:  true,
			Verified: true,
			Message:  "Verificación exitosa",
			Taxpayer: &models.TaxpayerRecord{RIF: rif, BusinessName: parsed.BusinessName},
		}, nil
	default:
		return models.Rejected(models.ReasonNotFound,
			"Contribuyente no encontrado o error en el portal"), nil
	}
}
