package seniat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"regverify/internal/retry"
	"regverify/internal/session"
	"regverify/internal/verification/models"
)

// Orchestrator runs the challenge phase: establish a portal session, capture
// the challenge image, park the cookies in the session store, and hand the
// caller an opaque id to come back with once a human has read the image.
type Orchestrator struct {
	driver Driver
	store  session.Store
	policy retry.Policy
	logger *slog.Logger
	now    func() time.Time
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(driver Driver, store session.Store, policy retry.Policy, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		driver: driver,
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// BeginChallenge executes the first protocol phase. The browser context is
// gone by the time this returns; the stored cookies are what the submission
// phase replays.
func (o *Orchestrator) BeginChallenge(ctx context.Context) (*models.Challenge, error) {
	var cookies []session.Cookie
	var captcha []byte

	err := o.policy.Navigation(ctx, func(ctx context.Context) error {
		var err error
		cookies, captcha, err = o.driver.FetchChallenge(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch challenge: %w", err)
	}

	sess := &session.VerificationSession{
		ID:        uuid.NewString(),
		Cookies:   cookies,
		CreatedAt: o.now(),
	}
	if err := o.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	o.logger.InfoContext(ctx, "challenge issued",
		"session_id", sess.ID,
		"cookies", len(cookies),
	)

	return &models.Challenge{SessionID: sess.ID, ImagePNG: captcha}, nil
}
