// Package handler exposes the verification flows over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"regverify/internal/platform/middleware"
	"regverify/internal/verification/models"
	dErrors "regverify/pkg/domain-errors"
	"regverify/pkg/platform/httputil"
	"regverify/pkg/requestcontext"
)

// Service defines the verification operations the handler fronts.
type Service interface {
	BeginChallenge(ctx context.Context) (*models.Challenge, error)
	ValidateTaxpayer(ctx context.Context, req *models.Request) (*models.Result, error)
	VerifyProfessional(ctx context.Context, req *models.ProfessionalRequest) (*models.Result, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type dependencyCheck struct {
	name  string
	check HealthChecker
}

// Handler handles the verification endpoints.
type Handler struct {
	logger         *slog.Logger
	service        Service
	requestTimeout time.Duration
	checks         []dependencyCheck
}

// New creates a verification Handler.
func New(service Service, logger *slog.Logger, requestTimeout time.Duration) *Handler {
	return &Handler{logger: logger, service: service, requestTimeout: requestTimeout}
}

// AddHealthCheck registers a dependency probed by the health endpoint.
func (h *Handler) AddHealthCheck(name string, check HealthChecker) {
	h.checks = append(h.checks, dependencyCheck{name: name, check: check})
}

// Register registers the verification routes with the chi router. The timeout
// covers full portal round trips including retries, so it is far longer than
// a typical API budget.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(h.requestTimeout))
	router.Use(middleware.ContentTypeJSON)

	router.Get("/health", h.handleHealth)
	router.Post("/challenge", h.handleChallenge)
	router.Post("/validate", h.handleValidate)
	router.Post("/professional/verify", h.handleVerifyProfessional)

	r.Mount("/", router)
}

type healthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Timestamp    time.Time         `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Service:   "registry-verification",
		Timestamp: time.Now().UTC(),
	}
	status := http.StatusOK

	if len(h.checks) > 0 {
		resp.Dependencies = make(map[string]string, len(h.checks))
		for _, dep := range h.checks {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := dep.check.Health(ctx)
			cancel()
			if err != nil {
				resp.Dependencies[dep.name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				h.logger.WarnContext(r.Context(), "dependency health check failed",
					"dependency", dep.name,
					"error", err.Error(),
				)
				continue
			}
			resp.Dependencies[dep.name] = "ok"
		}
	}

	httputil.WriteJSON(w, status, resp)
}

type challengeResponse struct {
	Success      bool   `json:"success"`
	SessionID    string `json:"sessionId"`
	CaptchaImage string `json:"captchaImage"`
}

func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ch, err := h.service.BeginChallenge(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "challenge request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, resultResponse{
			Success:         false,
			RejectionReason: string(models.ReasonSessionEstablishmentFailed),
			Message:         "No se pudo obtener el código de seguridad. Por favor intenta nuevamente.",
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, challengeResponse{
		Success:      true,
		SessionID:    ch.SessionID,
		CaptchaImage: ch.ImageDataURI(),
	})
}

// resultResponse is the wire shape of a verification outcome. The structured
// record rides in data, whichever registry produced it.
type resultResponse struct {
	Success         bool   `json:"success"`
	Verified        bool   `json:"verified"`
	RejectionReason string `json:"rejectionReason,omitempty"`
	Message         string `json:"message,omitempty"`
	Data            any    `json:"data,omitempty"`
}

func toResponse(res *models.Result) resultResponse {
	out := resultResponse{
		Success:         res.Success,
		Verified:        res.Verified,
		RejectionReason: string(res.RejectionReason),
		Message:         res.Message,
	}
	switch {
	case res.Taxpayer != nil:
		out.Data = res.Taxpayer
	case res.Professional != nil:
		out.Data = res.Professional
	}
	return out
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.RegistryNumber, "1", "20") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "rif is required"))
		return
	}
	if !govalidator.StringLength(req.ChallengeAnswer, "1", "20") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "captcha is required"))
		return
	}
	if !govalidator.IsUUID(req.SessionID) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "sessionId is required"))
		return
	}
	if req.CorrelationID == "" {
		req.CorrelationID = r.Header.Get("X-Correlation-ID")
	}
	ctx = requestcontext.WithCorrelationID(ctx, req.CorrelationID)

	res, err := h.service.ValidateTaxpayer(ctx, &req)
	if err != nil {
		h.logger.ErrorContext(ctx, "taxpayer validation failed",
			"request_id", requestcontext.RequestID(ctx),
			"correlation_id", requestcontext.CorrelationID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "verification failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(res))
}

func (h *Handler) handleVerifyProfessional(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.ProfessionalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.DocumentType == "" {
		req.DocumentType = "V"
	}
	if !govalidator.Matches(req.Cedula, `^\d{6,10}$`) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			"cedula must be 6 to 10 digits"))
		return
	}
	if !govalidator.IsIn(req.DocumentType, "V", "E") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			"tipoDocumento must be V or E"))
		return
	}
	if req.CorrelationID == "" {
		req.CorrelationID = r.Header.Get("X-Correlation-ID")
	}
	ctx = requestcontext.WithCorrelationID(ctx, req.CorrelationID)

	res, err := h.service.VerifyProfessional(ctx, &req)
	if err != nil {
		h.logger.ErrorContext(ctx, "professional verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"correlation_id", requestcontext.CorrelationID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "verification failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(res))
}
