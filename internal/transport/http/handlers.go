// @title Signet Token Service API
// @version 1.0.0
// @description Signing-key lifecycle and token verification service

// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0

// @host localhost:8080
// @BasePath /

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"

	"github.com/creatorhub/signet/internal/audit"
	"github.com/creatorhub/signet/internal/keys"
	"github.com/creatorhub/signet/internal/observability/logger"
	"github.com/creatorhub/signet/internal/observability/metrics"
	"github.com/creatorhub/signet/internal/token"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	manager     *keys.Manager
	issuer      *token.Issuer
	auditLogger audit.Logger

	tokensIssued   metric.Int64Counter
	tokensRejected metric.Int64Counter
	jwksRequests   metric.Int64Counter
}

// NewHandler creates a new HTTP handler
func NewHandler(manager *keys.Manager, issuer *token.Issuer, auditLogger audit.Logger, meter *metrics.Meter) (*Handler, error) {
	tokensIssued, err := meter.Counter("signet_tokens_issued_total", "Tokens successfully issued")
	if err != nil {
		return nil, err
	}
	tokensRejected, err := meter.Counter("signet_tokens_rejected_total", "Token verifications rejected")
	if err != nil {
		return nil, err
	}
	jwksRequests, err := meter.Counter("signet_jwks_requests_total", "JWKS publications served")
	if err != nil {
		return nil, err
	}

	return &Handler{
		manager:        manager,
		issuer:         issuer,
		auditLogger:    auditLogger,
		tokensIssued:   tokensIssued,
		tokensRejected: tokensRejected,
		jwksRequests:   jwksRequests,
	}, nil
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)
	r.Get("/readyz", h.Ready)

	// JWKS (RFC 7517). Both paths serve the same set; third parties
	// conventionally poll the well-known one.
	r.Get("/.well-known/jwks.json", h.JWKS)
	r.Get("/jwks.json", h.JWKS)

	r.Post("/tokens", h.IssueToken)
	r.Post("/tokens/verify", h.VerifyToken)

	return r
}

// HealthCheck reports process liveness
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "signet",
	})
}

// Ready reports whether the backing store is reachable
// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /readyz [get]
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "readiness probe failed", logger.Error(err))
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// JWKS returns the public verification key set
// @Summary JWKS
// @Description Returns the JSON Web Key Set used to verify issued tokens.
// @Description Serving this endpoint also retires keys past their lifetime.
// @Tags Keys
// @Produce json
// @Success 200 {object} keys.JWKS
// @Router /.well-known/jwks.json [get]
func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	set, err := h.manager.PublicKeySet(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to publish key set", logger.Error(err))
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	h.jwksRequests.Add(r.Context(), 1)
	respondJSON(w, http.StatusOK, set)
}

// IssueRequest carries arbitrary caller claims for a new token.
type IssueRequest map[string]any

// IssueToken mints a signed token for the supplied claims
// @Summary Issue token
// @Description Signs the request body's claims with the current signing key.
// @Tags Tokens
// @Accept json
// @Produce json
// @Success 200 {object} token.Issued
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /tokens [post]
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	issued, err := h.issuer.Issue(r.Context(), req)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue token", logger.Error(err))
		switch {
		case errors.Is(err, keys.ErrStoreUnavailable):
			respondError(w, http.StatusServiceUnavailable, "store unavailable")
		default:
			respondError(w, http.StatusInternalServerError, "failed to issue token")
		}
		return
	}

	h.tokensIssued.Add(r.Context(), 1)
	respondJSON(w, http.StatusOK, issued)
}

// VerifyRequest carries a compact token for verification.
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse is the successful verification outcome.
type VerifyResponse struct {
	Active    bool           `json:"active"`
	KID       string         `json:"kid"`
	ExpiresAt time.Time      `json:"expires_at"`
	Claims    map[string]any `json:"claims"`
}

// VerifyToken validates a presented token
// @Summary Verify token
// @Description Verifies a compact signed token against the key identified
// @Description by its header. Rejections are 401 with a typed error code;
// @Description store failures are 503.
// @Tags Tokens
// @Accept json
// @Produce json
// @Success 200 {object} VerifyResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /tokens/verify [post]
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.manager.Verify(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, keys.ErrStoreUnavailable) {
			slog.ErrorContext(r.Context(), "verification hit unavailable store", logger.Error(err))
			respondError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}

		code := rejectionCode(err)
		h.tokensRejected.Add(r.Context(), 1)
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:     audit.TypeTokenRejected,
			Metadata: map[string]any{"reason": code},
		})
		respondError(w, http.StatusUnauthorized, code)
		return
	}

	respondJSON(w, http.StatusOK, VerifyResponse{
		Active:    true,
		KID:       result.KID,
		ExpiresAt: result.ExpiresAt,
		Claims:    result.Claims,
	})
}

// rejectionCode maps a verification failure onto a stable wire code.
func rejectionCode(err error) string {
	switch {
	case errors.Is(err, keys.ErrMissingKeyID):
		return "missing_key_identifier"
	case errors.Is(err, keys.ErrUnknownKey):
		return "unknown_or_retired_key"
	case errors.Is(err, keys.ErrTokenExpired):
		return "token_expired"
	default:
		return "signature_invalid"
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
