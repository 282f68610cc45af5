// Package httphandler is the HTTP driving adapter that serves the JSON API.
// Every data endpoint reads the provider credential from the encrypted
// session cookie; nothing credential- or PII-bearing ever appears in a URL,
// response body, or log line.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/odanree/credit-history-app/internal/application"
	"github.com/odanree/credit-history-app/internal/domain/model"
	"github.com/odanree/credit-history-app/internal/domain/port/driven"
	"github.com/odanree/credit-history-app/internal/secret"
	"github.com/odanree/credit-history-app/internal/session"
)

// Options carries the scalar handler settings that come from configuration.
type Options struct {
	// PlaidConfigured and ExperianConfigured drive the config-status
	// endpoint only; they never gate requests.
	PlaidConfigured    bool
	ExperianConfigured bool

	// BootstrapToken, when set, lets the setup endpoint adopt a
	// pre-provisioned credential for local development. The value itself is
	// never logged or echoed.
	BootstrapToken string

	// DefaultDays is the transaction window used when the client does not
	// pass one.
	DefaultDays int

	// CacheTTL bounds snapshot freshness when a snapshot store is attached.
	CacheTTL time.Duration
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	profiles  *application.ProfileService
	sessions  *session.Store
	snapshots driven.SnapshotStore // nil when the cache is disabled
	consumer  model.ConsumerIdentity
	opts      Options
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. snapshots may
// be nil when the snapshot cache is disabled.
func NewHandler(
	profiles *application.ProfileService,
	sessions *session.Store,
	snapshots driven.SnapshotStore,
	consumer model.ConsumerIdentity,
	opts Options,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		profiles:  profiles,
		sessions:  sessions,
		snapshots: snapshots,
		consumer:  consumer,
		opts:      opts,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/profile", h.GetProfile)
	mux.HandleFunc("GET /api/v1/transactions", h.GetTransactions)
	mux.HandleFunc("GET /api/v1/spending", h.GetSpending)
	mux.HandleFunc("GET /api/v1/recommendations", h.GetRecommendations)
	mux.HandleFunc("POST /api/v1/setup", h.Setup)
	mux.HandleFunc("POST /api/v1/logout", h.Logout)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/config-status", h.ConfigStatus)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// GetProfile returns the full unified profile, built fresh from both
// providers on every call.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.requireCredential(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.BuildProfile(r.Context(), credential, h.consumer)
	if err != nil {
		h.writeProfileError(w, err)
		return
	}

	h.cacheSnapshot(credential, profile)
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// GetTransactions returns credit card accounts and transactions for the
// trailing window. The days query parameter overrides the default.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.requireCredential(w, r)
	if !ok {
		return
	}

	days, ok := h.parseDays(w, r)
	if !ok {
		return
	}

	data, err := h.profiles.FetchTransactions(r.Context(), credential, days)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	resp := TransactionsResponse{
		Accounts:     []AccountResponse{},
		Transactions: []TransactionResponse{},
		TotalCards:   data.TotalCards,
		TotalBalance: data.TotalBalance,
		TotalLimit:   data.TotalLimit,
		Days:         days,
	}
	for _, a := range data.Accounts {
		resp.Accounts = append(resp.Accounts, toAccountResponse(a))
	}
	for _, t := range data.Transactions {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(t))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetSpending returns the spending analysis for the trailing window.
func (h *Handler) GetSpending(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.requireCredential(w, r)
	if !ok {
		return
	}

	days, ok := h.parseDays(w, r)
	if !ok {
		return
	}

	analysis, err := h.profiles.AnalyzeSpending(r.Context(), credential, days)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSpendingResponse(analysis))
}

// GetRecommendations returns the current recommendations. When the snapshot
// cache holds a fresh summary for this credential the rules run against it
// without touching the providers.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	credential, ok := h.requireCredential(w, r)
	if !ok {
		return
	}

	if snapshot := h.freshSnapshot(r.Context(), credential); snapshot != nil {
		writeJSON(w, http.StatusOK, RecommendationsResponse{
			Recommendations: toRecommendationResponses(application.Recommend(snapshot.Summary)),
			Cached:          true,
		})
		return
	}

	profile, err := h.profiles.BuildProfile(r.Context(), credential, h.consumer)
	if err != nil {
		h.writeProfileError(w, err)
		return
	}

	h.cacheSnapshot(credential, profile)
	writeJSON(w, http.StatusOK, RecommendationsResponse{
		Recommendations: toRecommendationResponses(profile.Recommendations),
	})
}

// Setup stores the provider credential encrypted in the session cookie. An
// empty body falls back to the pre-provisioned bootstrap token when one is
// configured.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	credential := req.AccessToken
	source := "request"
	if credential == "" {
		credential = h.opts.BootstrapToken
		source = "bootstrap"
	}
	if credential == "" {
		writeError(w, http.StatusBadRequest, "access_token is required")
		return
	}

	if err := h.sessions.Save(w, credential); err != nil {
		h.logger.Error("failed to establish session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("session established", "credential_source", source)
	writeJSON(w, http.StatusCreated, StatusResponse{Status: "linked"})
}

// Logout clears the session cookie and drops any cached snapshot for the
// departing credential.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.snapshots != nil {
		if credential, err := h.sessions.Retrieve(r); err == nil {
			if err := h.snapshots.Delete(r.Context(), secret.Fingerprint(credential)); err != nil {
				h.logger.Warn("failed to drop cached snapshot", "error", err)
			}
		}
	}

	h.sessions.Clear(w)
	writeJSON(w, http.StatusOK, StatusResponse{Status: "logged_out"})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Storage: "session-only",
	})
}

// ConfigStatus reports which providers are configured and whether the
// request carries a session credential. Booleans only.
func (h *Handler) ConfigStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConfigStatusResponse{
		PlaidConfigured:    h.opts.PlaidConfigured,
		ExperianConfigured: h.opts.ExperianConfigured,
		SessionActive:      h.sessions.Present(r),
	})
}

// requireCredential retrieves the session credential or writes a 401 routing
// the client to setup. A cookie that fails to decrypt (rotated key, tamper)
// is handled exactly like a missing one; the cause stays server-side.
func (h *Handler) requireCredential(w http.ResponseWriter, r *http.Request) (string, bool) {
	credential, err := h.sessions.Retrieve(r)
	if err != nil {
		if !errors.Is(err, session.ErrNoCredential) {
			h.logger.Warn("session credential rejected", "error", err)
		}
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:         "no linked account",
			SetupRequired: true,
		})
		return "", false
	}
	return credential, true
}

// parseDays reads the days query parameter, falling back to the default.
func (h *Handler) parseDays(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return h.opts.DefaultDays, true
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 || days > 730 {
		writeError(w, http.StatusBadRequest, "days must be a positive integer up to 730")
		return 0, false
	}
	return days, true
}

// writeProfileError maps a profile build failure to its response.
func (h *Handler) writeProfileError(w http.ResponseWriter, err error) {
	if errors.Is(err, application.ErrReauthRequired) {
		h.sessions.Clear(w)
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:          "all linked accounts require reconnection",
			ReauthRequired: true,
		})
		return
	}
	h.logger.Error("failed to build profile", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// writeProviderError maps a direct provider fetch failure to its response.
func (h *Handler) writeProviderError(w http.ResponseWriter, err error) {
	if errors.Is(err, driven.ErrAuthExpired) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:          "the linked account requires reconnection",
			ReauthRequired: true,
		})
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, "provider timed out")
		return
	}
	h.logger.Error("provider fetch failed", "error", err)
	writeError(w, http.StatusBadGateway, "provider unavailable")
}

// freshSnapshot returns the cached snapshot for the credential when the
// cache is enabled and holds an unexpired entry.
func (h *Handler) freshSnapshot(ctx context.Context, credential string) *model.ProfileSnapshot {
	if h.snapshots == nil {
		return nil
	}
	snapshot, err := h.snapshots.Get(ctx, secret.Fingerprint(credential))
	if err != nil {
		h.logger.Warn("snapshot lookup failed", "error", err)
		return nil
	}
	return snapshot
}

// cacheSnapshot stores the profile's summary keyed by the credential
// fingerprint. Write failures degrade to uncached operation.
func (h *Handler) cacheSnapshot(credential string, profile model.UnifiedProfile) {
	if h.snapshots == nil {
		return
	}
	snapshot := model.ProfileSnapshot{
		Fingerprint: secret.Fingerprint(credential),
		Summary:     profile.Summary,
		GeneratedAt: profile.GeneratedAt,
		ExpiresAt:   profile.GeneratedAt.Add(h.opts.CacheTTL),
	}
	// Background context: the write should outlive the request.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.snapshots.Put(ctx, snapshot); err != nil {
		h.logger.Warn("failed to cache snapshot", "error", err)
	}
}
