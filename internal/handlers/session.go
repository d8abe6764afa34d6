package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
	"github.com/fraudwatch/fraud-monitor/internal/services"
)

// Syncer defines the session reconciliation interface the handlers need.
type Syncer interface {
	Begin(ctx context.Context, attemptID string) (string, error)
	Complete(ctx context.Context, attemptID, identityToken string) (*models.SessionState, error)
	State(ctx context.Context, attemptID string) (*models.SessionState, error)
	Cancel(ctx context.Context, attemptID string) error
}

// SignInResponse represents a started sign-in attempt
// swagger:model SignInResponse
type SignInResponse struct {
	// Attempt identifier to pass to the callback
	AttemptID string `json:"attempt_id"`
}

// CallbackRequest represents the identity-provider callback payload
// swagger:model CallbackRequest
type CallbackRequest struct {
	// Attempt identifier from /auth/signin
	// required: true
	AttemptID string `json:"attempt_id"`

	// Identity token issued by the provider
	// required: true
	IdentityToken string `json:"identity_token"`
}

// SessionStateResponse reports the state of a sign-in attempt
// swagger:model SessionStateResponse
type SessionStateResponse struct {
	// Current phase: authenticating, syncing, active, banned or failed
	Phase string `json:"phase"`

	// Session token, present only when active
	Token string `json:"token,omitempty"`

	// Error message, present only when banned or failed
	Error string `json:"error,omitempty"`
}

func sessionStateResponse(state *models.SessionState) SessionStateResponse {
	return SessionStateResponse{
		Phase: string(state.Phase),
		Token: state.Token,
		Error: state.Error,
	}
}

// NewSignInHandler starts a sign-in attempt before the redirect to the
// hosted identity provider.
// @Summary Start a sign-in attempt
// @Description Registers a pending sign-in attempt and arms the watchdog. The returned attempt id is passed back on the provider callback.
// @Tags session
// @Produce json
// @Success 201 {object} handlers.SignInResponse "Attempt started"
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /auth/signin [post]
func NewSignInHandler(svc Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID, err := svc.Begin(r.Context(), "")
		if err != nil {
			logger.Log.Errorw("failed to start sign-in attempt", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			return
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(SignInResponse{AttemptID: attemptID})
	}
}

// NewCallbackHandler completes a sign-in attempt with the identity token
// from the provider redirect. Idempotent per attempt.
// @Summary Complete a sign-in attempt
// @Description Reconciles the provider identity with the application user record. Returns the resulting session state: active (with token), banned or failed.
// @Tags session
// @Accept json
// @Produce json
// @Param callbackRequest body handlers.CallbackRequest true "Callback payload"
// @Success 200 {object} handlers.SessionStateResponse "Sync outcome"
// @Failure 400 {object} handlers.ErrorResponse "Invalid request body"
// @Failure 404 {object} handlers.ErrorResponse "Unknown attempt"
// @Router /auth/callback [post]
func NewCallbackHandler(svc Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CallbackRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AttemptID == "" || req.IdentityToken == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid request body"})
			return
		}

		state, err := svc.Complete(r.Context(), req.AttemptID, req.IdentityToken)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUnknownAttempt):
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Unknown sign-in attempt"})
			default:
				logger.Log.Errorw("internal server error", "err", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			}
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(sessionStateResponse(state))
	}
}

// NewAttemptStateHandler reports the state of a sign-in attempt.
// @Summary Poll a sign-in attempt
// @Tags session
// @Produce json
// @Param id path string true "Attempt id"
// @Success 200 {object} handlers.SessionStateResponse "Current state"
// @Failure 404 {object} handlers.ErrorResponse "Unknown attempt"
// @Router /auth/attempts/{id} [get]
func NewAttemptStateHandler(svc Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "id")

		state, err := svc.State(r.Context(), attemptID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUnknownAttempt):
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Unknown sign-in attempt"})
			default:
				logger.Log.Errorw("internal server error", "err", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			}
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(sessionStateResponse(state))
	}
}

// NewCancelAttemptHandler abandons a sign-in attempt, stopping its
// watchdog so no stale error fires after the user leaves the flow.
// @Summary Cancel a sign-in attempt
// @Tags session
// @Param id path string true "Attempt id"
// @Success 204 "Attempt cancelled"
// @Failure 500 {object} handlers.ErrorResponse "Internal server error"
// @Router /auth/attempts/{id} [delete]
func NewCancelAttemptHandler(svc Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "id")

		if err := svc.Cancel(r.Context(), attemptID); err != nil {
			logger.Log.Errorw("failed to cancel sign-in attempt", "attempt", attemptID, "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
