package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudwatch/fraud-monitor/internal/models"
	"github.com/fraudwatch/fraud-monitor/internal/services"
)

type fakeSyncer struct {
	beginID     string
	beginErr    error
	state       *models.SessionState
	stateErr    error
	cancelErr   error
	cancelled   []string
	completed   []string
	completeErr error
}

func (f *fakeSyncer) Begin(ctx context.Context, attemptID string) (string, error) {
	return f.beginID, f.beginErr
}

func (f *fakeSyncer) Complete(ctx context.Context, attemptID, identityToken string) (*models.SessionState, error) {
	f.completed = append(f.completed, attemptID)
	return f.state, f.completeErr
}

func (f *fakeSyncer) State(ctx context.Context, attemptID string) (*models.SessionState, error) {
	return f.state, f.stateErr
}

func (f *fakeSyncer) Cancel(ctx context.Context, attemptID string) error {
	f.cancelled = append(f.cancelled, attemptID)
	return f.cancelErr
}

func sessionRouter(svc Syncer) http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/signin", NewSignInHandler(svc))
	r.Post("/auth/callback", NewCallbackHandler(svc))
	r.Get("/auth/attempts/{id}", NewAttemptStateHandler(svc))
	r.Delete("/auth/attempts/{id}", NewCancelAttemptHandler(svc))
	return r
}

func TestSignInHandler(t *testing.T) {
	router := sessionRouter(&fakeSyncer{beginID: "attempt-42"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/signin", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp SignInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "attempt-42", resp.AttemptID)
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name         string
		body         any
		syncer       *fakeSyncer
		expectedCode int
		expectedResp SessionStateResponse
	}{
		{
			name: "active session",
			body: CallbackRequest{AttemptID: "a1", IdentityToken: "tok"},
			syncer: &fakeSyncer{state: &models.SessionState{
				Phase: models.PhaseActive,
				Token: "session-token",
			}},
			expectedCode: http.StatusOK,
			expectedResp: SessionStateResponse{Phase: "active", Token: "session-token"},
		},
		{
			name: "banned session",
			body: CallbackRequest{AttemptID: "a1", IdentityToken: "tok"},
			syncer: &fakeSyncer{state: &models.SessionState{
				Phase: models.PhaseBanned,
				Error: services.MsgBanned,
			}},
			expectedCode: http.StatusOK,
			expectedResp: SessionStateResponse{Phase: "banned", Error: services.MsgBanned},
		},
		{
			name: "failed session",
			body: CallbackRequest{AttemptID: "a1", IdentityToken: "tok"},
			syncer: &fakeSyncer{state: &models.SessionState{
				Phase: models.PhaseFailed,
				Error: services.MsgSignInFailed,
			}},
			expectedCode: http.StatusOK,
			expectedResp: SessionStateResponse{Phase: "failed", Error: services.MsgSignInFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := json.Marshal(tt.body)
			rec := httptest.NewRecorder()
			sessionRouter(tt.syncer).ServeHTTP(rec,
				httptest.NewRequest(http.MethodPost, "/auth/callback", bytes.NewReader(raw)))

			assert.Equal(t, tt.expectedCode, rec.Code)

			var resp SessionStateResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedResp, resp)
		})
	}
}

func TestCallbackHandler_BadRequests(t *testing.T) {
	router := sessionRouter(&fakeSyncer{})

	for _, body := range []string{
		`{not json`,
		`{"attempt_id":"","identity_token":"tok"}`,
		`{"attempt_id":"a1","identity_token":""}`,
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/callback", bytes.NewReader([]byte(body))))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestCallbackHandler_UnknownAttempt(t *testing.T) {
	router := sessionRouter(&fakeSyncer{completeErr: services.ErrUnknownAttempt})

	raw, _ := json.Marshal(CallbackRequest{AttemptID: "ghost", IdentityToken: "tok"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/callback", bytes.NewReader(raw)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttemptStateHandler(t *testing.T) {
	router := sessionRouter(&fakeSyncer{state: &models.SessionState{Phase: models.PhaseSyncing}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/attempts/a1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp SessionStateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "syncing", resp.Phase)
	assert.Empty(t, resp.Token)
}

func TestAttemptStateHandler_Unknown(t *testing.T) {
	router := sessionRouter(&fakeSyncer{stateErr: services.ErrUnknownAttempt})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/attempts/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelAttemptHandler(t *testing.T) {
	syncer := &fakeSyncer{}
	router := sessionRouter(syncer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/auth/attempts/a1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"a1"}, syncer.cancelled)
}
