package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/fraudwatch/fraud-monitor/internal/models"
	"github.com/fraudwatch/fraud-monitor/internal/services"
)

type fakeReviewer struct {
	txn      *models.TransactionDB
	err      error
	reviewer string
	status   string
	note     string
}

func (f *fakeReviewer) Review(ctx context.Context, reviewer string, txnID uuid.UUID, newStatus, note string) (*models.TransactionDB, error) {
	f.reviewer = reviewer
	f.status = newStatus
	f.note = note
	return f.txn, f.err
}

type fakeUserLookup struct {
	user *models.UserDB
}

func (f *fakeUserLookup) GetByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error) {
	return f.user, nil
}

func reviewRequest(t *testing.T, txnID uuid.UUID, body ReviewRequest) *http.Request {
	t.Helper()
	raw, _ := json.Marshal(body)
	return httptest.NewRequest(http.MethodPut, "/transactions/"+txnID.String(), bytes.NewReader(raw))
}

func reviewRouter(svc Reviewer, users ReviewerLookup, analystID uuid.UUID) http.Handler {
	router := chi.NewRouter()
	router.Method(http.MethodPut, "/transactions/{id}",
		authed(analystID, models.RoleEmployee, NewReviewTransactionHandler(svc, users)))
	return router
}

func TestReviewTransactionHandler(t *testing.T) {
	analystID := uuid.New()
	txnID := uuid.New()
	svc := &fakeReviewer{txn: &models.TransactionDB{
		TransactionID: txnID,
		Status:        models.StatusApproved,
		Reason:        "Reviewed by analyst",
	}}
	users := &fakeUserLookup{user: &models.UserDB{UserID: analystID, Username: "analyst"}}

	rec := httptest.NewRecorder()
	reviewRouter(svc, users, analystID).ServeHTTP(rec,
		reviewRequest(t, txnID, ReviewRequest{Status: models.StatusApproved, Note: "looks fine"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "analyst", svc.reviewer)
	assert.Equal(t, models.StatusApproved, svc.status)
	assert.Equal(t, "looks fine", svc.note)
}

func TestReviewTransactionHandler_Errors(t *testing.T) {
	analystID := uuid.New()
	users := &fakeUserLookup{user: &models.UserDB{UserID: analystID, Username: "analyst"}}

	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{"invalid status", services.ErrInvalidStatus, http.StatusBadRequest},
		{"not found", services.ErrTransactionNotFound, http.StatusNotFound},
		{"terminal status", services.ErrTransactionFinal, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeReviewer{err: tt.err}

			rec := httptest.NewRecorder()
			reviewRouter(svc, users, analystID).ServeHTTP(rec,
				reviewRequest(t, uuid.New(), ReviewRequest{Status: models.StatusFraudulent}))

			assert.Equal(t, tt.expectedCode, rec.Code)
		})
	}
}

func TestReviewTransactionHandler_InvalidID(t *testing.T) {
	analystID := uuid.New()
	users := &fakeUserLookup{user: &models.UserDB{UserID: analystID, Username: "analyst"}}

	router := reviewRouter(&fakeReviewer{}, users, analystID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/transactions/not-a-uuid", bytes.NewReader([]byte(`{}`))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
