package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/middlewares"
	"github.com/fraudwatch/fraud-monitor/internal/models"
	"github.com/fraudwatch/fraud-monitor/internal/services"
)

// Reviewer defines the review side of the transaction service.
type Reviewer interface {
	Review(ctx context.Context, reviewer string, txnID uuid.UUID, newStatus, note string) (*models.TransactionDB, error)
}

// ReviewerLookup resolves the reviewing analyst's username.
type ReviewerLookup interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error)
}

// ReviewRequest represents a review decision
// swagger:model ReviewRequest
type ReviewRequest struct {
	// New status: approved or fraudulent
	// required: true
	Status string `json:"status"`

	// Optional analyst note
	Note string `json:"note"`
}

// NewReviewTransactionHandler resolves an in_review transaction.
// Approved and fraudulent are terminal: reviewing one returns 409.
// @Summary Review a flagged transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction id"
// @Param reviewRequest body handlers.ReviewRequest true "Review decision"
// @Success 200 {object} models.TransactionDB "Updated transaction"
// @Failure 400 {object} handlers.ErrorResponse "Invalid request or status"
// @Failure 404 {object} handlers.ErrorResponse "Transaction not found"
// @Failure 409 {object} handlers.ErrorResponse "Transaction status is final"
// @Router /transactions/{id} [put]
func NewReviewTransactionHandler(svc Reviewer, users ReviewerLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid transaction id"})
			return
		}

		var req ReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid request body"})
			return
		}

		ctx := r.Context()
		reviewer, err := users.GetByID(ctx, middlewares.GetUserIDFromContext(ctx))
		if err != nil || reviewer == nil {
			logger.Log.Errorw("failed to resolve reviewer", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			return
		}

		txn, err := svc.Review(ctx, reviewer.Username, txnID, req.Status, req.Note)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidStatus):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Status must be approved or fraudulent"})
			case errors.Is(err, services.ErrTransactionNotFound):
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Transaction not found"})
			case errors.Is(err, services.ErrTransactionFinal):
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Transaction status is final"})
			default:
				logger.Log.Errorw("internal server error", "err", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			}
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(txn)
	}
}
