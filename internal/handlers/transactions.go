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

// TransactionCreator defines the create side of the transaction service.
type TransactionCreator interface {
	Create(ctx context.Context, userID uuid.UUID, amount float64, merchant, location string) (*models.TransactionDB, bool, error)
}

// TransactionLister defines the read side of the transaction service.
type TransactionLister interface {
	List(ctx context.Context, userID *uuid.UUID, status *string) ([]models.TransactionDB, error)
	Get(ctx context.Context, txnID uuid.UUID) (*models.TransactionDB, []models.AnalystNoteDB, error)
}

// CreateTransactionRequest represents a submitted transaction
// swagger:model CreateTransactionRequest
type CreateTransactionRequest struct {
	// Amount
	// required: true
	// default: 49.99
	Amount float64 `json:"amount"`

	// Merchant
	// required: true
	// default: Acme Corp
	Merchant string `json:"merchant"`

	// Location
	// default: Berlin
	Location string `json:"location"`
}

// CreateTransactionResponse carries the stored transaction plus the
// per-user threshold alert signal
// swagger:model CreateTransactionResponse
type CreateTransactionResponse struct {
	Transaction    models.TransactionDB `json:"transaction"`
	AlertTriggered bool                 `json:"alert_triggered"`
}

// TransactionResponse carries one transaction with its analyst notes
// swagger:model TransactionResponse
type TransactionResponse struct {
	Transaction models.TransactionDB   `json:"transaction"`
	Notes       []models.AnalystNoteDB `json:"notes"`
}

// NewCreateTransactionHandler submits a transaction for the caller. The
// fraud status is decided server-side by the rule engine.
// @Summary Submit a transaction
// @Description Evaluates the transaction against the active fraud rules and stores it with the resulting status.
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param createTransactionRequest body handlers.CreateTransactionRequest true "Transaction"
// @Success 201 {object} handlers.CreateTransactionResponse "Stored transaction"
// @Failure 400 {object} handlers.ErrorResponse "Invalid request / non-positive amount"
// @Router /transactions [post]
func NewCreateTransactionHandler(svc TransactionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTransactionRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid request body"})
			return
		}

		userID := middlewares.GetUserIDFromContext(r.Context())

		txn, alert, err := svc.Create(r.Context(), userID, req.Amount, req.Merchant, req.Location)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrAmountNotPositive):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Amount must be positive"})
			case errors.Is(err, services.ErrUserDoesNotExist):
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "User not found"})
			default:
				logger.Log.Errorw("internal server error", "err", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			}
			return
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CreateTransactionResponse{
			Transaction:    *txn,
			AlertTriggered: alert,
		})
	}
}

// NewListTransactionsHandler lists transactions. Customers see only their
// own; employees and admins see everything and may filter by status.
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Success 200 {array} models.TransactionDB "Transactions"
// @Router /transactions [get]
func NewListTransactionsHandler(svc TransactionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var userFilter *uuid.UUID
		if middlewares.GetRoleFromContext(ctx) == models.RoleCustomer {
			userID := middlewares.GetUserIDFromContext(ctx)
			userFilter = &userID
		}

		var statusFilter *string
		if status := r.URL.Query().Get("status"); status != "" {
			statusFilter = &status
		}

		txns, err := svc.List(ctx, userFilter, statusFilter)
		if err != nil {
			logger.Log.Errorw("internal server error", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(txns)
	}
}

// NewGetTransactionHandler returns one transaction with analyst notes.
// @Summary Get a transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction id"
// @Success 200 {object} handlers.TransactionResponse "Transaction with notes"
// @Failure 404 {object} handlers.ErrorResponse "Transaction not found"
// @Router /transactions/{id} [get]
func NewGetTransactionHandler(svc TransactionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid transaction id"})
			return
		}

		txn, notes, err := svc.Get(r.Context(), txnID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTransactionNotFound):
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Transaction not found"})
			default:
				logger.Log.Errorw("internal server error", "err", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			}
			return
		}

		// Customers may only read their own transactions.
		ctx := r.Context()
		if middlewares.GetRoleFromContext(ctx) == models.RoleCustomer &&
			txn.UserID != middlewares.GetUserIDFromContext(ctx) {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Forbidden"})
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(TransactionResponse{Transaction: *txn, Notes: notes})
	}
}
