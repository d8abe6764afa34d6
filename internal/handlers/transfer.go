package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/middlewares"
	"github.com/fraudwatch/fraud-monitor/internal/services"
)

// Transferer defines the fund transfer service interface.
type Transferer interface {
	Transfer(ctx context.Context, senderID uuid.UUID, recipientUsername string, amount float64) (float64, error)
	Balance(ctx context.Context, userID uuid.UUID) (float64, error)
}

// TransferRequest represents a fund transfer
// swagger:model TransferRequest
type TransferRequest struct {
	// Recipient username
	// required: true
	// default: jane_doe
	Recipient string `json:"recipient"`

	// Amount to transfer
	// required: true
	// default: 500
	Amount float64 `json:"amount"`
}

// TransferResponse carries the sender's balance after the transfer
// swagger:model TransferResponse
type TransferResponse struct {
	// Sender balance after the transfer
	Balance float64 `json:"balance"`
}

// BalanceResponse carries the caller's current balance
// swagger:model BalanceResponse
type BalanceResponse struct {
	Balance float64 `json:"balance"`
}

// NewTransferHandler moves funds from the caller to another user.
// Validation failures report inline and mutate nothing.
// @Summary Transfer funds
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transferRequest body handlers.TransferRequest true "Transfer"
// @Success 200 {object} handlers.TransferResponse "New sender balance"
// @Failure 400 {object} handlers.ErrorResponse "Validation failure"
// @Router /transfer [post]
func NewTransferHandler(svc Transferer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransferRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid request body"})
			return
		}

		senderID := middlewares.GetUserIDFromContext(r.Context())

		balance, err := svc.Transfer(r.Context(), senderID, req.Recipient, req.Amount)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrAmountNotPositive):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Amount must be positive"})
			case errors.Is(err, services.ErrCardFrozen):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Card is frozen"})
			case errors.Is(err, services.ErrUnknownRecipient):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Unknown recipient"})
			case errors.Is(err, services.ErrSelfTransfer):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Cannot transfer to yourself"})
			case errors.Is(err, services.ErrInsufficientFunds):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Insufficient funds"})
			default:
				logger.Log.Errorw("internal server error", "err", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			}
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(TransferResponse{Balance: balance})
	}
}

// NewBalanceHandler returns the caller's current balance.
// @Summary Get balance
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.BalanceResponse "Current balance"
// @Router /balance [get]
func NewBalanceHandler(svc Transferer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middlewares.GetUserIDFromContext(r.Context())

		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			logger.Log.Errorw("internal server error", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(BalanceResponse{Balance: balance})
	}
}
