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

// RuleAdmin defines the fraud rule admin service interface.
type RuleAdmin interface {
	List(ctx context.Context) ([]models.FraudRuleDB, error)
	Create(ctx context.Context, actor string, rule models.FraudRuleDB) (*models.FraudRuleDB, error)
	Delete(ctx context.Context, actor string, ruleID uuid.UUID) error
}

// CreateRuleRequest represents a new fraud rule
// swagger:model CreateRuleRequest
type CreateRuleRequest struct {
	// Rule type: amount or merchantKeyword
	// required: true
	Type string `json:"type"`

	// Threshold, required for amount rules
	Threshold *float64 `json:"threshold,omitempty"`

	// Keyword, required for merchantKeyword rules
	Keyword *string `json:"keyword,omitempty"`

	// Result: fraudulent or in_review
	// required: true
	Result string `json:"result"`

	// Description shown in flag reasons
	// required: true
	Description string `json:"description"`
}

// NewListRulesHandler lists all fraud rules.
// @Summary List fraud rules
// @Tags rules
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.FraudRuleDB "Rules"
// @Router /fraud-rules [get]
func NewListRulesHandler(svc RuleAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rules, err := svc.List(r.Context())
		if err != nil {
			logger.Log.Errorw("internal server error", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(rules)
	}
}

// NewCreateRuleHandler creates a fraud rule (admin only).
// @Summary Create a fraud rule
// @Tags rules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param createRuleRequest body handlers.CreateRuleRequest true "Rule"
// @Success 201 {object} models.FraudRuleDB "Stored rule"
// @Failure 400 {object} handlers.ErrorResponse "Invalid rule"
// @Router /fraud-rules [post]
func NewCreateRuleHandler(svc RuleAdmin, users ReviewerLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRuleRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid request body"})
			return
		}

		ctx := r.Context()
		actor := actorName(ctx, users)

		rule, err := svc.Create(ctx, actor, models.FraudRuleDB{
			RuleType:    req.Type,
			Threshold:   req.Threshold,
			Keyword:     req.Keyword,
			Result:      req.Result,
			Description: req.Description,
		})
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidRule):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid fraud rule"})
			default:
				logger.Log.Errorw("internal server error", "err", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			}
			return
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(rule)
	}
}

// NewDeleteRuleHandler deletes a fraud rule (admin only).
// @Summary Delete a fraud rule
// @Tags rules
// @Security BearerAuth
// @Param id path string true "Rule id"
// @Success 204 "Rule deleted"
// @Failure 404 {object} handlers.ErrorResponse "Rule not found"
// @Router /fraud-rules/{id} [delete]
func NewDeleteRuleHandler(svc RuleAdmin, users ReviewerLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ruleID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid rule id"})
			return
		}

		ctx := r.Context()
		if err := svc.Delete(ctx, actorName(ctx, users), ruleID); err != nil {
			switch {
			case errors.Is(err, services.ErrRuleNotFound):
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Rule not found"})
			default:
				logger.Log.Errorw("internal server error", "err", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// actorName resolves the caller's username for audit entries, falling
// back to the raw user id when the lookup fails.
func actorName(ctx context.Context, users ReviewerLookup) string {
	userID := middlewares.GetUserIDFromContext(ctx)
	if user, err := users.GetByID(ctx, userID); err == nil && user != nil {
		return user.Username
	}
	return userID.String()
}
