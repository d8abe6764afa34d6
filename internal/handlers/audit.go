package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

const defaultAuditLimit = 100

// AuditLister reads the audit log.
type AuditLister interface {
	List(ctx context.Context, limit int) ([]models.AuditLogDB, error)
}

// NewListAuditLogsHandler returns recent audit entries, newest first.
// @Summary List audit logs
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries (default 100)"
// @Success 200 {array} models.AuditLogDB "Audit entries"
// @Router /audit-logs [get]
func NewListAuditLogsHandler(svc AuditLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultAuditLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		logs, err := svc.List(r.Context(), limit)
		if err != nil {
			logger.Log.Errorw("internal server error", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(logs)
	}
}
