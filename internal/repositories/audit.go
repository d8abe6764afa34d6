package repositories

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

// AuditWriteRepository appends audit log entries. The table is append-only:
// there is no update or delete path.
type AuditWriteRepository struct {
	db *sqlx.DB
}

func NewAuditWriteRepository(db *sqlx.DB) *AuditWriteRepository {
	return &AuditWriteRepository{db: db}
}

// Save appends one audit entry.
func (r *AuditWriteRepository) Save(ctx context.Context, actor, action, details string) error {
	query := `
		INSERT INTO audit_logs (audit_id, actor, action, details, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	args := []any{uuid.New(), actor, action, details}

	_, err := r.db.ExecContext(ctx, query, args...)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"error", err,
	)

	return err
}

// AuditReadRepository handles audit log reads
type AuditReadRepository struct {
	db *sqlx.DB
}

func NewAuditReadRepository(db *sqlx.DB) *AuditReadRepository {
	return &AuditReadRepository{db: db}
}

// List returns up to limit audit entries, newest first.
func (r *AuditReadRepository) List(ctx context.Context, limit int) ([]models.AuditLogDB, error) {
	query := `
		SELECT audit_id, actor, action, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`

	var logs []models.AuditLogDB
	err := r.db.SelectContext(ctx, &logs, query, limit)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{limit},
		"result_count", len(logs),
		"error", err,
	)

	return logs, err
}
