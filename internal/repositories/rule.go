package repositories

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

// RuleReadRepository handles fraud rule read operations
type RuleReadRepository struct {
	db *sqlx.DB
}

func NewRuleReadRepository(db *sqlx.DB) *RuleReadRepository {
	return &RuleReadRepository{db: db}
}

// List returns all fraud rules ordered by creation time. The engine's
// stable sort relies on this order for equal-threshold tie-breaks.
func (r *RuleReadRepository) List(ctx context.Context) ([]models.FraudRuleDB, error) {
	query := `
		SELECT rule_id, rule_type, threshold, keyword, result, description, created_at
		FROM fraud_rules
		ORDER BY created_at ASC
	`

	var rules []models.FraudRuleDB
	err := r.db.SelectContext(ctx, &rules, query)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"result_count", len(rules),
		"error", err,
	)

	return rules, err
}

// RuleWriteRepository handles fraud rule write operations
type RuleWriteRepository struct {
	db *sqlx.DB
}

func NewRuleWriteRepository(db *sqlx.DB) *RuleWriteRepository {
	return &RuleWriteRepository{db: db}
}

// Save inserts a new fraud rule and returns its generated id.
func (r *RuleWriteRepository) Save(ctx context.Context, rule models.FraudRuleDB) (uuid.UUID, error) {
	query := `
		INSERT INTO fraud_rules (rule_id, rule_type, threshold, keyword, result, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING rule_id
	`

	ruleID := rule.RuleID
	if ruleID == uuid.Nil {
		ruleID = uuid.New()
	}
	args := []any{ruleID, rule.RuleType, rule.Threshold, rule.Keyword, rule.Result, rule.Description}

	var saved uuid.UUID
	err := sqlx.GetContext(ctx, r.db, &saved, query, args...)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"error", err,
	)

	return saved, err
}

// Delete removes a fraud rule. Returns sql.ErrNoRows when absent.
func (r *RuleWriteRepository) Delete(ctx context.Context, ruleID uuid.UUID) error {
	query := `
		DELETE FROM fraud_rules
		WHERE rule_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, ruleID)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{ruleID},
		"result", rowsAffected,
		"error", err,
	)

	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
