package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

// Error variables
var (
	ErrInvalidRule  = errors.New("invalid fraud rule")
	ErrRuleNotFound = errors.New("fraud rule not found")
)

// RuleWriter defines fraud rule write operations.
type RuleWriter interface {
	Save(ctx context.Context, rule models.FraudRuleDB) (uuid.UUID, error)
	Delete(ctx context.Context, ruleID uuid.UUID) error
}

// CacheInvalidator drops the cached rule set after a rule change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RuleAdminService is the admin surface for fraud rules.
type RuleAdminService struct {
	reader RuleLister
	writer RuleWriter
	cache  CacheInvalidator
	audit  AuditWriter
}

// NewRuleAdminService creates a RuleAdminService.
func NewRuleAdminService(reader RuleLister, writer RuleWriter, cache CacheInvalidator, audit AuditWriter) *RuleAdminService {
	return &RuleAdminService{reader: reader, writer: writer, cache: cache, audit: audit}
}

// List returns all fraud rules.
func (s *RuleAdminService) List(ctx context.Context) ([]models.FraudRuleDB, error) {
	return s.reader.List(ctx)
}

// Create validates and stores a new rule, then invalidates the cache.
// Amount rules require a threshold; keyword rules require a keyword.
func (s *RuleAdminService) Create(ctx context.Context, actor string, rule models.FraudRuleDB) (*models.FraudRuleDB, error) {
	switch rule.RuleType {
	case models.RuleTypeAmount:
		if rule.Threshold == nil || *rule.Threshold < 0 {
			return nil, ErrInvalidRule
		}
	case models.RuleTypeMerchantKeyword:
		if rule.Keyword == nil || *rule.Keyword == "" {
			return nil, ErrInvalidRule
		}
	default:
		return nil, ErrInvalidRule
	}
	if rule.Result != models.StatusFraudulent && rule.Result != models.StatusInReview {
		return nil, ErrInvalidRule
	}
	if rule.Description == "" {
		return nil, ErrInvalidRule
	}

	ruleID, err := s.writer.Save(ctx, rule)
	if err != nil {
		logger.Log.Errorw("failed to save fraud rule", "err", err)
		return nil, err
	}
	rule.RuleID = ruleID

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.Log.Errorw("failed to invalidate rule cache", "err", err)
		}
	}

	if err := s.audit.Save(ctx, actor, models.AuditActionRuleCreated,
		fmt.Sprintf("rule %s created: %s", ruleID, rule.Description)); err != nil {
		logger.Log.Errorw("failed to audit rule creation", "rule_id", ruleID, "err", err)
	}

	return &rule, nil
}

// Delete removes a rule and invalidates the cache.
func (s *RuleAdminService) Delete(ctx context.Context, actor string, ruleID uuid.UUID) error {
	if err := s.writer.Delete(ctx, ruleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRuleNotFound
		}
		logger.Log.Errorw("failed to delete fraud rule", "rule_id", ruleID, "err", err)
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.Log.Errorw("failed to invalidate rule cache", "err", err)
		}
	}

	if err := s.audit.Save(ctx, actor, models.AuditActionRuleDeleted,
		fmt.Sprintf("rule %s deleted", ruleID)); err != nil {
		logger.Log.Errorw("failed to audit rule deletion", "rule_id", ruleID, "err", err)
	}

	return nil
}
