package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

// ReasonApproved is the reason attached to transactions no rule matched.
const ReasonApproved = "Transaction appears normal."

// RuleLister returns the current rule set from primary storage.
type RuleLister interface {
	List(ctx context.Context) ([]models.FraudRuleDB, error)
}

// RuleCache caches the rule set between transactions.
type RuleCache interface {
	Get(ctx context.Context) ([]models.FraudRuleDB, error)
	Set(ctx context.Context, rules []models.FraudRuleDB) error
}

// Decision is the outcome of evaluating one transaction.
type Decision struct {
	Status string // approved, fraudulent or in_review
	Reason string // Human-readable reason
}

// RuleEngine converts a transaction and the current rule set into a fraud
// status. Rules are ordered by threshold descending and the first match
// wins; evaluation short-circuits there.
type RuleEngine struct {
	rules RuleLister
	cache RuleCache
}

// NewRuleEngine creates a rule engine reading rules through the cache,
// falling back to primary storage on a miss.
func NewRuleEngine(rules RuleLister, cache RuleCache) *RuleEngine {
	return &RuleEngine{rules: rules, cache: cache}
}

// ActiveRules returns the rule set, cache first.
func (e *RuleEngine) ActiveRules(ctx context.Context) ([]models.FraudRuleDB, error) {
	if e.cache != nil {
		if rules, err := e.cache.Get(ctx); err == nil {
			return rules, nil
		}
	}

	rules, err := e.rules.List(ctx)
	if err != nil {
		logger.Log.Errorw("failed to load fraud rules", "error", err)
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, rules); err != nil {
			logger.Log.Errorw("failed to cache fraud rules", "error", err)
		}
	}

	return rules, nil
}

// Evaluate runs the rule set against a candidate transaction.
func (e *RuleEngine) Evaluate(ctx context.Context, amount float64, merchant string) (Decision, error) {
	rules, err := e.ActiveRules(ctx)
	if err != nil {
		return Decision{}, err
	}
	return Evaluate(rules, amount, merchant), nil
}

// Evaluate matches a transaction against rules and returns the decision.
//
// Ordering: sorted by threshold descending with sort.SliceStable, so rules
// with equal thresholds (and all keyword rules, which sort as 0) keep
// their incoming order — with rules loaded created_at ASC, the oldest
// matching rule wins a tie. An empty rule set always approves.
func Evaluate(rules []models.FraudRuleDB, amount float64, merchant string) Decision {
	sorted := make([]models.FraudRuleDB, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortThreshold() > sorted[j].SortThreshold()
	})

	for _, rule := range sorted {
		if matches(rule, amount, merchant) {
			return Decision{
				Status: rule.Result,
				Reason: fmt.Sprintf("Flagged by rule: %s", rule.Description),
			}
		}
	}

	return Decision{
		Status: models.StatusApproved,
		Reason: ReasonApproved,
	}
}

// matches reports whether a single rule fires for the transaction.
// Amount rules use a strict greater-than; keyword rules match a
// case-insensitive substring of the merchant.
func matches(rule models.FraudRuleDB, amount float64, merchant string) bool {
	switch rule.RuleType {
	case models.RuleTypeAmount:
		return rule.Threshold != nil && amount > *rule.Threshold
	case models.RuleTypeMerchantKeyword:
		return rule.Keyword != nil &&
			strings.Contains(strings.ToLower(merchant), strings.ToLower(*rule.Keyword))
	}
	return false
}

// ExceedsAlertThreshold reports whether a user-configured alert threshold
// is set and exceeded. This is a side signal independent of the fraud
// decision.
func ExceedsAlertThreshold(user *models.UserDB, amount float64) bool {
	return user != nil && user.AlertThreshold != nil && amount > *user.AlertThreshold
}
