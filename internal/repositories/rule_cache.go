package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

const ruleCacheKey = "fraud_rules:active"

// RuleCacheRepository caches the active rule set in Redis so every
// transaction does not hit the rules table. A short TTL keeps rule edits
// propagating quickly.
type RuleCacheRepository struct {
	client *redis.Client
	exp    time.Duration
}

// NewRuleCacheRepository creates a new cache repository with the given TTL.
func NewRuleCacheRepository(client *redis.Client, expiration time.Duration) *RuleCacheRepository {
	return &RuleCacheRepository{
		client: client,
		exp:    expiration,
	}
}

// Get fetches the cached rule set. Returns an error on cache miss.
func (r *RuleCacheRepository) Get(ctx context.Context) ([]models.FraudRuleDB, error) {
	val, err := r.client.Get(ctx, ruleCacheKey).Result()
	if err != nil {
		logger.Log.Infow(
			"key", ruleCacheKey,
			"error", err,
		)
		if err == redis.Nil {
			return nil, fmt.Errorf("fraud rules not found in cache")
		}
		return nil, err
	}

	var rules []models.FraudRuleDB
	if err := json.Unmarshal([]byte(val), &rules); err != nil {
		logger.Log.Infow(
			"key", ruleCacheKey,
			"error", err,
		)
		return nil, err
	}

	logger.Log.Infow(
		"key", ruleCacheKey,
		"result_count", len(rules),
		"error", nil,
	)

	return rules, nil
}

// Set caches the rule set with expiration.
func (r *RuleCacheRepository) Set(ctx context.Context, rules []models.FraudRuleDB) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return err
	}

	err = r.client.Set(ctx, ruleCacheKey, data, r.exp).Err()

	logger.Log.Infow(
		"key", ruleCacheKey,
		"rules", len(rules),
		"error", err,
	)

	return err
}

// Invalidate drops the cached rule set, forcing the next read to hit the
// database. Called after rule create/delete.
func (r *RuleCacheRepository) Invalidate(ctx context.Context) error {
	err := r.client.Del(ctx, ruleCacheKey).Err()

	logger.Log.Infow(
		"key", ruleCacheKey,
		"result", "invalidated",
		"error", err,
	)

	return err
}
