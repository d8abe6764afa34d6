package repositories

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudwatch/fraud-monitor/internal/models"
)

func TestRuleRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, teardown := setupPostgres(t)
	defer teardown()

	ctx := context.Background()
	readRepo := NewRuleReadRepository(db)
	writeRepo := NewRuleWriteRepository(db)

	t.Run("Save and List", func(t *testing.T) {
		first, err := writeRepo.Save(ctx, models.FraudRuleDB{
			RuleType:    models.RuleTypeAmount,
			Threshold:   floatPtr(1000),
			Result:      models.StatusFraudulent,
			Description: "Amount over $1000",
		})
		require.NoError(t, err)

		second, err := writeRepo.Save(ctx, models.FraudRuleDB{
			RuleType:    models.RuleTypeMerchantKeyword,
			Keyword:     strPtr("crypto"),
			Result:      models.StatusInReview,
			Description: "Crypto merchant",
		})
		require.NoError(t, err)

		rules, err := readRepo.List(ctx)
		require.NoError(t, err)
		require.Len(t, rules, 2)

		ids := []uuid.UUID{rules[0].RuleID, rules[1].RuleID}
		assert.Contains(t, ids, first)
		assert.Contains(t, ids, second)

		for _, rule := range rules {
			switch rule.RuleType {
			case models.RuleTypeAmount:
				require.NotNil(t, rule.Threshold)
				assert.Equal(t, 1000.0, *rule.Threshold)
				assert.Nil(t, rule.Keyword)
			case models.RuleTypeMerchantKeyword:
				require.NotNil(t, rule.Keyword)
				assert.Equal(t, "crypto", *rule.Keyword)
				assert.Nil(t, rule.Threshold)
			}
		}
	})

	t.Run("Delete removes the rule", func(t *testing.T) {
		ruleID, err := writeRepo.Save(ctx, models.FraudRuleDB{
			RuleType:    models.RuleTypeAmount,
			Threshold:   floatPtr(50),
			Result:      models.StatusInReview,
			Description: "Over $50",
		})
		require.NoError(t, err)

		require.NoError(t, writeRepo.Delete(ctx, ruleID))

		rules, err := readRepo.List(ctx)
		require.NoError(t, err)
		for _, rule := range rules {
			assert.NotEqual(t, ruleID, rule.RuleID)
		}
	})

	t.Run("Delete missing rule returns ErrNoRows", func(t *testing.T) {
		err := writeRepo.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}
