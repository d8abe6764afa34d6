package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudwatch/fraud-monitor/internal/models"
	"github.com/fraudwatch/fraud-monitor/internal/services"
)

type fakeRuleAdmin struct {
	rules     []models.FraudRuleDB
	created   *models.FraudRuleDB
	createErr error
	deleteErr error
	actor     string
	deleted   []uuid.UUID
}

func (f *fakeRuleAdmin) List(ctx context.Context) ([]models.FraudRuleDB, error) {
	return f.rules, nil
}

func (f *fakeRuleAdmin) Create(ctx context.Context, actor string, rule models.FraudRuleDB) (*models.FraudRuleDB, error) {
	f.actor = actor
	return f.created, f.createErr
}

func (f *fakeRuleAdmin) Delete(ctx context.Context, actor string, ruleID uuid.UUID) error {
	f.actor = actor
	f.deleted = append(f.deleted, ruleID)
	return f.deleteErr
}

func rulesRouter(svc RuleAdmin, users ReviewerLookup, adminID uuid.UUID) http.Handler {
	router := chi.NewRouter()
	router.Method(http.MethodGet, "/fraud-rules", authed(adminID, models.RoleEmployee, NewListRulesHandler(svc)))
	router.Method(http.MethodPost, "/fraud-rules", authed(adminID, models.RoleAdmin, NewCreateRuleHandler(svc, users)))
	router.Method(http.MethodDelete, "/fraud-rules/{id}", authed(adminID, models.RoleAdmin, NewDeleteRuleHandler(svc, users)))
	return router
}

func TestListRulesHandler(t *testing.T) {
	threshold := 1000.0
	svc := &fakeRuleAdmin{rules: []models.FraudRuleDB{
		{
			RuleID:      uuid.New(),
			RuleType:    models.RuleTypeAmount,
			Threshold:   &threshold,
			Result:      models.StatusFraudulent,
			Description: "Amount over $1000",
		},
	}}

	rec := httptest.NewRecorder()
	rulesRouter(svc, &fakeUserLookup{}, uuid.New()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fraud-rules", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var got []models.FraudRuleDB
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Amount over $1000", got[0].Description)
}

func TestCreateRuleHandler(t *testing.T) {
	adminID := uuid.New()
	users := &fakeUserLookup{user: &models.UserDB{UserID: adminID, Username: "root_admin"}}
	threshold := 500.0
	svc := &fakeRuleAdmin{created: &models.FraudRuleDB{
		RuleID:      uuid.New(),
		RuleType:    models.RuleTypeAmount,
		Threshold:   &threshold,
		Result:      models.StatusInReview,
		Description: "Amount over $500",
	}}

	raw, _ := json.Marshal(CreateRuleRequest{
		Type:        models.RuleTypeAmount,
		Threshold:   &threshold,
		Result:      models.StatusInReview,
		Description: "Amount over $500",
	})
	rec := httptest.NewRecorder()
	rulesRouter(svc, users, adminID).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fraud-rules", bytes.NewReader(raw)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "root_admin", svc.actor)

	var got models.FraudRuleDB
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Amount over $500", got.Description)
}

func TestCreateRuleHandler_Invalid(t *testing.T) {
	svc := &fakeRuleAdmin{createErr: services.ErrInvalidRule}

	raw, _ := json.Marshal(CreateRuleRequest{Type: "bogus", Result: models.StatusFraudulent})
	rec := httptest.NewRecorder()
	rulesRouter(svc, &fakeUserLookup{}, uuid.New()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fraud-rules", bytes.NewReader(raw)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid fraud rule", resp["error"])
}

func TestCreateRuleHandler_InvalidBody(t *testing.T) {
	rec := httptest.NewRecorder()
	rulesRouter(&fakeRuleAdmin{}, &fakeUserLookup{}, uuid.New()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fraud-rules", bytes.NewReader([]byte("{not json"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRuleHandler(t *testing.T) {
	adminID := uuid.New()
	users := &fakeUserLookup{user: &models.UserDB{UserID: adminID, Username: "root_admin"}}
	svc := &fakeRuleAdmin{}
	ruleID := uuid.New()

	rec := httptest.NewRecorder()
	rulesRouter(svc, users, adminID).
		ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/fraud-rules/"+ruleID.String(), nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uuid.UUID{ruleID}, svc.deleted)
	assert.Equal(t, "root_admin", svc.actor)
}

func TestDeleteRuleHandler_NotFound(t *testing.T) {
	svc := &fakeRuleAdmin{deleteErr: services.ErrRuleNotFound}

	rec := httptest.NewRecorder()
	rulesRouter(svc, &fakeUserLookup{}, uuid.New()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/fraud-rules/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRuleHandler_InvalidID(t *testing.T) {
	rec := httptest.NewRecorder()
	rulesRouter(&fakeRuleAdmin{}, &fakeUserLookup{}, uuid.New()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/fraud-rules/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActorName_FallsBackToID(t *testing.T) {
	adminID := uuid.New()
	svc := &fakeRuleAdmin{deleteErr: nil}

	// Lookup returns no user, so audit entries carry the raw id.
	rec := httptest.NewRecorder()
	rulesRouter(svc, &fakeUserLookup{}, adminID).
		ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/fraud-rules/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, adminID.String(), svc.actor)
}
