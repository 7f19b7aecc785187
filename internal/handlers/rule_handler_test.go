package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/services"
)

type mockRuleService struct {
	listFn   func(activeOnly bool) ([]models.CategorizationRule, error)
	getFn    func(ruleID uint) (*models.CategorizationRule, error)
	createFn func(input services.CreateRuleInput) (*models.CategorizationRule, error)
	updateFn func(ruleID uint, input services.UpdateRuleInput) (*models.CategorizationRule, error)
	deleteFn func(ruleID uint) error
}

var _ services.RuleServicer = (*mockRuleService)(nil)

func (m *mockRuleService) ListRules(activeOnly bool) ([]models.CategorizationRule, error) {
	return m.listFn(activeOnly)
}

func (m *mockRuleService) GetRuleByID(ruleID uint) (*models.CategorizationRule, error) {
	return m.getFn(ruleID)
}

func (m *mockRuleService) CreateRule(input services.CreateRuleInput) (*models.CategorizationRule, error) {
	return m.createFn(input)
}

func (m *mockRuleService) UpdateRule(ruleID uint, input services.UpdateRuleInput) (*models.CategorizationRule, error) {
	return m.updateFn(ruleID, input)
}

func (m *mockRuleService) DeleteRule(ruleID uint) error {
	return m.deleteFn(ruleID)
}

func setupRuleRouter(svc services.RuleServicer) *gin.Engine {
	router := gin.New()
	handler := NewRuleHandler(svc)

	rules := router.Group("/api/v1/rules")
	{
		rules.GET("", handler.ListRules)
		rules.GET("/:id", handler.GetRuleByID)
		rules.POST("", handler.CreateRule)
		rules.PUT("/:id", handler.UpdateRule)
		rules.DELETE("/:id", handler.DeleteRule)
	}

	return router
}

func TestRuleHandlerList(t *testing.T) {
	t.Run("passes active_only through", func(t *testing.T) {
		var gotActiveOnly bool
		mock := &mockRuleService{
			listFn: func(activeOnly bool) ([]models.CategorizationRule, error) {
				gotActiveOnly = activeOnly
				return []models.CategorizationRule{{NamePattern: "netflix"}}, nil
			},
		}
		router := setupRuleRouter(mock)

		w := doRequest(router, http.MethodGet, "/api/v1/rules?active_only=true", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		if !gotActiveOnly {
			t.Error("expected activeOnly true")
		}

		body := parseJSON(t, w)
		rules := body["rules"].([]any)
		if len(rules) != 1 {
			t.Fatalf("expected one rule, got %d", len(rules))
		}
	})
}

func TestRuleHandlerCreate(t *testing.T) {
	t.Run("with category id", func(t *testing.T) {
		var gotInput services.CreateRuleInput
		mock := &mockRuleService{
			createFn: func(input services.CreateRuleInput) (*models.CategorizationRule, error) {
				gotInput = input
				rule := &models.CategorizationRule{NamePattern: input.NamePattern, CategoryID: input.CategoryID}
				rule.ID = 1
				return rule, nil
			},
		}
		router := setupRuleRouter(mock)

		w := doRequest(router, http.MethodPost, "/api/v1/rules",
			`{"name_pattern": "netflix", "category_id": 4, "priority": 10}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
		}
		if gotInput.CategoryID == nil || *gotInput.CategoryID != 4 {
			t.Errorf("expected category_id 4, got %v", gotInput.CategoryID)
		}
		if gotInput.Priority != 10 {
			t.Errorf("expected priority 10, got %d", gotInput.Priority)
		}
	})

	t.Run("with name hints", func(t *testing.T) {
		var gotInput services.CreateRuleInput
		mock := &mockRuleService{
			createFn: func(input services.CreateRuleInput) (*models.CategorizationRule, error) {
				gotInput = input
				return &models.CategorizationRule{NamePattern: input.NamePattern}, nil
			},
		}
		router := setupRuleRouter(mock)

		w := doRequest(router, http.MethodPost, "/api/v1/rules",
			`{"name_pattern": "rewe", "category_name": "Groceries", "parent_category_name": "Food"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
		}
		if gotInput.CategoryName != "Groceries" || gotInput.ParentCategoryName != "Food" {
			t.Errorf("unexpected hints: %+v", gotInput)
		}
	})

	t.Run("missing pattern", func(t *testing.T) {
		router := setupRuleRouter(&mockRuleService{})

		w := doRequest(router, http.MethodPost, "/api/v1/rules", `{"category_id": 4}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestRuleHandlerUpdate(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		var gotInput services.UpdateRuleInput
		mock := &mockRuleService{
			updateFn: func(ruleID uint, input services.UpdateRuleInput) (*models.CategorizationRule, error) {
				gotInput = input
				rule := &models.CategorizationRule{NamePattern: "netflix", Priority: *input.Priority}
				rule.ID = ruleID
				return rule, nil
			},
		}
		router := setupRuleRouter(mock)

		w := doRequest(router, http.MethodPut, "/api/v1/rules/2", `{"priority": 5, "is_active": false}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		if gotInput.Priority == nil || *gotInput.Priority != 5 {
			t.Errorf("expected priority 5, got %v", gotInput.Priority)
		}
		if gotInput.IsActive == nil || *gotInput.IsActive {
			t.Errorf("expected IsActive false, got %v", gotInput.IsActive)
		}
		if gotInput.NamePattern != nil {
			t.Errorf("expected nil NamePattern, got %v", *gotInput.NamePattern)
		}
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		mock := &mockRuleService{
			updateFn: func(ruleID uint, input services.UpdateRuleInput) (*models.CategorizationRule, error) {
				return nil, apperrors.ErrRuleNotFound
			},
		}
		router := setupRuleRouter(mock)

		w := doRequest(router, http.MethodPut, "/api/v1/rules/99", `{"priority": 5}`)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestRuleHandlerDelete(t *testing.T) {
	t.Run("valid delete", func(t *testing.T) {
		var gotID uint
		mock := &mockRuleService{
			deleteFn: func(ruleID uint) error {
				gotID = ruleID
				return nil
			},
		}
		router := setupRuleRouter(mock)

		w := doRequest(router, http.MethodDelete, "/api/v1/rules/6", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		if gotID != 6 {
			t.Errorf("expected id 6, got %d", gotID)
		}
	})
}
