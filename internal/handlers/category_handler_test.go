package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/services"
)

type mockCategoryService struct {
	listFn   func(filter services.CategoryFilter) (*services.CategoryList, error)
	getFn    func(categoryID uint) (*models.Category, error)
	createFn func(input services.CreateCategoryInput) (*models.Category, error)
	updateFn func(categoryID uint, input services.UpdateCategoryInput) (*models.Category, error)
	deleteFn func(categoryID uint) (*models.Category, error)
}

var _ services.CategoryServicer = (*mockCategoryService)(nil)

func (m *mockCategoryService) ListCategories(filter services.CategoryFilter) (*services.CategoryList, error) {
	return m.listFn(filter)
}

func (m *mockCategoryService) GetCategoryByID(categoryID uint) (*models.Category, error) {
	return m.getFn(categoryID)
}

func (m *mockCategoryService) CreateCategory(input services.CreateCategoryInput) (*models.Category, error) {
	return m.createFn(input)
}

func (m *mockCategoryService) UpdateCategory(categoryID uint, input services.UpdateCategoryInput) (*models.Category, error) {
	return m.updateFn(categoryID, input)
}

func (m *mockCategoryService) DeleteCategory(categoryID uint) (*models.Category, error) {
	return m.deleteFn(categoryID)
}

func setupCategoryRouter(svc services.CategoryServicer) *gin.Engine {
	router := gin.New()
	handler := NewCategoryHandler(svc)

	categories := router.Group("/api/v1/categories")
	{
		categories.GET("", handler.ListCategories)
		categories.GET("/:id", handler.GetCategoryByID)
		categories.POST("", handler.CreateCategory)
		categories.PUT("/:id", handler.UpdateCategory)
		categories.DELETE("/:id", handler.DeleteCategory)
	}

	return router
}

func TestCategoryHandlerList(t *testing.T) {
	t.Run("returns rollups and uncategorized bucket", func(t *testing.T) {
		mock := &mockCategoryService{
			listFn: func(filter services.CategoryFilter) (*services.CategoryList, error) {
				if filter.Type != nil {
					t.Errorf("expected nil type filter, got %v", *filter.Type)
				}
				return &services.CategoryList{
					Categories: []services.CategoryStats{
						{Category: models.Category{Name: "Groceries"}, TransactionCount: 3, TotalAmount: -4500},
					},
					Uncategorized: services.UncategorizedBucket{Count: 1, TotalAmount: -999, Transactions: []models.Transaction{}},
				}, nil
			},
		}
		router := setupCategoryRouter(mock)

		w := doRequest(router, http.MethodGet, "/api/v1/categories", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}

		body := parseJSON(t, w)
		categories, ok := body["categories"].([]any)
		if !ok || len(categories) != 1 {
			t.Fatalf("expected one category, got %v", body["categories"])
		}
		uncategorized, ok := body["uncategorized"].(map[string]any)
		if !ok {
			t.Fatalf("expected uncategorized bucket, got %v", body["uncategorized"])
		}
		if uncategorized["count"].(float64) != 1 {
			t.Errorf("expected uncategorized count 1, got %v", uncategorized["count"])
		}
	})

	t.Run("passes type filter through", func(t *testing.T) {
		var gotFilter services.CategoryFilter
		mock := &mockCategoryService{
			listFn: func(filter services.CategoryFilter) (*services.CategoryList, error) {
				gotFilter = filter
				return &services.CategoryList{Categories: []services.CategoryStats{}}, nil
			},
		}
		router := setupCategoryRouter(mock)

		w := doRequest(router, http.MethodGet, "/api/v1/categories?type=income&include_inactive=true", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		if gotFilter.Type == nil || *gotFilter.Type != models.CategoryTypeIncome {
			t.Errorf("expected income type filter, got %v", gotFilter.Type)
		}
		if !gotFilter.IncludeInactive {
			t.Error("expected IncludeInactive true")
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		mock := &mockCategoryService{
			listFn: func(filter services.CategoryFilter) (*services.CategoryList, error) {
				t.Fatal("service should not be called")
				return nil, nil
			},
		}
		router := setupCategoryRouter(mock)

		w := doRequest(router, http.MethodGet, "/api/v1/categories?type=savings", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestCategoryHandlerCreate(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		var gotInput services.CreateCategoryInput
		mock := &mockCategoryService{
			createFn: func(input services.CreateCategoryInput) (*models.Category, error) {
				gotInput = input
				category := &models.Category{Name: input.Name, Type: input.Type, HierarchyPath: "1"}
				category.ID = 1
				return category, nil
			},
		}
		router := setupCategoryRouter(mock)

		w := doRequest(router, http.MethodPost, "/api/v1/categories",
			`{"name": "Groceries", "type": "expense", "color": "#22AA44"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
		}
		if gotInput.Name != "Groceries" || gotInput.Type != models.CategoryTypeExpense {
			t.Errorf("unexpected input passed to service: %+v", gotInput)
		}

		body := parseJSON(t, w)
		category := body["category"].(map[string]any)
		if category["name"] != "Groceries" {
			t.Errorf("expected name Groceries, got %v", category["name"])
		}
	})

	t.Run("missing name", func(t *testing.T) {
		router := setupCategoryRouter(&mockCategoryService{})

		w := doRequest(router, http.MethodPost, "/api/v1/categories", `{"type": "expense"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("invalid color", func(t *testing.T) {
		router := setupCategoryRouter(&mockCategoryService{})

		w := doRequest(router, http.MethodPost, "/api/v1/categories",
			`{"name": "Groceries", "type": "expense", "color": "green"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("duplicate sibling maps to 409", func(t *testing.T) {
		mock := &mockCategoryService{
			createFn: func(input services.CreateCategoryInput) (*models.Category, error) {
				return nil, apperrors.ErrDuplicateCategory
			},
		}
		router := setupCategoryRouter(mock)

		w := doRequest(router, http.MethodPost, "/api/v1/categories",
			`{"name": "Groceries", "type": "expense"}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
		}

		body := parseJSON(t, w)
		errBody := body["error"].(map[string]any)
		if errBody["code"] != "DUPLICATE_CATEGORY" {
			t.Errorf("expected code DUPLICATE_CATEGORY, got %v", errBody["code"])
		}
	})
}

func TestCategoryHandlerUpdate(t *testing.T) {
	t.Run("partial update with string is_active", func(t *testing.T) {
		var gotInput services.UpdateCategoryInput
		mock := &mockCategoryService{
			updateFn: func(categoryID uint, input services.UpdateCategoryInput) (*models.Category, error) {
				gotInput = input
				category := &models.Category{Name: "Groceries", IsActive: false}
				category.ID = categoryID
				return category, nil
			},
		}
		router := setupCategoryRouter(mock)

		w := doRequest(router, http.MethodPut, "/api/v1/categories/7", `{"is_active": "false"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		if gotInput.IsActive == nil || *gotInput.IsActive {
			t.Errorf("expected IsActive false, got %v", gotInput.IsActive)
		}
		if gotInput.Name != nil {
			t.Errorf("expected nil Name, got %v", *gotInput.Name)
		}
	})

	t.Run("non-boolean is_active", func(t *testing.T) {
		router := setupCategoryRouter(&mockCategoryService{})

		w := doRequest(router, http.MethodPut, "/api/v1/categories/7", `{"is_active": "maybe"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("non-numeric id", func(t *testing.T) {
		router := setupCategoryRouter(&mockCategoryService{})

		w := doRequest(router, http.MethodPut, "/api/v1/categories/abc", `{"name": "x"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestCategoryHandlerDelete(t *testing.T) {
	t.Run("returns removed category", func(t *testing.T) {
		mock := &mockCategoryService{
			deleteFn: func(categoryID uint) (*models.Category, error) {
				category := &models.Category{Name: "Obsolete"}
				category.ID = categoryID
				return category, nil
			},
		}
		router := setupCategoryRouter(mock)

		w := doRequest(router, http.MethodDelete, "/api/v1/categories/3", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}

		body := parseJSON(t, w)
		category := body["category"].(map[string]any)
		if category["name"] != "Obsolete" {
			t.Errorf("expected removed category in response, got %v", body)
		}
	})

	t.Run("category in use maps to 409", func(t *testing.T) {
		mock := &mockCategoryService{
			deleteFn: func(categoryID uint) (*models.Category, error) {
				return nil, apperrors.ErrCategoryInUse
			},
		}
		router := setupCategoryRouter(mock)

		w := doRequest(router, http.MethodDelete, "/api/v1/categories/3", "")
		if w.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		mock := &mockCategoryService{
			deleteFn: func(categoryID uint) (*models.Category, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		router := setupCategoryRouter(mock)

		w := doRequest(router, http.MethodDelete, "/api/v1/categories/99", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}
