package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"finsight/internal/cache"
	"finsight/internal/config"
	"finsight/internal/handlers"
	"finsight/internal/logger"
	"finsight/internal/middleware"
	"finsight/internal/models"
	"finsight/internal/resolver"
	"finsight/internal/search"
	"finsight/internal/services"
	"finsight/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.Category{},
		&models.CategorizationRule{},
		&models.Transaction{},
		&models.CategoryBudget{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	dialect, err := search.ForDriver(config.DriverSQLite)
	if err != nil {
		t.Fatalf("failed to select search dialect: %v", err)
	}

	listCache := cache.NewTTLCache("category_list", 32, time.Minute, nil)
	queryCache := cache.NewQueryCache("query", 64, time.Minute, nil)
	categoryResolver := resolver.New(db)

	// Services
	categoryService := services.NewCategoryService(db, listCache)
	ruleService := services.NewRuleService(db)
	categorizerService := services.NewCategorizerService(db, categoryResolver, queryCache)
	transactionService := services.NewTransactionService(db, dialect)
	budgetService := services.NewBudgetService(db)
	insightService := services.NewInsightService(db, queryCache)

	// Handlers
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	ruleHandler := handlers.NewRuleHandler(ruleService)
	categorizeHandler := handlers.NewCategorizeHandler(categorizerService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	budgetHandler := handlers.NewBudgetHandler(budgetService)
	insightHandler := handlers.NewInsightHandler(insightService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	categories := v1.Group("/categories")
	categories.GET("", categoryHandler.ListCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.POST("", categoryHandler.CreateCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	v1.POST("/categorize", categorizeHandler.Categorize)
	v1.POST("/categorize/bulk", categorizeHandler.BulkCategorize)

	rules := v1.Group("/rules")
	rules.GET("", ruleHandler.ListRules)
	rules.GET("/:id", ruleHandler.GetRuleByID)
	rules.POST("", ruleHandler.CreateRule)
	rules.PUT("/:id", ruleHandler.UpdateRule)
	rules.DELETE("/:id", ruleHandler.DeleteRule)

	transactions := v1.Group("/transactions")
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/search", transactionHandler.SearchTransactions)
	transactions.GET("/lookup", transactionHandler.GetTransaction)

	budgets := v1.Group("/budgets")
	budgets.GET("", budgetHandler.ListBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)

	v1.GET("/insights", insightHandler.GetInsights)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// createCategory creates a category via the API and returns its id.
func (app *testApp) createCategory(t *testing.T, body string) float64 {
	t.Helper()
	rec := app.request("POST", "/api/v1/categories", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category failed: %d %s", rec.Code, rec.Body.String())
	}
	category := parseJSON(t, rec)["category"].(map[string]interface{})
	return category["id"].(float64)
}

// seedTransaction inserts a ledger row directly. Transaction creation is owned
// by the external ledger integration, so there is no API route for it.
func (app *testApp) seedTransaction(t *testing.T, externalID, name string, amount int64, daysAgo int) *models.Transaction {
	t.Helper()
	transaction := &models.Transaction{
		ExternalID: externalID,
		Vendor:     "TestBank",
		Name:       name,
		Amount:     amount,
		Date:       time.Now().UTC().AddDate(0, 0, -daysAgo),
	}
	if err := app.DB.Create(transaction).Error; err != nil {
		t.Fatalf("failed to seed transaction: %v", err)
	}
	return transaction
}
