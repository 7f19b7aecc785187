package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"finsight/internal/cache"
	"finsight/internal/config"
	"finsight/internal/database"
	"finsight/internal/handlers"
	"finsight/internal/logger"
	"finsight/internal/middleware"
	"finsight/internal/observability"
	"finsight/internal/resolver"
	"finsight/internal/search"
	"finsight/internal/services"
	"finsight/internal/validator"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Select the search dialect for the configured driver
	dialect, err := search.ForDriver(dbManager.Driver())
	if err != nil {
		return fmt.Errorf("failed to select search dialect: %w", err)
	}
	log.Infof("Using %s search dialect", dialect.Name())

	// Register custom validators
	validator.Register()

	// Metrics and caches
	metrics := observability.NewMetrics()
	listCache := cache.NewTTLCache("category_list", 32, appConfig.CacheTTL, metrics)
	queryCache := cache.NewQueryCache("query", appConfig.QueryCacheSize, appConfig.CacheTTL, metrics)

	// Initialize services
	db := dbManager.DB()
	categoryResolver := resolver.New(db)
	categoryService := services.NewCategoryService(db, listCache)
	categorizerService := services.NewCategorizerService(db, categoryResolver, queryCache)
	ruleService := services.NewRuleService(db)
	transactionService := services.NewTransactionService(db, dialect)
	budgetService := services.NewBudgetService(db)
	insightService := services.NewInsightService(db, queryCache)

	// Initialize handlers
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	categorizeHandler := handlers.NewCategorizeHandler(categorizerService)
	ruleHandler := handlers.NewRuleHandler(ruleService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	budgetHandler := handlers.NewBudgetHandler(budgetService)
	insightHandler := handlers.NewInsightHandler(insightService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Metrics(metrics))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")

	// Category routes
	categories := v1.Group("/categories")
	categories.GET("", categoryHandler.ListCategories)
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Categorization routes
	v1.POST("/categorize", categorizeHandler.Categorize)
	v1.POST("/categorize/bulk", categorizeHandler.BulkCategorize)

	// Rule routes
	rules := v1.Group("/rules")
	rules.GET("", ruleHandler.ListRules)
	rules.POST("", ruleHandler.CreateRule)
	rules.GET("/:id", ruleHandler.GetRuleByID)
	rules.PUT("/:id", ruleHandler.UpdateRule)
	rules.DELETE("/:id", ruleHandler.DeleteRule)

	// Transaction routes (read-only; the ledger integration owns writes)
	transactions := v1.Group("/transactions")
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/search", transactionHandler.SearchTransactions)
	transactions.GET("/lookup", transactionHandler.GetTransaction)

	// Budget routes
	budgets := v1.Group("/budgets")
	budgets.GET("", budgetHandler.ListBudgets)
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)

	// Insight routes
	v1.GET("/insights", insightHandler.GetInsights)

	log.Infof("Starting finsight backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
