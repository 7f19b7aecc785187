package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"finsight/internal/models"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestCategory creates a root expense category with a unique name.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()
	name := fmt.Sprintf("Category %d", nextID())
	return CreateTestCategoryWithName(t, db, name, models.CategoryTypeExpense, nil)
}

// CreateTestCategoryWithName creates a category with the given name, type and
// optional parent, maintaining the hierarchy path the same way the service
// layer does.
func CreateTestCategoryWithName(t *testing.T, db *gorm.DB, name string, categoryType models.CategoryType, parentID *uint) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:     name,
		Type:     categoryType,
		ParentID: parentID,
		IsActive: true,
	}

	parentPath := ""
	if parentID != nil {
		var parent models.Category
		if err := db.First(&parent, *parentID).Error; err != nil {
			t.Fatalf("failed to load parent category %d: %v", *parentID, err)
		}
		category.DepthLevel = parent.DepthLevel + 1
		parentPath = parent.HierarchyPath
	}

	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}

	path := fmt.Sprintf("%d", category.ID)
	if parentPath != "" {
		path = fmt.Sprintf("%s/%d", parentPath, category.ID)
	}
	if err := db.Model(category).Update("hierarchy_path", path).Error; err != nil {
		t.Fatalf("failed to set hierarchy path: %v", err)
	}
	category.HierarchyPath = path

	return category
}

// CreateTestReservedCategory creates an escrow-style category that is excluded
// from categorization and insights.
func CreateTestReservedCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:       fmt.Sprintf("Reserved %d", nextID()),
		Type:       models.CategoryTypeExpense,
		IsActive:   true,
		IsReserved: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create reserved category: %v", err)
	}
	if err := db.Model(category).Update("hierarchy_path", fmt.Sprintf("%d", category.ID)).Error; err != nil {
		t.Fatalf("failed to set hierarchy path: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction with a unique identity pair.
func CreateTestTransaction(t *testing.T, db *gorm.DB, name string, amount int64, date time.Time) *models.Transaction {
	t.Helper()

	transaction := &models.Transaction{
		ExternalID: fmt.Sprintf("ext-%d", nextID()),
		Vendor:     "TestBank",
		Name:       name,
		Amount:     amount,
		Date:       date,
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// CreateTestTransactionWithVendor creates a transaction with the given vendor.
func CreateTestTransactionWithVendor(t *testing.T, db *gorm.DB, vendor, name string, amount int64, date time.Time) *models.Transaction {
	t.Helper()

	transaction := &models.Transaction{
		ExternalID: fmt.Sprintf("ext-%d", nextID()),
		Vendor:     vendor,
		Name:       name,
		Amount:     amount,
		Date:       date,
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// CreateTestCategorizedTransaction creates a transaction already assigned to a
// category.
func CreateTestCategorizedTransaction(t *testing.T, db *gorm.DB, categoryID uint, name string, amount int64, date time.Time) *models.Transaction {
	t.Helper()

	transaction := CreateTestTransaction(t, db, name, amount, date)
	updates := map[string]interface{}{
		"category_id":   categoryID,
		"category_type": models.CategoryTypeExpense,
	}
	if amount > 0 {
		updates["category_type"] = models.CategoryTypeIncome
	}
	if err := db.Model(transaction).Updates(updates).Error; err != nil {
		t.Fatalf("failed to categorize test transaction: %v", err)
	}
	transaction.CategoryID = &categoryID
	return transaction
}

// CreateTestRule creates an active categorization rule pointing at a category.
func CreateTestRule(t *testing.T, db *gorm.DB, pattern string, categoryID uint, priority int) *models.CategorizationRule {
	t.Helper()

	rule := &models.CategorizationRule{
		NamePattern: pattern,
		CategoryID:  &categoryID,
		Priority:    priority,
		IsActive:    true,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test rule: %v", err)
	}
	return rule
}

// CreateTestUnresolvedRule creates a rule that carries only a category name
// hint, forcing the categorizer through the resolver.
func CreateTestUnresolvedRule(t *testing.T, db *gorm.DB, pattern, categoryName, parentName string, priority int) *models.CategorizationRule {
	t.Helper()

	rule := &models.CategorizationRule{
		NamePattern:        pattern,
		CategoryName:       categoryName,
		ParentCategoryName: parentName,
		Priority:           priority,
		IsActive:           true,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test rule: %v", err)
	}
	return rule
}

// CreateTestBudget creates an active monthly budget for a category.
func CreateTestBudget(t *testing.T, db *gorm.DB, categoryID uint, limit int64) *models.CategoryBudget {
	t.Helper()

	budget := &models.CategoryBudget{
		CategoryID:  categoryID,
		BudgetLimit: limit,
		PeriodType:  models.BudgetPeriodMonthly,
		IsActive:    true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
