package integration

import (
	"fmt"
	"net/http"
	"testing"

	"finsight/internal/models"
)

func TestCategoryFlow_HierarchyAndDeleteGuards(t *testing.T) {
	app := setupApp(t)

	// Build a two-level tree
	foodID := app.createCategory(t, `{"name":"Food","type":"expense"}`)

	rec := app.request("POST", "/api/v1/categories",
		fmt.Sprintf(`{"name":"Groceries","type":"expense","parent_id":%.0f}`, foodID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	groceries := parseJSON(t, rec)["category"].(map[string]interface{})
	groceriesID := groceries["id"].(float64)

	wantPath := fmt.Sprintf("%.0f/%.0f", foodID, groceriesID)
	if groceries["hierarchy_path"] != wantPath {
		t.Errorf("expected hierarchy path %q, got %v", wantPath, groceries["hierarchy_path"])
	}
	if groceries["depth_level"].(float64) != 1 {
		t.Errorf("expected depth 1, got %v", groceries["depth_level"])
	}

	// Type must match the parent
	rec = app.request("POST", "/api/v1/categories",
		fmt.Sprintf(`{"name":"Salary","type":"income","parent_id":%.0f}`, foodID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for type mismatch, got %d: %s", rec.Code, rec.Body.String())
	}

	// Sibling names are unique
	rec = app.request("POST", "/api/v1/categories",
		fmt.Sprintf(`{"name":"Groceries","type":"expense","parent_id":%.0f}`, foodID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate sibling, got %d: %s", rec.Code, rec.Body.String())
	}

	// Categorize a ledger row under the leaf
	transaction := app.seedTransaction(t, "tx-groc-1", "REWE Markt", -2500, 0)
	leafID := uint(groceriesID)
	err := app.DB.Model(transaction).Updates(map[string]interface{}{
		"category_id":   leafID,
		"category_type": models.CategoryTypeExpense,
	}).Error
	if err != nil {
		t.Fatalf("failed to categorize seed transaction: %v", err)
	}

	// A referenced category cannot be deleted
	rec = app.request("DELETE", fmt.Sprintf("/api/v1/categories/%.0f", groceriesID), "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 deleting referenced category, got %d: %s", rec.Code, rec.Body.String())
	}

	// Neither can a parent with children
	rec = app.request("DELETE", fmt.Sprintf("/api/v1/categories/%.0f", foodID), "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 deleting parent, got %d: %s", rec.Code, rec.Body.String())
	}

	// The listing carries ledger rollups for the leaf
	rec = app.request("GET", "/api/v1/categories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	list := parseJSON(t, rec)
	categories := list["categories"].([]interface{})

	var leaf map[string]interface{}
	for _, raw := range categories {
		category := raw.(map[string]interface{})
		if category["id"].(float64) == groceriesID {
			leaf = category
			break
		}
	}
	if leaf == nil {
		t.Fatalf("leaf category missing from listing: %v", categories)
	}
	if leaf["transaction_count"].(float64) != 1 {
		t.Errorf("expected 1 transaction, got %v", leaf["transaction_count"])
	}
	if leaf["total_amount"].(float64) != -2500 {
		t.Errorf("expected total -2500, got %v", leaf["total_amount"])
	}

	// With the ledger row gone the leaf deletes cleanly and returns itself
	if err := app.DB.Unscoped().Delete(transaction).Error; err != nil {
		t.Fatalf("failed to remove seed transaction: %v", err)
	}
	rec = app.request("DELETE", fmt.Sprintf("/api/v1/categories/%.0f", groceriesID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	removed := parseJSON(t, rec)["category"].(map[string]interface{})
	if removed["name"] != "Groceries" {
		t.Errorf("expected removed category in response, got %v", removed)
	}
}
