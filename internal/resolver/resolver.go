// Package resolver resolves category name hints to concrete categories for
// rules that carry only a name instead of a resolved category id. Lookup
// runs in three passes: exact case-insensitive match, substring match, then
// fuzzy match by Levenshtein distance ratio.
package resolver

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"gorm.io/gorm"

	"finsight/internal/models"
	"finsight/internal/services"
)

// maxDistanceRatio is the largest edit-distance-to-length ratio still
// accepted as a fuzzy match.
const maxDistanceRatio = 0.4

// Resolver implements services.CategoryResolver over the category store.
type Resolver struct {
	db *gorm.DB
}

// New creates a Resolver.
func New(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveCategory resolves a hint to an active, non-reserved category. A nil
// result with nil error means no candidate was close enough; that is not a
// failure.
func (r *Resolver) ResolveCategory(hint services.ResolveHint) (*services.ResolvedCategory, error) {
	name := strings.TrimSpace(hint.CategoryName)
	if name == "" {
		name = strings.TrimSpace(hint.TransactionName)
	}
	if name == "" {
		return nil, nil
	}

	var candidates []models.Category
	err := r.db.Preload("Parent").
		Where("is_active = ? AND is_reserved = ?", true, false).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	lowered := strings.ToLower(name)

	// Exact match first, preferring one under the hinted parent.
	if match := pickByParent(exactMatches(candidates, lowered), hint.ParentCategory); match != nil {
		return resolved(match), nil
	}

	// Substring in either direction covers hints like "groceries" against
	// "Groceries & Household".
	if match := pickByParent(substringMatches(candidates, lowered), hint.ParentCategory); match != nil {
		return resolved(match), nil
	}

	return fuzzyMatch(candidates, lowered), nil
}

func exactMatches(candidates []models.Category, lowered string) []models.Category {
	var matches []models.Category
	for _, c := range candidates {
		if strings.ToLower(c.Name) == lowered || strings.ToLower(c.NameLocal) == lowered {
			matches = append(matches, c)
		}
	}
	return matches
}

func substringMatches(candidates []models.Category, lowered string) []models.Category {
	var matches []models.Category
	for _, c := range candidates {
		candidateName := strings.ToLower(c.Name)
		if strings.Contains(candidateName, lowered) || strings.Contains(lowered, candidateName) {
			matches = append(matches, c)
		}
	}
	return matches
}

// pickByParent returns the match whose parent name equals the hint, or the
// first match when the hint is empty or matches nothing.
func pickByParent(matches []models.Category, parentHint string) *models.Category {
	if len(matches) == 0 {
		return nil
	}
	if parentHint != "" {
		loweredParent := strings.ToLower(strings.TrimSpace(parentHint))
		for i := range matches {
			if matches[i].Parent != nil && strings.ToLower(matches[i].Parent.Name) == loweredParent {
				return &matches[i]
			}
		}
	}
	return &matches[0]
}

// fuzzyMatch returns the candidate with the smallest edit-distance ratio
// below the acceptance threshold, or nil.
func fuzzyMatch(candidates []models.Category, lowered string) *services.ResolvedCategory {
	var (
		best      *models.Category
		bestRatio = maxDistanceRatio
	)
	for i := range candidates {
		candidateName := strings.ToLower(candidates[i].Name)
		longest := len(candidateName)
		if len(lowered) > longest {
			longest = len(lowered)
		}
		if longest == 0 {
			continue
		}

		ratio := float64(levenshtein.ComputeDistance(candidateName, lowered)) / float64(longest)
		if ratio < bestRatio {
			best = &candidates[i]
			bestRatio = ratio
		}
	}
	if best == nil {
		return nil
	}
	return resolved(best)
}

func resolved(category *models.Category) *services.ResolvedCategory {
	result := &services.ResolvedCategory{
		CategoryID:  category.ID,
		Subcategory: category.Name,
	}
	if category.Parent != nil {
		result.ParentCategory = category.Parent.Name
	}
	return result
}
