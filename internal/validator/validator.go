// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("hex_color", validateHexColor)
		_ = v.RegisterValidation("category_type", validateCategoryType)
		_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
		_ = v.RegisterValidation("insight_type", validateInsightType)
		_ = v.RegisterValidation("notification_severity", validateNotificationSeverity)
	}
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateCategoryType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "expense", "income", "investment":
		return true
	}
	return false
}

func validateBudgetPeriod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "monthly", "yearly":
		return true
	}
	return false
}

func validateInsightType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "all", "budget", "unusual_spending", "high_value", "new_vendor", "cash_flow":
		return true
	}
	return false
}

func validateNotificationSeverity(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "info", "warning", "critical":
		return true
	}
	return false
}
