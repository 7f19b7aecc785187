package models

import "time"

// NotificationType identifies what kind of insight a notification carries.
type NotificationType string

const (
	NotificationBudgetWarning   NotificationType = "budget_warning"
	NotificationBudgetExceeded  NotificationType = "budget_exceeded"
	NotificationUnusualSpending NotificationType = "unusual_spending"
	NotificationHighTransaction NotificationType = "high_transaction"
	NotificationNewVendor       NotificationType = "new_vendor"
	NotificationCashFlowAlert   NotificationType = "cash_flow_alert"
)

// Severity orders notifications for display.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank returns a numeric weight for sorting: critical > warning > info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// Notification is an ephemeral alert computed on demand by the insight
// generator. It is never persisted and never deduplicated across requests
// beyond what the query window implies.
type Notification struct {
	Type             NotificationType `json:"type"`
	Severity         Severity         `json:"severity"`
	Message          string           `json:"message"`
	Data             map[string]any   `json:"data,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
	SuggestedActions []string         `json:"suggested_actions,omitempty"`
}
