package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"finsight/internal/cache"
	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/search"
)

// Insight type filter values. "all" (or empty) runs every generator.
const (
	InsightTypeAll             = "all"
	InsightTypeBudget          = "budget"
	InsightTypeUnusualSpending = "unusual_spending"
	InsightTypeHighValue       = "high_value"
	InsightTypeNewVendor       = "new_vendor"
	InsightTypeCashFlow        = "cash_flow"
)

// Generator thresholds.
const (
	defaultInsightLimit = 50

	budgetWarningPercent  = 75.0
	budgetExceededPercent = 100.0

	anomalyBaselineDays = 90
	anomalyScanDays     = 7
	anomalyMinSamples   = 5
	anomalyZThreshold   = 2.5

	highValueWindowDays = 30
	highValueScanDays   = 3
	highValuePercentile = 0.95
	highValueMaxAlerts  = 5

	newVendorWindowDays     = 7
	newVendorMinTransaction = 2

	cashFlowRunwayDays  = 10.0
	cashFlowAverageDays = 7
)

// insightService computes ephemeral notifications from current ledger data.
// Every sub-generator runs independently per request; nothing is persisted
// or deduplicated across calls. Heavy aggregate reads go through the query
// cache, which the categorizer invalidates on every committed assignment.
type insightService struct {
	db         *gorm.DB
	queryCache *cache.QueryCache
	now        func() time.Time
}

// NewInsightService creates a new InsightServicer. queryCache may be nil to
// disable read-through caching of aggregate queries.
func NewInsightService(db *gorm.DB, queryCache *cache.QueryCache) InsightServicer {
	return &insightService{db: db, queryCache: queryCache, now: time.Now}
}

// GenerateInsights runs the selected generators and merges their output
// ordered by severity (critical > warning > info) then newest first. The
// severity filter and limit apply after ordering.
func (s *insightService) GenerateInsights(filter InsightFilter) ([]models.Notification, error) {
	now := s.now()

	var generators []func(time.Time) ([]models.Notification, error)
	switch filter.Type {
	case "", InsightTypeAll:
		generators = []func(time.Time) ([]models.Notification, error){
			s.budgetAlerts, s.unusualSpending, s.highValueTransactions, s.newVendors, s.cashFlowAlert,
		}
	case InsightTypeBudget:
		generators = append(generators, s.budgetAlerts)
	case InsightTypeUnusualSpending:
		generators = append(generators, s.unusualSpending)
	case InsightTypeHighValue:
		generators = append(generators, s.highValueTransactions)
	case InsightTypeNewVendor:
		generators = append(generators, s.newVendors)
	case InsightTypeCashFlow:
		generators = append(generators, s.cashFlowAlert)
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("unknown insight type %q", filter.Type))
	}

	notifications := []models.Notification{}
	for _, generate := range generators {
		batch, err := generate(now)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, batch...)
	}

	sort.SliceStable(notifications, func(i, j int) bool {
		if notifications[i].Severity.Rank() != notifications[j].Severity.Rank() {
			return notifications[i].Severity.Rank() > notifications[j].Severity.Rank()
		}
		return notifications[i].Timestamp.After(notifications[j].Timestamp)
	})

	if filter.Severity != nil {
		filtered := notifications[:0]
		for _, n := range notifications {
			if n.Severity == *filter.Severity {
				filtered = append(filtered, n)
			}
		}
		notifications = filtered
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultInsightLimit
	}
	if len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

// budgetAlerts emits a warning per active monthly budget at 75% usage or
// above and a critical alert at 100% or above. Spending rolls up the
// budget's category and all its descendants via the materialized path.
func (s *insightService) budgetAlerts(now time.Time) ([]models.Notification, error) {
	var budgets []models.CategoryBudget
	err := s.db.Preload("Category").
		Where("is_active = ? AND period_type = ?", true, models.BudgetPeriodMonthly).
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var notifications []models.Notification
	for _, budget := range budgets {
		if budget.BudgetLimit <= 0 {
			continue
		}

		spent, err := s.categorySpend(budget.Category, monthStart, now)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		usage := float64(spent) / float64(budget.BudgetLimit) * 100
		if usage < budgetWarningPercent {
			continue
		}

		data := map[string]any{
			"budget_id":     budget.ID,
			"category_id":   budget.CategoryID,
			"category_name": budget.Category.Name,
			"budget_limit":  budget.BudgetLimit,
			"spent":         spent,
			"usage_percent": usage,
		}

		if usage >= budgetExceededPercent {
			notifications = append(notifications, models.Notification{
				Type:     models.NotificationBudgetExceeded,
				Severity: models.SeverityCritical,
				Message: fmt.Sprintf("Budget for %s exceeded: %s spent of %s (%.1f%%)",
					budget.Category.Name, formatCents(spent), formatCents(budget.BudgetLimit), usage),
				Data:      data,
				Timestamp: now,
				SuggestedActions: []string{
					"Review recent transactions in this category",
					"Adjust the budget limit if spending has permanently changed",
				},
			})
			continue
		}

		notifications = append(notifications, models.Notification{
			Type:     models.NotificationBudgetWarning,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("Budget for %s is at %.1f%% (%s of %s)",
				budget.Category.Name, usage, formatCents(spent), formatCents(budget.BudgetLimit)),
			Data:      data,
			Timestamp: now,
		})
	}
	return notifications, nil
}

// unusualSpending flags expense transactions from the trailing 7 days whose
// absolute amount sits more than 2.5 population standard deviations above
// the trailing-90-day mean of their category. Each transaction is scored
// against the baseline with itself removed; a large outlier must not inflate
// its own mean and suppress its own alert. Transactions group under the
// leaf's parent when one exists. Groups with fewer than 5 samples (the scored
// transaction included) are skipped; z-scores are unreliable on small
// samples.
func (s *insightService) unusualSpending(now time.Time) ([]models.Notification, error) {
	baseline := now.AddDate(0, 0, -anomalyBaselineDays)
	transactions, err := s.recentExpenses(baseline, now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	type groupStats struct {
		name    string
		amounts []float64
	}
	groups := make(map[uint]*groupStats)
	resolveGroup := func(t models.Transaction) (uint, string, bool) {
		if t.CategoryID == nil || t.Category == nil {
			return 0, "", false
		}
		if t.Category.ParentID != nil {
			name := t.Category.Name
			if t.Category.Parent != nil {
				name = t.Category.Parent.Name
			}
			return *t.Category.ParentID, name, true
		}
		return *t.CategoryID, t.Category.Name, true
	}

	for _, t := range transactions {
		groupID, name, ok := resolveGroup(t)
		if !ok {
			continue
		}
		g, exists := groups[groupID]
		if !exists {
			g = &groupStats{name: name}
			groups[groupID] = g
		}
		g.amounts = append(g.amounts, math.Abs(float64(t.Amount)))
	}

	scanStart := now.AddDate(0, 0, -anomalyScanDays)
	var notifications []models.Notification
	for _, t := range transactions {
		if t.Date.Before(scanStart) {
			continue
		}
		groupID, name, ok := resolveGroup(t)
		if !ok {
			continue
		}
		g := groups[groupID]
		if len(g.amounts) < anomalyMinSamples {
			continue
		}

		amount := math.Abs(float64(t.Amount))
		mean, stdDev := meanStdDevExcluding(g.amounts, amount)
		if stdDev <= 0 {
			continue
		}

		z := (amount - mean) / stdDev
		if z <= anomalyZThreshold {
			continue
		}

		notifications = append(notifications, models.Notification{
			Type:     models.NotificationUnusualSpending,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("Unusually large expense at %s: %s (typical for %s is %s)",
				t.Vendor, formatCents(t.Amount), name, formatCents(int64(mean))),
			Data: map[string]any{
				"external_id":   t.ExternalID,
				"vendor":        t.Vendor,
				"amount":        t.Amount,
				"category_name": name,
				"mean":          mean,
				"std_dev":       stdDev,
				"z_score":       z,
			},
			Timestamp: t.Date,
		})
	}
	return notifications, nil
}

// highValueTransactions emits up to 5 info alerts for trailing-3-day expense
// transactions at or above the 95th percentile of trailing-30-day expense
// amounts, most recent first.
func (s *insightService) highValueTransactions(now time.Time) ([]models.Notification, error) {
	windowStart := now.AddDate(0, 0, -highValueWindowDays)

	amounts, err := s.expenseAmounts(windowStart, now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(amounts) == 0 {
		return nil, nil
	}

	threshold := percentile(amounts, highValuePercentile)

	var candidates []models.Transaction
	err = s.db.Scopes(search.ExcludeReserved).
		Where("amount < 0 AND date >= ? AND date <= ?", now.AddDate(0, 0, -highValueScanDays), now).
		Where("ABS(amount) >= ?", threshold).
		Order("date DESC").
		Limit(highValueMaxAlerts).
		Find(&candidates).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var notifications []models.Notification
	for _, t := range candidates {
		notifications = append(notifications, models.Notification{
			Type:     models.NotificationHighTransaction,
			Severity: models.SeverityInfo,
			Message: fmt.Sprintf("High-value transaction: %s at %s on %s",
				formatCents(t.Amount), t.Vendor, t.Date.Format("Jan 2")),
			Data: map[string]any{
				"external_id": t.ExternalID,
				"vendor":      t.Vendor,
				"amount":      t.Amount,
				"threshold":   threshold,
			},
			Timestamp: t.Date,
		})
	}
	return notifications, nil
}

// newVendors flags vendors whose earliest transaction falls within the
// trailing 7 days and who already have at least 2 transactions. The minimum
// avoids alerting on a single isolated charge from a known merchant's rare
// sub-brand.
func (s *insightService) newVendors(now time.Time) ([]models.Notification, error) {
	rows, err := s.vendorHistory()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	type vendorStats struct {
		first time.Time
		count int64
	}
	vendors := make(map[string]*vendorStats)
	for _, row := range rows {
		v, ok := vendors[row.Vendor]
		if !ok {
			vendors[row.Vendor] = &vendorStats{first: row.Date, count: 1}
			continue
		}
		if row.Date.Before(v.first) {
			v.first = row.Date
		}
		v.count++
	}

	windowStart := now.AddDate(0, 0, -newVendorWindowDays)
	var notifications []models.Notification
	for vendor, stats := range vendors {
		if stats.count < newVendorMinTransaction || stats.first.Before(windowStart) {
			continue
		}
		notifications = append(notifications, models.Notification{
			Type:     models.NotificationNewVendor,
			Severity: models.SeverityInfo,
			Message: fmt.Sprintf("New vendor detected: %s (%d transactions in the last %d days)",
				vendor, stats.count, newVendorWindowDays),
			Data: map[string]any{
				"vendor":            vendor,
				"first_seen":        stats.first,
				"transaction_count": stats.count,
			},
			Timestamp: stats.first,
		})
	}
	return notifications, nil
}

// cashFlowAlert projects how many days the current month's positive net flow
// covers at the trailing-7-day average daily expense, alerting below 10
// days. A zero spending rate or a negative net flow never triggers.
func (s *insightService) cashFlowAlert(now time.Time) ([]models.Notification, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	income, err := s.sumAmounts("amount > 0", monthStart, now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	expenses, err := s.sumAbsAmounts(monthStart, now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	netFlow := income - expenses

	recentExpenses, err := s.sumAbsAmounts(now.AddDate(0, 0, -cashFlowAverageDays), now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	avgDaily := float64(recentExpenses) / float64(cashFlowAverageDays)
	if avgDaily <= 0 {
		return nil, nil
	}

	daysRemaining := float64(netFlow) / avgDaily
	if netFlow <= 0 || daysRemaining >= cashFlowRunwayDays {
		return nil, nil
	}

	return []models.Notification{{
		Type:     models.NotificationCashFlowAlert,
		Severity: models.SeverityWarning,
		Message: fmt.Sprintf("Projected cash runway is %.1f days at the current spending rate",
			daysRemaining),
		Data: map[string]any{
			"net_flow":          netFlow,
			"avg_daily_expense": avgDaily,
			"days_remaining":    daysRemaining,
		},
		Timestamp: now,
		SuggestedActions: []string{
			"Review upcoming scheduled payments",
			"Reduce discretionary spending until the next income date",
		},
	}}, nil
}

// categorySpend sums abs(amount) of expense transactions in [from, to]
// assigned to the category or any descendant, using the materialized path.
func (s *insightService) categorySpend(category models.Category, from, to time.Time) (int64, error) {
	key := cache.Key("transactions:category_spend", []any{category.ID, from.Unix()})
	if cached, ok := s.cacheGet(key); ok {
		if spent, ok := cached.(int64); ok {
			return spent, nil
		}
	}

	var spent int64
	err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(ABS(amount)), 0)").
		Where("amount < 0 AND date >= ? AND date <= ?", from, to).
		Where("category_id IN (SELECT id FROM categories WHERE (hierarchy_path = ? OR hierarchy_path LIKE ?) AND deleted_at IS NULL)",
			category.HierarchyPath, category.HierarchyPath+"/%").
		Scan(&spent).Error
	if err != nil {
		return 0, err
	}

	s.cacheSet(key, spent)
	return spent, nil
}

// recentExpenses loads non-reserved expense transactions since the given
// date with their category and its parent, cached per day window.
func (s *insightService) recentExpenses(from, to time.Time) ([]models.Transaction, error) {
	key := cache.Key("transactions:expense_window", []any{from.Format("2006-01-02")})
	if cached, ok := s.cacheGet(key); ok {
		if transactions, ok := cached.([]models.Transaction); ok {
			return transactions, nil
		}
	}

	var transactions []models.Transaction
	err := s.db.Preload("Category").Preload("Category.Parent").
		Scopes(search.ExcludeReserved).
		Where("amount < 0 AND date >= ? AND date <= ?", from, to).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	s.cacheSet(key, transactions)
	return transactions, nil
}

// expenseAmounts returns abs expense amounts in [from, to] as floats.
func (s *insightService) expenseAmounts(from, to time.Time) ([]float64, error) {
	var amounts []int64
	err := s.db.Model(&models.Transaction{}).
		Scopes(search.ExcludeReserved).
		Where("amount < 0 AND date >= ? AND date <= ?", from, to).
		Pluck("ABS(amount)", &amounts).Error
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(amounts))
	for i, a := range amounts {
		values[i] = float64(a)
	}
	return values, nil
}

type vendorRow struct {
	Vendor string
	Date   time.Time
}

// vendorHistory returns (vendor, date) pairs for all non-reserved
// transactions, cached under the transactions table key.
func (s *insightService) vendorHistory() ([]vendorRow, error) {
	key := "transactions:vendor_history"
	if cached, ok := s.cacheGet(key); ok {
		if rows, ok := cached.([]vendorRow); ok {
			return rows, nil
		}
	}

	var rows []vendorRow
	err := s.db.Model(&models.Transaction{}).
		Select("vendor, date").
		Scopes(search.ExcludeReserved).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	s.cacheSet(key, rows)
	return rows, nil
}

func (s *insightService) sumAmounts(condition string, from, to time.Time) (int64, error) {
	var sum int64
	err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where(condition).
		Where("date >= ? AND date <= ?", from, to).
		Scan(&sum).Error
	return sum, err
}

func (s *insightService) sumAbsAmounts(from, to time.Time) (int64, error) {
	var sum int64
	err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(ABS(amount)), 0)").
		Where("amount < 0").
		Where("date >= ? AND date <= ?", from, to).
		Scan(&sum).Error
	return sum, err
}

func (s *insightService) cacheGet(key string) (any, bool) {
	if s.queryCache == nil {
		return nil, false
	}
	return s.queryCache.Get(key)
}

func (s *insightService) cacheSet(key string, value any) {
	if s.queryCache != nil {
		s.queryCache.Set(key, value)
	}
}

// meanStdDevExcluding returns the mean and population standard deviation of
// values with one occurrence of excluded removed.
func meanStdDevExcluding(values []float64, excluded float64) (float64, float64) {
	n := float64(len(values) - 1)
	if n < 1 {
		return 0, 0
	}

	var sum, sumSquares float64
	for _, v := range values {
		sum += v
		sumSquares += v * v
	}
	sum -= excluded
	sumSquares -= excluded * excluded

	mean := sum / n
	variance := sumSquares/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// percentile computes the p-th percentile (0..1) with linear interpolation
// between order statistics.
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	return sorted[lower] + (sorted[upper]-sorted[lower])*(rank-float64(lower))
}

// formatCents renders a cent amount as a currency string, dropping the sign.
func formatCents(cents int64) string {
	if cents < 0 {
		cents = -cents
	}
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
