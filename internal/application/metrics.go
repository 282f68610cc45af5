// Package application contains use-case orchestration and the pure
// derivation logic for profile metrics and recommendations.
package application

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odanree/credit-history-app/internal/domain/model"
)

// OtherCategory buckets transactions the provider returned without a
// category label.
const OtherCategory = "Other"

// UnknownMerchant buckets transactions without a merchant name.
const UnknownMerchant = "Unknown"

// Utilization returns balance/limit as a percentage, rounded to two places.
// A zero (or negative) limit yields zero: utilization is undefined without a
// limit, and zero is the reported convention rather than dividing by zero.
func Utilization(balance, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return balance.Div(limit).Mul(decimal.NewFromInt(100)).Round(2)
}

// SpendingByCategory groups absolute transaction amounts by category label
// within the window. Uncategorized transactions fall under OtherCategory.
func SpendingByCategory(txns []model.Transaction, window model.TimeWindow) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, txn := range txns {
		if !window.Contains(txn.Date) {
			continue
		}
		category := txn.Category
		if category == "" {
			category = OtherCategory
		}
		totals[category] = totals[category].Add(txn.Amount.Abs())
	}
	return totals
}

// MonthlySpending sums transaction amounts over the trailing 30 days.
// Provider convention is positive amounts for outflows, so refunds reduce
// the total.
func MonthlySpending(txns []model.Transaction, now time.Time) decimal.Decimal {
	cutoff := now.AddDate(0, 0, -30)
	total := decimal.Zero
	for _, txn := range txns {
		if txn.Date.Before(cutoff) {
			continue
		}
		total = total.Add(txn.Amount)
	}
	return total
}

// NamedTotal pairs a label with an aggregated amount, for ranked listings.
type NamedTotal struct {
	Name   string
	Amount decimal.Decimal
}

// SpendingAnalysis is the per-request breakdown of spending patterns.
type SpendingAnalysis struct {
	MonthlySpending map[string]decimal.Decimal // keyed by YYYY-MM
	TopCategories   []NamedTotal               // descending, at most 5
	TopMerchants    []NamedTotal               // descending, at most 10
	TotalSpent      decimal.Decimal
}

// AnalyzeTransactions derives spending insight from a transaction set:
// monthly totals, the top categories and merchants by absolute spend, and
// the overall total. Pure; the input is never mutated.
func AnalyzeTransactions(txns []model.Transaction) SpendingAnalysis {
	analysis := SpendingAnalysis{
		MonthlySpending: make(map[string]decimal.Decimal),
		TopCategories:   []NamedTotal{},
		TopMerchants:    []NamedTotal{},
	}
	if len(txns) == 0 {
		return analysis
	}

	categories := make(map[string]decimal.Decimal)
	merchants := make(map[string]decimal.Decimal)

	for _, txn := range txns {
		amount := txn.Amount.Abs()

		month := txn.Date.Format("2006-01")
		analysis.MonthlySpending[month] = analysis.MonthlySpending[month].Add(amount)

		category := txn.Category
		if category == "" {
			category = OtherCategory
		}
		categories[category] = categories[category].Add(amount)

		merchant := txn.Merchant
		if merchant == "" {
			merchant = UnknownMerchant
		}
		merchants[merchant] = merchants[merchant].Add(amount)

		analysis.TotalSpent = analysis.TotalSpent.Add(amount)
	}

	analysis.TopCategories = rankTotals(categories, 5)
	analysis.TopMerchants = rankTotals(merchants, 10)
	return analysis
}

// rankTotals returns the top n entries by amount descending, with name
// ascending as a deterministic tiebreak.
func rankTotals(totals map[string]decimal.Decimal, n int) []NamedTotal {
	ranked := make([]NamedTotal, 0, len(totals))
	for name, amount := range totals {
		ranked = append(ranked, NamedTotal{Name: name, Amount: amount})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].Amount.Equal(ranked[j].Amount) {
			return ranked[i].Amount.GreaterThan(ranked[j].Amount)
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
