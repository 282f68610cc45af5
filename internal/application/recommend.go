package application

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odanree/credit-history-app/internal/domain/model"
)

// RecommendationRule evaluates one summary condition. Applies returns
// whether the rule fires and the message to surface when it does. Rules
// only fire when the inputs they need are known; a nil summary field never
// triggers a rule.
type RecommendationRule struct {
	Category string
	Priority model.Priority
	Applies  func(summary model.ProfileSummary) (bool, string)
}

var (
	utilizationHighBar = decimal.NewFromInt(30)
	utilizationWarnBar = decimal.NewFromInt(10)
)

// RecommendationRules is the full rule set, in declaration order. Score and
// utilization rules are mutually exclusive bands so at most one of each
// group fires per summary.
var RecommendationRules = []RecommendationRule{
	{
		Category: "credit_score",
		Priority: model.PriorityHigh,
		Applies: func(s model.ProfileSummary) (bool, string) {
			if s.CreditScore == nil || *s.CreditScore >= 580 {
				return false, ""
			}
			return true, "Your credit score is in the poor range. Focus on paying bills on time and reducing debt."
		},
	},
	{
		Category: "credit_score",
		Priority: model.PriorityMedium,
		Applies: func(s model.ProfileSummary) (bool, string) {
			if s.CreditScore == nil || *s.CreditScore < 580 || *s.CreditScore >= 670 {
				return false, ""
			}
			return true, "Your credit score is fair. Continue building positive payment history."
		},
	},
	{
		Category: "credit_score",
		Priority: model.PriorityLow,
		Applies: func(s model.ProfileSummary) (bool, string) {
			if s.CreditScore == nil || *s.CreditScore < 740 {
				return false, ""
			}
			return true, "Great credit score! You qualify for the best rates and terms."
		},
	},
	{
		Category: "utilization",
		Priority: model.PriorityHigh,
		Applies: func(s model.ProfileSummary) (bool, string) {
			if s.UtilizationPct == nil || !s.UtilizationPct.GreaterThan(utilizationHighBar) {
				return false, ""
			}
			return true, fmt.Sprintf("Credit utilization is %s%%. Try to keep it below 30%% by paying down balances.", s.UtilizationPct.StringFixed(1))
		},
	},
	{
		Category: "utilization",
		Priority: model.PriorityMedium,
		Applies: func(s model.ProfileSummary) (bool, string) {
			if s.UtilizationPct == nil || !s.UtilizationPct.GreaterThan(utilizationWarnBar) || s.UtilizationPct.GreaterThan(utilizationHighBar) {
				return false, ""
			}
			return true, fmt.Sprintf("Credit utilization is %s%%. Keeping it below 10%% could improve your score.", s.UtilizationPct.StringFixed(1))
		},
	},
	{
		Category: "payment_history",
		Priority: model.PriorityCritical,
		Applies: func(s model.ProfileSummary) (bool, string) {
			if s.DelinquentAccounts == nil || *s.DelinquentAccounts <= 0 {
				return false, ""
			}
			return true, fmt.Sprintf("You have %d delinquent account(s). Bring these current immediately to prevent further damage.", *s.DelinquentAccounts)
		},
	},
	{
		Category: "inquiries",
		Priority: model.PriorityMedium,
		Applies: func(s model.ProfileSummary) (bool, string) {
			if s.HardInquiries == nil || *s.HardInquiries <= 5 {
				return false, ""
			}
			return true, fmt.Sprintf("You have %d hard inquiries. Avoid applying for new credit for a while.", *s.HardInquiries)
		},
	},
}

// Recommend evaluates every rule against the summary and returns the fired
// recommendations ordered by priority (critical first). Ties keep rule
// declaration order.
func Recommend(summary model.ProfileSummary) []model.Recommendation {
	recs := make([]model.Recommendation, 0, len(RecommendationRules))
	for _, rule := range RecommendationRules {
		fired, message := rule.Applies(summary)
		if !fired {
			continue
		}
		recs = append(recs, model.Recommendation{
			Priority: rule.Priority,
			Category: rule.Category,
			Message:  message,
		})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() < recs[j].Priority.Rank()
	})
	return recs
}
