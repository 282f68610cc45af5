package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SectionErrorKind classifies why a profile section could not be populated.
type SectionErrorKind string

const (
	// SectionErrAuthExpired means the provider rejected the credential;
	// the user must redo that provider's linking flow.
	SectionErrAuthExpired SectionErrorKind = "auth_expired"
	// SectionErrPermissionDenied means the provider refused the request for
	// consent or permissible-purpose reasons.
	SectionErrPermissionDenied SectionErrorKind = "permission_denied"
	// SectionErrUnavailable covers network failures, timeouts, and provider
	// 5xx responses.
	SectionErrUnavailable SectionErrorKind = "unavailable"
)

// SectionError marks a profile section that failed to populate. Message is a
// user-safe description; raw provider errors stay server-side.
type SectionError struct {
	Kind    SectionErrorKind
	Message string
}

// TransactionsSection holds the transactions provider's contribution to a
// profile. Exactly one of Data and Err is set.
type TransactionsSection struct {
	Data *CreditData
	Err  *SectionError
}

// Healthy reports whether the section carries usable data.
func (s TransactionsSection) Healthy() bool { return s.Data != nil && s.Err == nil }

// CreditSection holds the credit provider's contribution to a profile.
// Exactly one of Report and Err is set.
type CreditSection struct {
	Report *CreditReport
	Err    *SectionError
}

// Healthy reports whether the section carries usable data.
func (s CreditSection) Healthy() bool { return s.Report != nil && s.Err == nil }

// ProfileSummary carries the derived aggregates of a profile. Pointer fields
// distinguish "unknown because the source section failed" (nil) from an
// observed zero.
type ProfileSummary struct {
	CreditScore        *int
	TotalCards         *int
	TotalBalance       *decimal.Decimal
	TotalLimit         *decimal.Decimal
	UtilizationPct     *decimal.Decimal
	MonthlySpending    *decimal.Decimal
	RecentTransactions *int
	OpenAccounts       *int
	DelinquentAccounts *int
	HardInquiries      *int
	PublicRecords      *int
}

// UnifiedProfile is the merged, per-request view of both providers' data.
// Both sections are always present; a failed fetch leaves its section marked
// with an error rather than omitting it. Profiles are built fresh for every
// request and never persisted.
type UnifiedProfile struct {
	GeneratedAt     time.Time
	Transactions    TransactionsSection
	Credit          CreditSection
	Summary         ProfileSummary
	Recommendations []Recommendation
}
