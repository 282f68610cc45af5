package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tradeline is one credit account (open or closed) from the bureau report.
type Tradeline struct {
	Creditor       string
	AccountType    string
	AccountSuffix  string // Last four digits only; the full number never leaves the adapter.
	Status         string
	PaymentStatus  string
	Balance        decimal.Decimal
	CreditLimit    decimal.Decimal
	UtilizationPct *decimal.Decimal // nil when the limit is zero or unreported.
	MonthlyPayment *decimal.Decimal
	OpenedAt       *time.Time
}

// CreditReport is the raw record set returned by the credit provider for one
// fetch: the bureau score plus account-level detail and derived counts.
type CreditReport struct {
	Score              *int // nil when the bureau returned no score.
	ScoreFactors       []string
	Tradelines         []Tradeline
	TotalAccounts      int
	OpenAccounts       int
	ClosedAccounts     int
	DelinquentAccounts int
	HardInquiries      int
	PublicRecords      int
	TotalBalance       decimal.Decimal
	TotalLimit         decimal.Decimal
	UtilizationPct     *decimal.Decimal // Bureau-side utilization; nil when TotalLimit is zero.
	RetrievedAt        time.Time
}
