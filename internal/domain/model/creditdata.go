package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditAccount is one credit card account reported by the transactions
// provider, with its balance snapshot at fetch time.
type CreditAccount struct {
	AccountID      string
	Name           string
	Mask           string // Last digits of the account number, as issued by the provider.
	CurrentBalance decimal.Decimal
	CreditLimit    *decimal.Decimal // nil when the provider did not report a limit.
	Available      *decimal.Decimal
	UtilizationPct decimal.Decimal // Zero when CreditLimit is nil or not positive.
	LastUpdated    *time.Time
}

// CreditData is the raw record set returned by the transactions provider for
// one fetch: credit card accounts plus their transactions over the requested
// window, with totals summed across cards. Accounts with no reported limit
// contribute zero to TotalLimit, mirroring how the provider reports them.
type CreditData struct {
	Accounts     []CreditAccount
	Transactions []Transaction
	TotalCards   int
	TotalBalance decimal.Decimal
	TotalLimit   decimal.Decimal
}
