package plaid

import "github.com/shopspring/decimal"

// Wire-level request/response shapes for the provider API. These stay inside
// the adapter; the rest of the application sees only domain model types.

type accountsRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
}

type accountsResponse struct {
	Accounts []apiAccount `json:"accounts"`
}

type apiAccount struct {
	AccountID string      `json:"account_id"`
	Name      string      `json:"name"`
	Mask      string      `json:"mask"`
	Type      string      `json:"type"`
	Balances  apiBalances `json:"balances"`
}

type apiBalances struct {
	Current     decimal.Decimal  `json:"current"`
	Limit       *decimal.Decimal `json:"limit"`
	Available   *decimal.Decimal `json:"available"`
	LastUpdated string           `json:"last_updated_datetime"`
}

type transactionsRequest struct {
	ClientID    string              `json:"client_id"`
	Secret      string              `json:"secret"`
	AccessToken string              `json:"access_token"`
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	Options     transactionsOptions `json:"options"`
}

type transactionsOptions struct {
	AccountIDs []string `json:"account_ids,omitempty"`
	Count      int      `json:"count"`
	Offset     int      `json:"offset"`
}

type transactionsResponse struct {
	Transactions      []apiTransaction `json:"transactions"`
	TotalTransactions int              `json:"total_transactions"`
}

type apiTransaction struct {
	TransactionID   string          `json:"transaction_id"`
	AccountID       string          `json:"account_id"`
	Name            string          `json:"name"`
	Category        []string        `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	Date            string          `json:"date"`
	Pending         bool            `json:"pending"`
	ISOCurrencyCode string          `json:"iso_currency_code"`
}

type apiError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}
