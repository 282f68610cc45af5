// Package plaid implements the TransactionsProvider port against the Plaid
// HTTP API.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/shopspring/decimal"

	"github.com/odanree/credit-history-app/internal/domain/model"
	"github.com/odanree/credit-history-app/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TransactionsProvider = (*Client)(nil)

// envHosts maps the configured environment name to the provider host.
var envHosts = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

const transactionsPageSize = 100

// Client implements the driven.TransactionsProvider port over the Plaid
// REST API. The client identifier and secret authenticate this application;
// the per-user access credential arrives with each call and is forwarded
// untouched, never stored on the client and never logged.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
}

// NewClient creates a provider client for the given environment. Unknown
// environments fall back to sandbox. The HTTP transport is wrapped with an
// in-memory response cache, the same stack the rest of the adapters use.
func NewClient(clientID, secret, environment string) *Client {
	baseURL, ok := envHosts[environment]
	if !ok {
		baseURL = envHosts["sandbox"]
	}

	return &Client{
		httpClient: httpcache.NewMemoryCacheTransport().Client(),
		baseURL:    baseURL,
		clientID:   clientID,
		secret:     secret,
	}
}

// NewClientWithBaseURL creates a Client against an arbitrary base URL.
// Intended for tests, allowing injection of an httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL, clientID, secret string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		clientID:   clientID,
		secret:     secret,
	}
}

// FetchCreditData returns credit card accounts with balances and their
// transactions within the window, with totals summed across cards.
func (c *Client) FetchCreditData(ctx context.Context, credential string, window model.TimeWindow) (model.CreditData, error) {
	accounts, err := c.fetchAccounts(ctx, credential)
	if err != nil {
		return model.CreditData{}, err
	}

	var cards []model.CreditAccount
	var cardIDs []string
	totalBalance := decimal.Zero
	totalLimit := decimal.Zero

	for _, acc := range accounts {
		if acc.Type != "credit" {
			continue
		}
		card := mapAccount(acc)
		cards = append(cards, card)
		cardIDs = append(cardIDs, card.AccountID)

		totalBalance = totalBalance.Add(card.CurrentBalance)
		if card.CreditLimit != nil {
			totalLimit = totalLimit.Add(*card.CreditLimit)
		}
	}

	var txns []model.Transaction
	if len(cardIDs) > 0 {
		txns, err = c.fetchTransactions(ctx, credential, window, cardIDs)
		if err != nil {
			return model.CreditData{}, err
		}
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	if cards == nil {
		cards = []model.CreditAccount{}
	}

	return model.CreditData{
		Accounts:     cards,
		Transactions: txns,
		TotalCards:   len(cards),
		TotalBalance: totalBalance,
		TotalLimit:   totalLimit,
	}, nil
}

// fetchAccounts retrieves all accounts linked to the credential.
func (c *Client) fetchAccounts(ctx context.Context, credential string) ([]apiAccount, error) {
	req := accountsRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: credential,
	}

	var resp accountsResponse
	if err := c.post(ctx, "/accounts/get", req, &resp); err != nil {
		return nil, fmt.Errorf("fetching accounts: %w", err)
	}
	return resp.Accounts, nil
}

// fetchTransactions retrieves all transactions for the given accounts within
// the window, following offset pagination until the reported total is reached.
func (c *Client) fetchTransactions(ctx context.Context, credential string, window model.TimeWindow, accountIDs []string) ([]model.Transaction, error) {
	var all []model.Transaction
	offset := 0

	for {
		req := transactionsRequest{
			ClientID:    c.clientID,
			Secret:      c.secret,
			AccessToken: credential,
			StartDate:   window.Start.Format("2006-01-02"),
			EndDate:     window.End.Format("2006-01-02"),
			Options: transactionsOptions{
				AccountIDs: accountIDs,
				Count:      transactionsPageSize,
				Offset:     offset,
			},
		}

		var resp transactionsResponse
		if err := c.post(ctx, "/transactions/get", req, &resp); err != nil {
			return nil, fmt.Errorf("fetching transactions (offset %d): %w", offset, err)
		}

		for _, txn := range resp.Transactions {
			mapped, err := mapTransaction(txn)
			if err != nil {
				return nil, err
			}
			all = append(all, mapped)
		}

		offset = len(all)
		if offset >= resp.TotalTransactions || len(resp.Transactions) == 0 {
			break
		}
	}

	return all, nil
}

// post sends a JSON request and decodes a JSON response. Provider errors are
// mapped to the port taxonomy; response bodies of failed calls are reduced to
// the provider's error code so credentials and PII cannot leak through error
// chains.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mapAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}

// mapAPIError converts a non-200 provider response into a port-level error.
func mapAPIError(resp *http.Response) error {
	var apiErr apiError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	switch apiErr.ErrorCode {
	case "ITEM_LOGIN_REQUIRED", "INVALID_ACCESS_TOKEN", "ITEM_LOCKED":
		return fmt.Errorf("%w (%s)", driven.ErrAuthExpired, apiErr.ErrorCode)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w (status %d)", driven.ErrAuthExpired, resp.StatusCode)
	}

	if apiErr.ErrorCode != "" {
		return fmt.Errorf("provider error %s (status %d)", apiErr.ErrorCode, resp.StatusCode)
	}
	return fmt.Errorf("provider error: status %d", resp.StatusCode)
}

// mapAccount converts a wire account to the domain model, computing per-card
// utilization when a positive limit was reported.
func mapAccount(acc apiAccount) model.CreditAccount {
	card := model.CreditAccount{
		AccountID:      acc.AccountID,
		Name:           acc.Name,
		Mask:           acc.Mask,
		CurrentBalance: acc.Balances.Current,
		CreditLimit:    acc.Balances.Limit,
		Available:      acc.Balances.Available,
	}

	if acc.Balances.Limit != nil && acc.Balances.Limit.IsPositive() {
		card.UtilizationPct = acc.Balances.Current.
			Div(*acc.Balances.Limit).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	if acc.Balances.LastUpdated != "" {
		if ts, err := time.Parse(time.RFC3339, acc.Balances.LastUpdated); err == nil {
			card.LastUpdated = &ts
		}
	}

	return card
}

// mapTransaction converts a wire transaction to the domain model. The
// provider reports categories as a hierarchy; only the top level is kept.
func mapTransaction(txn apiTransaction) (model.Transaction, error) {
	date, err := time.Parse("2006-01-02", txn.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s has invalid date %q: %w", txn.TransactionID, txn.Date, err)
	}

	category := ""
	if len(txn.Category) > 0 {
		category = txn.Category[0]
	}

	return model.Transaction{
		ID:        txn.TransactionID,
		AccountID: txn.AccountID,
		Merchant:  txn.Name,
		Category:  category,
		Amount:    txn.Amount,
		Currency:  txn.ISOCurrencyCode,
		Date:      date,
		Pending:   txn.Pending,
	}, nil
}
