package plaid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odanree/credit-history-app/internal/domain/model"
	"github.com/odanree/credit-history-app/internal/domain/port/driven"
)

func testWindow() model.TimeWindow {
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	return model.TimeWindow{Start: end.AddDate(0, 0, -90), End: end}
}

func accountsBody() string {
	return `{
		"accounts": [
			{
				"account_id": "card-1",
				"name": "Platinum Card",
				"mask": "4321",
				"type": "credit",
				"balances": {"current": 410.50, "limit": 2000, "available": 1589.50}
			},
			{
				"account_id": "checking-1",
				"name": "Checking",
				"mask": "9876",
				"type": "depository",
				"balances": {"current": 1200}
			},
			{
				"account_id": "card-2",
				"name": "Travel Card",
				"mask": "8765",
				"type": "credit",
				"balances": {"current": 89.50}
			}
		]
	}`
}

func transactionsBody(txns string, total int) string {
	return fmt.Sprintf(`{"transactions": [%s], "total_transactions": %d}`, txns, total)
}

func TestFetchCreditData_FiltersAndTotals(t *testing.T) {
	var txnReq transactionsRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/get":
			fmt.Fprint(w, accountsBody())
		case "/transactions/get":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&txnReq))
			fmt.Fprint(w, transactionsBody(`
				{"transaction_id": "t1", "account_id": "card-1", "name": "Grocer", "category": ["Food and Drink", "Groceries"], "amount": 42.10, "date": "2026-08-20", "iso_currency_code": "USD"},
				{"transaction_id": "t2", "account_id": "card-2", "name": "Cafe", "amount": 5.25, "date": "2026-08-21", "pending": true, "iso_currency_code": "USD"}`, 2))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.Client(), srv.URL, "client-id", "client-secret")
	data, err := client.FetchCreditData(context.Background(), "access-sandbox-1fd2c3a4", testWindow())
	require.NoError(t, err)

	// Only the two credit accounts survive the filter.
	assert.Equal(t, 2, data.TotalCards)
	require.Len(t, data.Accounts, 2)
	assert.Equal(t, []string{"card-1", "card-2"}, txnReq.Options.AccountIDs)

	// Totals: balances sum across cards; the unreported limit contributes zero.
	assert.True(t, data.TotalBalance.Equal(decimal.NewFromFloat(500.00)), "got %s", data.TotalBalance)
	assert.True(t, data.TotalLimit.Equal(decimal.NewFromInt(2000)), "got %s", data.TotalLimit)

	// Per-card utilization only where a positive limit exists.
	assert.True(t, data.Accounts[0].UtilizationPct.Equal(decimal.NewFromFloat(20.53)), "got %s", data.Accounts[0].UtilizationPct)
	assert.True(t, data.Accounts[1].UtilizationPct.IsZero())
	assert.Nil(t, data.Accounts[1].CreditLimit)

	// Transaction mapping keeps the top-level category only.
	require.Len(t, data.Transactions, 2)
	assert.Equal(t, "Food and Drink", data.Transactions[0].Category)
	assert.Equal(t, "", data.Transactions[1].Category)
	assert.True(t, data.Transactions[1].Pending)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), data.Transactions[0].Date)
}

func TestFetchCreditData_Pagination(t *testing.T) {
	const total = 150
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/get":
			fmt.Fprint(w, `{"accounts": [{"account_id": "card-1", "type": "credit", "balances": {"current": 1}}]}`)
		case "/transactions/get":
			var req transactionsRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			count := transactionsPageSize
			if req.Options.Offset+count > total {
				count = total - req.Options.Offset
			}
			txns := ""
			for i := 0; i < count; i++ {
				if i > 0 {
					txns += ","
				}
				txns += fmt.Sprintf(`{"transaction_id": "t%d", "account_id": "card-1", "name": "m", "amount": 1, "date": "2026-08-01"}`, req.Options.Offset+i)
			}
			fmt.Fprint(w, transactionsBody(txns, total))
		}
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.Client(), srv.URL, "client-id", "client-secret")
	data, err := client.FetchCreditData(context.Background(), "access-sandbox-1fd2c3a4", testWindow())
	require.NoError(t, err)

	assert.Len(t, data.Transactions, total)
	assert.Equal(t, "t149", data.Transactions[total-1].ID)
}

func TestFetchCreditData_AuthExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error_type": "ITEM_ERROR", "error_code": "ITEM_LOGIN_REQUIRED", "error_message": "the login details of this item have changed"}`)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.Client(), srv.URL, "client-id", "client-secret")
	_, err := client.FetchCreditData(context.Background(), "access-sandbox-1fd2c3a4", testWindow())

	assert.ErrorIs(t, err, driven.ErrAuthExpired)
	assert.NotContains(t, err.Error(), "access-sandbox-1fd2c3a4")
}

func TestFetchCreditData_GenericFailureOmitsProviderBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error_type": "API_ERROR", "error_code": "INTERNAL_SERVER_ERROR", "error_message": "token access-sandbox-1fd2c3a4 rejected"}`)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.Client(), srv.URL, "client-id", "client-secret")
	_, err := client.FetchCreditData(context.Background(), "access-sandbox-1fd2c3a4", testWindow())

	require.Error(t, err)
	assert.NotErrorIs(t, err, driven.ErrAuthExpired)
	// Only the provider's error code crosses the boundary, never the message.
	assert.Contains(t, err.Error(), "INTERNAL_SERVER_ERROR")
	assert.NotContains(t, err.Error(), "access-sandbox-1fd2c3a4")
}

func TestFetchCreditData_NoCreditAccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/get" {
			t.Errorf("transactions should not be fetched with no credit accounts, got %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"accounts": [{"account_id": "checking-1", "type": "depository", "balances": {"current": 10}}]}`)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.Client(), srv.URL, "client-id", "client-secret")
	data, err := client.FetchCreditData(context.Background(), "access-sandbox-1fd2c3a4", testWindow())
	require.NoError(t, err)

	assert.Equal(t, 0, data.TotalCards)
	assert.Empty(t, data.Accounts)
	assert.Empty(t, data.Transactions)
	assert.True(t, data.TotalBalance.IsZero())
}
