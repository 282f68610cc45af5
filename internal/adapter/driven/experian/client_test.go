package experian

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odanree/credit-history-app/internal/domain/model"
	"github.com/odanree/credit-history-app/internal/domain/port/driven"
)

func testConsumer() model.ConsumerIdentity {
	return model.ConsumerIdentity{
		FirstName:   "John",
		LastName:    "Doe",
		SSN:         "666112222",
		DateOfBirth: "1980-01-01",
		Address: model.Address{
			Line1: "123 Main St",
			City:  "New York",
			State: "NY",
			Zip:   "10001",
		},
	}
}

func reportBody() string {
	return `{
		"creditReport": {
			"riskModel": {"score": 712, "scoreFactors": [{"code": "18"}, {"code": "05"}]},
			"tradeline": [
				{
					"creditorName": "FIRST BANK",
					"accountType": "revolving",
					"accountNumber": "5412990011112222",
					"accountStatus": "Open",
					"paymentStatus": "C",
					"balance": 420,
					"highCredit": 2100,
					"dateOpened": "2019-03-14"
				},
				{
					"creditorName": "AUTO LENDER",
					"accountType": "installment",
					"accountNumber": "889",
					"accountStatus": "Closed",
					"paymentStatus": "30",
					"balance": 0,
					"highCredit": 0,
					"monthlyPayment": 310
				}
			],
			"inquiry": [{"type": "hard"}, {"type": "hard"}, {"type": "soft"}],
			"publicRecord": [{"type": "lien"}]
		}
	}`
}

func tokenHandler(calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "experian-client" || pass != "experian-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"access_token": "bureau-token-1", "expires_in": 3600, "token_type": "Bearer"}`)
	}
}

func TestFetchReport_Success(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/v1/token":
			tokenHandler(&tokenCalls)(w, r)
		case "/consumerservices/credit-profile/v2/credit-report":
			assert.Equal(t, "Bearer bureau-token-1", r.Header.Get("Authorization"))
			fmt.Fprint(w, reportBody())
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.Client(), srv.URL, "experian-client", "experian-secret")
	report, err := client.FetchReport(context.Background(), testConsumer())
	require.NoError(t, err)

	require.NotNil(t, report.Score)
	assert.Equal(t, 712, *report.Score)
	assert.Equal(t, []string{"18", "05"}, report.ScoreFactors)

	assert.Equal(t, 2, report.TotalAccounts)
	assert.Equal(t, 1, report.OpenAccounts)
	assert.Equal(t, 1, report.ClosedAccounts)
	assert.Equal(t, 1, report.DelinquentAccounts, "paymentStatus other than C counts as delinquent")
	assert.Equal(t, 2, report.HardInquiries)
	assert.Equal(t, 1, report.PublicRecords)

	assert.True(t, report.TotalBalance.Equal(decimal.NewFromInt(420)))
	assert.True(t, report.TotalLimit.Equal(decimal.NewFromInt(2100)))
	require.NotNil(t, report.UtilizationPct)
	assert.True(t, report.UtilizationPct.Equal(decimal.NewFromInt(20)), "got %s", report.UtilizationPct)

	// Full account numbers never leave the adapter.
	require.Len(t, report.Tradelines, 2)
	assert.Equal(t, "2222", report.Tradelines[0].AccountSuffix)
	assert.Equal(t, "889", report.Tradelines[1].AccountSuffix)
	require.NotNil(t, report.Tradelines[0].OpenedAt)
	assert.Equal(t, 2019, report.Tradelines[0].OpenedAt.Year())
}

func TestFetchReport_TokenReuse(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/v1/token":
			tokenHandler(&tokenCalls)(w, r)
		default:
			fmt.Fprint(w, reportBody())
		}
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.Client(), srv.URL, "experian-client", "experian-secret")

	for i := 0; i < 3; i++ {
		_, err := client.FetchReport(context.Background(), testConsumer())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), tokenCalls.Load(), "token fetched once and reused until expiry")
}

func TestFetchReport_TokenRefreshNearExpiry(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/v1/token":
			tokenHandler(&tokenCalls)(w, r)
		default:
			fmt.Fprint(w, reportBody())
		}
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.Client(), srv.URL, "experian-client", "experian-secret")

	current := time.Now()
	client.now = func() time.Time { return current }

	_, err := client.FetchReport(context.Background(), testConsumer())
	require.NoError(t, err)

	// Advance to inside the expiry skew: the next call must re-authenticate.
	current = current.Add(3600*time.Second - time.Minute)
	_, err = client.FetchReport(context.Background(), testConsumer())
	require.NoError(t, err)

	assert.Equal(t, int32(2), tokenCalls.Load())
}

func TestFetchReport_AuthExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/v1/token" {
			fmt.Fprint(w, `{"access_token": "bureau-token-1", "expires_in": 3600}`)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.Client(), srv.URL, "experian-client", "experian-secret")
	_, err := client.FetchReport(context.Background(), testConsumer())

	assert.ErrorIs(t, err, driven.ErrAuthExpired)
}

func TestFetchReport_PermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/v1/token" {
			fmt.Fprint(w, `{"access_token": "bureau-token-1", "expires_in": 3600}`)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.Client(), srv.URL, "experian-client", "experian-secret")
	_, err := client.FetchReport(context.Background(), testConsumer())

	assert.ErrorIs(t, err, driven.ErrPermissionDenied)
}

func TestFetchReport_ErrorsOmitPII(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/v1/token" {
			fmt.Fprint(w, `{"access_token": "bureau-token-1", "expires_in": 3600}`)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.Client(), srv.URL, "experian-client", "experian-secret")
	_, err := client.FetchReport(context.Background(), testConsumer())

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "666112222")
	assert.NotContains(t, err.Error(), "John")
}
