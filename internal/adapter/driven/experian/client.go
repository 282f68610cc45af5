// Package experian implements the CreditProvider port against the Experian
// consumer-services HTTP API.
package experian

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/shopspring/decimal"

	"github.com/odanree/credit-history-app/internal/domain/model"
	"github.com/odanree/credit-history-app/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CreditProvider = (*Client)(nil)

var envHosts = map[string]string{
	"sandbox":    "https://sandbox-us-api.experian.com",
	"production": "https://us-api.experian.com",
}

// tokenExpirySkew refreshes the OAuth token this long before its reported
// expiry so an in-flight report request never races the cutoff.
const tokenExpirySkew = 5 * time.Minute

// Client implements the driven.CreditProvider port. It manages its own OAuth
// client-credentials token, refreshing it ahead of expiry. Consumer PII is
// forwarded to the bureau and never retained, logged, or embedded in errors.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	now func() time.Time
}

// NewClient creates a provider client for the given environment. Unknown
// environments fall back to sandbox.
func NewClient(clientID, clientSecret, environment string) *Client {
	baseURL, ok := envHosts[environment]
	if !ok {
		baseURL = envHosts["sandbox"]
	}

	return &Client{
		httpClient:   httpcache.NewMemoryCacheTransport().Client(),
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// NewClientWithBaseURL creates a Client against an arbitrary base URL.
// Intended for tests, allowing injection of an httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL, clientID, clientSecret string) *Client {
	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// FetchReport pulls a credit report for the consumer and derives the
// account-level counts and totals the profile summary needs.
func (c *Client) FetchReport(ctx context.Context, consumer model.ConsumerIdentity) (model.CreditReport, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return model.CreditReport{}, err
	}

	payload := reportRequest{
		ConsumerPII: consumerPII{
			FirstName: consumer.FirstName,
			LastName:  consumer.LastName,
			SSN:       consumer.SSN,
			DOB:       consumer.DateOfBirth,
			Address: piiAddress{
				Line1: consumer.Address.Line1,
				City:  consumer.Address.City,
				State: consumer.Address.State,
				Zip:   consumer.Address.Zip,
			},
		},
		Requestor: requestor{SubscriberCode: c.clientID},
		PermissiblePurpose: permissiblePurpose{
			Type:  "OwnCredit",
			Terms: "Y",
		},
		AddOns: addOns{ScoreIndicator: true},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return model.CreditReport{}, fmt.Errorf("encode report request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/consumerservices/credit-profile/v2/credit-report", bytes.NewReader(body))
	if err != nil {
		return model.CreditReport{}, fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.CreditReport{}, fmt.Errorf("credit report request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		// The cached token may simply be stale; drop it so the next call
		// re-authenticates, and report the expiry upward.
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return model.CreditReport{}, fmt.Errorf("%w (status 401)", driven.ErrAuthExpired)
	case http.StatusForbidden:
		return model.CreditReport{}, fmt.Errorf("%w (status 403)", driven.ErrPermissionDenied)
	default:
		return model.CreditReport{}, fmt.Errorf("credit report: provider status %d", resp.StatusCode)
	}

	var wire reportResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return model.CreditReport{}, fmt.Errorf("decode credit report: %w", err)
	}

	return mapReport(wire, c.now().UTC()), nil
}

// accessToken returns a valid OAuth token, requesting a fresh one when the
// cached token is absent or within the expiry skew.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth2/v1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w (token endpoint status %d)", driven.ErrAuthExpired, resp.StatusCode)
		}
		return "", fmt.Errorf("token endpoint: provider status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}

	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(expiresIn)*time.Second - tokenExpirySkew)
	return c.token, nil
}

// mapReport converts the bureau's wire report to the domain model, deriving
// open/delinquent counts and overall utilization from the tradelines.
func mapReport(wire reportResponse, retrievedAt time.Time) model.CreditReport {
	report := model.CreditReport{
		RetrievedAt: retrievedAt,
	}

	cr := wire.CreditReport
	if cr.RiskModel != nil {
		if cr.RiskModel.Score != nil {
			score := *cr.RiskModel.Score
			report.Score = &score
		}
		for _, f := range cr.RiskModel.ScoreFactors {
			report.ScoreFactors = append(report.ScoreFactors, f.Code)
		}
	}

	totalBalance := decimal.Zero
	totalLimit := decimal.Zero

	for _, tl := range cr.Tradelines {
		line := mapTradeline(tl)
		report.Tradelines = append(report.Tradelines, line)

		if strings.Contains(strings.ToLower(line.Status), "open") {
			report.OpenAccounts++
		} else {
			report.ClosedAccounts++
		}
		// "C" is the bureau's current-payment marker; anything else on a
		// reported status counts as delinquent.
		if line.PaymentStatus != "" && line.PaymentStatus != "C" {
			report.DelinquentAccounts++
		}

		totalBalance = totalBalance.Add(line.Balance)
		totalLimit = totalLimit.Add(line.CreditLimit)
	}

	report.TotalAccounts = len(report.Tradelines)
	report.TotalBalance = totalBalance
	report.TotalLimit = totalLimit
	if totalLimit.IsPositive() {
		util := totalBalance.Div(totalLimit).Mul(decimal.NewFromInt(100)).Round(2)
		report.UtilizationPct = &util
	}

	for _, inq := range cr.Inquiries {
		if inq.Type == "hard" {
			report.HardInquiries++
		}
	}
	report.PublicRecords = len(cr.PublicRecords)

	return report
}

// mapTradeline converts one wire tradeline. Only the last four digits of the
// account number are kept; the full number never leaves this function.
func mapTradeline(tl apiTradeline) model.Tradeline {
	line := model.Tradeline{
		Creditor:      tl.CreditorName,
		AccountType:   tl.AccountType,
		Status:        tl.AccountStatus,
		PaymentStatus: tl.PaymentStatus,
	}

	if n := len(tl.AccountNumber); n > 4 {
		line.AccountSuffix = tl.AccountNumber[n-4:]
	} else {
		line.AccountSuffix = tl.AccountNumber
	}

	if tl.Balance != nil {
		line.Balance = *tl.Balance
	}
	if tl.HighCredit != nil {
		line.CreditLimit = *tl.HighCredit
	}
	if tl.MonthlyPayment != nil {
		line.MonthlyPayment = tl.MonthlyPayment
	}

	if line.CreditLimit.IsPositive() {
		util := line.Balance.Div(line.CreditLimit).Mul(decimal.NewFromInt(100)).Round(2)
		line.UtilizationPct = &util
	}

	if tl.DateOpened != "" {
		if ts, err := time.Parse("2006-01-02", tl.DateOpened); err == nil {
			line.OpenedAt = &ts
		}
	}

	return line
}
