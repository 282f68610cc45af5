package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odanree/credit-history-app/internal/application"
	"github.com/odanree/credit-history-app/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body. The optional flags tell
// the client which recovery flow to route to on a 401.
type errorResponse struct {
	Error          string `json:"error"`
	SetupRequired  bool   `json:"setup_required,omitempty"`
	ReauthRequired bool   `json:"reauth_required,omitempty"`
}

// AccountResponse is the JSON representation of one credit card account.
type AccountResponse struct {
	AccountID      string           `json:"account_id"`
	Name           string           `json:"name"`
	Mask           string           `json:"mask"`
	CurrentBalance decimal.Decimal  `json:"current_balance"`
	CreditLimit    *decimal.Decimal `json:"credit_limit"`
	Available      *decimal.Decimal `json:"available"`
	UtilizationPct decimal.Decimal  `json:"utilization_pct"`
	LastUpdated    *string          `json:"last_updated"`
}

// TransactionResponse is the JSON representation of one transaction.
type TransactionResponse struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Merchant  string          `json:"merchant"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Date      string          `json:"date"`
	Pending   bool            `json:"pending"`
}

// SectionErrorResponse marks a profile section that could not be populated.
type SectionErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// TransactionsSectionResponse is the transactions provider's part of a profile.
type TransactionsSectionResponse struct {
	Accounts     []AccountResponse     `json:"accounts"`
	Transactions []TransactionResponse `json:"transactions"`
	TotalCards   int                   `json:"total_cards"`
	TotalBalance decimal.Decimal       `json:"total_balance"`
	TotalLimit   decimal.Decimal       `json:"total_limit"`
	Error        *SectionErrorResponse `json:"error,omitempty"`
}

// TradelineResponse is the JSON representation of one bureau tradeline.
type TradelineResponse struct {
	Creditor       string           `json:"creditor"`
	AccountType    string           `json:"account_type"`
	AccountSuffix  string           `json:"account_suffix"`
	Status         string           `json:"status"`
	PaymentStatus  string           `json:"payment_status"`
	Balance        decimal.Decimal  `json:"balance"`
	CreditLimit    decimal.Decimal  `json:"credit_limit"`
	UtilizationPct *decimal.Decimal `json:"utilization_pct"`
	MonthlyPayment *decimal.Decimal `json:"monthly_payment"`
	OpenedAt       *string          `json:"opened_at"`
}

// CreditSectionResponse is the credit bureau's part of a profile.
type CreditSectionResponse struct {
	Score              *int                  `json:"score"`
	ScoreFactors       []string              `json:"score_factors"`
	Tradelines         []TradelineResponse   `json:"tradelines"`
	TotalAccounts      int                   `json:"total_accounts"`
	OpenAccounts       int                   `json:"open_accounts"`
	ClosedAccounts     int                   `json:"closed_accounts"`
	DelinquentAccounts int                   `json:"delinquent_accounts"`
	HardInquiries      int                   `json:"hard_inquiries"`
	PublicRecords      int                   `json:"public_records"`
	TotalBalance       decimal.Decimal       `json:"total_balance"`
	TotalLimit         decimal.Decimal       `json:"total_limit"`
	UtilizationPct     *decimal.Decimal      `json:"utilization_pct"`
	RetrievedAt        string                `json:"retrieved_at"`
	Error              *SectionErrorResponse `json:"error,omitempty"`
}

// SummaryResponse is the flat aggregate view of a profile. Null fields mean
// the source section failed and the value is unknown, not zero.
type SummaryResponse struct {
	CreditScore        *int             `json:"credit_score"`
	TotalCards         *int             `json:"total_cards"`
	TotalBalance       *decimal.Decimal `json:"total_balance"`
	TotalLimit         *decimal.Decimal `json:"total_limit"`
	UtilizationPct     *decimal.Decimal `json:"utilization_pct"`
	MonthlySpending    *decimal.Decimal `json:"monthly_spending"`
	RecentTransactions *int             `json:"recent_transactions"`
	OpenAccounts       *int             `json:"open_accounts"`
	DelinquentAccounts *int             `json:"delinquent_accounts"`
	HardInquiries      *int             `json:"hard_inquiries"`
	PublicRecords      *int             `json:"public_records"`
}

// RecommendationResponse is the JSON representation of one recommendation.
type RecommendationResponse struct {
	Priority string `json:"priority"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// ProfileResponse is the JSON representation of a unified profile.
type ProfileResponse struct {
	GeneratedAt     string                      `json:"generated_at"`
	Transactions    TransactionsSectionResponse `json:"transactions"`
	Credit          CreditSectionResponse       `json:"credit"`
	Summary         SummaryResponse             `json:"summary"`
	Recommendations []RecommendationResponse    `json:"recommendations"`
}

// TransactionsResponse is the JSON body of the transactions-only endpoint.
type TransactionsResponse struct {
	Accounts     []AccountResponse     `json:"accounts"`
	Transactions []TransactionResponse `json:"transactions"`
	TotalCards   int                   `json:"total_cards"`
	TotalBalance decimal.Decimal       `json:"total_balance"`
	TotalLimit   decimal.Decimal       `json:"total_limit"`
	Days         int                   `json:"days"`
}

// NamedTotalResponse pairs a label with an aggregated amount.
type NamedTotalResponse struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// SpendingResponse is the JSON body of the spending analysis endpoint.
type SpendingResponse struct {
	MonthlySpending map[string]decimal.Decimal `json:"monthly_spending"`
	TopCategories   []NamedTotalResponse       `json:"top_categories"`
	TopMerchants    []NamedTotalResponse       `json:"top_merchants"`
	TotalSpent      decimal.Decimal            `json:"total_spent"`
}

// RecommendationsResponse is the JSON body of the recommendations endpoint.
type RecommendationsResponse struct {
	Recommendations []RecommendationResponse `json:"recommendations"`
	Cached          bool                     `json:"cached"`
}

// SetupRequest is the JSON body for the setup endpoint.
type SetupRequest struct {
	AccessToken string `json:"access_token"`
}

// StatusResponse is the minimal acknowledgement body for state-changing endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Storage string `json:"storage"`
}

// ConfigStatusResponse reports which providers are configured and whether a
// session credential exists. Booleans only; values are never echoed.
type ConfigStatusResponse struct {
	PlaidConfigured    bool `json:"plaid_configured"`
	ExperianConfigured bool `json:"experian_configured"`
	SessionActive      bool `json:"session_active"`
}

// toAccountResponse converts a domain CreditAccount to its JSON representation.
func toAccountResponse(a model.CreditAccount) AccountResponse {
	return AccountResponse{
		AccountID:      a.AccountID,
		Name:           a.Name,
		Mask:           a.Mask,
		CurrentBalance: a.CurrentBalance,
		CreditLimit:    a.CreditLimit,
		Available:      a.Available,
		UtilizationPct: a.UtilizationPct,
		LastUpdated:    formatTimePtr(a.LastUpdated),
	}
}

// toTransactionResponse converts a domain Transaction to its JSON representation.
func toTransactionResponse(t model.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        t.ID,
		AccountID: t.AccountID,
		Merchant:  t.Merchant,
		Category:  t.Category,
		Amount:    t.Amount,
		Currency:  t.Currency,
		Date:      t.Date.UTC().Format("2006-01-02"),
		Pending:   t.Pending,
	}
}

// toSectionErrorResponse converts a domain SectionError, or nil for nil.
func toSectionErrorResponse(e *model.SectionError) *SectionErrorResponse {
	if e == nil {
		return nil
	}
	return &SectionErrorResponse{Kind: string(e.Kind), Message: e.Message}
}

// toTransactionsSectionResponse converts a profile's transactions section.
// A failed section keeps empty collections alongside its error marker.
func toTransactionsSectionResponse(s model.TransactionsSection) TransactionsSectionResponse {
	resp := TransactionsSectionResponse{
		Accounts:     []AccountResponse{},
		Transactions: []TransactionResponse{},
		Error:        toSectionErrorResponse(s.Err),
	}
	if s.Data == nil {
		return resp
	}

	for _, a := range s.Data.Accounts {
		resp.Accounts = append(resp.Accounts, toAccountResponse(a))
	}
	for _, t := range s.Data.Transactions {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(t))
	}
	resp.TotalCards = s.Data.TotalCards
	resp.TotalBalance = s.Data.TotalBalance
	resp.TotalLimit = s.Data.TotalLimit
	return resp
}

// toTradelineResponse converts a domain Tradeline to its JSON representation.
func toTradelineResponse(t model.Tradeline) TradelineResponse {
	return TradelineResponse{
		Creditor:       t.Creditor,
		AccountType:    t.AccountType,
		AccountSuffix:  t.AccountSuffix,
		Status:         t.Status,
		PaymentStatus:  t.PaymentStatus,
		Balance:        t.Balance,
		CreditLimit:    t.CreditLimit,
		UtilizationPct: t.UtilizationPct,
		MonthlyPayment: t.MonthlyPayment,
		OpenedAt:       formatTimePtr(t.OpenedAt),
	}
}

// toCreditSectionResponse converts a profile's credit section.
func toCreditSectionResponse(s model.CreditSection) CreditSectionResponse {
	resp := CreditSectionResponse{
		ScoreFactors: []string{},
		Tradelines:   []TradelineResponse{},
		Error:        toSectionErrorResponse(s.Err),
	}
	if s.Report == nil {
		return resp
	}

	r := s.Report
	resp.Score = r.Score
	if r.ScoreFactors != nil {
		resp.ScoreFactors = r.ScoreFactors
	}
	for _, t := range r.Tradelines {
		resp.Tradelines = append(resp.Tradelines, toTradelineResponse(t))
	}
	resp.TotalAccounts = r.TotalAccounts
	resp.OpenAccounts = r.OpenAccounts
	resp.ClosedAccounts = r.ClosedAccounts
	resp.DelinquentAccounts = r.DelinquentAccounts
	resp.HardInquiries = r.HardInquiries
	resp.PublicRecords = r.PublicRecords
	resp.TotalBalance = r.TotalBalance
	resp.TotalLimit = r.TotalLimit
	resp.UtilizationPct = r.UtilizationPct
	resp.RetrievedAt = r.RetrievedAt.UTC().Format(time.RFC3339)
	return resp
}

// toSummaryResponse converts a domain ProfileSummary to its JSON representation.
func toSummaryResponse(s model.ProfileSummary) SummaryResponse {
	return SummaryResponse{
		CreditScore:        s.CreditScore,
		TotalCards:         s.TotalCards,
		TotalBalance:       s.TotalBalance,
		TotalLimit:         s.TotalLimit,
		UtilizationPct:     s.UtilizationPct,
		MonthlySpending:    s.MonthlySpending,
		RecentTransactions: s.RecentTransactions,
		OpenAccounts:       s.OpenAccounts,
		DelinquentAccounts: s.DelinquentAccounts,
		HardInquiries:      s.HardInquiries,
		PublicRecords:      s.PublicRecords,
	}
}

// toRecommendationResponses converts recommendations, always returning a
// non-nil slice.
func toRecommendationResponses(recs []model.Recommendation) []RecommendationResponse {
	resp := make([]RecommendationResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, RecommendationResponse{
			Priority: string(rec.Priority),
			Category: rec.Category,
			Message:  rec.Message,
		})
	}
	return resp
}

// toProfileResponse converts a domain UnifiedProfile to its JSON representation.
func toProfileResponse(p model.UnifiedProfile) ProfileResponse {
	return ProfileResponse{
		GeneratedAt:     p.GeneratedAt.UTC().Format(time.RFC3339),
		Transactions:    toTransactionsSectionResponse(p.Transactions),
		Credit:          toCreditSectionResponse(p.Credit),
		Summary:         toSummaryResponse(p.Summary),
		Recommendations: toRecommendationResponses(p.Recommendations),
	}
}

// toSpendingResponse converts a spending analysis to its JSON representation.
func toSpendingResponse(a application.SpendingAnalysis) SpendingResponse {
	monthly := a.MonthlySpending
	if monthly == nil {
		monthly = map[string]decimal.Decimal{}
	}
	return SpendingResponse{
		MonthlySpending: monthly,
		TopCategories:   toNamedTotalResponses(a.TopCategories),
		TopMerchants:    toNamedTotalResponses(a.TopMerchants),
		TotalSpent:      a.TotalSpent,
	}
}

func toNamedTotalResponses(totals []application.NamedTotal) []NamedTotalResponse {
	resp := make([]NamedTotalResponse, 0, len(totals))
	for _, t := range totals {
		resp = append(resp, NamedTotalResponse{Name: t.Name, Amount: t.Amount})
	}
	return resp
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
