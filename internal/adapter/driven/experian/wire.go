package experian

import "github.com/shopspring/decimal"

// Wire-level request/response shapes for the bureau API. These stay inside
// the adapter; the rest of the application sees only domain model types.

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type reportRequest struct {
	ConsumerPII        consumerPII        `json:"consumerPii"`
	Requestor          requestor          `json:"requestor"`
	PermissiblePurpose permissiblePurpose `json:"permissiblePurpose"`
	AddOns             addOns             `json:"addOns"`
}

type consumerPII struct {
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	SSN       string     `json:"ssn"`
	DOB       string     `json:"dob"`
	Address   piiAddress `json:"address"`
}

type piiAddress struct {
	Line1 string `json:"line1"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

type requestor struct {
	SubscriberCode string `json:"subscriberCode"`
}

type permissiblePurpose struct {
	Type  string `json:"type"`
	Terms string `json:"terms"`
}

type addOns struct {
	ScoreIndicator bool `json:"scoreIndicator"`
}

type reportResponse struct {
	CreditReport creditReportBody `json:"creditReport"`
}

type creditReportBody struct {
	RiskModel     *riskModel     `json:"riskModel"`
	Tradelines    []apiTradeline `json:"tradeline"`
	Inquiries     []apiInquiry   `json:"inquiry"`
	PublicRecords []publicRecord `json:"publicRecord"`
}

type riskModel struct {
	Score          *int          `json:"score"`
	ScoreFactors   []scoreFactor `json:"scoreFactors"`
	ModelIndicator string        `json:"modelIndicator"`
}

type scoreFactor struct {
	Code string `json:"code"`
}

type apiTradeline struct {
	CreditorName   string           `json:"creditorName"`
	AccountType    string           `json:"accountType"`
	AccountNumber  string           `json:"accountNumber"`
	AccountStatus  string           `json:"accountStatus"`
	PaymentStatus  string           `json:"paymentStatus"`
	Balance        *decimal.Decimal `json:"balance"`
	HighCredit     *decimal.Decimal `json:"highCredit"`
	MonthlyPayment *decimal.Decimal `json:"monthlyPayment"`
	DateOpened     string           `json:"dateOpened"`
}

type apiInquiry struct {
	Type string `json:"type"`
}

type publicRecord struct {
	Type string `json:"type"`
}
