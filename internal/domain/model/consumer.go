package model

// Address is a consumer's mailing address as required by the credit bureau.
type Address struct {
	Line1 string
	City  string
	State string
	Zip   string
}

// ConsumerIdentity identifies the consumer for a credit-report pull. All
// fields are PII: they are passed through opaquely to the credit provider
// and must never appear in logs, error messages, or API responses.
type ConsumerIdentity struct {
	FirstName   string
	LastName    string
	SSN         string
	DateOfBirth string // YYYY-MM-DD, passed through untouched.
	Address     Address
}

// Complete reports whether the identity carries the fields the bureau
// requires. The core performs no validation beyond presence.
func (c ConsumerIdentity) Complete() bool {
	return c.FirstName != "" && c.LastName != "" && c.SSN != "" && c.DateOfBirth != ""
}
