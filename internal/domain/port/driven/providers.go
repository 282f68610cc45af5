package driven

import (
	"context"
	"errors"

	"github.com/odanree/credit-history-app/internal/domain/model"
)

// ErrAuthExpired is returned by a provider when the credential or linked item
// is no longer authorized. The caller surfaces it as a "reconnect this
// provider" state rather than a generic failure.
var ErrAuthExpired = errors.New("provider authorization expired")

// ErrPermissionDenied is returned by the credit provider when the request
// fails for consent or permissible-purpose reasons.
var ErrPermissionDenied = errors.New("provider permission denied")

// TransactionsProvider defines the driven port for the banking-data service
// that supplies credit card accounts, balances, and transactions.
//
// Providers are unreliable, rate-limited network services: calls may take
// hundreds of milliseconds and fail independently of each other. Adapters
// map provider-side auth failures to ErrAuthExpired so callers can
// distinguish "reconnect required" from transient failure.
type TransactionsProvider interface {
	// FetchCreditData returns credit card accounts with balance snapshots
	// and their transactions within the window, for the user the credential
	// authorizes. The credential is opaque: it is passed through untouched
	// and must never be logged or embedded in errors.
	FetchCreditData(ctx context.Context, credential string, window model.TimeWindow) (model.CreditData, error)
}

// CreditProvider defines the driven port for the credit-bureau service.
type CreditProvider interface {
	// FetchReport returns a credit report snapshot for the identified
	// consumer. The identity is PII and is passed through opaquely.
	FetchReport(ctx context.Context, consumer model.ConsumerIdentity) (model.CreditReport, error)
}
