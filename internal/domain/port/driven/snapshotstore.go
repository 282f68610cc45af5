package driven

import (
	"context"

	"github.com/odanree/credit-history-app/internal/domain/model"
)

// SnapshotStore defines the driven port for the optional profile snapshot
// cache. The cache sits outside the core trust boundary: it holds derived,
// metadata-only aggregates keyed by a credential fingerprint, never the
// credential, transactions, or consumer PII. Implementations enforce the
// snapshot TTL on read.
type SnapshotStore interface {
	// Get returns the unexpired snapshot for the fingerprint, or nil when
	// none exists or the stored one is past its TTL.
	Get(ctx context.Context, fingerprint string) (*model.ProfileSnapshot, error)

	// Put stores or replaces the snapshot for its fingerprint.
	Put(ctx context.Context, snapshot model.ProfileSnapshot) error

	// Delete removes the snapshot for the fingerprint, if any.
	Delete(ctx context.Context, fingerprint string) error

	// PurgeExpired removes all snapshots past their TTL and returns the
	// number removed.
	PurgeExpired(ctx context.Context) (int64, error)
}
