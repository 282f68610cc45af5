package model

import "time"

// ProfileSnapshot is a cached copy of a profile's derived aggregates. It is
// deliberately metadata-only: no transactions, no account detail, no consumer
// PII, and never the credential itself. Snapshots are keyed by a one-way
// fingerprint of the credential and expire after a bounded TTL.
type ProfileSnapshot struct {
	ID          string // Random UUID assigned at write time.
	Fingerprint string // SHA-256 hex of the credential; not reversible.
	Summary     ProfileSummary
	GeneratedAt time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the snapshot is past its TTL at the given instant.
func (s ProfileSnapshot) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
