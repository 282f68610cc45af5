package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odanree/credit-history-app/internal/domain/model"
	"github.com/odanree/credit-history-app/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SnapshotStore = (*SnapshotRepo)(nil)

// SnapshotRepo is the SQLite implementation of the SnapshotStore port.
// Monetary values are stored as decimal strings to avoid float drift;
// timestamps as RFC 3339 text. Nullable columns preserve the distinction
// between "unknown" and an observed zero.
type SnapshotRepo struct {
	db  *DB
	ttl time.Duration
	now func() time.Time
}

// NewSnapshotRepo creates a SnapshotRepo enforcing the given TTL on writes.
func NewSnapshotRepo(db *DB, ttl time.Duration) *SnapshotRepo {
	return &SnapshotRepo{db: db, ttl: ttl, now: time.Now}
}

// Get returns the unexpired snapshot for the fingerprint, or nil when none
// exists or the stored one is past its TTL. Expired rows are left for
// PurgeExpired rather than deleted on the read path.
func (r *SnapshotRepo) Get(ctx context.Context, fingerprint string) (*model.ProfileSnapshot, error) {
	const query = `
		SELECT id, credit_score, total_cards, total_balance, total_limit,
		       utilization_pct, monthly_spending, recent_transactions,
		       open_accounts, delinquent_accounts, hard_inquiries,
		       public_records, generated_at, expires_at
		FROM profile_snapshots WHERE fingerprint = ?`

	var (
		snap        model.ProfileSnapshot
		score       sql.NullInt64
		cards       sql.NullInt64
		balance     sql.NullString
		limit       sql.NullString
		utilization sql.NullString
		monthly     sql.NullString
		recentTxns  sql.NullInt64
		openAccts   sql.NullInt64
		delinquent  sql.NullInt64
		inquiries   sql.NullInt64
		publicRecs  sql.NullInt64
		generatedAt string
		expiresAt   string
	)

	err := r.db.Reader.QueryRowContext(ctx, query, fingerprint).Scan(
		&snap.ID, &score, &cards, &balance, &limit,
		&utilization, &monthly, &recentTxns,
		&openAccts, &delinquent, &inquiries,
		&publicRecs, &generatedAt, &expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	snap.Fingerprint = fingerprint
	snap.Summary.CreditScore = nullableInt(score)
	snap.Summary.TotalCards = nullableInt(cards)
	snap.Summary.RecentTransactions = nullableInt(recentTxns)
	snap.Summary.OpenAccounts = nullableInt(openAccts)
	snap.Summary.DelinquentAccounts = nullableInt(delinquent)
	snap.Summary.HardInquiries = nullableInt(inquiries)
	snap.Summary.PublicRecords = nullableInt(publicRecs)

	if snap.Summary.TotalBalance, err = nullableDecimal(balance); err != nil {
		return nil, fmt.Errorf("parse total_balance: %w", err)
	}
	if snap.Summary.TotalLimit, err = nullableDecimal(limit); err != nil {
		return nil, fmt.Errorf("parse total_limit: %w", err)
	}
	if snap.Summary.UtilizationPct, err = nullableDecimal(utilization); err != nil {
		return nil, fmt.Errorf("parse utilization_pct: %w", err)
	}
	if snap.Summary.MonthlySpending, err = nullableDecimal(monthly); err != nil {
		return nil, fmt.Errorf("parse monthly_spending: %w", err)
	}

	if snap.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return nil, fmt.Errorf("parse generated_at: %w", err)
	}
	if snap.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	if snap.Expired(r.now()) {
		return nil, nil
	}
	return &snap, nil
}

// Put stores or replaces the snapshot for its fingerprint. A zero ID or
// ExpiresAt is filled in from a fresh UUID and the configured TTL.
func (r *SnapshotRepo) Put(ctx context.Context, snapshot model.ProfileSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.ExpiresAt.IsZero() {
		snapshot.ExpiresAt = r.now().Add(r.ttl)
	}

	const query = `
		INSERT OR REPLACE INTO profile_snapshots (
			fingerprint, id, credit_score, total_cards, total_balance,
			total_limit, utilization_pct, monthly_spending,
			recent_transactions, open_accounts, delinquent_accounts,
			hard_inquiries, public_records, generated_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	s := snapshot.Summary
	_, err := r.db.Writer.ExecContext(ctx, query,
		snapshot.Fingerprint, snapshot.ID,
		intValue(s.CreditScore), intValue(s.TotalCards),
		decimalValue(s.TotalBalance), decimalValue(s.TotalLimit),
		decimalValue(s.UtilizationPct), decimalValue(s.MonthlySpending),
		intValue(s.RecentTransactions), intValue(s.OpenAccounts),
		intValue(s.DelinquentAccounts), intValue(s.HardInquiries),
		intValue(s.PublicRecords),
		snapshot.GeneratedAt.UTC().Format(time.RFC3339),
		snapshot.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot for the fingerprint, if any.
func (r *SnapshotRepo) Delete(ctx context.Context, fingerprint string) error {
	const query = `DELETE FROM profile_snapshots WHERE fingerprint = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, fingerprint); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// PurgeExpired removes all snapshots past their TTL.
func (r *SnapshotRepo) PurgeExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM profile_snapshots WHERE expires_at <= ?`
	res, err := r.db.Writer.ExecContext(ctx, query, r.now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("purge snapshots: %w", err)
	}
	return res.RowsAffected()
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func intValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decimalValue(v *decimal.Decimal) any {
	if v == nil {
		return nil
	}
	return v.String()
}

// parseTime parses an RFC 3339 timestamp as stored by this repo.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
