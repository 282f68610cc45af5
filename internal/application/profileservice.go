package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odanree/credit-history-app/internal/domain/model"
	"github.com/odanree/credit-history-app/internal/domain/port/driven"
)

// ErrReauthRequired is returned when every configured provider rejected its
// credential. The session is useless at that point and the caller should
// force the user back through setup.
var ErrReauthRequired = errors.New("all providers require relinking")

// ProfileService builds unified credit profiles by fanning out to both
// providers, tolerating partial failure, and deriving the summary and
// recommendations from whatever came back. It holds no per-user state and
// performs no caching; every call hits the providers.
type ProfileService struct {
	transactions driven.TransactionsProvider
	credit       driven.CreditProvider
	timeout      time.Duration
	windowDays   int
	logger       *slog.Logger
	now          func() time.Time
}

// NewProfileService creates a ProfileService. Either provider may be nil
// when not configured; its section then reports unavailable instead of the
// service failing outright.
func NewProfileService(
	transactions driven.TransactionsProvider,
	credit driven.CreditProvider,
	timeout time.Duration,
	windowDays int,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		transactions: transactions,
		credit:       credit,
		timeout:      timeout,
		windowDays:   windowDays,
		logger:       logger,
		now:          time.Now,
	}
}

// BuildProfile fetches both providers concurrently and merges the results.
// A single provider failure degrades its section; the profile still
// succeeds. It returns ErrReauthRequired only when every configured
// provider rejected its credential.
func (s *ProfileService) BuildProfile(ctx context.Context, credential string, consumer model.ConsumerIdentity) (model.UnifiedProfile, error) {
	now := s.now().UTC()
	window := model.LastDays(now, s.windowDays)

	var (
		txSection model.TransactionsSection
		crSection model.CreditSection
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txSection = s.fetchTransactionsSection(gctx, credential, window)
		return nil
	})
	g.Go(func() error {
		crSection = s.fetchCreditSection(gctx, consumer)
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.UnifiedProfile{}, err
	}

	if s.allAuthExpired(txSection, crSection) {
		return model.UnifiedProfile{}, ErrReauthRequired
	}

	summary := buildSummary(txSection, crSection, now)
	return model.UnifiedProfile{
		GeneratedAt:     now,
		Transactions:    txSection,
		Credit:          crSection,
		Summary:         summary,
		Recommendations: Recommend(summary),
	}, nil
}

// FetchTransactions returns the credit card accounts and transactions for
// the trailing number of days, bypassing profile assembly. Provider errors
// propagate so the handler can map ErrAuthExpired to a relink response.
func (s *ProfileService) FetchTransactions(ctx context.Context, credential string, days int) (model.CreditData, error) {
	if s.transactions == nil {
		return model.CreditData{}, errors.New("transactions provider not configured")
	}
	if days <= 0 {
		days = s.windowDays
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.transactions.FetchCreditData(cctx, credential, model.LastDays(s.now().UTC(), days))
}

// AnalyzeSpending fetches the transaction window and derives spending
// patterns from it.
func (s *ProfileService) AnalyzeSpending(ctx context.Context, credential string, days int) (SpendingAnalysis, error) {
	data, err := s.FetchTransactions(ctx, credential, days)
	if err != nil {
		return SpendingAnalysis{}, err
	}
	return AnalyzeTransactions(data.Transactions), nil
}

func (s *ProfileService) fetchTransactionsSection(ctx context.Context, credential string, window model.TimeWindow) model.TransactionsSection {
	if s.transactions == nil {
		return model.TransactionsSection{Err: &model.SectionError{
			Kind:    model.SectionErrUnavailable,
			Message: "transactions provider is not configured",
		}}
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.transactions.FetchCreditData(cctx, credential, window)
	if err != nil {
		s.logger.Warn("transactions fetch failed", "error", err)
		return model.TransactionsSection{Err: classifySectionError(err, "transactions")}
	}
	return model.TransactionsSection{Data: &data}
}

func (s *ProfileService) fetchCreditSection(ctx context.Context, consumer model.ConsumerIdentity) model.CreditSection {
	if s.credit == nil {
		return model.CreditSection{Err: &model.SectionError{
			Kind:    model.SectionErrUnavailable,
			Message: "credit provider is not configured",
		}}
	}
	if !consumer.Complete() {
		return model.CreditSection{Err: &model.SectionError{
			Kind:    model.SectionErrUnavailable,
			Message: "consumer identity is not configured",
		}}
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.credit.FetchReport(cctx, consumer)
	if err != nil {
		s.logger.Warn("credit report fetch failed", "error", err)
		return model.CreditSection{Err: classifySectionError(err, "credit report")}
	}
	return model.CreditSection{Report: &report}
}

// allAuthExpired reports whether every configured provider came back with an
// expired-auth section. Unconfigured providers do not count either way.
func (s *ProfileService) allAuthExpired(tx model.TransactionsSection, cr model.CreditSection) bool {
	configured := 0
	expired := 0
	if s.transactions != nil {
		configured++
		if tx.Err != nil && tx.Err.Kind == model.SectionErrAuthExpired {
			expired++
		}
	}
	if s.credit != nil {
		configured++
		if cr.Err != nil && cr.Err.Kind == model.SectionErrAuthExpired {
			expired++
		}
	}
	return configured > 0 && expired == configured
}

// classifySectionError maps a provider error onto the user-facing section
// error taxonomy. Messages are fixed strings; the underlying error never
// reaches the response.
func classifySectionError(err error, source string) *model.SectionError {
	switch {
	case errors.Is(err, driven.ErrAuthExpired):
		return &model.SectionError{
			Kind:    model.SectionErrAuthExpired,
			Message: "the " + source + " connection has expired and must be relinked",
		}
	case errors.Is(err, driven.ErrPermissionDenied):
		return &model.SectionError{
			Kind:    model.SectionErrPermissionDenied,
			Message: "the " + source + " provider denied access",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &model.SectionError{
			Kind:    model.SectionErrUnavailable,
			Message: "the " + source + " provider timed out",
		}
	default:
		return &model.SectionError{
			Kind:    model.SectionErrUnavailable,
			Message: "the " + source + " provider is temporarily unavailable",
		}
	}
}

// buildSummary merges section data into the flat aggregate view. Fields stay
// nil when their source section failed. When the transactions section failed
// but the bureau computed an overall utilization, that value fills in.
func buildSummary(tx model.TransactionsSection, cr model.CreditSection, now time.Time) model.ProfileSummary {
	var summary model.ProfileSummary

	if tx.Healthy() {
		data := tx.Data
		totalCards := data.TotalCards
		totalBalance := data.TotalBalance
		totalLimit := data.TotalLimit
		utilization := Utilization(totalBalance, totalLimit)
		monthly := MonthlySpending(data.Transactions, now)
		recent := len(data.Transactions)

		summary.TotalCards = &totalCards
		summary.TotalBalance = &totalBalance
		summary.TotalLimit = &totalLimit
		summary.UtilizationPct = &utilization
		summary.MonthlySpending = &monthly
		summary.RecentTransactions = &recent
	}

	if cr.Healthy() {
		report := cr.Report
		if report.Score != nil {
			score := *report.Score
			summary.CreditScore = &score
		}
		open := report.OpenAccounts
		delinquent := report.DelinquentAccounts
		inquiries := report.HardInquiries
		records := report.PublicRecords

		summary.OpenAccounts = &open
		summary.DelinquentAccounts = &delinquent
		summary.HardInquiries = &inquiries
		summary.PublicRecords = &records

		if summary.UtilizationPct == nil && report.UtilizationPct != nil {
			utilization := *report.UtilizationPct
			summary.UtilizationPct = &utilization
		}
	}

	return summary
}
