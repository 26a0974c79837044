// Package service implements the reconciliation lifecycle: it coordinates
// the ledger fetch, the match engine and the balance reconciler, owns the
// period's state transitions, and persists the eventually-immutable record.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bank-reconciliation-service/internal/balance"
	"github.com/bank-reconciliation-service/internal/config"
	"github.com/bank-reconciliation-service/internal/domain/ledger"
	"github.com/bank-reconciliation-service/internal/domain/reconciliation"
	"github.com/bank-reconciliation-service/internal/domain/statement"
	"github.com/bank-reconciliation-service/internal/matcher"
	"github.com/bank-reconciliation-service/internal/platform/messaging/producers"
	"github.com/google/uuid"
)

// ReconciliationServiceImpl implements the ReconciliationService interface
type ReconciliationServiceImpl struct {
	logger      *slog.Logger
	repo        reconciliation.Repository
	ledgerStore ledger.Store
	engine      *matcher.Engine
	producer    producers.MessagePublisher // Optional, nil disables completion events
	tolerance   int64
}

// NewReconciliationService creates a new reconciliation lifecycle service.
// The producer may be nil when completion events are not wanted.
func NewReconciliationService(
	logger *slog.Logger,
	cfg *config.ReconciliationConfig,
	repo reconciliation.Repository,
	ledgerStore ledger.Store,
	producer producers.MessagePublisher,
) ReconciliationService {
	engine := matcher.New(matcher.Config{
		SimilarityThreshold: cfg.SimilarityThreshold,
		DateToleranceDays:   cfg.DateToleranceDays,
	})

	return &ReconciliationServiceImpl{
		logger:      logger,
		repo:        repo,
		ledgerStore: ledgerStore,
		engine:      engine,
		producer:    producer,
		tolerance:   cfg.DiscrepancyToleranceMinorUnits,
	}
}

// Reconcile runs the full lifecycle for one account-period. Every failure
// path leaves the previous terminal record untouched, so a retry is always
// safe; only the RECONCILED guard is not retryable.
func (s *ReconciliationServiceImpl) Reconcile(ctx context.Context, tenantID, accountID uuid.UUID, stmt *statement.ParsedStatement) (*reconciliation.Summary, error) {
	if err := stmt.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger.With(
		"tenant_id", tenantID.String(),
		"account_id", accountID.String(),
		"period_start", stmt.PeriodStart.Format("2006-01-02"),
	)

	// Fail fast before touching the ledger store. The repository re-checks
	// under its own transaction, this read just avoids pointless work.
	existing, err := s.repo.GetPeriod(ctx, tenantID, accountID, stmt.PeriodStart)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == reconciliation.StatusReconciled {
		logger.Warn("Rejecting reconciliation of an already reconciled period")
		return nil, reconciliation.ErrPeriodAlreadyReconciled{
			TenantID:    tenantID,
			AccountID:   accountID,
			PeriodStart: stmt.PeriodStart,
		}
	}

	ledgerTxns, err := s.ledgerStore.FindTransactions(ctx, tenantID, accountID, stmt.PeriodStart, stmt.PeriodEnd)
	if err != nil {
		logger.Error("Ledger fetch failed", "error", err)
		return nil, err
	}

	period := reconciliation.NewPeriod(tenantID, accountID, stmt.PeriodStart, stmt.PeriodEnd,
		stmt.OpeningBalanceMinorUnits, stmt.ClosingBalanceMinorUnits)

	if err := s.repo.BeginRun(ctx, period); err != nil {
		return nil, err
	}

	logger = logger.With("reconciliation_id", period.ID.String())
	logger.Info("Reconciliation run started",
		"statement_transactions", len(stmt.Transactions),
		"ledger_transactions", len(ledgerTxns),
	)

	matches := s.engine.Match(period.ID, stmt.Transactions, ledgerTxns)
	result := balance.Reconcile(stmt.OpeningBalanceMinorUnits, stmt.Transactions, stmt.ClosingBalanceMinorUnits)
	counts := reconciliation.CountByStatus(matches)

	now := time.Now().UTC()
	period.CalculatedBalanceMinorUnits = result.CalculatedMinorUnits
	period.DiscrepancyMinorUnits = result.DiscrepancyMinorUnits
	period.Status = s.verdict(result.DiscrepancyMinorUnits, counts)
	period.UpdatedAt = now
	period.CompletedAt = &now

	if err := s.repo.Finalize(ctx, period, matches); err != nil {
		return nil, err
	}

	if period.Status == reconciliation.StatusReconciled {
		if err := s.markLedgerReconciled(ctx, tenantID, period.ID, matches); err != nil {
			// The reconciliation record is already committed; the ledger flags
			// can be replayed from the match records.
			logger.Error("Failed to mark ledger transactions reconciled", "error", err)
		}
	}

	summary := &reconciliation.Summary{
		ReconciliationID:            period.ID,
		TenantID:                    tenantID,
		AccountID:                   accountID,
		PeriodStart:                 period.PeriodStart,
		PeriodEnd:                   period.PeriodEnd,
		OpeningBalanceMinorUnits:    period.OpeningBalanceMinorUnits,
		ClosingBalanceMinorUnits:    period.ClosingBalanceMinorUnits,
		CalculatedBalanceMinorUnits: period.CalculatedBalanceMinorUnits,
		DiscrepancyMinorUnits:       period.DiscrepancyMinorUnits,
		Counts:                      counts,
		Status:                      period.Status,
		CompletedAt:                 now,
	}

	s.publishCompleted(ctx, summary)

	logger.Info("Reconciliation run completed",
		"status", string(period.Status),
		"discrepancy", period.DiscrepancyMinorUnits,
		"matched", counts.Matched,
		"statement_only", counts.StatementOnly,
		"ledger_only", counts.LedgerOnly,
		"amount_mismatch", counts.AmountMismatch,
		"date_mismatch", counts.DateMismatch,
	)

	return summary, nil
}

// verdict applies the final status rule: within tolerance and nothing
// unexplained. DATE_MISMATCH records intentionally do not block.
func (s *ReconciliationServiceImpl) verdict(discrepancy int64, counts reconciliation.StatusCounts) reconciliation.Status {
	if discrepancy <= s.tolerance &&
		counts.StatementOnly == 0 &&
		counts.LedgerOnly == 0 &&
		counts.AmountMismatch == 0 {
		return reconciliation.StatusReconciled
	}
	return reconciliation.StatusDiscrepancy
}

// markLedgerReconciled flags every claimed ledger transaction in the external
// ledger store
func (s *ReconciliationServiceImpl) markLedgerReconciled(ctx context.Context, tenantID, reconciliationID uuid.UUID, matches []*reconciliation.MatchRecord) error {
	var ids []uuid.UUID
	for _, m := range matches {
		if m.Status == reconciliation.MatchStatusMatched && m.LedgerTransactionID != nil {
			ids = append(ids, *m.LedgerTransactionID)
		}
	}
	return s.ledgerStore.MarkReconciled(ctx, tenantID, ids, reconciliationID)
}

// publishCompleted emits the run summary. Event delivery is best effort and
// never fails a committed run.
func (s *ReconciliationServiceImpl) publishCompleted(ctx context.Context, summary *reconciliation.Summary) {
	if s.producer == nil {
		return
	}
	if err := s.producer.Publish(ctx, summary.ReconciliationID.String(), summary); err != nil {
		s.logger.Error("Failed to publish reconciliation completed event",
			"reconciliation_id", summary.ReconciliationID.String(),
			"error", err,
		)
	}
}

// GetMatches returns all match records of a reconciliation
func (s *ReconciliationServiceImpl) GetMatches(ctx context.Context, reconciliationID uuid.UUID) ([]*reconciliation.MatchRecord, error) {
	if _, err := s.repo.GetPeriodByID(ctx, reconciliationID); err != nil {
		return nil, err
	}
	return s.repo.GetMatches(ctx, reconciliationID)
}

// GetUnmatched returns the statement-only and ledger-only records of a reconciliation
func (s *ReconciliationServiceImpl) GetUnmatched(ctx context.Context, reconciliationID uuid.UUID) (*reconciliation.UnmatchedReport, error) {
	if _, err := s.repo.GetPeriodByID(ctx, reconciliationID); err != nil {
		return nil, err
	}

	statementOnly, err := s.repo.GetMatchesByStatus(ctx, reconciliationID, reconciliation.MatchStatusStatementOnly)
	if err != nil {
		return nil, err
	}
	ledgerOnly, err := s.repo.GetMatchesByStatus(ctx, reconciliationID, reconciliation.MatchStatusLedgerOnly)
	if err != nil {
		return nil, err
	}

	return &reconciliation.UnmatchedReport{
		StatementOnly: statementOnly,
		LedgerOnly:    ledgerOnly,
	}, nil
}

// GetPeriod retrieves a reconciliation period by its natural key
func (s *ReconciliationServiceImpl) GetPeriod(ctx context.Context, tenantID, accountID uuid.UUID, periodStart time.Time) (*reconciliation.Period, error) {
	return s.repo.GetPeriod(ctx, tenantID, accountID, periodStart)
}
