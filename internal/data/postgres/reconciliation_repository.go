// Package postgres provides the PostgreSQL implementation of the
// reconciliation repository. It owns the terminal-state guard: the unique
// constraint on (tenant_id, account_id, period_start) plus conditional
// updates serialize concurrent runs for the same period.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bank-reconciliation-service/internal/domain/reconciliation"
	"github.com/bank-reconciliation-service/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// txBeginner extends Querier with transaction support. Both *pgxpool.Pool
// and pgxmock pools satisfy it.
type txBeginner interface {
	persistence.Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ReconciliationRepository implements the reconciliation.Repository interface for PostgreSQL
type ReconciliationRepository struct {
	db     txBeginner
	logger *slog.Logger
}

// NewReconciliationRepository creates a new PostgreSQL reconciliation repository
func NewReconciliationRepository(logger *slog.Logger, db *persistence.PostgresDB) reconciliation.Repository {
	return &ReconciliationRepository{
		db:     db.Pool(),
		logger: logger,
	}
}

const periodColumns = `id, tenant_id, account_id, period_start, period_end,
		opening_balance, closing_balance, calculated_balance, discrepancy,
		status, created_at, updated_at, completed_at`

// GetPeriod retrieves a period by its natural key, returning nil, nil when absent
func (r *ReconciliationRepository) GetPeriod(ctx context.Context, tenantID, accountID uuid.UUID, periodStart time.Time) (*reconciliation.Period, error) {
	query := `
		SELECT ` + periodColumns + `
		FROM reconciliation_periods
		WHERE tenant_id = $1 AND account_id = $2 AND period_start = $3
	`

	period, err := r.scanPeriod(r.db.QueryRow(ctx, query, tenantID, accountID, periodStart))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No reconciliation has run for this period yet
		}
		r.logger.Error("Failed to get reconciliation period",
			"tenant_id", tenantID.String(),
			"account_id", accountID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get reconciliation period: %w", err)
	}

	return period, nil
}

// GetPeriodByID retrieves a period by its ID
func (r *ReconciliationRepository) GetPeriodByID(ctx context.Context, id uuid.UUID) (*reconciliation.Period, error) {
	query := `
		SELECT ` + periodColumns + `
		FROM reconciliation_periods
		WHERE id = $1
	`

	period, err := r.scanPeriod(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reconciliation.ErrPeriodNotFound{ReconciliationID: id}
		}
		r.logger.Error("Failed to get reconciliation period", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get reconciliation period: %w", err)
	}

	return period, nil
}

// BeginRun claims the period row for a new run. The guarded upsert refuses to
// touch a RECONCILED row, which makes the immutability rule hold even when
// the caller skipped the fail-fast read. Prior match records are cleared in
// the same transaction so a re-run replaces rather than duplicates them.
func (r *ReconciliationRepository) BeginRun(ctx context.Context, period *reconciliation.Period) error {
	query := `
		INSERT INTO reconciliation_periods (` + periodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tenant_id, account_id, period_start) DO UPDATE
		SET period_end = EXCLUDED.period_end,
			opening_balance = EXCLUDED.opening_balance,
			closing_balance = EXCLUDED.closing_balance,
			calculated_balance = 0,
			discrepancy = 0,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			completed_at = NULL
		WHERE reconciliation_periods.status <> $14
		RETURNING id
	`

	return r.executeTx(ctx, func(tx pgx.Tx) error {
		var persistedID uuid.UUID
		err := tx.QueryRow(ctx, query,
			period.ID,
			period.TenantID,
			period.AccountID,
			period.PeriodStart,
			period.PeriodEnd,
			period.OpeningBalanceMinorUnits,
			period.ClosingBalanceMinorUnits,
			period.CalculatedBalanceMinorUnits,
			period.DiscrepancyMinorUnits,
			period.Status,
			period.CreatedAt,
			period.UpdatedAt,
			period.CompletedAt,
			reconciliation.StatusReconciled,
		).Scan(&persistedID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// The guard suppressed the upsert: the existing row is terminal.
				return reconciliation.ErrPeriodAlreadyReconciled{
					TenantID:    period.TenantID,
					AccountID:   period.AccountID,
					PeriodStart: period.PeriodStart,
				}
			}
			r.logger.Error("Failed to begin reconciliation run",
				"tenant_id", period.TenantID.String(),
				"account_id", period.AccountID.String(),
				"error", err,
			)
			return fmt.Errorf("failed to begin reconciliation run: %w", err)
		}

		// A superseded DISCREPANCY row keeps its original ID.
		period.ID = persistedID

		if _, err := tx.Exec(ctx, `DELETE FROM match_records WHERE reconciliation_id = $1`, persistedID); err != nil {
			r.logger.Error("Failed to clear previous match records",
				"reconciliation_id", persistedID.String(),
				"error", err,
			)
			return fmt.Errorf("failed to clear previous match records: %w", err)
		}

		return nil
	})
}

// Finalize writes the verdict and all match records in one transaction. The
// period must still be IN_PROGRESS; a row that left that state since BeginRun
// means another run finished first. Opening and closing balances are written
// again so the verdict never lands next to another run's statement figures.
func (r *ReconciliationRepository) Finalize(ctx context.Context, period *reconciliation.Period, matches []*reconciliation.MatchRecord) error {
	updateQuery := `
		UPDATE reconciliation_periods
		SET status = $1, opening_balance = $2, closing_balance = $3, calculated_balance = $4, discrepancy = $5, updated_at = $6, completed_at = $7
		WHERE id = $8 AND status = $9
	`

	insertQuery := `
		INSERT INTO match_records (id, reconciliation_id,
			statement_date, statement_description, statement_amount, statement_is_credit,
			ledger_transaction_id, ledger_date, ledger_description, ledger_amount, ledger_is_credit,
			status, confidence, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	return r.executeTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, updateQuery,
			period.Status,
			period.OpeningBalanceMinorUnits,
			period.ClosingBalanceMinorUnits,
			period.CalculatedBalanceMinorUnits,
			period.DiscrepancyMinorUnits,
			period.UpdatedAt,
			period.CompletedAt,
			period.ID,
			reconciliation.StatusInProgress,
		)
		if err != nil {
			r.logger.Error("Failed to finalize reconciliation period",
				"reconciliation_id", period.ID.String(),
				"error", err,
			)
			return fmt.Errorf("failed to finalize reconciliation period: %w", err)
		}
		if result.RowsAffected() == 0 {
			return reconciliation.ErrPeriodAlreadyReconciled{
				TenantID:    period.TenantID,
				AccountID:   period.AccountID,
				PeriodStart: period.PeriodStart,
			}
		}

		for _, m := range matches {
			if _, err := tx.Exec(ctx, insertQuery,
				m.ID,
				m.ReconciliationID,
				m.StatementDate,
				m.StatementDescription,
				m.StatementAmountMinorUnits,
				m.StatementIsCredit,
				m.LedgerTransactionID,
				m.LedgerDate,
				m.LedgerDescription,
				m.LedgerAmountMinorUnits,
				m.LedgerIsCredit,
				m.Status,
				m.Confidence,
				m.Note,
				m.CreatedAt,
			); err != nil {
				r.logger.Error("Failed to insert match record",
					"reconciliation_id", m.ReconciliationID.String(),
					"error", err,
				)
				return fmt.Errorf("failed to insert match record: %w", err)
			}
		}

		return nil
	})
}

const matchColumns = `id, reconciliation_id,
		statement_date, statement_description, statement_amount, statement_is_credit,
		ledger_transaction_id, ledger_date, ledger_description, ledger_amount, ledger_is_credit,
		status, confidence, note, created_at`

// GetMatches returns all match records for a reconciliation
func (r *ReconciliationRepository) GetMatches(ctx context.Context, reconciliationID uuid.UUID) ([]*reconciliation.MatchRecord, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM match_records
		WHERE reconciliation_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, reconciliationID)
	if err != nil {
		r.logger.Error("Failed to get match records",
			"reconciliation_id", reconciliationID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get match records: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// GetMatchesByStatus returns the match records with the given classification.
// The (reconciliation_id, status) index serves this query.
func (r *ReconciliationRepository) GetMatchesByStatus(ctx context.Context, reconciliationID uuid.UUID, status reconciliation.MatchStatus) ([]*reconciliation.MatchRecord, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM match_records
		WHERE reconciliation_id = $1 AND status = $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, reconciliationID, status)
	if err != nil {
		r.logger.Error("Failed to get match records by status",
			"reconciliation_id", reconciliationID.String(),
			"status", string(status),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get match records by status: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

func (r *ReconciliationRepository) scanPeriod(row pgx.Row) (*reconciliation.Period, error) {
	var p reconciliation.Period
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.AccountID,
		&p.PeriodStart,
		&p.PeriodEnd,
		&p.OpeningBalanceMinorUnits,
		&p.ClosingBalanceMinorUnits,
		&p.CalculatedBalanceMinorUnits,
		&p.DiscrepancyMinorUnits,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanMatches(rows pgx.Rows) ([]*reconciliation.MatchRecord, error) {
	var matches []*reconciliation.MatchRecord
	for rows.Next() {
		var m reconciliation.MatchRecord
		if err := rows.Scan(
			&m.ID,
			&m.ReconciliationID,
			&m.StatementDate,
			&m.StatementDescription,
			&m.StatementAmountMinorUnits,
			&m.StatementIsCredit,
			&m.LedgerTransactionID,
			&m.LedgerDate,
			&m.LedgerDescription,
			&m.LedgerAmountMinorUnits,
			&m.LedgerIsCredit,
			&m.Status,
			&m.Confidence,
			&m.Note,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match record: %w", err)
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read match records: %w", err)
	}
	return matches, nil
}

// executeTx runs fn in a transaction, rolling back on error or panic
func (r *ReconciliationRepository) executeTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx) // Attempt rollback on panic
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}
