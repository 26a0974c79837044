package service

import (
	"context"
	"time"

	"github.com/bank-reconciliation-service/internal/domain/reconciliation"
	"github.com/bank-reconciliation-service/internal/domain/statement"
	"github.com/google/uuid"
)

// ReconciliationService defines the reconciliation lifecycle operations
type ReconciliationService interface {
	// Reconcile runs a full reconciliation of the parsed statement against
	// the ledger for the statement's period.
	// Returns statement.ErrInvalidPeriod for malformed input and
	// reconciliation.ErrPeriodAlreadyReconciled when the period reached the
	// RECONCILED terminal state in an earlier run.
	Reconcile(ctx context.Context, tenantID, accountID uuid.UUID, stmt *statement.ParsedStatement) (*reconciliation.Summary, error)

	// GetMatches returns all match records of a reconciliation.
	// Returns reconciliation.ErrPeriodNotFound for an unknown ID.
	GetMatches(ctx context.Context, reconciliationID uuid.UUID) ([]*reconciliation.MatchRecord, error)

	// GetUnmatched returns the statement-only and ledger-only records of a
	// reconciliation, grouped by side.
	// Returns reconciliation.ErrPeriodNotFound for an unknown ID.
	GetUnmatched(ctx context.Context, reconciliationID uuid.UUID) (*reconciliation.UnmatchedReport, error)

	// GetPeriod retrieves a reconciliation period by its natural key.
	// Returns nil, nil when no run has been recorded for the key.
	GetPeriod(ctx context.Context, tenantID, accountID uuid.UUID, periodStart time.Time) (*reconciliation.Period, error)
}
