package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines reconciliation persistence operations. All writes for a
// run go through BeginRun and Finalize, each of which is a single atomic
// transaction; there is never a partial commit of a period and its matches.
type Repository interface {
	// GetPeriod retrieves a period by its natural key. Returns nil, nil when
	// no period exists for the key.
	GetPeriod(ctx context.Context, tenantID, accountID uuid.UUID, periodStart time.Time) (*Period, error)

	// GetPeriodByID retrieves a period by its ID.
	// Returns ErrPeriodNotFound if the period doesn't exist.
	GetPeriodByID(ctx context.Context, id uuid.UUID) (*Period, error)

	// BeginRun inserts the period as IN_PROGRESS or takes over an existing
	// non-reconciled row for the same (tenant, account, period start),
	// clearing its match records in the same transaction. The period's ID is
	// rewritten to the persisted row's ID. Returns ErrPeriodAlreadyReconciled
	// when the existing row is terminal RECONCILED.
	BeginRun(ctx context.Context, period *Period) error

	// Finalize atomically writes the terminal status, calculated balance and
	// discrepancy, and inserts all match records for the run. The period row
	// must still be IN_PROGRESS; otherwise ErrPeriodAlreadyReconciled is
	// returned and nothing is written.
	Finalize(ctx context.Context, period *Period, matches []*MatchRecord) error

	// GetMatches returns all match records for a reconciliation, statement
	// rows first in statement order, then ledger-only rows
	GetMatches(ctx context.Context, reconciliationID uuid.UUID) ([]*MatchRecord, error)

	// GetMatchesByStatus returns the match records for a reconciliation with
	// the given classification
	GetMatchesByStatus(ctx context.Context, reconciliationID uuid.UUID, status MatchStatus) ([]*MatchRecord, error)
}
