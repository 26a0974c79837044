package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the contract against the external ledger transaction store.
// The reconciliation engine only reads transactions for a period and, once a
// period is reconciled, flags the matched transactions.
type Store interface {
	// FindTransactions returns all ledger transactions for the account whose
	// date falls within [start, end], sorted by date then ID
	FindTransactions(ctx context.Context, tenantID, accountID uuid.UUID, start, end time.Time) ([]*Transaction, error)

	// MarkReconciled flags the given ledger transactions as reconciled under
	// the given reconciliation
	MarkReconciled(ctx context.Context, tenantID uuid.UUID, transactionIDs []uuid.UUID, reconciliationID uuid.UUID) error
}

// ErrFetchFailed indicates the external ledger store could not be queried.
// It wraps the underlying cause; retrying is the caller's policy.
type ErrFetchFailed struct {
	AccountID uuid.UUID
	Err       error
}

func (e ErrFetchFailed) Error() string {
	return "failed to fetch ledger transactions for account " + e.AccountID.String() + ": " + e.Err.Error()
}

func (e ErrFetchFailed) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is interface for ErrFetchFailed
func (e ErrFetchFailed) Is(target error) bool {
	t, ok := target.(ErrFetchFailed)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}
