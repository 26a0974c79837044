package reconciliation

import (
	"time"

	"github.com/google/uuid"
)

// Status defines the lifecycle states of a reconciliation period
type Status string

const (
	// StatusInProgress marks a run that has started but not reached a verdict
	StatusInProgress Status = "IN_PROGRESS"
	// StatusReconciled marks a period fully explained within tolerance.
	// Reconciled periods are immutable and may never be re-run.
	StatusReconciled Status = "RECONCILED"
	// StatusDiscrepancy marks a period with unexplained differences. A
	// discrepancy period may be superseded by a later run.
	StatusDiscrepancy Status = "DISCREPANCY"
)

// Period is the top-level reconciliation record for one account and one
// statement period. All balances are integer minor currency units.
type Period struct {
	ID                          uuid.UUID  `json:"id"`
	TenantID                    uuid.UUID  `json:"tenant_id"`
	AccountID                   uuid.UUID  `json:"account_id"`
	PeriodStart                 time.Time  `json:"period_start"`
	PeriodEnd                   time.Time  `json:"period_end"`
	OpeningBalanceMinorUnits    int64      `json:"opening_balance_minor_units"`
	ClosingBalanceMinorUnits    int64      `json:"closing_balance_minor_units"`
	CalculatedBalanceMinorUnits int64      `json:"calculated_balance_minor_units"`
	DiscrepancyMinorUnits       int64      `json:"discrepancy_minor_units"`
	Status                      Status     `json:"status"`
	CreatedAt                   time.Time  `json:"created_at"`
	UpdatedAt                   time.Time  `json:"updated_at"`
	CompletedAt                 *time.Time `json:"completed_at,omitempty"`
}

// NewPeriod creates an in-progress reconciliation period with the balances
// stated by the bank
func NewPeriod(tenantID, accountID uuid.UUID, periodStart, periodEnd time.Time, opening, closing int64) *Period {
	now := time.Now().UTC()
	return &Period{
		ID:                       uuid.New(),
		TenantID:                 tenantID,
		AccountID:                accountID,
		PeriodStart:              periodStart,
		PeriodEnd:                periodEnd,
		OpeningBalanceMinorUnits: opening,
		ClosingBalanceMinorUnits: closing,
		Status:                   StatusInProgress,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
}

// ErrPeriodAlreadyReconciled indicates an attempt to re-run a period that
// reached the RECONCILED terminal state
type ErrPeriodAlreadyReconciled struct {
	TenantID    uuid.UUID
	AccountID   uuid.UUID
	PeriodStart time.Time
}

func (e ErrPeriodAlreadyReconciled) Error() string {
	return "period starting " + e.PeriodStart.Format("2006-01-02") +
		" for account " + e.AccountID.String() + " is already reconciled"
}

// Is implements the errors.Is interface for ErrPeriodAlreadyReconciled
func (e ErrPeriodAlreadyReconciled) Is(target error) bool {
	_, ok := target.(ErrPeriodAlreadyReconciled)
	return ok
}

// ErrPeriodNotFound indicates a missing reconciliation period
type ErrPeriodNotFound struct {
	ReconciliationID uuid.UUID
}

func (e ErrPeriodNotFound) Error() string {
	return "reconciliation period not found: " + e.ReconciliationID.String()
}

// Is implements the errors.Is interface for ErrPeriodNotFound
func (e ErrPeriodNotFound) Is(target error) bool {
	t, ok := target.(ErrPeriodNotFound)
	if !ok {
		return false
	}
	if t.ReconciliationID == uuid.Nil {
		return true
	}
	return e.ReconciliationID == t.ReconciliationID
}
