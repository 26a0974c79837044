package reconciliation

import (
	"time"

	"github.com/google/uuid"
)

// Summary is the result of a reconciliation run returned to callers
type Summary struct {
	ReconciliationID            uuid.UUID    `json:"reconciliation_id"`
	TenantID                    uuid.UUID    `json:"tenant_id"`
	AccountID                   uuid.UUID    `json:"account_id"`
	PeriodStart                 time.Time    `json:"period_start"`
	PeriodEnd                   time.Time    `json:"period_end"`
	OpeningBalanceMinorUnits    int64        `json:"opening_balance_minor_units"`
	ClosingBalanceMinorUnits    int64        `json:"closing_balance_minor_units"`
	CalculatedBalanceMinorUnits int64        `json:"calculated_balance_minor_units"`
	DiscrepancyMinorUnits       int64        `json:"discrepancy_minor_units"`
	Counts                      StatusCounts `json:"counts"`
	Status                      Status       `json:"status"`
	CompletedAt                 time.Time    `json:"completed_at"`
}

// UnmatchedReport groups the match records that explain nothing: statement
// transactions the ledger never saw and ledger transactions the bank never
// reported
type UnmatchedReport struct {
	StatementOnly []*MatchRecord `json:"statement_only"`
	LedgerOnly    []*MatchRecord `json:"ledger_only"`
}
