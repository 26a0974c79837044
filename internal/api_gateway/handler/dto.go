package handler

// StatementTransactionRequest is one statement line in a reconcile request.
// Dates use the YYYY-MM-DD form; amounts are integer minor units.
type StatementTransactionRequest struct {
	Date             string `json:"date" binding:"required"`
	Description      string `json:"description" binding:"required"`
	AmountMinorUnits int64  `json:"amount_minor_units" binding:"min=0"`
	IsCredit         bool   `json:"is_credit"`
	RunningBalance   *int64 `json:"running_balance,omitempty"`
}

// ReconcileRequest represents a request to reconcile a parsed statement
type ReconcileRequest struct {
	TenantID                 string                        `json:"tenant_id" binding:"required,uuid"`
	AccountID                string                        `json:"account_id" binding:"required,uuid"`
	AccountIdentifier        string                        `json:"account_identifier"`
	PeriodStart              string                        `json:"period_start" binding:"required"`
	PeriodEnd                string                        `json:"period_end" binding:"required"`
	OpeningBalanceMinorUnits int64                         `json:"opening_balance_minor_units"`
	ClosingBalanceMinorUnits int64                         `json:"closing_balance_minor_units"`
	Transactions             []StatementTransactionRequest `json:"transactions"`
}

// StatusCountsResponse aggregates match records per classification
type StatusCountsResponse struct {
	Matched        int `json:"matched"`
	StatementOnly  int `json:"statement_only"`
	LedgerOnly     int `json:"ledger_only"`
	AmountMismatch int `json:"amount_mismatch"`
	DateMismatch   int `json:"date_mismatch"`
}

// SummaryResponse represents a reconciliation run result in API responses
type SummaryResponse struct {
	ReconciliationID            string               `json:"reconciliation_id"`
	TenantID                    string               `json:"tenant_id"`
	AccountID                   string               `json:"account_id"`
	PeriodStart                 string               `json:"period_start"`
	PeriodEnd                   string               `json:"period_end"`
	OpeningBalanceMinorUnits    int64                `json:"opening_balance_minor_units"`
	ClosingBalanceMinorUnits    int64                `json:"closing_balance_minor_units"`
	CalculatedBalanceMinorUnits int64                `json:"calculated_balance_minor_units"`
	DiscrepancyMinorUnits       int64                `json:"discrepancy_minor_units"`
	Counts                      StatusCountsResponse `json:"counts"`
	Status                      string               `json:"status"`
	CompletedAt                 string               `json:"completed_at"`
}

// MatchRecordResponse represents a match record in API responses
type MatchRecordResponse struct {
	ID                        string   `json:"id"`
	ReconciliationID          string   `json:"reconciliation_id"`
	StatementDate             string   `json:"statement_date"`
	StatementDescription      string   `json:"statement_description"`
	StatementAmountMinorUnits int64    `json:"statement_amount_minor_units"`
	StatementIsCredit         bool     `json:"statement_is_credit"`
	LedgerTransactionID       *string  `json:"ledger_transaction_id,omitempty"`
	LedgerDate                *string  `json:"ledger_date,omitempty"`
	LedgerDescription         *string  `json:"ledger_description,omitempty"`
	LedgerAmountMinorUnits    *int64   `json:"ledger_amount_minor_units,omitempty"`
	LedgerIsCredit            *bool    `json:"ledger_is_credit,omitempty"`
	Status                    string   `json:"status"`
	Confidence                *float64 `json:"confidence,omitempty"`
	Note                      *string  `json:"note,omitempty"`
}

// MatchListResponse represents a list of match records in API responses
type MatchListResponse struct {
	Matches []MatchRecordResponse `json:"matches"`
}

// UnmatchedResponse groups unmatched records by side
type UnmatchedResponse struct {
	StatementOnly []MatchRecordResponse `json:"statement_only"`
	LedgerOnly    []MatchRecordResponse `json:"ledger_only"`
}

// PeriodResponse represents a reconciliation period in API responses
type PeriodResponse struct {
	ID                          string  `json:"id"`
	TenantID                    string  `json:"tenant_id"`
	AccountID                   string  `json:"account_id"`
	PeriodStart                 string  `json:"period_start"`
	PeriodEnd                   string  `json:"period_end"`
	OpeningBalanceMinorUnits    int64   `json:"opening_balance_minor_units"`
	ClosingBalanceMinorUnits    int64   `json:"closing_balance_minor_units"`
	CalculatedBalanceMinorUnits int64   `json:"calculated_balance_minor_units"`
	DiscrepancyMinorUnits       int64   `json:"discrepancy_minor_units"`
	Status                      string  `json:"status"`
	CompletedAt                 *string `json:"completed_at,omitempty"`
}
