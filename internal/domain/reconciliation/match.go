package reconciliation

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus defines the classification of a match record
type MatchStatus string

const (
	// MatchStatusMatched pairs a statement and a ledger transaction on
	// amount, date and description
	MatchStatusMatched MatchStatus = "MATCHED"
	// MatchStatusStatementOnly marks a statement transaction with no
	// acceptable ledger candidate
	MatchStatusStatementOnly MatchStatus = "STATEMENT_ONLY"
	// MatchStatusLedgerOnly marks a ledger transaction never claimed by any
	// statement transaction
	MatchStatusLedgerOnly MatchStatus = "LEDGER_ONLY"
	// MatchStatusAmountMismatch pairs transactions that agree on date and
	// description but differ in amount
	MatchStatusAmountMismatch MatchStatus = "AMOUNT_MISMATCH"
	// MatchStatusDateMismatch pairs transactions that agree on amount and
	// description but fall outside the date tolerance
	MatchStatusDateMismatch MatchStatus = "DATE_MISMATCH"
)

// MatchRecord is the outcome of pairing one statement transaction with zero
// or one ledger transactions. For LEDGER_ONLY records the statement-side
// fields are populated from the ledger transaction so that date, description
// and amount are always present.
type MatchRecord struct {
	ID               uuid.UUID `json:"id"`
	ReconciliationID uuid.UUID `json:"reconciliation_id"`

	StatementDate             time.Time `json:"statement_date"`
	StatementDescription      string    `json:"statement_description"`
	StatementAmountMinorUnits int64     `json:"statement_amount_minor_units"`
	StatementIsCredit         bool      `json:"statement_is_credit"`

	LedgerTransactionID    *uuid.UUID `json:"ledger_transaction_id,omitempty"`
	LedgerDate             *time.Time `json:"ledger_date,omitempty"`
	LedgerDescription      *string    `json:"ledger_description,omitempty"`
	LedgerAmountMinorUnits *int64     `json:"ledger_amount_minor_units,omitempty"`
	LedgerIsCredit         *bool      `json:"ledger_is_credit,omitempty"`

	Status     MatchStatus `json:"status"`
	Confidence *float64    `json:"confidence,omitempty"`
	Note       *string     `json:"note,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// HasLedgerSide reports whether the record references a ledger transaction
func (m *MatchRecord) HasLedgerSide() bool {
	return m.LedgerTransactionID != nil
}

// StatusCounts aggregates match records per classification
type StatusCounts struct {
	Matched        int `json:"matched"`
	StatementOnly  int `json:"statement_only"`
	LedgerOnly     int `json:"ledger_only"`
	AmountMismatch int `json:"amount_mismatch"`
	DateMismatch   int `json:"date_mismatch"`
}

// CountByStatus tallies match records per classification
func CountByStatus(matches []*MatchRecord) StatusCounts {
	var counts StatusCounts
	for _, m := range matches {
		switch m.Status {
		case MatchStatusMatched:
			counts.Matched++
		case MatchStatusStatementOnly:
			counts.StatementOnly++
		case MatchStatusLedgerOnly:
			counts.LedgerOnly++
		case MatchStatusAmountMismatch:
			counts.AmountMismatch++
		case MatchStatusDateMismatch:
			counts.DateMismatch++
		}
	}
	return counts
}
