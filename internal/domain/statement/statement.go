package statement

import (
	"errors"
	"time"
)

// ErrNegativeAmount indicates a statement transaction with a negative amount.
// Direction is carried by IsCredit, so amounts must be non-negative.
var ErrNegativeAmount = errors.New("transaction amount cannot be negative")

// Transaction is a single transaction as reported by the bank on a statement.
// Amounts are stored in minor currency units (cents) with the direction
// carried by IsCredit rather than the sign.
type Transaction struct {
	Date             time.Time `json:"date"`
	Description      string    `json:"description"`
	AmountMinorUnits int64     `json:"amount_minor_units"`
	IsCredit         bool      `json:"is_credit"`
	RunningBalance   *int64    `json:"running_balance,omitempty"`
}

// ParsedStatement is the structured output of the statement normalizer for
// one account and one period. It is immutable input to a reconciliation run.
type ParsedStatement struct {
	AccountIdentifier        string        `json:"account_identifier"`
	PeriodStart              time.Time     `json:"period_start"`
	PeriodEnd                time.Time     `json:"period_end"`
	OpeningBalanceMinorUnits int64         `json:"opening_balance_minor_units"`
	ClosingBalanceMinorUnits int64         `json:"closing_balance_minor_units"`
	Transactions             []Transaction `json:"transactions"`
}

// ErrInvalidPeriod indicates a malformed statement period
type ErrInvalidPeriod struct {
	Reason string
}

func (e ErrInvalidPeriod) Error() string {
	return "invalid statement period: " + e.Reason
}

// Is implements the errors.Is interface for ErrInvalidPeriod
func (e ErrInvalidPeriod) Is(target error) bool {
	_, ok := target.(ErrInvalidPeriod)
	return ok
}

// Validate checks the structural invariants the reconciliation engine relies
// on. Parsing correctness is the normalizer's responsibility and is not
// re-validated here.
func (s *ParsedStatement) Validate() error {
	if s.PeriodStart.IsZero() || s.PeriodEnd.IsZero() {
		return ErrInvalidPeriod{Reason: "period start and end are required"}
	}
	if s.PeriodEnd.Before(s.PeriodStart) {
		return ErrInvalidPeriod{Reason: "period end is before period start"}
	}
	for _, txn := range s.Transactions {
		if txn.AmountMinorUnits < 0 {
			return ErrNegativeAmount
		}
	}
	return nil
}
