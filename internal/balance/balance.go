// Package balance recomputes a statement's running balance with exact
// integer minor-unit arithmetic. Floating point is never involved.
package balance

import (
	"github.com/bank-reconciliation-service/internal/domain/statement"
)

// Result holds the recomputed closing balance and its distance from the
// balance stated by the bank
type Result struct {
	CalculatedMinorUnits  int64
	DiscrepancyMinorUnits int64
}

// Reconcile computes calculated = opening + credits - debits over the
// statement's own transaction list and the absolute discrepancy against the
// stated closing balance. The pass/fail decision is the lifecycle's
// responsibility, not this package's.
func Reconcile(openingMinorUnits int64, txns []statement.Transaction, statedClosingMinorUnits int64) Result {
	calculated := openingMinorUnits
	for _, txn := range txns {
		if txn.IsCredit {
			calculated += txn.AmountMinorUnits
		} else {
			calculated -= txn.AmountMinorUnits
		}
	}

	discrepancy := statedClosingMinorUnits - calculated
	if discrepancy < 0 {
		discrepancy = -discrepancy
	}

	return Result{
		CalculatedMinorUnits:  calculated,
		DiscrepancyMinorUnits: discrepancy,
	}
}
