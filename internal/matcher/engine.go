// Package matcher implements the statement-to-ledger match engine. It is a
// pure computation over in-memory transaction lists with no I/O, safe to call
// from any goroutine.
package matcher

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/bank-reconciliation-service/internal/domain/ledger"
	"github.com/bank-reconciliation-service/internal/domain/reconciliation"
	"github.com/bank-reconciliation-service/internal/domain/statement"
)

const (
	// DefaultSimilarityThreshold is the minimum description similarity for a
	// pair to be considered at all
	DefaultSimilarityThreshold = 0.7
	// DefaultDateToleranceDays is the maximum day difference still treated as
	// the same date
	DefaultDateToleranceDays = 1

	amountMismatchMultiplier = 0.8
	dateMismatchMultiplier   = 0.9
)

// Config tunes the match engine. The zero value is not usable; construct
// engines with New, which applies the defaults.
type Config struct {
	SimilarityThreshold float64
	DateToleranceDays   int
}

// Engine pairs statement transactions against ledger transactions using a
// greedy best-score assignment
type Engine struct {
	cfg Config
}

// New creates a match engine, filling unset config fields with defaults
func New(cfg Config) *Engine {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.DateToleranceDays <= 0 {
		cfg.DateToleranceDays = DefaultDateToleranceDays
	}
	return &Engine{cfg: cfg}
}

// candidate is an eligible (statement, ledger) pairing under consideration
type candidate struct {
	txn    *ledger.Transaction
	score  float64
	status reconciliation.MatchStatus
	note   string
}

// Match classifies every statement transaction against the ledger and emits
// one record per statement transaction plus one LEDGER_ONLY record per
// unclaimed ledger transaction. The result is deterministic for identical
// inputs: ties on score are broken by earliest ledger date, then lowest
// ledger transaction ID.
func (e *Engine) Match(reconciliationID uuid.UUID, statementTxns []statement.Transaction, ledgerTxns []*ledger.Transaction) []*reconciliation.MatchRecord {
	records := make([]*reconciliation.MatchRecord, 0, len(statementTxns)+len(ledgerTxns))

	// Claimed set is local to this call; the engine holds no state between runs.
	claimed := make(map[uuid.UUID]struct{}, len(ledgerTxns))

	for i := range statementTxns {
		stmtTxn := &statementTxns[i]

		var best *candidate
		for _, ledgerTxn := range ledgerTxns {
			if _, ok := claimed[ledgerTxn.ID]; ok {
				continue
			}
			cand := e.score(stmtTxn, ledgerTxn)
			if cand == nil {
				continue
			}
			if best == nil || better(cand, best) {
				best = cand
			}
		}

		if best == nil {
			records = append(records, statementOnlyRecord(reconciliationID, stmtTxn))
			continue
		}

		claimed[best.txn.ID] = struct{}{}
		records = append(records, pairedRecord(reconciliationID, stmtTxn, best))
	}

	for _, ledgerTxn := range ledgerTxns {
		if _, ok := claimed[ledgerTxn.ID]; ok {
			continue
		}
		records = append(records, ledgerOnlyRecord(reconciliationID, ledgerTxn))
	}

	return records
}

// score evaluates one (statement, ledger) pair. It returns nil when the pair
// is not eligible for selection.
func (e *Engine) score(stmtTxn *statement.Transaction, ledgerTxn *ledger.Transaction) *candidate {
	amountMatches := stmtTxn.AmountMinorUnits == ledgerTxn.AmountMinorUnits &&
		stmtTxn.IsCredit == ledgerTxn.IsCredit
	dayDiff := dayDifference(stmtTxn.Date, ledgerTxn.Date)
	dateMatches := absInt(dayDiff) <= e.cfg.DateToleranceDays
	similarity := Similarity(stmtTxn.Description, ledgerTxn.Description)

	if similarity < e.cfg.SimilarityThreshold {
		return nil
	}

	switch {
	case amountMatches && dateMatches:
		return &candidate{
			txn:    ledgerTxn,
			score:  similarity,
			status: reconciliation.MatchStatusMatched,
		}
	case dateMatches:
		return &candidate{
			txn:    ledgerTxn,
			score:  similarity * amountMismatchMultiplier,
			status: reconciliation.MatchStatusAmountMismatch,
			note: fmt.Sprintf("amount differs: statement %d, ledger %d minor units",
				stmtTxn.AmountMinorUnits, ledgerTxn.AmountMinorUnits),
		}
	case amountMatches:
		return &candidate{
			txn:    ledgerTxn,
			score:  similarity * dateMismatchMultiplier,
			status: reconciliation.MatchStatusDateMismatch,
			note:   fmt.Sprintf("date differs by %d day(s)", absInt(dayDiff)),
		}
	default:
		// Neither amount nor date agrees; never selected regardless of score.
		return nil
	}
}

// better reports whether a should be preferred over b. Higher score wins;
// ties go to the earlier ledger date, then the lower ledger transaction ID.
func better(a, b *candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if !a.txn.Date.Equal(b.txn.Date) {
		return a.txn.Date.Before(b.txn.Date)
	}
	return compareUUID(a.txn.ID, b.txn.ID) < 0
}

func pairedRecord(reconciliationID uuid.UUID, stmtTxn *statement.Transaction, cand *candidate) *reconciliation.MatchRecord {
	record := &reconciliation.MatchRecord{
		ID:                        uuid.New(),
		ReconciliationID:          reconciliationID,
		StatementDate:             stmtTxn.Date,
		StatementDescription:      stmtTxn.Description,
		StatementAmountMinorUnits: stmtTxn.AmountMinorUnits,
		StatementIsCredit:         stmtTxn.IsCredit,
		Status:                    cand.status,
		CreatedAt:                 time.Now().UTC(),
	}

	ledgerID := cand.txn.ID
	ledgerDate := cand.txn.Date
	ledgerDescription := cand.txn.Description
	ledgerAmount := cand.txn.AmountMinorUnits
	ledgerIsCredit := cand.txn.IsCredit
	record.LedgerTransactionID = &ledgerID
	record.LedgerDate = &ledgerDate
	record.LedgerDescription = &ledgerDescription
	record.LedgerAmountMinorUnits = &ledgerAmount
	record.LedgerIsCredit = &ledgerIsCredit

	confidence := cand.score
	record.Confidence = &confidence
	if cand.note != "" {
		note := cand.note
		record.Note = &note
	}

	return record
}

func statementOnlyRecord(reconciliationID uuid.UUID, stmtTxn *statement.Transaction) *reconciliation.MatchRecord {
	note := "no ledger transaction with acceptable similarity"
	return &reconciliation.MatchRecord{
		ID:                        uuid.New(),
		ReconciliationID:          reconciliationID,
		StatementDate:             stmtTxn.Date,
		StatementDescription:      stmtTxn.Description,
		StatementAmountMinorUnits: stmtTxn.AmountMinorUnits,
		StatementIsCredit:         stmtTxn.IsCredit,
		Status:                    reconciliation.MatchStatusStatementOnly,
		Note:                      &note,
		CreatedAt:                 time.Now().UTC(),
	}
}

// ledgerOnlyRecord mirrors the ledger transaction into the statement-side
// columns so every record carries a date, description and amount.
func ledgerOnlyRecord(reconciliationID uuid.UUID, ledgerTxn *ledger.Transaction) *reconciliation.MatchRecord {
	ledgerID := ledgerTxn.ID
	ledgerDate := ledgerTxn.Date
	ledgerDescription := ledgerTxn.Description
	ledgerAmount := ledgerTxn.AmountMinorUnits
	ledgerIsCredit := ledgerTxn.IsCredit
	note := "ledger transaction not present on statement"

	return &reconciliation.MatchRecord{
		ID:                        uuid.New(),
		ReconciliationID:          reconciliationID,
		StatementDate:             ledgerTxn.Date,
		StatementDescription:      ledgerTxn.Description,
		StatementAmountMinorUnits: ledgerTxn.AmountMinorUnits,
		StatementIsCredit:         ledgerTxn.IsCredit,
		LedgerTransactionID:       &ledgerID,
		LedgerDate:                &ledgerDate,
		LedgerDescription:         &ledgerDescription,
		LedgerAmountMinorUnits:    &ledgerAmount,
		LedgerIsCredit:            &ledgerIsCredit,
		Status:                    reconciliation.MatchStatusLedgerOnly,
		Note:                      &note,
		CreatedAt:                 time.Now().UTC(),
	}
}

// dayDifference returns the whole-day difference between two instants,
// ignoring the time-of-day component
func dayDifference(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(math.Round(da.Sub(db).Hours() / 24))
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// compareUUID orders UUIDs lexicographically over their byte representation
func compareUUID(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
