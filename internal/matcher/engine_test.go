package matcher

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bank-reconciliation-service/internal/domain/ledger"
	"github.com/bank-reconciliation-service/internal/domain/reconciliation"
	"github.com/bank-reconciliation-service/internal/domain/statement"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func stmtTxn(d int, desc string, amount int64, credit bool) statement.Transaction {
	return statement.Transaction{
		Date:             day(d),
		Description:      desc,
		AmountMinorUnits: amount,
		IsCredit:         credit,
	}
}

func ledgerTxn(id uuid.UUID, d int, desc string, amount int64, credit bool) *ledger.Transaction {
	return &ledger.Transaction{
		ID:               id,
		Date:             day(d),
		Description:      desc,
		AmountMinorUnits: amount,
		IsCredit:         credit,
	}
}

func TestEngine_Match_ExactMatch(t *testing.T) {
	engine := New(Config{})
	reconciliationID := uuid.New()
	ledgerID := uuid.New()

	records := engine.Match(reconciliationID,
		[]statement.Transaction{stmtTxn(10, "AMAZON MARKETPLACE", 2599, false)},
		[]*ledger.Transaction{ledgerTxn(ledgerID, 10, "amazon marketplace", 2599, false)},
	)

	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, reconciliation.MatchStatusMatched, record.Status)
	assert.Equal(t, reconciliationID, record.ReconciliationID)
	require.NotNil(t, record.LedgerTransactionID)
	assert.Equal(t, ledgerID, *record.LedgerTransactionID)
	require.NotNil(t, record.Confidence)
	assert.Equal(t, 1.0, *record.Confidence)
	assert.Nil(t, record.Note)
}

func TestEngine_Match_DateWithinTolerance(t *testing.T) {
	engine := New(Config{})

	records := engine.Match(uuid.New(),
		[]statement.Transaction{stmtTxn(10, "monthly payroll", 250000, true)},
		[]*ledger.Transaction{ledgerTxn(uuid.New(), 11, "monthly payroll", 250000, true)},
	)

	require.Len(t, records, 1)
	assert.Equal(t, reconciliation.MatchStatusMatched, records[0].Status)
	require.NotNil(t, records[0].Confidence)
	assert.Equal(t, 1.0, *records[0].Confidence)
}

func TestEngine_Match_AmountMismatch(t *testing.T) {
	engine := New(Config{})

	records := engine.Match(uuid.New(),
		[]statement.Transaction{stmtTxn(10, "city utilities", 4200, false)},
		[]*ledger.Transaction{ledgerTxn(uuid.New(), 10, "city utilities", 4100, false)},
	)

	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, reconciliation.MatchStatusAmountMismatch, record.Status)
	require.NotNil(t, record.Confidence)
	assert.InDelta(t, 0.8, *record.Confidence, 1e-9)
	require.NotNil(t, record.Note)
	assert.Contains(t, *record.Note, "4200")
	assert.Contains(t, *record.Note, "4100")
}

func TestEngine_Match_DateMismatch(t *testing.T) {
	engine := New(Config{})

	records := engine.Match(uuid.New(),
		[]statement.Transaction{stmtTxn(10, "gym membership", 5999, false)},
		[]*ledger.Transaction{ledgerTxn(uuid.New(), 14, "gym membership", 5999, false)},
	)

	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, reconciliation.MatchStatusDateMismatch, record.Status)
	require.NotNil(t, record.Confidence)
	assert.InDelta(t, 0.9, *record.Confidence, 1e-9)
	require.NotNil(t, record.Note)
	assert.Contains(t, *record.Note, "4 day(s)")
}

func TestEngine_Match_DirectionNeverCrosses(t *testing.T) {
	engine := New(Config{})

	// Same amount but opposite direction is an amount mismatch, not a match.
	records := engine.Match(uuid.New(),
		[]statement.Transaction{stmtTxn(10, "wire transfer", 10000, true)},
		[]*ledger.Transaction{ledgerTxn(uuid.New(), 10, "wire transfer", 10000, false)},
	)

	require.Len(t, records, 1)
	assert.Equal(t, reconciliation.MatchStatusAmountMismatch, records[0].Status)
}

func TestEngine_Match_LowSimilarityIsIneligible(t *testing.T) {
	engine := New(Config{})
	reconciliationID := uuid.New()

	// Amount and date agree but the descriptions share nothing.
	records := engine.Match(reconciliationID,
		[]statement.Transaction{stmtTxn(10, "aaaa", 500, false)},
		[]*ledger.Transaction{ledgerTxn(uuid.New(), 10, "zzzz", 500, false)},
	)

	require.Len(t, records, 2)
	assert.Equal(t, reconciliation.MatchStatusStatementOnly, records[0].Status)
	assert.Nil(t, records[0].LedgerTransactionID)
	assert.Nil(t, records[0].Confidence)
	require.NotNil(t, records[0].Note)

	assert.Equal(t, reconciliation.MatchStatusLedgerOnly, records[1].Status)
	require.NotNil(t, records[1].LedgerTransactionID)
}

func TestEngine_Match_NeitherAmountNorDateIsIneligible(t *testing.T) {
	engine := New(Config{})

	// Identical descriptions cannot rescue a pair where both amount and
	// date disagree.
	records := engine.Match(uuid.New(),
		[]statement.Transaction{stmtTxn(10, "coffee shop", 450, false)},
		[]*ledger.Transaction{ledgerTxn(uuid.New(), 20, "coffee shop", 900, false)},
	)

	require.Len(t, records, 2)
	assert.Equal(t, reconciliation.MatchStatusStatementOnly, records[0].Status)
	assert.Equal(t, reconciliation.MatchStatusLedgerOnly, records[1].Status)
}

func TestEngine_Match_LedgerClaimedAtMostOnce(t *testing.T) {
	engine := New(Config{})

	records := engine.Match(uuid.New(),
		[]statement.Transaction{
			stmtTxn(10, "subscription fee", 999, false),
			stmtTxn(10, "subscription fee", 999, false),
		},
		[]*ledger.Transaction{ledgerTxn(uuid.New(), 10, "subscription fee", 999, false)},
	)

	require.Len(t, records, 2)
	assert.Equal(t, reconciliation.MatchStatusMatched, records[0].Status)
	assert.Equal(t, reconciliation.MatchStatusStatementOnly, records[1].Status)
}

func TestEngine_Match_HigherScoreWins(t *testing.T) {
	engine := New(Config{})
	exactID := uuid.New()

	// The exact pair scores 1.0 against 0.8 for the amount-mismatched one.
	records := engine.Match(uuid.New(),
		[]statement.Transaction{stmtTxn(10, "hardware store", 7550, false)},
		[]*ledger.Transaction{
			ledgerTxn(uuid.New(), 10, "hardware store", 7000, false),
			ledgerTxn(exactID, 10, "hardware store", 7550, false),
		},
	)

	require.Len(t, records, 2)
	require.NotNil(t, records[0].LedgerTransactionID)
	assert.Equal(t, exactID, *records[0].LedgerTransactionID)
	assert.Equal(t, reconciliation.MatchStatusMatched, records[0].Status)
	assert.Equal(t, reconciliation.MatchStatusLedgerOnly, records[1].Status)
}

func TestEngine_Match_TieBrokenByEarlierDate(t *testing.T) {
	engine := New(Config{})
	earlierID := uuid.New()

	records := engine.Match(uuid.New(),
		[]statement.Transaction{stmtTxn(10, "parking garage", 1200, false)},
		[]*ledger.Transaction{
			ledgerTxn(uuid.New(), 11, "parking garage", 1200, false),
			ledgerTxn(earlierID, 10, "parking garage", 1200, false),
		},
	)

	require.Len(t, records, 2)
	require.NotNil(t, records[0].LedgerTransactionID)
	assert.Equal(t, earlierID, *records[0].LedgerTransactionID)
}

func TestEngine_Match_TieBrokenByLowestID(t *testing.T) {
	engine := New(Config{})
	lowID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	highID := uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff")

	records := engine.Match(uuid.New(),
		[]statement.Transaction{stmtTxn(10, "parking garage", 1200, false)},
		[]*ledger.Transaction{
			ledgerTxn(highID, 10, "parking garage", 1200, false),
			ledgerTxn(lowID, 10, "parking garage", 1200, false),
		},
	)

	require.Len(t, records, 2)
	require.NotNil(t, records[0].LedgerTransactionID)
	assert.Equal(t, lowID, *records[0].LedgerTransactionID)
}

func TestEngine_Match_Deterministic(t *testing.T) {
	engine := New(Config{})
	reconciliationID := uuid.New()

	statementTxns := []statement.Transaction{
		stmtTxn(3, "grocery store", 5400, false),
		stmtTxn(7, "monthly payroll", 250000, true),
		stmtTxn(12, "streaming service", 1499, false),
	}
	ledgerTxns := []*ledger.Transaction{
		ledgerTxn(uuid.MustParse("11111111-1111-1111-1111-111111111111"), 3, "grocery store", 5400, false),
		ledgerTxn(uuid.MustParse("22222222-2222-2222-2222-222222222222"), 8, "monthly payroll", 250000, true),
		ledgerTxn(uuid.MustParse("33333333-3333-3333-3333-333333333333"), 12, "streaming service", 1399, false),
		ledgerTxn(uuid.MustParse("44444444-4444-4444-4444-444444444444"), 20, "bank fee", 500, false),
	}

	first := engine.Match(reconciliationID, statementTxns, ledgerTxns)
	second := engine.Match(reconciliationID, statementTxns, ledgerTxns)

	require.Len(t, first, 4)
	require.Len(t, second, 4)
	for i := range first {
		assert.Equal(t, first[i].Status, second[i].Status)
		assert.Equal(t, first[i].LedgerTransactionID, second[i].LedgerTransactionID)
	}

	counts := reconciliation.CountByStatus(first)
	assert.Equal(t, 2, counts.Matched)
	assert.Equal(t, 1, counts.AmountMismatch)
	assert.Equal(t, 1, counts.LedgerOnly)
}

func TestEngine_Match_LedgerOnlyMirrorsLedgerData(t *testing.T) {
	engine := New(Config{})
	ledgerID := uuid.New()

	records := engine.Match(uuid.New(),
		nil,
		[]*ledger.Transaction{ledgerTxn(ledgerID, 15, "interest earned", 321, true)},
	)

	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, reconciliation.MatchStatusLedgerOnly, record.Status)
	assert.Equal(t, day(15), record.StatementDate)
	assert.Equal(t, "interest earned", record.StatementDescription)
	assert.Equal(t, int64(321), record.StatementAmountMinorUnits)
	assert.True(t, record.StatementIsCredit)
	require.NotNil(t, record.LedgerTransactionID)
	assert.Equal(t, ledgerID, *record.LedgerTransactionID)
}

func TestEngine_Match_EmptyInputs(t *testing.T) {
	engine := New(Config{})

	assert.Empty(t, engine.Match(uuid.New(), nil, nil))
}

func TestEngine_Match_CustomThreshold(t *testing.T) {
	// kitten vs sitting similarity is ~0.571, below the default but above 0.5.
	engine := New(Config{SimilarityThreshold: 0.5})

	records := engine.Match(uuid.New(),
		[]statement.Transaction{stmtTxn(10, "kitten", 100, false)},
		[]*ledger.Transaction{ledgerTxn(uuid.New(), 10, "sitting", 100, false)},
	)

	require.Len(t, records, 1)
	assert.Equal(t, reconciliation.MatchStatusMatched, records[0].Status)
}

func TestDayDifference(t *testing.T) {
	t.Run("ignores time of day", func(t *testing.T) {
		a := time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC)
		b := time.Date(2026, time.March, 11, 0, 1, 0, 0, time.UTC)
		assert.Equal(t, -1, dayDifference(a, b))
	})

	t.Run("same day", func(t *testing.T) {
		a := time.Date(2026, time.March, 10, 1, 0, 0, 0, time.UTC)
		b := time.Date(2026, time.March, 10, 22, 0, 0, 0, time.UTC)
		assert.Equal(t, 0, dayDifference(a, b))
	})

	t.Run("across month boundary", func(t *testing.T) {
		a := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
		b := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 1, dayDifference(a, b))
	})
}
