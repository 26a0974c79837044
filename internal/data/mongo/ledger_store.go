// Package mongo adapts the external MongoDB ledger transaction store to the
// ledger.Store contract. The reconciliation engine only reads from it and,
// once a period is reconciled, flags the matched transactions.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bank-reconciliation-service/internal/domain/ledger"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// LedgerCollectionName is the name of the ledger transaction collection in MongoDB
	LedgerCollectionName = "ledger_transactions"
)

// LedgerStore implements the ledger.Store interface for MongoDB
type LedgerStore struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerStore creates a new MongoDB ledger store
func NewLedgerStore(logger *slog.Logger, db *mongo.Database) ledger.Store {
	return &LedgerStore{
		db:     db,
		logger: logger,
	}
}

// FindTransactions returns the account's ledger transactions dated within
// [start, end], sorted by date then ID so the match engine sees a stable order.
func (s *LedgerStore) FindTransactions(ctx context.Context, tenantID, accountID uuid.UUID, start, end time.Time) ([]*ledger.Transaction, error) {
	collection := s.db.Collection(LedgerCollectionName)

	filter := bson.M{
		"tenant_id":  tenantID,
		"account_id": accountID,
		"date": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		s.logger.Error("Failed to find ledger transactions",
			"account_id", accountID.String(),
			"error", err)
		return nil, ledger.ErrFetchFailed{AccountID: accountID, Err: err}
	}
	defer cursor.Close(ctx)

	var transactions []*ledger.Transaction
	if err := cursor.All(ctx, &transactions); err != nil {
		s.logger.Error("Failed to decode ledger transactions",
			"account_id", accountID.String(),
			"error", err)
		return nil, ledger.ErrFetchFailed{AccountID: accountID, Err: err}
	}

	return transactions, nil
}

// MarkReconciled flags the given ledger transactions as reconciled under the
// given reconciliation
func (s *LedgerStore) MarkReconciled(ctx context.Context, tenantID uuid.UUID, transactionIDs []uuid.UUID, reconciliationID uuid.UUID) error {
	if len(transactionIDs) == 0 {
		return nil
	}

	collection := s.db.Collection(LedgerCollectionName)

	filter := bson.M{
		"tenant_id": tenantID,
		"_id":       bson.M{"$in": transactionIDs},
	}
	update := bson.M{
		"$set": bson.M{
			"reconciled":        true,
			"reconciliation_id": reconciliationID,
			"reconciled_at":     time.Now().UTC(),
		},
	}

	result, err := collection.UpdateMany(ctx, filter, update)
	if err != nil {
		s.logger.Error("Failed to mark ledger transactions reconciled",
			"reconciliation_id", reconciliationID.String(),
			"error", err)
		return fmt.Errorf("failed to mark ledger transactions reconciled: %w", err)
	}

	if result.ModifiedCount != int64(len(transactionIDs)) {
		s.logger.Warn("Not all ledger transactions were marked reconciled",
			"reconciliation_id", reconciliationID.String(),
			"expected", len(transactionIDs),
			"modified", result.ModifiedCount,
		)
	}

	return nil
}
