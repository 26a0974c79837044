package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is a business-recorded transaction sourced from the external
// ledger store. It is immutable input for a reconciliation run.
type Transaction struct {
	ID               uuid.UUID `json:"id" bson:"_id"`
	TenantID         uuid.UUID `json:"tenant_id" bson:"tenant_id"`
	AccountID        uuid.UUID `json:"account_id" bson:"account_id"`
	Date             time.Time `json:"date" bson:"date"`
	Description      string    `json:"description" bson:"description"`
	AmountMinorUnits int64     `json:"amount_minor_units" bson:"amount_minor_units"`
	IsCredit         bool      `json:"is_credit" bson:"is_credit"`
	Reconciled       bool      `json:"reconciled" bson:"reconciled"`
}
