package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bank-reconciliation-service/internal/domain/reconciliation"
	"github.com/bank-reconciliation-service/internal/domain/statement"
	"github.com/bank-reconciliation-service/internal/platform/messaging/producers"
	"github.com/bank-reconciliation-service/internal/service"
	"github.com/google/uuid"
)

// StatementParsedEvent is the payload published when a bank statement has
// been parsed and is ready for reconciliation.
type StatementParsedEvent struct {
	TenantID      uuid.UUID                 `json:"tenant_id"`
	AccountID     uuid.UUID                 `json:"account_id"`
	CorrelationID string                    `json:"correlation_id,omitempty"`
	Statement     statement.ParsedStatement `json:"statement"`
}

// StatementEventHandler handles incoming parsed statement messages from Kafka
type StatementEventHandler struct {
	reconciliationService service.ReconciliationService
	producer              producers.DeadLetterPublisher
	logger                *slog.Logger
}

// NewStatementEventHandler creates a new handler
func NewStatementEventHandler(
	logger *slog.Logger,
	reconciliationService service.ReconciliationService,
	producer producers.DeadLetterPublisher,
) *StatementEventHandler {
	return &StatementEventHandler{
		reconciliationService: reconciliationService,
		producer:              producer,
		logger:                logger,
	}
}

// HandleMessage processes Kafka messages
func (h *StatementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event StatementParsedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal statement event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		if h.deadLetter(ctx, key, value, fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())) {
			// Message handled, commit offset
			return nil
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received parsed statement for reconciliation",
		"tenant_id", event.TenantID.String(),
		"account_id", event.AccountID.String(),
		"period_start", event.Statement.PeriodStart,
		"period_end", event.Statement.PeriodEnd,
		"transaction_count", len(event.Statement.Transactions),
	)

	summary, err := h.reconciliationService.Reconcile(ctx, event.TenantID, event.AccountID, &event.Statement)
	if err != nil {
		var invalidPeriod statement.ErrInvalidPeriod
		var alreadyReconciled reconciliation.ErrPeriodAlreadyReconciled
		// Malformed statements, negative amounts and already finalized
		// periods will never succeed on retry, so route them to the DLQ
		// and commit.
		if errors.As(err, &invalidPeriod) || errors.As(err, &alreadyReconciled) || errors.Is(err, statement.ErrNegativeAmount) {
			logger.Warn("Statement event is not retryable",
				"tenant_id", event.TenantID.String(),
				"account_id", event.AccountID.String(),
				"error", err,
			)
			if h.deadLetter(ctx, key, value, err.Error()) {
				return nil
			}
		}

		logger.Error("Failed to reconcile statement",
			"tenant_id", event.TenantID.String(),
			"account_id", event.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("reconciling statement for account %s failed: %w", event.AccountID.String(), err)
	}

	logger.Info("Successfully reconciled statement",
		"reconciliation_id", summary.ReconciliationID.String(),
		"status", summary.Status,
		"discrepancy_minor_units", summary.DiscrepancyMinorUnits,
	)
	return nil // Success, commit offset
}

// deadLetter publishes the message to the DLQ and reports whether the
// original message can be committed.
func (h *StatementEventHandler) deadLetter(ctx context.Context, key []byte, value []byte, reason string) bool {
	if h.producer == nil {
		return false
	}
	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"message_key", string(key),
			"reason", reason,
		)
		return false
	}
	h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return true
}
