package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bank-reconciliation-service/internal/domain/reconciliation"
	"github.com/bank-reconciliation-service/internal/domain/statement"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolReconciliationService bounds the number of concurrent
// reconciliation runs. Different account-periods reconcile in parallel; the
// per-period serialization lives in the persistence layer, not here.
type WorkerPoolReconciliationService struct {
	baseService ReconciliationService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan reconcileResult
}

type reconcileResult struct {
	summary *reconciliation.Summary
	err     error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolReconciliationService(
	baseService ReconciliationService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolReconciliationService, error) {
	// Create a new worker pool with the specified size
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolReconciliationService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan reconcileResult),
	}, nil
}

// Reconcile submits the run to the worker pool and waits for its result
func (s *WorkerPoolReconciliationService) Reconcile(ctx context.Context, tenantID, accountID uuid.UUID, stmt *statement.ParsedStatement) (*reconciliation.Summary, error) {
	runKey := fmt.Sprintf("%s:%s:%s", tenantID.String(), accountID.String(), stmt.PeriodStart.Format("2006-01-02"))

	s.logger.Info("Submitting reconciliation run to worker pool",
		"tenant_id", tenantID.String(),
		"account_id", accountID.String(),
		"period_start", stmt.PeriodStart.Format("2006-01-02"),
	)

	// Create a channel to receive the result of the run
	resultChan := make(chan reconcileResult, 1)

	// Store the result channel in the result map
	s.mu.Lock()
	s.results[runKey] = resultChan
	s.mu.Unlock()

	// Create a copy of the statement to avoid data races
	stmtCopy := *stmt

	// Submit the task to the worker pool
	err := s.pool.Submit(func() {
		summary, runErr := s.baseService.Reconcile(ctx, tenantID, accountID, &stmtCopy)

		resultChan <- reconcileResult{summary: summary, err: runErr}

		// Remove the result channel from the map
		s.mu.Lock()
		delete(s.results, runKey)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		// If we couldn't submit the task to the pool, remove the result channel
		s.mu.Lock()
		delete(s.results, runKey)
		close(resultChan)
		s.mu.Unlock()

		s.logger.Error("Failed to submit reconciliation run to worker pool",
			"run_key", runKey,
			"error", err,
		)
		return nil, err
	}

	// Wait for the result from the worker
	result := <-resultChan
	return result.summary, result.err
}

// GetMatches delegates to the base service; queries do not go through the pool
func (s *WorkerPoolReconciliationService) GetMatches(ctx context.Context, reconciliationID uuid.UUID) ([]*reconciliation.MatchRecord, error) {
	return s.baseService.GetMatches(ctx, reconciliationID)
}

// GetUnmatched delegates to the base service
func (s *WorkerPoolReconciliationService) GetUnmatched(ctx context.Context, reconciliationID uuid.UUID) (*reconciliation.UnmatchedReport, error) {
	return s.baseService.GetUnmatched(ctx, reconciliationID)
}

// GetPeriod delegates to the base service
func (s *WorkerPoolReconciliationService) GetPeriod(ctx context.Context, tenantID, accountID uuid.UUID, periodStart time.Time) (*reconciliation.Period, error) {
	return s.baseService.GetPeriod(ctx, tenantID, accountID, periodStart)
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolReconciliationService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolReconciliationService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolReconciliationService) Capacity() int {
	return s.pool.Cap()
}
