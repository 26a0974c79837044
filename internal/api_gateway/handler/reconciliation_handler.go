package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/bank-reconciliation-service/internal/domain/ledger"
	"github.com/bank-reconciliation-service/internal/domain/reconciliation"
	"github.com/bank-reconciliation-service/internal/domain/statement"
	"github.com/bank-reconciliation-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// ReconciliationHandler handles HTTP requests for reconciliation operations
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// Reconcile runs a reconciliation for the submitted parsed statement
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		RespondBadRequest(c, "Invalid tenant ID")
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	stmt, err := mapRequestToStatement(&req)
	if err != nil {
		h.logger.Error("Invalid statement payload", "error", err)
		RespondBadRequest(c, err.Error())
		return
	}

	summary, err := h.reconciliationService.Reconcile(c.Request.Context(), tenantID, accountID, stmt)
	if err != nil {
		var invalidPeriod statement.ErrInvalidPeriod
		if errors.As(err, &invalidPeriod) {
			RespondBadRequest(c, invalidPeriod.Error())
			return
		}
		var alreadyReconciled reconciliation.ErrPeriodAlreadyReconciled
		if errors.As(err, &alreadyReconciled) {
			h.logger.Warn("Attempt to re-run a reconciled period",
				"tenant_id", req.TenantID,
				"account_id", req.AccountID,
			)
			RespondConflict(c, alreadyReconciled.Error())
			return
		}
		var fetchFailed ledger.ErrFetchFailed
		if errors.As(err, &fetchFailed) {
			h.logger.Error("Ledger store unavailable", "error", err)
			RespondBadGateway(c, "Ledger store unavailable")
			return
		}
		h.logger.Error("Failed to reconcile statement", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapSummaryToResponse(summary))
}

// GetMatches retrieves all match records of a reconciliation
func (h *ReconciliationHandler) GetMatches(c *gin.Context) {
	id, ok := h.parseReconciliationID(c)
	if !ok {
		return
	}

	matches, err := h.reconciliationService.GetMatches(c.Request.Context(), id)
	if err != nil {
		h.respondQueryError(c, id, err)
		return
	}

	response := MatchListResponse{Matches: make([]MatchRecordResponse, 0, len(matches))}
	for _, m := range matches {
		response.Matches = append(response.Matches, mapMatchToResponse(m))
	}
	RespondOK(c, response)
}

// GetUnmatched retrieves the statement-only and ledger-only records of a reconciliation
func (h *ReconciliationHandler) GetUnmatched(c *gin.Context) {
	id, ok := h.parseReconciliationID(c)
	if !ok {
		return
	}

	report, err := h.reconciliationService.GetUnmatched(c.Request.Context(), id)
	if err != nil {
		h.respondQueryError(c, id, err)
		return
	}

	response := UnmatchedResponse{
		StatementOnly: make([]MatchRecordResponse, 0, len(report.StatementOnly)),
		LedgerOnly:    make([]MatchRecordResponse, 0, len(report.LedgerOnly)),
	}
	for _, m := range report.StatementOnly {
		response.StatementOnly = append(response.StatementOnly, mapMatchToResponse(m))
	}
	for _, m := range report.LedgerOnly {
		response.LedgerOnly = append(response.LedgerOnly, mapMatchToResponse(m))
	}
	RespondOK(c, response)
}

// GetPeriod retrieves a reconciliation period by tenant, account and period start
func (h *ReconciliationHandler) GetPeriod(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid tenant ID")
		return
	}
	accountID, err := uuid.Parse(c.Query("account_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}
	periodStart, err := parseDate(c.Query("period_start"))
	if err != nil {
		RespondBadRequest(c, "Invalid period start, expected YYYY-MM-DD or RFC3339")
		return
	}

	period, err := h.reconciliationService.GetPeriod(c.Request.Context(), tenantID, accountID, periodStart)
	if err != nil {
		h.logger.Error("Failed to get reconciliation period", "error", err)
		RespondInternalError(c)
		return
	}
	if period == nil {
		RespondNotFound(c, "No reconciliation recorded for this period")
		return
	}

	RespondOK(c, mapPeriodToResponse(period))
}

func (h *ReconciliationHandler) parseReconciliationID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid reconciliation ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid reconciliation ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ReconciliationHandler) respondQueryError(c *gin.Context, id uuid.UUID, err error) {
	var notFound reconciliation.ErrPeriodNotFound
	if errors.As(err, &notFound) {
		RespondNotFound(c, "Reconciliation not found")
		return
	}
	h.logger.Error("Failed to query reconciliation", "id", id.String(), "error", err)
	RespondInternalError(c)
}

// mapRequestToStatement converts the request DTO into the domain statement,
// parsing all dates
func mapRequestToStatement(req *ReconcileRequest) (*statement.ParsedStatement, error) {
	periodStart, err := parseDate(req.PeriodStart)
	if err != nil {
		return nil, statement.ErrInvalidPeriod{Reason: "period start: " + err.Error()}
	}
	periodEnd, err := parseDate(req.PeriodEnd)
	if err != nil {
		return nil, statement.ErrInvalidPeriod{Reason: "period end: " + err.Error()}
	}

	stmt := &statement.ParsedStatement{
		AccountIdentifier:        req.AccountIdentifier,
		PeriodStart:              periodStart,
		PeriodEnd:                periodEnd,
		OpeningBalanceMinorUnits: req.OpeningBalanceMinorUnits,
		ClosingBalanceMinorUnits: req.ClosingBalanceMinorUnits,
		Transactions:             make([]statement.Transaction, 0, len(req.Transactions)),
	}

	for _, t := range req.Transactions {
		date, err := parseDate(t.Date)
		if err != nil {
			return nil, statement.ErrInvalidPeriod{Reason: "transaction date: " + err.Error()}
		}
		stmt.Transactions = append(stmt.Transactions, statement.Transaction{
			Date:             date,
			Description:      t.Description,
			AmountMinorUnits: t.AmountMinorUnits,
			IsCredit:         t.IsCredit,
			RunningBalance:   t.RunningBalance,
		})
	}

	return stmt, nil
}

// parseDate accepts YYYY-MM-DD and falls back to RFC3339
func parseDate(value string) (time.Time, error) {
	if d, err := time.Parse(dateLayout, value); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, value)
}

func mapSummaryToResponse(s *reconciliation.Summary) SummaryResponse {
	return SummaryResponse{
		ReconciliationID:            s.ReconciliationID.String(),
		TenantID:                    s.TenantID.String(),
		AccountID:                   s.AccountID.String(),
		PeriodStart:                 s.PeriodStart.Format(dateLayout),
		PeriodEnd:                   s.PeriodEnd.Format(dateLayout),
		OpeningBalanceMinorUnits:    s.OpeningBalanceMinorUnits,
		ClosingBalanceMinorUnits:    s.ClosingBalanceMinorUnits,
		CalculatedBalanceMinorUnits: s.CalculatedBalanceMinorUnits,
		DiscrepancyMinorUnits:       s.DiscrepancyMinorUnits,
		Counts: StatusCountsResponse{
			Matched:        s.Counts.Matched,
			StatementOnly:  s.Counts.StatementOnly,
			LedgerOnly:     s.Counts.LedgerOnly,
			AmountMismatch: s.Counts.AmountMismatch,
			DateMismatch:   s.Counts.DateMismatch,
		},
		Status:      string(s.Status),
		CompletedAt: s.CompletedAt.Format(time.RFC3339),
	}
}

func mapMatchToResponse(m *reconciliation.MatchRecord) MatchRecordResponse {
	resp := MatchRecordResponse{
		ID:                        m.ID.String(),
		ReconciliationID:          m.ReconciliationID.String(),
		StatementDate:             m.StatementDate.Format(dateLayout),
		StatementDescription:      m.StatementDescription,
		StatementAmountMinorUnits: m.StatementAmountMinorUnits,
		StatementIsCredit:         m.StatementIsCredit,
		LedgerAmountMinorUnits:    m.LedgerAmountMinorUnits,
		LedgerIsCredit:            m.LedgerIsCredit,
		LedgerDescription:         m.LedgerDescription,
		Status:                    string(m.Status),
		Confidence:                m.Confidence,
		Note:                      m.Note,
	}
	if m.LedgerTransactionID != nil {
		id := m.LedgerTransactionID.String()
		resp.LedgerTransactionID = &id
	}
	if m.LedgerDate != nil {
		date := m.LedgerDate.Format(dateLayout)
		resp.LedgerDate = &date
	}
	return resp
}

func mapPeriodToResponse(p *reconciliation.Period) PeriodResponse {
	resp := PeriodResponse{
		ID:                          p.ID.String(),
		TenantID:                    p.TenantID.String(),
		AccountID:                   p.AccountID.String(),
		PeriodStart:                 p.PeriodStart.Format(dateLayout),
		PeriodEnd:                   p.PeriodEnd.Format(dateLayout),
		OpeningBalanceMinorUnits:    p.OpeningBalanceMinorUnits,
		ClosingBalanceMinorUnits:    p.ClosingBalanceMinorUnits,
		CalculatedBalanceMinorUnits: p.CalculatedBalanceMinorUnits,
		DiscrepancyMinorUnits:       p.DiscrepancyMinorUnits,
		Status:                      string(p.Status),
	}
	if p.CompletedAt != nil {
		completed := p.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}
