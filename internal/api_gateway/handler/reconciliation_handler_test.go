package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bank-reconciliation-service/internal/domain/ledger"
	"github.com/bank-reconciliation-service/internal/domain/reconciliation"
	"github.com/bank-reconciliation-service/internal/domain/statement"
)

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) Reconcile(ctx context.Context, tenantID, accountID uuid.UUID, stmt *statement.ParsedStatement) (*reconciliation.Summary, error) {
	args := m.Called(ctx, tenantID, accountID, stmt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Summary), args.Error(1)
}

func (m *MockReconciliationService) GetMatches(ctx context.Context, reconciliationID uuid.UUID) ([]*reconciliation.MatchRecord, error) {
	args := m.Called(ctx, reconciliationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reconciliation.MatchRecord), args.Error(1)
}

func (m *MockReconciliationService) GetUnmatched(ctx context.Context, reconciliationID uuid.UUID) (*reconciliation.UnmatchedReport, error) {
	args := m.Called(ctx, reconciliationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.UnmatchedReport), args.Error(1)
}

func (m *MockReconciliationService) GetPeriod(ctx context.Context, tenantID, accountID uuid.UUID, periodStart time.Time) (*reconciliation.Period, error) {
	args := m.Called(ctx, tenantID, accountID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Period), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	return r
}

func validReconcileRequest(tenantID, accountID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":                   tenantID.String(),
		"account_id":                  accountID.String(),
		"account_identifier":          "DE89370400440532013000",
		"period_start":                "2026-03-01",
		"period_end":                  "2026-03-31",
		"opening_balance_minor_units": 100000,
		"closing_balance_minor_units": 94600,
		"transactions": []map[string]interface{}{
			{
				"date":               "2026-03-05",
				"description":        "grocery store",
				"amount_minor_units": 5400,
				"is_credit":          false,
			},
		},
	}
}

func TestReconciliationHandler_Reconcile(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	tenantID := uuid.New()
	accountID := uuid.New()

	postReconcile := func(h *ReconciliationHandler, body interface{}) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.POST("/api/v1/reconciliations", h.Reconcile)

		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reconciliations", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		summary := &reconciliation.Summary{
			ReconciliationID:            uuid.New(),
			TenantID:                    tenantID,
			AccountID:                   accountID,
			PeriodStart:                 time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:                   time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
			OpeningBalanceMinorUnits:    100000,
			ClosingBalanceMinorUnits:    94600,
			CalculatedBalanceMinorUnits: 94600,
			Counts:                      reconciliation.StatusCounts{Matched: 1},
			Status:                      reconciliation.StatusReconciled,
			CompletedAt:                 time.Now().UTC(),
		}
		mockService.On("Reconcile", mock.Anything, tenantID, accountID, mock.AnythingOfType("*statement.ParsedStatement")).Return(summary, nil)

		w := postReconcile(handler, validReconcileRequest(tenantID, accountID))

		assert.Equal(t, http.StatusCreated, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data, err := json.Marshal(response.Data)
		require.NoError(t, err)
		var got SummaryResponse
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, summary.ReconciliationID.String(), got.ReconciliationID)
		assert.Equal(t, "RECONCILED", got.Status)
		assert.Equal(t, 1, got.Counts.Matched)

		mockService.AssertExpectations(t)
	})

	t.Run("MissingRequiredFields", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		w := postReconcile(handler, map[string]interface{}{"tenant_id": tenantID.String()})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnparseableDate", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		body := validReconcileRequest(tenantID, accountID)
		body["period_start"] = "March 1st 2026"

		w := postReconcile(handler, body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InvalidPeriod", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		mockService.On("Reconcile", mock.Anything, tenantID, accountID, mock.Anything).
			Return(nil, statement.ErrInvalidPeriod{Reason: "period end is before period start"})

		body := validReconcileRequest(tenantID, accountID)
		body["period_start"] = "2026-03-31"
		body["period_end"] = "2026-03-01"

		w := postReconcile(handler, body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("AlreadyReconciled", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		mockService.On("Reconcile", mock.Anything, tenantID, accountID, mock.Anything).
			Return(nil, reconciliation.ErrPeriodAlreadyReconciled{
				TenantID:    tenantID,
				AccountID:   accountID,
				PeriodStart: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
			})

		w := postReconcile(handler, validReconcileRequest(tenantID, accountID))

		assert.Equal(t, http.StatusConflict, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.NotNil(t, response.Error)
		assert.Equal(t, "CONFLICT", response.Error.Code)
	})

	t.Run("LedgerStoreUnavailable", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		mockService.On("Reconcile", mock.Anything, tenantID, accountID, mock.Anything).
			Return(nil, ledger.ErrFetchFailed{AccountID: accountID, Err: errors.New("connection refused")})

		w := postReconcile(handler, validReconcileRequest(tenantID, accountID))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("InternalError", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		mockService.On("Reconcile", mock.Anything, tenantID, accountID, mock.Anything).
			Return(nil, errors.New("unexpected"))

		w := postReconcile(handler, validReconcileRequest(tenantID, accountID))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestReconciliationHandler_GetMatches(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	reconciliationID := uuid.New()

	getMatches := func(h *ReconciliationHandler, id string) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.GET("/api/v1/reconciliations/:id/matches", h.GetMatches)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/reconciliations/"+id+"/matches", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		confidence := 0.92
		matches := []*reconciliation.MatchRecord{
			{
				ID:                        uuid.New(),
				ReconciliationID:          reconciliationID,
				StatementDate:             time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC),
				StatementDescription:      "grocery store",
				StatementAmountMinorUnits: 5400,
				Status:                    reconciliation.MatchStatusMatched,
				Confidence:                &confidence,
			},
		}
		mockService.On("GetMatches", mock.Anything, reconciliationID).Return(matches, nil)

		w := getMatches(handler, reconciliationID.String())

		assert.Equal(t, http.StatusOK, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data, err := json.Marshal(response.Data)
		require.NoError(t, err)
		var got MatchListResponse
		require.NoError(t, json.Unmarshal(data, &got))
		require.Len(t, got.Matches, 1)
		assert.Equal(t, "MATCHED", got.Matches[0].Status)
		assert.Equal(t, "2026-03-05", got.Matches[0].StatementDate)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		w := getMatches(handler, "not-a-uuid")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "GetMatches", mock.Anything, mock.Anything)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		mockService.On("GetMatches", mock.Anything, reconciliationID).
			Return(nil, reconciliation.ErrPeriodNotFound{ReconciliationID: reconciliationID})

		w := getMatches(handler, reconciliationID.String())

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReconciliationHandler_GetUnmatched(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	reconciliationID := uuid.New()

	getUnmatched := func(h *ReconciliationHandler, id string) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.GET("/api/v1/reconciliations/:id/unmatched", h.GetUnmatched)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/reconciliations/"+id+"/unmatched", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		note := "ledger transaction not present on statement"
		report := &reconciliation.UnmatchedReport{
			StatementOnly: []*reconciliation.MatchRecord{
				{
					ID:                        uuid.New(),
					ReconciliationID:          reconciliationID,
					StatementDate:             time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC),
					StatementDescription:      "unknown withdrawal",
					StatementAmountMinorUnits: 2000,
					Status:                    reconciliation.MatchStatusStatementOnly,
				},
			},
			LedgerOnly: []*reconciliation.MatchRecord{
				{
					ID:                        uuid.New(),
					ReconciliationID:          reconciliationID,
					StatementDate:             time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC),
					StatementDescription:      "interest earned",
					StatementAmountMinorUnits: 321,
					Status:                    reconciliation.MatchStatusLedgerOnly,
					Note:                      &note,
				},
			},
		}
		mockService.On("GetUnmatched", mock.Anything, reconciliationID).Return(report, nil)

		w := getUnmatched(handler, reconciliationID.String())

		assert.Equal(t, http.StatusOK, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data, err := json.Marshal(response.Data)
		require.NoError(t, err)
		var got UnmatchedResponse
		require.NoError(t, json.Unmarshal(data, &got))
		require.Len(t, got.StatementOnly, 1)
		require.Len(t, got.LedgerOnly, 1)
		assert.Equal(t, "STATEMENT_ONLY", got.StatementOnly[0].Status)
		assert.Equal(t, "LEDGER_ONLY", got.LedgerOnly[0].Status)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		mockService.On("GetUnmatched", mock.Anything, reconciliationID).
			Return(nil, reconciliation.ErrPeriodNotFound{ReconciliationID: reconciliationID})

		w := getUnmatched(handler, reconciliationID.String())

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReconciliationHandler_GetPeriod(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	tenantID := uuid.New()
	accountID := uuid.New()
	periodStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	getPeriod := func(h *ReconciliationHandler, query string) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.GET("/api/v1/reconciliations", h.GetPeriod)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/reconciliations?"+query, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		now := time.Now().UTC()
		period := &reconciliation.Period{
			ID:                          uuid.New(),
			TenantID:                    tenantID,
			AccountID:                   accountID,
			PeriodStart:                 periodStart,
			PeriodEnd:                   periodStart.AddDate(0, 1, -1),
			OpeningBalanceMinorUnits:    100000,
			ClosingBalanceMinorUnits:    94600,
			CalculatedBalanceMinorUnits: 94600,
			Status:                      reconciliation.StatusReconciled,
			CompletedAt:                 &now,
		}
		mockService.On("GetPeriod", mock.Anything, tenantID, accountID, periodStart).Return(period, nil)

		w := getPeriod(handler, "tenant_id="+tenantID.String()+"&account_id="+accountID.String()+"&period_start=2026-03-01")

		assert.Equal(t, http.StatusOK, w.Code)

		var response Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data, err := json.Marshal(response.Data)
		require.NoError(t, err)
		var got PeriodResponse
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, period.ID.String(), got.ID)
		assert.Equal(t, "RECONCILED", got.Status)
		require.NotNil(t, got.CompletedAt)
	})

	t.Run("RFC3339PeriodStart", func(t *testing.T) {
		// The query accepts the same date formats submissions do.
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		period := &reconciliation.Period{
			ID:          uuid.New(),
			TenantID:    tenantID,
			AccountID:   accountID,
			PeriodStart: periodStart,
			PeriodEnd:   periodStart.AddDate(0, 1, -1),
			Status:      reconciliation.StatusInProgress,
		}
		mockService.On("GetPeriod", mock.Anything, tenantID, accountID, periodStart).Return(period, nil)

		w := getPeriod(handler, "tenant_id="+tenantID.String()+"&account_id="+accountID.String()+"&period_start=2026-03-01T00:00:00Z")

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("NoRunRecorded", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		mockService.On("GetPeriod", mock.Anything, tenantID, accountID, periodStart).Return(nil, nil)

		w := getPeriod(handler, "tenant_id="+tenantID.String()+"&account_id="+accountID.String()+"&period_start=2026-03-01")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidPeriodStart", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		w := getPeriod(handler, "tenant_id="+tenantID.String()+"&account_id="+accountID.String()+"&period_start=yesterday")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "GetPeriod", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
