package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appledger "github.com/erp/tuition/internal/application/ledger"
	"github.com/erp/tuition/internal/domain/ledger"
	"github.com/erp/tuition/internal/domain/shared"
	"github.com/erp/tuition/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) Apply(ctx context.Context, req appledger.ApplyPaymentRequest) (*appledger.ApplyPaymentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.ApplyPaymentResult), args.Error(1)
}

func (m *mockPaymentService) Remove(ctx context.Context, req appledger.RemovePaymentRequest) (*appledger.RemovePaymentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.RemovePaymentResult), args.Error(1)
}

func (m *mockPaymentService) History(ctx context.Context, installmentID, campusID uuid.UUID) (*appledger.HistoryResult, error) {
	args := m.Called(ctx, installmentID, campusID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.HistoryResult), args.Error(1)
}

func (m *mockPaymentService) GetInstallment(ctx context.Context, installmentID, campusID uuid.UUID) (*appledger.InstallmentResponse, error) {
	args := m.Called(ctx, installmentID, campusID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.InstallmentResponse), args.Error(1)
}

func (m *mockPaymentService) ListInstallments(ctx context.Context, filter appledger.InstallmentListFilter) (*appledger.InstallmentListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.InstallmentListResult), args.Error(1)
}

type mockOverdueMarker struct {
	mock.Mock
}

func (m *mockOverdueMarker) MarkOverdue(ctx context.Context, asOf time.Time) (*appledger.MarkOverdueResult, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.MarkOverdueResult), args.Error(1)
}

var (
	testCampusID      = uuid.MustParse("6f1c4a52-3f5e-4a8e-9a57-5d2b1a6b8c11")
	testInstallmentID = uuid.MustParse("2d7e9b10-8a44-4f3c-b1d2-0c5e6f7a8b90")
	testPaymentID     = uuid.MustParse("9a0b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d")
	testNow           = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)
)

type ledgerFixture struct {
	payments *mockPaymentService
	overdue  *mockOverdueMarker
	engine   *gin.Engine
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	payments := new(mockPaymentService)
	overdue := new(mockOverdueMarker)

	h := NewLedgerHandler(payments, overdue)
	h.now = func() time.Time { return testNow }

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Campus())
	h.Routes().RegisterRoutes(engine.Group("/api/v1"))

	t.Cleanup(func() {
		payments.AssertExpectations(t)
		overdue.AssertExpectations(t)
	})
	return &ledgerFixture{payments: payments, overdue: overdue, engine: engine}
}

func (f *ledgerFixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func campusHeader() map[string]string {
	return map[string]string{middleware.CampusHeaderKey: testCampusID.String()}
}

func TestLedgerHandler_ApplyPayment(t *testing.T) {
	t.Run("applies and answers 201", func(t *testing.T) {
		f := newLedgerFixture(t)
		amount := decimal.NewFromInt(120)
		result := &appledger.ApplyPaymentResult{
			Mode:   ledger.AllocationModePlain,
			Amount: amount,
			Lines: []appledger.AppliedLine{{
				InstallmentID: testInstallmentID,
				Sequence:      2,
				Applied:       amount,
				BalanceAfter:  decimal.NewFromInt(30),
			}},
		}

		f.payments.On("Apply", mock.Anything, mock.MatchedBy(func(req appledger.ApplyPaymentRequest) bool {
			return req.InstallmentID == testInstallmentID &&
				req.Amount != nil && req.Amount.Equal(amount) &&
				req.Method == "CASH" &&
				req.CampusID == testCampusID &&
				req.IdempotencyKey == "caja-1-0001"
		})).Return(result, nil).Once()

		headers := campusHeader()
		headers[middleware.IdempotencyKeyHeader] = "caja-1-0001"
		w := f.do(http.MethodPost, "/api/v1/ledger/payments",
			fmt.Sprintf(`{"installment_id":%q,"amount":"120","method":"CASH"}`, testInstallmentID), headers)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Success)

		var got appledger.ApplyPaymentResult
		require.NoError(t, json.Unmarshal(env.Data, &got))
		require.Len(t, got.Lines, 1)
		assert.True(t, got.Lines[0].BalanceAfter.Equal(decimal.NewFromInt(30)))
	})

	t.Run("previous pending answers 409 with the earlier installments", func(t *testing.T) {
		f := newLedgerFixture(t)
		earlier := []ledger.PendingInstallment{{
			InstallmentID: uuid.New(),
			Sequence:      1,
			DueDate:       time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
			Balance:       decimal.NewFromInt(80),
		}}
		f.payments.On("Apply", mock.Anything, mock.Anything).
			Return(nil, ledger.NewPreviousPendingError(earlier)).Once()

		w := f.do(http.MethodPost, "/api/v1/ledger/payments",
			fmt.Sprintf(`{"installment_id":%q,"amount":"50"}`, testInstallmentID), nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, ledger.CodePreviousPending, env.Error.Code)
		assert.NotEmpty(t, env.Error.RequestID)

		var data RejectionData
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.Len(t, data.PreviousPending, 1)
		assert.Nil(t, data.Capacity)
	})

	t.Run("missing installment id reaches the service as faltan_datos", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.payments.On("Apply", mock.Anything, mock.MatchedBy(func(req appledger.ApplyPaymentRequest) bool {
			return req.InstallmentID == uuid.Nil
		})).Return(nil, shared.NewDomainError(ledger.CodeMissingData, "Installment ID is required")).Once()

		w := f.do(http.MethodPost, "/api/v1/ledger/payments", `{"amount":"50"}`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, ledger.CodeMissingData, env.Error.Code)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		f := newLedgerFixture(t)

		w := f.do(http.MethodPost, "/api/v1/ledger/payments", `{"installment_id":`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "BAD_REQUEST", decodeEnvelope(t, w).Error.Code)
	})

	t.Run("mode is passed through for the service to parse", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.payments.On("Apply", mock.Anything, mock.MatchedBy(func(req appledger.ApplyPaymentRequest) bool {
			return req.Mode == "AUTO"
		})).Return(&appledger.ApplyPaymentResult{Mode: ledger.AllocationModeAuto}, nil).Once()

		w := f.do(http.MethodPost, "/api/v1/ledger/payments",
			fmt.Sprintf(`{"installment_id":%q,"amount":"50","mode":"AUTO"}`, testInstallmentID), nil)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("unknown mode answers the service's invalid input", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.payments.On("Apply", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Invalid allocation mode: greedy")).Once()

		w := f.do(http.MethodPost, "/api/v1/ledger/payments",
			fmt.Sprintf(`{"installment_id":%q,"amount":"50","mode":"greedy"}`, testInstallmentID), nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, shared.ErrInvalidInput.Code, decodeEnvelope(t, w).Error.Code)
	})

	t.Run("store failure answers 503", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.payments.On("Apply", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("failed to lock schedule: %w", errStoreDown)).Once()

		w := f.do(http.MethodPost, "/api/v1/ledger/payments",
			fmt.Sprintf(`{"installment_id":%q,"amount":"50"}`, testInstallmentID), nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, ledger.CodeTransientFailure, decodeEnvelope(t, w).Error.Code)
	})
}

func TestLedgerHandler_RemovePayment(t *testing.T) {
	removed := &appledger.RemovePaymentResult{
		PaymentID: testPaymentID,
		Amount:    decimal.NewFromInt(40),
		Installment: appledger.InstallmentResponse{
			ID:     testInstallmentID,
			Status: "PARTIAL",
		},
	}

	t.Run("by body", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.payments.On("Remove", mock.Anything, appledger.RemovePaymentRequest{
			PaymentID: testPaymentID,
			CampusID:  testCampusID,
		}).Return(removed, nil).Once()

		w := f.do(http.MethodPost, "/api/v1/ledger/payments/remove",
			fmt.Sprintf(`{"payment_id":%q}`, testPaymentID), campusHeader())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeEnvelope(t, w).Success)
	})

	t.Run("by path", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.payments.On("Remove", mock.Anything, appledger.RemovePaymentRequest{
			PaymentID: testPaymentID,
		}).Return(removed, nil).Once()

		w := f.do(http.MethodDelete, "/api/v1/ledger/payments/"+testPaymentID.String(), "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid path id", func(t *testing.T) {
		f := newLedgerFixture(t)

		w := f.do(http.MethodDelete, "/api/v1/ledger/payments/not-a-uuid", "", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown payment answers 404", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.payments.On("Remove", mock.Anything, mock.Anything).Return(nil, ledger.ErrPaymentNotFound).Once()

		w := f.do(http.MethodDelete, "/api/v1/ledger/payments/"+testPaymentID.String(), "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, ledger.CodeNotFound, decodeEnvelope(t, w).Error.Code)
	})

	t.Run("inconsistent ledger answers 500", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.payments.On("Remove", mock.Anything, mock.Anything).
			Return(nil, ledger.NewInconsistentError("paid amount would drop below zero")).Once()

		w := f.do(http.MethodDelete, "/api/v1/ledger/payments/"+testPaymentID.String(), "", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, ledger.CodeInconsistent, decodeEnvelope(t, w).Error.Code)
	})
}

func TestLedgerHandler_History(t *testing.T) {
	f := newLedgerFixture(t)
	f.payments.On("History", mock.Anything, testInstallmentID, testCampusID).Return(&appledger.HistoryResult{
		Installment: appledger.InstallmentResponse{ID: testInstallmentID, Sequence: 3},
		Payments:    []appledger.PaymentResponse{{ID: testPaymentID, Amount: decimal.NewFromInt(25)}},
		TotalPaid:   decimal.NewFromInt(25),
	}, nil).Once()

	w := f.do(http.MethodGet, "/api/v1/ledger/installments/"+testInstallmentID.String()+"/payments", "", campusHeader())

	assert.Equal(t, http.StatusOK, w.Code)
	var got appledger.HistoryResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	assert.Equal(t, 3, got.Installment.Sequence)
	require.Len(t, got.Payments, 1)
	assert.True(t, got.TotalPaid.Equal(decimal.NewFromInt(25)))
}

func TestLedgerHandler_GetInstallment(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.payments.On("GetInstallment", mock.Anything, testInstallmentID, uuid.Nil).
			Return(&appledger.InstallmentResponse{ID: testInstallmentID, Status: "PENDING"}, nil).Once()

		w := f.do(http.MethodGet, "/api/v1/ledger/installments/"+testInstallmentID.String(), "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		f := newLedgerFixture(t)

		w := f.do(http.MethodGet, "/api/v1/ledger/installments/abc", "", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("other campus reads as not found", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.payments.On("GetInstallment", mock.Anything, testInstallmentID, testCampusID).
			Return(nil, ledger.ErrInstallmentNotFound).Once()

		w := f.do(http.MethodGet, "/api/v1/ledger/installments/"+testInstallmentID.String(), "", campusHeader())

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLedgerHandler_ListInstallments(t *testing.T) {
	t.Run("binds the query and returns a page", func(t *testing.T) {
		f := newLedgerFixture(t)
		payerID := uuid.New()
		page := shared.NewPaginated([]appledger.InstallmentResponse{{ID: testInstallmentID}}, 11, 2, 10)
		f.payments.On("ListInstallments", mock.Anything, mock.MatchedBy(func(filter appledger.InstallmentListFilter) bool {
			return filter.PayerID == payerID.String() &&
				filter.Status == "PARTIAL" &&
				filter.Page == 2 &&
				filter.PageSize == 10 &&
				filter.CampusID == testCampusID
		})).Return(&page, nil).Once()

		w := f.do(http.MethodGet,
			"/api/v1/ledger/installments?payer_id="+payerID.String()+"&status=PARTIAL&page=2&page_size=10",
			"", campusHeader())

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(11), env.Meta.Total)
		assert.Equal(t, 2, env.Meta.TotalPages)
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		f := newLedgerFixture(t)

		w := f.do(http.MethodGet, "/api/v1/ledger/installments?status=LATE", "", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Error.Code)
	})

	t.Run("rejects a malformed payer id", func(t *testing.T) {
		f := newLedgerFixture(t)

		w := f.do(http.MethodGet, "/api/v1/ledger/installments?payer_id=42", "", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLedgerHandler_MarkOverdue(t *testing.T) {
	t.Run("defaults to now", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.overdue.On("MarkOverdue", mock.Anything, testNow).
			Return(&appledger.MarkOverdueResult{AsOf: testNow, Marked: 4}, nil).Once()

		w := f.do(http.MethodPost, "/api/v1/ledger/installments/mark-overdue", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got appledger.MarkOverdueResult
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
		assert.Equal(t, int64(4), got.Marked)
	})

	t.Run("explicit cut-off date", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.overdue.On("MarkOverdue", mock.Anything, mock.MatchedBy(func(asOf time.Time) bool {
			y, m, d := asOf.Date()
			return y == 2026 && m == time.September && d == 1
		})).Return(&appledger.MarkOverdueResult{Marked: 0}, nil).Once()

		w := f.do(http.MethodPost, "/api/v1/ledger/installments/mark-overdue?as_of=2026-09-01", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("campus-bound callers are refused", func(t *testing.T) {
		f := newLedgerFixture(t)

		w := f.do(http.MethodPost, "/api/v1/ledger/installments/mark-overdue", "", campusHeader())

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN", decodeEnvelope(t, w).Error.Code)
	})
}
