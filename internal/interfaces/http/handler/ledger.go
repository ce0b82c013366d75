package handler

import (
	"context"
	"net/http"
	"time"

	appledger "github.com/erp/tuition/internal/application/ledger"
	"github.com/erp/tuition/internal/interfaces/http/dto"
	"github.com/erp/tuition/internal/interfaces/http/middleware"
	"github.com/erp/tuition/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentService is the payment engine as seen by the HTTP layer
type PaymentService interface {
	Apply(ctx context.Context, req appledger.ApplyPaymentRequest) (*appledger.ApplyPaymentResult, error)
	Remove(ctx context.Context, req appledger.RemovePaymentRequest) (*appledger.RemovePaymentResult, error)
	History(ctx context.Context, installmentID, campusID uuid.UUID) (*appledger.HistoryResult, error)
	GetInstallment(ctx context.Context, installmentID, campusID uuid.UUID) (*appledger.InstallmentResponse, error)
	ListInstallments(ctx context.Context, filter appledger.InstallmentListFilter) (*appledger.InstallmentListResult, error)
}

// OverdueMarker flags unpaid installments past their due date
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (*appledger.MarkOverdueResult, error)
}

// LedgerHandler handles the installment ledger API endpoints
type LedgerHandler struct {
	BaseHandler
	payments PaymentService
	overdue  OverdueMarker
	now      func() time.Time
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(payments PaymentService, overdue OverdueMarker) *LedgerHandler {
	return &LedgerHandler{
		payments: payments,
		overdue:  overdue,
		now:      time.Now,
	}
}

// MarkOverdueRequest selects the cut-off date of an overdue sweep
type MarkOverdueRequest struct {
	AsOf *time.Time `form:"as_of" time_format:"2006-01-02"`
}

// Routes returns the ledger route group mounted under /api/v1
func (h *LedgerHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("ledger", "/ledger")
	g.GET("/installments", h.ListInstallments)
	g.GET("/installments/:id", h.GetInstallment)
	g.GET("/installments/:id/payments", h.History)
	g.POST("/installments/mark-overdue", h.MarkOverdue)
	g.POST("/payments", h.ApplyPayment)
	g.POST("/payments/remove", h.RemovePayment)
	g.DELETE("/payments/:id", h.DeletePayment)
	return g
}

// ApplyPayment handles POST /ledger/payments.
// A rejected payment answers with the rejection code and, in data, the earlier
// installments still owing and the total capacity when known.
func (h *LedgerHandler) ApplyPayment(c *gin.Context) {
	var req appledger.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	req.CampusID = middleware.GetCampusID(c)
	req.IdempotencyKey = c.GetHeader(middleware.IdempotencyKeyHeader)

	result, err := h.payments.Apply(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// RemovePayment handles POST /ledger/payments/remove
func (h *LedgerHandler) RemovePayment(c *gin.Context) {
	var req appledger.RemovePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	h.remove(c, req.PaymentID)
}

// DeletePayment handles DELETE /ledger/payments/:id
func (h *LedgerHandler) DeletePayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}
	h.remove(c, paymentID)
}

func (h *LedgerHandler) remove(c *gin.Context, paymentID uuid.UUID) {
	result, err := h.payments.Remove(c.Request.Context(), appledger.RemovePaymentRequest{
		PaymentID: paymentID,
		CampusID:  middleware.GetCampusID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// History handles GET /ledger/installments/:id/payments
func (h *LedgerHandler) History(c *gin.Context) {
	installmentID, ok := h.installmentID(c)
	if !ok {
		return
	}

	result, err := h.payments.History(c.Request.Context(), installmentID, middleware.GetCampusID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetInstallment handles GET /ledger/installments/:id
func (h *LedgerHandler) GetInstallment(c *gin.Context) {
	installmentID, ok := h.installmentID(c)
	if !ok {
		return
	}

	installment, err := h.payments.GetInstallment(c.Request.Context(), installmentID, middleware.GetCampusID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, installment)
}

// ListInstallments handles GET /ledger/installments
func (h *LedgerHandler) ListInstallments(c *gin.Context) {
	var filter appledger.InstallmentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	filter.CampusID = middleware.GetCampusID(c)

	page, err := h.payments.ListInstallments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPageResponse(page))
}

// MarkOverdue handles POST /ledger/installments/mark-overdue.
// The sweep spans every campus, so campus-bound callers may not trigger it.
func (h *LedgerHandler) MarkOverdue(c *gin.Context) {
	if middleware.GetCampusID(c) != uuid.Nil {
		h.Forbidden(c, "Overdue sweep is not available to campus-bound callers")
		return
	}

	var req MarkOverdueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	asOf := h.now()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	result, err := h.overdue.MarkOverdue(c.Request.Context(), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

func (h *LedgerHandler) installmentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid installment ID format")
		return uuid.Nil, false
	}
	return id, true
}
