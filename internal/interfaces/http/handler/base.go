package handler

import (
	"errors"
	"net/http"

	"github.com/erp/tuition/internal/domain/ledger"
	"github.com/erp/tuition/internal/domain/shared"
	"github.com/erp/tuition/internal/infrastructure/logger"
	"github.com/erp/tuition/internal/interfaces/http/dto"
	"github.com/erp/tuition/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// RejectionData is the auxiliary payload sent with a rejected payment
type RejectionData struct {
	PreviousPending []ledger.PendingInstallment `json:"previous_pending,omitempty"`
	Capacity        *decimal.Decimal            `json:"capacity,omitempty"`
}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(logger.GinRequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Forbidden sends a 403 forbidden response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

// HandleError converts service errors to HTTP responses.
// Rejections carry their auxiliary data in the envelope's data field. Anything that is
// not a domain error is a store failure and answers as transient. Only 5xx answers are
// attached to c.Errors; 4xx outcomes leave their code under logger.GinErrorCodeKey.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	var rejection *ledger.RejectionError
	if errors.As(err, &rejection) {
		resp := dto.NewErrorResponseWithRequestID(rejection.Code, rejection.Message, requestID)
		if len(rejection.PreviousPending) > 0 || rejection.Capacity != nil {
			resp = resp.WithData(RejectionData{
				PreviousPending: rejection.PreviousPending,
				Capacity:        rejection.Capacity,
			})
		}
		h.respondError(c, err, rejection.Code, resp)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.respondError(c, err, domainErr.Code,
			dto.NewErrorResponseWithRequestID(domainErr.Code, domainErr.Message, requestID))
		return
	}

	logger.GetGinLogger(c).Error("ledger operation failed", zap.Error(err))
	h.respondError(c, err, ledger.CodeTransientFailure, dto.NewErrorResponseWithRequestID(
		ledger.CodeTransientFailure,
		ledger.ErrTransientFailure.Message,
		requestID,
	))
}

func (h *BaseHandler) respondError(c *gin.Context, err error, code string, resp dto.Response) {
	status := dto.GetHTTPStatus(code)
	c.Set(logger.GinErrorCodeKey, code)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, resp)
}
