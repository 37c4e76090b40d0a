// Package respond writes JSON bodies and maps application errors to their
// HTTP status and error code.
package respond

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"canteen/internal/dto"
	apperrors "canteen/internal/errors"
)

const (
	CodeOrderNotFound          = "ORDER_NOT_FOUND"
	CodeSessionNotFound        = "SESSION_NOT_FOUND"
	CodeReconciliationNotFound = "RECONCILIATION_NOT_FOUND"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeDuplicateOrder         = "DUPLICATE_ORDER"
	CodePaymentSessionExpired  = "PAYMENT_SESSION_EXPIRED"
	CodeCriticalReconciliation = "CRITICAL_RECONCILIATION"
	CodeValidation             = "VALIDATION_ERROR"
	CodeForbidden              = "FORBIDDEN"
	CodeSessionResolved        = "SESSION_RESOLVED"
	CodeInternal               = "INTERNAL_ERROR"
)

func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

// Classify returns the status and code for err.
func Classify(err error) (int, string) {
	if _, ok := apperrors.IsValidationError(err); ok {
		return http.StatusBadRequest, CodeValidation
	}
	if nfe, ok := apperrors.IsNotFoundError(err); ok {
		switch nfe.Resource {
		case apperrors.ResourceSession:
			return http.StatusNotFound, CodeSessionNotFound
		case apperrors.ResourceReconciliation:
			return http.StatusNotFound, CodeReconciliationNotFound
		}
		return http.StatusNotFound, CodeOrderNotFound
	}
	if _, ok := apperrors.IsInvalidTransitionError(err); ok {
		return http.StatusConflict, CodeInvalidTransition
	}
	if _, ok := apperrors.IsDuplicateError(err); ok {
		return http.StatusConflict, CodeDuplicateOrder
	}
	if _, ok := apperrors.IsPaymentSessionExpiredError(err); ok {
		return http.StatusGone, CodePaymentSessionExpired
	}
	if _, ok := apperrors.IsCriticalReconciliationError(err); ok {
		return http.StatusBadGateway, CodeCriticalReconciliation
	}
	if _, ok := apperrors.IsForbiddenError(err); ok {
		return http.StatusForbidden, CodeForbidden
	}
	if stderrors.Is(err, apperrors.ErrSessionResolved) {
		return http.StatusConflict, CodeSessionResolved
	}
	return http.StatusInternalServerError, CodeInternal
}

// Error writes the mapped error response. Unexpected errors are logged and
// their message hidden from the caller.
func Error(w http.ResponseWriter, r *http.Request, traceID string, err error, logger *zap.Logger) {
	status, code := Classify(err)

	resp := dto.ErrorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      code,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}

	switch status {
	case http.StatusInternalServerError:
		logger.Error("unexpected error", zap.Error(err))
		resp.Message = "an unexpected error occurred"
	case http.StatusBadGateway:
		logger.Error("order commit failed after payment", zap.Error(err))
		resp.Message = "payment was taken but the order could not be recorded; staff have been alerted"
	default:
		logger.Debug("request rejected", zap.String("code", code), zap.Error(err))
	}

	if de, ok := apperrors.IsDuplicateError(err); ok {
		resp.Message = de.Message
	}
	if ve, ok := apperrors.IsValidationError(err); ok {
		resp.Message = ve.Message
		resp.Details = ve.Details
	}

	JSON(w, r, status, resp)
}

func Validation(w http.ResponseWriter, r *http.Request, traceID, message string, details ...apperrors.ValidationDetail) {
	JSON(w, r, http.StatusBadRequest, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    http.StatusBadRequest,
		Code:      CodeValidation,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}
