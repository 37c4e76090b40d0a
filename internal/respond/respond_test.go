package respond

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canteen/internal/dto"
	apperrors "canteen/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperrors.NewValidationError("bad"), http.StatusBadRequest, CodeValidation},
		{"not found", apperrors.NewNotFoundError("missing"), http.StatusNotFound, CodeOrderNotFound},
		{"session not found", apperrors.NewResourceNotFoundError(apperrors.ResourceSession, "missing"), http.StatusNotFound, CodeSessionNotFound},
		{"reconciliation not found", apperrors.NewResourceNotFoundError(apperrors.ResourceReconciliation, "missing"), http.StatusNotFound, CodeReconciliationNotFound},
		{"invalid transition", apperrors.NewInvalidTransitionError("completed", "cancel"), http.StatusConflict, CodeInvalidTransition},
		{"duplicate", apperrors.NewDuplicateError("taken", nil), http.StatusConflict, CodeDuplicateOrder},
		{"expired", apperrors.NewPaymentSessionExpiredError("s-1"), http.StatusGone, CodePaymentSessionExpired},
		{"critical", apperrors.NewCriticalReconciliationError("s-1", "tx-1", stderrors.New("down")), http.StatusBadGateway, CodeCriticalReconciliation},
		{"forbidden", apperrors.NewForbiddenError("no"), http.StatusForbidden, CodeForbidden},
		{"resolved", fmt.Errorf("confirm: %w", apperrors.ErrSessionResolved), http.StatusConflict, CodeSessionResolved},
		{"wrapped not found", fmt.Errorf("lookup: %w", apperrors.NewNotFoundError("missing")), http.StatusNotFound, CodeOrderNotFound},
		{"other", stderrors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := Classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestError_HidesInternalMessage(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(w, r, "trace-1", stderrors.New("dial tcp 10.0.0.5:3306: refused"), zap.NewNop())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "trace-1", resp.TraceID)
	assert.Equal(t, CodeInternal, resp.Code)
	assert.Equal(t, "an unexpected error occurred", resp.Message)
}

func TestError_ValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	err := apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{Field: "items", Message: "items must not be empty"})
	Error(w, r, "trace-2", err, zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Message)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "items", resp.Details[0].Field)
}
