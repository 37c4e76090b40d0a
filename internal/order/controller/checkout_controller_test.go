package controller

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canteen/internal/domain"
	"canteen/internal/dto"
	apperrors "canteen/internal/errors"
	"canteen/internal/identity"
	"canteen/internal/payment"
)

type mockCheckoutService struct {
	StartFunc   func(ctx context.Context, actor identity.Actor, draft domain.OrderDraft) (*payment.Session, error)
	RetryFunc   func(ctx context.Context, actor identity.Actor, id string) (*payment.Session, error)
	StateFunc   func(id string) (payment.State, error)
	ConfirmFunc func(ctx context.Context, id, gatewayRef string) (*domain.Order, error)
	DismissFunc func(id string) error
}

func (m *mockCheckoutService) Start(ctx context.Context, actor identity.Actor, draft domain.OrderDraft) (*payment.Session, error) {
	return m.StartFunc(ctx, actor, draft)
}

func (m *mockCheckoutService) Retry(ctx context.Context, actor identity.Actor, id string) (*payment.Session, error) {
	return m.RetryFunc(ctx, actor, id)
}

func (m *mockCheckoutService) State(id string) (payment.State, error) {
	return m.StateFunc(id)
}

func (m *mockCheckoutService) Confirm(ctx context.Context, id, gatewayRef string) (*domain.Order, error) {
	return m.ConfirmFunc(ctx, id, gatewayRef)
}

func (m *mockCheckoutService) Dismiss(id string) error {
	return m.DismissFunc(id)
}

func startCheckout(t *testing.T, api testAPI) dto.SessionDTO {
	t.Helper()
	w := api.do(t, customer, http.MethodPost, "/checkout", thaliRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.SessionResponse](t, w).Session
}

func TestCheckoutController_StartAndConfirm(t *testing.T) {
	api := newTestAPI(t, false)

	session := startCheckout(t, api)
	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, "pending", session.Outcome)
	assert.Equal(t, 126.0, session.Amount)
	assert.InDelta(t, 420, session.RemainingSeconds, 2)
	assert.WithinDuration(t, session.StartedAt.Add(7*time.Minute), session.Deadline, time.Millisecond)

	w := api.do(t, identity.Guest, http.MethodPost, "/checkout/"+session.SessionID+"/confirm",
		dto.ConfirmCheckoutRequest{TransactionRef: "tx-123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	confirmed := decode[dto.SessionResponse](t, w).Session
	assert.Equal(t, "succeeded", confirmed.Outcome)
	assert.Equal(t, 0, confirmed.RemainingSeconds)
	require.NotNil(t, confirmed.Order)
	assert.Equal(t, "preparing", confirmed.Order.Status)
	assert.Equal(t, 126.0, confirmed.Order.Amount)
	require.NotNil(t, confirmed.Order.PaymentRef)
	assert.Equal(t, "tx-123", *confirmed.Order.PaymentRef)

	// the callback is delivered twice
	w = api.do(t, identity.Guest, http.MethodPost, "/checkout/"+session.SessionID+"/confirm",
		dto.ConfirmCheckoutRequest{TransactionRef: "tx-123"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SESSION_RESOLVED", decode[dto.ErrorResponse](t, w).Code)

	w = api.do(t, customer, http.MethodGet, "/orders", nil)
	assert.Len(t, decode[dto.OrdersResponse](t, w).Orders, 1)
}

func TestCheckoutController_ConfirmRequiresReference(t *testing.T) {
	api := newTestAPI(t, false)
	session := startCheckout(t, api)

	w := api.do(t, identity.Guest, http.MethodPost, "/checkout/"+session.SessionID+"/confirm", dto.ConfirmCheckoutRequest{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(t, customer, http.MethodGet, "/checkout/"+session.SessionID, nil)
	assert.Equal(t, "pending", decode[dto.SessionResponse](t, w).Session.Outcome)
}

func TestCheckoutController_DismissAndRetry(t *testing.T) {
	api := newTestAPI(t, false)
	session := startCheckout(t, api)

	w := api.do(t, identity.Guest, http.MethodPost, "/checkout/"+session.SessionID+"/dismiss", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode[dto.SessionResponse](t, w).Session.Outcome)

	w = api.do(t, identity.Guest, http.MethodPost, "/checkout/"+session.SessionID+"/confirm",
		dto.ConfirmCheckoutRequest{TransactionRef: "tx-late"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, customer, http.MethodPost, "/checkout/"+session.SessionID+"/retry", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	retried := decode[dto.SessionResponse](t, w).Session
	assert.NotEqual(t, session.SessionID, retried.SessionID)
	assert.Equal(t, session.SessionID, retried.RetryOf)
	assert.Equal(t, "pending", retried.Outcome)
	assert.Equal(t, 126.0, retried.Amount)

	w = api.do(t, stranger, http.MethodPost, "/checkout/"+session.SessionID+"/retry", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, operator, http.MethodGet, "/orders", nil)
	assert.Empty(t, decode[dto.OrdersResponse](t, w).Orders, "dismissal creates no order")
}

func TestCheckoutController_UnknownSession(t *testing.T) {
	api := newTestAPI(t, false)

	w := api.do(t, customer, http.MethodGet, "/checkout/does-not-exist", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decode[dto.ErrorResponse](t, w).Code)
}

func TestCheckoutController_Start_Invalid(t *testing.T) {
	api := newTestAPI(t, false)

	w := api.do(t, customer, http.MethodPost, "/checkout", dto.CreateOrderRequest{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[dto.ErrorResponse](t, w).Code)
}

func TestCheckoutController_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		confirm error
		status  int
		code    string
	}{
		{"expired", apperrors.NewPaymentSessionExpiredError("s-1"), http.StatusGone, "PAYMENT_SESSION_EXPIRED"},
		{"critical", apperrors.NewCriticalReconciliationError("s-1", "tx-1", context.DeadlineExceeded), http.StatusBadGateway, "CRITICAL_RECONCILIATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCheckoutService{
				ConfirmFunc: func(ctx context.Context, id, gatewayRef string) (*domain.Order, error) {
					assert.Equal(t, "s-1", id)
					assert.Equal(t, "tx-1", gatewayRef)
					return nil, tt.confirm
				},
			}
			ctrl := NewCheckoutController(svc, zap.NewNop())
			r := chi.NewRouter()
			r.Post("/checkout/{id}/confirm", ctrl.Confirm)

			api := testAPI{router: r}
			w := api.do(t, identity.Guest, http.MethodPost, "/checkout/s-1/confirm", dto.ConfirmCheckoutRequest{TransactionRef: "tx-1"})

			assert.Equal(t, tt.status, w.Code)
			resp := decode[dto.ErrorResponse](t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotContains(t, resp.Message, "deadline exceeded")
		})
	}
}
