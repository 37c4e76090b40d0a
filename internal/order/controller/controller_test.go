package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canteen/internal/config"
	"canteen/internal/domain"
	"canteen/internal/identity"
	menurepo "canteen/internal/menu/repository"
	menuservice "canteen/internal/menu/service"
	"canteen/internal/order/repository"
	"canteen/internal/order/service"
	"canteen/internal/order/usecase"
	"canteen/internal/payment"
	"canteen/internal/viewsync"
)

type testAPI struct {
	router http.Handler
	orders *repository.MemoryOrderRepository
}

func newTestAPI(t *testing.T, testMode bool) testAPI {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	seed, err := menurepo.LoadSeed("")
	require.NoError(t, err)
	menu := menurepo.NewMemoryRepository()
	require.NoError(t, menu.ApplySeed(ctx, seed))

	cache := viewsync.NewMemoryCache()
	loader := viewsync.NewLoader(cache, time.Minute, logger)
	orders := repository.NewMemoryOrderRepository()

	gateway := usecase.NewOrderGateway(
		orders,
		menuservice.NewMenuService(menu, loader),
		service.NewIdentifierService(),
		viewsync.NewCoordinator(cache, logger),
		loader,
		config.OrderConfig{TaxRate: decimal.RequireFromString("0.05"), MaxRetryAttempts: 3, DefaultEstimatedTime: 15},
		logger,
	)
	payments := payment.NewController(gateway, nopLedger{}, config.PaymentConfig{
		Window:           7 * time.Minute,
		TestMode:         testMode,
		SessionRetention: 30 * time.Minute,
	}, payment.RealClock(), logger)

	orderCtrl := NewOrderController(gateway, payments, 5*time.Second, logger)
	checkoutCtrl := NewCheckoutController(payments, logger)

	r := chi.NewRouter()
	r.Use(identity.Middleware)
	r.Get("/orders", orderCtrl.List)
	r.Post("/orders", orderCtrl.Create)
	r.Get("/orders/scan/{barcode}", orderCtrl.Scan)
	r.Get("/orders/{ref}", orderCtrl.Get)
	r.Patch("/orders/{ref}", orderCtrl.Patch)
	r.Post("/checkout", checkoutCtrl.Start)
	r.Get("/checkout/{id}", checkoutCtrl.Get)
	r.Post("/checkout/{id}/confirm", checkoutCtrl.Confirm)
	r.Post("/checkout/{id}/dismiss", checkoutCtrl.Dismiss)
	r.Post("/checkout/{id}/retry", checkoutCtrl.Retry)

	return testAPI{router: r, orders: orders}
}

func (a testAPI) do(t *testing.T, actor identity.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor.Role != "" {
		req.Header.Set(identity.HeaderUserID, actor.ID)
		req.Header.Set(identity.HeaderUserName, actor.Name)
		req.Header.Set(identity.HeaderUserRole, string(actor.Role))
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type nopLedger struct{}

func (nopLedger) Record(ctx context.Context, rec domain.Reconciliation) (int64, error) {
	return 1, nil
}
