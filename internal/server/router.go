package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"canteen/internal/analytics"
	"canteen/internal/identity"
	menucontroller "canteen/internal/menu/controller"
	ordercontroller "canteen/internal/order/controller"
	"canteen/internal/reconciliation"
	"canteen/internal/respond"
	"canteen/internal/viewsync"
)

type Handlers struct {
	Orders          *ordercontroller.OrderController
	Checkout        *ordercontroller.CheckoutController
	Menu            *menucontroller.MenuController
	Analytics       *analytics.Controller
	Reconciliations *reconciliation.Controller
	Hub             *viewsync.Hub
}

func NewRouter(h Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(identity.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	// upgraded connections must not carry the JSON content type
	r.Get("/ws", h.Hub.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.List)
			r.Post("/", h.Orders.Create)
			r.Get("/scan/{barcode}", h.Orders.Scan)
			r.Get("/{ref}", h.Orders.Get)
			r.Patch("/{ref}", h.Orders.Patch)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", h.Checkout.Start)
			r.Get("/{id}", h.Checkout.Get)
			r.Post("/{id}/confirm", h.Checkout.Confirm)
			r.Post("/{id}/dismiss", h.Checkout.Dismiss)
			r.Post("/{id}/retry", h.Checkout.Retry)
		})

		r.Get("/categories", h.Menu.ListCategories)
		r.Get("/menu-items", h.Menu.ListMenuItems)
		r.Get("/analytics/orders", h.Analytics.OrderStats)

		r.Get("/reconciliations", h.Reconciliations.List)
		r.Post("/reconciliations/{id}/resolve", h.Reconciliations.Resolve)
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestId", middleware.GetReqID(r.Context())))
		})
	}
}
