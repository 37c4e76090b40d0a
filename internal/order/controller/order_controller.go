package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"canteen/internal/domain"
	"canteen/internal/dto"
	apperrors "canteen/internal/errors"
	"canteen/internal/identity"
	"canteen/internal/respond"
)

const HeaderPollInterval = "X-Poll-Interval"

type OrderGateway interface {
	List(ctx context.Context, actor identity.Actor, filter domain.OrderFilter) ([]domain.Order, error)
	Get(ctx context.Context, ref string) (*domain.Order, error)
	Transition(ctx context.Context, actor identity.Actor, ref string, event domain.OrderEvent) (*domain.Order, error)
	Patch(ctx context.Context, actor identity.Actor, ref string, patch domain.OrderPatch) (*domain.Order, error)
}

// Bypasser commits an order with no payment session.
type Bypasser interface {
	Bypass(ctx context.Context, actor identity.Actor, draft domain.OrderDraft) (*domain.Order, error)
}

type OrderController struct {
	gateway      OrderGateway
	bypass       Bypasser
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewOrderController(gateway OrderGateway, bypass Bypasser, pollInterval time.Duration, logger *zap.Logger) *OrderController {
	return &OrderController{
		gateway:      gateway,
		bypass:       bypass,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (c *OrderController) List(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	q := r.URL.Query()
	filter := domain.OrderFilter{
		Status:     domain.OrderStatus(strings.ToLower(q.Get("status"))),
		CustomerID: q.Get("customerId"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respond.Validation(w, r, traceID, "invalid status filter", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be one of pending, preparing, ready, completed, cancelled",
		})
		return
	}

	orders, err := c.gateway.List(r.Context(), identity.FromContext(r.Context()), filter)
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	resp := dto.OrdersResponse{
		TraceID: traceID,
		Orders:  make([]dto.OrderDTO, 0, len(orders)),
	}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, dto.NewOrderDTO(o))
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

// Get resolves {ref} as an id, order number or barcode.
func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	c.get(w, r, chi.URLParam(r, "ref"))
}

// Scan is the barcode scanner entry point. It resolves with the same
// precedence as Get, so a typed order number works too.
func (c *OrderController) Scan(w http.ResponseWriter, r *http.Request) {
	c.get(w, r, chi.URLParam(r, "barcode"))
}

func (c *OrderController) get(w http.ResponseWriter, r *http.Request, ref string) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("ref", ref))

	order, err := c.gateway.Get(r.Context(), ref)
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	if c.pollInterval > 0 {
		w.Header().Set(HeaderPollInterval, strconv.Itoa(int(c.pollInterval/time.Second)))
	}
	respond.JSON(w, r, http.StatusOK, dto.OrderResponse{TraceID: traceID, Order: dto.NewOrderDTO(*order)})
}

// Create is the test-mode path that skips payment entirely.
func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		respond.Validation(w, r, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	order, err := c.bypass.Bypass(r.Context(), identity.FromContext(r.Context()), req.Draft())
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	respond.JSON(w, r, http.StatusCreated, dto.OrderResponse{TraceID: traceID, Order: dto.NewOrderDTO(*order)})
}

// Patch routes a status change to the state machine and anything else to a
// field update. Mixing both in one request is rejected.
func (c *OrderController) Patch(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	ref := chi.URLParam(r, "ref")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("ref", ref))

	var req dto.PatchOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		respond.Validation(w, r, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	patch := domain.OrderPatch{EstimatedTime: req.EstimatedTime, CustomerName: req.CustomerName}
	actor := identity.FromContext(r.Context())

	var (
		order *domain.Order
		err   error
	)
	switch {
	case req.Status != nil && !patch.Empty():
		respond.Validation(w, r, traceID, "status cannot be combined with other fields", apperrors.ValidationDetail{
			Field:   "status",
			Message: "send status changes on their own",
		})
		return
	case req.Status != nil:
		event, ok := domain.EventForStatus(domain.OrderStatus(strings.ToLower(*req.Status)))
		if !ok {
			respond.Validation(w, r, traceID, "invalid status", apperrors.ValidationDetail{
				Field:   "status",
				Message: "status must be one of preparing, ready, completed, cancelled",
			})
			return
		}
		order, err = c.gateway.Transition(r.Context(), actor, ref, event)
	case patch.Empty():
		respond.Validation(w, r, traceID, "nothing to update", apperrors.ValidationDetail{
			Field:   "body",
			Message: "provide status, estimatedTime or customerName",
		})
		return
	default:
		order, err = c.gateway.Patch(r.Context(), actor, ref, patch)
	}
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	respond.JSON(w, r, http.StatusOK, dto.OrderResponse{TraceID: traceID, Order: dto.NewOrderDTO(*order)})
}
