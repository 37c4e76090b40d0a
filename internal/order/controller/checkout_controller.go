package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"canteen/internal/domain"
	"canteen/internal/dto"
	apperrors "canteen/internal/errors"
	"canteen/internal/identity"
	"canteen/internal/payment"
	"canteen/internal/respond"
)

type CheckoutService interface {
	Start(ctx context.Context, actor identity.Actor, draft domain.OrderDraft) (*payment.Session, error)
	Retry(ctx context.Context, actor identity.Actor, id string) (*payment.Session, error)
	State(id string) (payment.State, error)
	Confirm(ctx context.Context, id, gatewayRef string) (*domain.Order, error)
	Dismiss(id string) error
}

type CheckoutController struct {
	service CheckoutService
	logger  *zap.Logger
}

func NewCheckoutController(service CheckoutService, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{service: service, logger: logger}
}

// Start opens a payment session for the cart and returns its deadline and
// the amount to charge.
func (c *CheckoutController) Start(w http.ResponseWriter, r *http.Request) {
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

	session, err := c.service.Start(r.Context(), identity.FromContext(r.Context()), req.Draft())
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	c.writeSession(w, r, traceID, session.ID, http.StatusCreated, logger)
}

func (c *CheckoutController) Get(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	c.writeSession(w, r, traceID, chi.URLParam(r, "id"), http.StatusOK, logger)
}

// Confirm is the gateway's success callback.
func (c *CheckoutController) Confirm(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	id := chi.URLParam(r, "id")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("sessionId", id))

	var req dto.ConfirmCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		respond.Validation(w, r, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}
	ref := strings.TrimSpace(req.TransactionRef)
	if ref == "" {
		respond.Validation(w, r, traceID, "validation failed", apperrors.ValidationDetail{
			Field:   "transactionRef",
			Message: "transactionRef is required",
		})
		return
	}

	if _, err := c.service.Confirm(r.Context(), id, ref); err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	c.writeSession(w, r, traceID, id, http.StatusCreated, logger)
}

// Dismiss is the gateway's callback for a closed payment form.
func (c *CheckoutController) Dismiss(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	id := chi.URLParam(r, "id")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("sessionId", id))

	if err := c.service.Dismiss(id); err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	c.writeSession(w, r, traceID, id, http.StatusOK, logger)
}

// Retry starts a new session from a dismissed or expired one's cart.
func (c *CheckoutController) Retry(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	id := chi.URLParam(r, "id")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("sessionId", id))

	session, err := c.service.Retry(r.Context(), identity.FromContext(r.Context()), id)
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	c.writeSession(w, r, traceID, session.ID, http.StatusCreated, logger)
}

func (c *CheckoutController) writeSession(w http.ResponseWriter, r *http.Request, traceID, id string, status int, logger *zap.Logger) {
	st, err := c.service.State(id)
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}
	respond.JSON(w, r, status, dto.SessionResponse{TraceID: traceID, Session: sessionDTO(st)})
}

func sessionDTO(st payment.State) dto.SessionDTO {
	out := dto.SessionDTO{
		SessionID:        st.ID,
		Outcome:          string(st.Outcome),
		Subtotal:         st.Quote.Subtotal.InexactFloat64(),
		Tax:              st.Quote.Tax.InexactFloat64(),
		Amount:           st.Quote.Amount.InexactFloat64(),
		StartedAt:        st.StartedAt,
		Deadline:         st.Deadline,
		RemainingSeconds: int(st.Remaining.Round(time.Second) / time.Second),
		RetryOf:          st.RetryOf,
		RetriedBy:        st.RetriedBy,
		TransactionRef:   st.GatewayRef,
		Critical:         st.Failure != nil,
	}
	if !st.ResolvedAt.IsZero() {
		t := st.ResolvedAt
		out.ResolvedAt = &t
	}
	if st.Order != nil {
		o := dto.NewOrderDTO(*st.Order)
		out.Order = &o
	}
	return out
}
