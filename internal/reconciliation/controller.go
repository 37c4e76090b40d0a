package reconciliation

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"canteen/internal/domain"
	"canteen/internal/dto"
	apperrors "canteen/internal/errors"
	"canteen/internal/identity"
	"canteen/internal/respond"
)

type Store interface {
	ListUnresolved(ctx context.Context) ([]domain.Reconciliation, error)
	Resolve(ctx context.Context, id int64) (*domain.Reconciliation, error)
}

type Controller struct {
	store  Store
	logger *zap.Logger
}

func NewController(store Store, logger *zap.Logger) *Controller {
	return &Controller{store: store, logger: logger}
}

func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	if !identity.FromContext(r.Context()).IsAdmin() {
		respond.Error(w, r, traceID, apperrors.NewForbiddenError("reconciliations are admin only"), logger)
		return
	}

	recs, err := c.store.ListUnresolved(r.Context())
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	resp := dto.ReconciliationsResponse{
		TraceID:         traceID,
		Reconciliations: make([]dto.ReconciliationDTO, 0, len(recs)),
	}
	for _, rec := range recs {
		resp.Reconciliations = append(resp.Reconciliations, toDTO(rec))
	}

	respond.JSON(w, r, http.StatusOK, resp)
}

func (c *Controller) Resolve(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor := identity.FromContext(r.Context())
	if !actor.IsAdmin() {
		respond.Error(w, r, traceID, apperrors.NewForbiddenError("reconciliations are admin only"), logger)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Validation(w, r, traceID, "invalid id", apperrors.ValidationDetail{
			Field:   "id",
			Message: "id must be a positive integer",
		})
		return
	}

	rec, err := c.store.Resolve(r.Context(), id)
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	logger.Info("reconciliation resolved",
		zap.Int64("reconciliationId", id),
		zap.String("gatewayRef", rec.GatewayRef),
		zap.String("resolvedBy", actor.ID))

	respond.JSON(w, r, http.StatusOK, dto.ReconciliationResponse{
		TraceID:        traceID,
		Reconciliation: toDTO(*rec),
	})
}

func toDTO(rec domain.Reconciliation) dto.ReconciliationDTO {
	return dto.ReconciliationDTO{
		ID:         rec.ID,
		SessionID:  rec.SessionID,
		GatewayRef: rec.GatewayRef,
		Amount:     rec.Amount.InexactFloat64(),
		CustomerID: rec.CustomerID,
		Items:      dto.NewLineItemDTOs(rec.Items),
		Cause:      rec.Cause,
		CreatedAt:  rec.CreatedAt,
		ResolvedAt: rec.ResolvedAt,
	}
}
