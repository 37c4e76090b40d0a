package analytics

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canteen/internal/dto"
	apperrors "canteen/internal/errors"
	"canteen/internal/identity"
	"canteen/internal/respond"
)

type StatsService interface {
	OrderStats(ctx context.Context) (OrderStats, error)
}

type Controller struct {
	service StatsService
	logger  *zap.Logger
}

func NewController(service StatsService, logger *zap.Logger) *Controller {
	return &Controller{service: service, logger: logger}
}

func (c *Controller) OrderStats(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	if !identity.FromContext(r.Context()).IsStaff() {
		respond.Error(w, r, traceID, apperrors.NewForbiddenError("analytics are staff only"), logger)
		return
	}

	stats, err := c.service.OrderStats(r.Context())
	if err != nil {
		respond.Error(w, r, traceID, err, logger)
		return
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for st, n := range stats.ByStatus {
		byStatus[string(st)] = n
	}

	respond.JSON(w, r, http.StatusOK, dto.OrderStatsResponse{
		TraceID: traceID,
		Stats: dto.OrderStatsDTO{
			Total:            stats.Total,
			ByStatus:         byStatus,
			Active:           stats.Active,
			Cancelled:        stats.Cancelled,
			CompletedRevenue: stats.CompletedRevenue.InexactFloat64(),
		},
	})
}
