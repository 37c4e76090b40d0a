package viewsync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"canteen/internal/domain"
)

const (
	ReasonCreated = "created"
	ReasonStatus  = "status"
	ReasonFields  = "fields"
	ReasonMenu    = "menu"
)

// Change describes the mutation that caused an invalidation.
type Change struct {
	OrderID     int64              `json:"orderId,omitempty"`
	OrderNumber string             `json:"orderNumber,omitempty"`
	Barcode     string             `json:"barcode,omitempty"`
	Status      domain.OrderStatus `json:"status,omitempty"`
	Reason      string             `json:"reason"`
}

func OrderChange(order *domain.Order, reason string) Change {
	return Change{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Barcode:     order.Barcode,
		Status:      order.Status,
		Reason:      reason,
	}
}

type Notification struct {
	Version uint64    `json:"version"`
	Scopes  []Scope   `json:"scopes"`
	Change  Change    `json:"change"`
	At      time.Time `json:"at"`
}

// Sink receives every notification. Sinks must not block for long.
type Sink interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

type Invalidator interface {
	Invalidate(ctx context.Context, change Change) Notification
}

type Coordinator struct {
	cache  Cache
	sinks  []Sink
	logger *zap.Logger
	now    func() time.Time
}

func NewCoordinator(cache Cache, logger *zap.Logger, sinks ...Sink) *Coordinator {
	return &Coordinator{
		cache:  cache,
		sinks:  sinks,
		logger: logger,
		now:    time.Now,
	}
}

// Invalidate marks every scope stale and fans the change out to the sinks.
// The mutation has already committed, so failures are logged and never
// returned; clients converge through polling.
func (c *Coordinator) Invalidate(ctx context.Context, change Change) Notification {
	ctx = context.WithoutCancel(ctx)

	version, err := c.cache.Bump(ctx)
	if err != nil {
		c.logger.Error("view version bump failed, cached views stay valid until TTL",
			zap.Int64("orderId", change.OrderID), zap.Error(err))
	}

	n := Notification{
		Version: version,
		Scopes:  AllScopes,
		Change:  change,
		At:      c.now().UTC(),
	}

	for _, sink := range c.sinks {
		if err := sink.Notify(ctx, n); err != nil {
			c.logger.Warn("view sink failed",
				zap.String("sink", sink.Name()),
				zap.Int64("orderId", change.OrderID),
				zap.Error(err))
		}
	}

	c.logger.Debug("views invalidated",
		zap.Uint64("version", version),
		zap.String("reason", change.Reason),
		zap.Int64("orderId", change.OrderID))

	return n
}
