package analytics

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canteen/internal/domain"
	"canteen/internal/viewsync"
)

type mockOrderLister struct {
	calls    int
	ListFunc func(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
}

func (m *mockOrderLister) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	m.calls++
	return m.ListFunc(ctx, filter)
}

func order(status domain.OrderStatus, amount string) domain.Order {
	return domain.Order{Status: status, Amount: decimal.RequireFromString(amount)}
}

func TestAggregate(t *testing.T) {
	stats := Aggregate([]domain.Order{
		order(domain.OrderStatusPreparing, "126.00"),
		order(domain.OrderStatusReady, "42.00"),
		order(domain.OrderStatusCompleted, "63.00"),
		order(domain.OrderStatusCompleted, "10.50"),
		order(domain.OrderStatusCancelled, "99.00"),
	})

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, "73.5", stats.CompletedRevenue.String())
	assert.Equal(t, 2, stats.ByStatus[domain.OrderStatusCompleted])
	assert.Equal(t, 0, stats.ByStatus[domain.OrderStatusPending])
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(nil)

	assert.Equal(t, 0, stats.Total)
	assert.True(t, stats.CompletedRevenue.IsZero())
	assert.Len(t, stats.ByStatus, len(domain.AllStatuses))
}

func TestService_OrderStats_CachedUntilInvalidated(t *testing.T) {
	cache := viewsync.NewMemoryCache()
	coordinator := viewsync.NewCoordinator(cache, zap.NewNop())
	orders := []domain.Order{order(domain.OrderStatusPreparing, "126.00")}
	lister := &mockOrderLister{
		ListFunc: func(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
			return orders, nil
		},
	}
	svc := NewService(lister, viewsync.NewLoader(cache, time.Minute, zap.NewNop()))
	ctx := context.Background()

	stats, err := svc.OrderStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Active)

	orders = append(orders, order(domain.OrderStatusCompleted, "60.00"))
	_, err = svc.OrderStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls, "served from cache")

	coordinator.Invalidate(ctx, viewsync.Change{OrderID: 2, Status: domain.OrderStatusCompleted})

	stats, err = svc.OrderStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
	assert.Equal(t, "60", stats.CompletedRevenue.String())
}

func TestService_OrderStats_Error(t *testing.T) {
	boom := stderrors.New("db down")
	lister := &mockOrderLister{
		ListFunc: func(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
			return nil, boom
		},
	}
	svc := NewService(lister, viewsync.NewLoader(viewsync.NewMemoryCache(), time.Minute, zap.NewNop()))

	_, err := svc.OrderStats(context.Background())
	assert.ErrorIs(t, err, boom)
}
