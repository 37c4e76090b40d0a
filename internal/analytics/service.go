// Package analytics aggregates the order collection for the admin
// dashboard.
package analytics

import (
	"context"

	"github.com/shopspring/decimal"

	"canteen/internal/domain"
	"canteen/internal/viewsync"
)

type OrderLister interface {
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
}

type OrderStats struct {
	Total            int                        `json:"total"`
	ByStatus         map[domain.OrderStatus]int `json:"byStatus"`
	Active           int                        `json:"active"`
	Cancelled        int                        `json:"cancelled"`
	CompletedRevenue decimal.Decimal            `json:"completedRevenue"`
}

type Service struct {
	orders OrderLister
	loader *viewsync.Loader
}

func NewService(orders OrderLister, loader *viewsync.Loader) *Service {
	return &Service{orders: orders, loader: loader}
}

// OrderStats is cached under the analytics scope, so any order mutation
// makes the next call recompute it.
func (s *Service) OrderStats(ctx context.Context) (OrderStats, error) {
	return viewsync.Load(ctx, s.loader, viewsync.ScopeAnalytics, "orders", func(ctx context.Context) (OrderStats, error) {
		orders, err := s.orders.List(ctx, domain.OrderFilter{})
		if err != nil {
			return OrderStats{}, err
		}
		return Aggregate(orders), nil
	})
}

// Aggregate counts orders per status. Active means not yet terminal.
func Aggregate(orders []domain.Order) OrderStats {
	stats := OrderStats{
		Total:            len(orders),
		ByStatus:         make(map[domain.OrderStatus]int, len(domain.AllStatuses)),
		CompletedRevenue: decimal.Zero,
	}
	for _, st := range domain.AllStatuses {
		stats.ByStatus[st] = 0
	}

	for _, o := range orders {
		stats.ByStatus[o.Status]++
		switch {
		case o.Status == domain.OrderStatusCompleted:
			stats.CompletedRevenue = stats.CompletedRevenue.Add(o.Amount)
		case o.Status == domain.OrderStatusCancelled:
			stats.Cancelled++
		case !o.Status.Terminal():
			stats.Active++
		}
	}
	return stats
}
