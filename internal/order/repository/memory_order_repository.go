package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"canteen/internal/domain"
	"canteen/internal/errors"
)

// MemoryOrderRepository keeps orders in process memory. It backs the memory
// storage driver and the gateway tests.
type MemoryOrderRepository struct {
	mu          sync.RWMutex
	nextID      int64
	orders      map[int64]*domain.Order
	byNumber    map[string]int64
	byBarcode   map[string]int64
	failInserts error
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:    make(map[int64]*domain.Order),
		byNumber:  make(map[string]int64),
		byBarcode: make(map[string]int64),
	}
}

// FailInserts makes every following Insert return err; nil restores normal
// behaviour. Used to simulate an unreachable backend.
func (r *MemoryOrderRepository) FailInserts(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failInserts = err
}

func (r *MemoryOrderRepository) Insert(ctx context.Context, order *domain.Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failInserts != nil {
		return 0, r.failInserts
	}

	if r.identifierTaken(order.OrderNumber) || r.identifierTaken(order.Barcode) {
		return 0, errors.NewDuplicateError(fmt.Sprintf("order identifier %s already taken", order.OrderNumber), nil)
	}

	r.nextID++
	stored := cloneOrder(*order)
	stored.ID = r.nextID
	r.orders[stored.ID] = &stored
	r.byNumber[stored.OrderNumber] = stored.ID
	r.byBarcode[stored.Barcode] = stored.ID

	return stored.ID, nil
}

// identifierTaken checks a token against every identifier space, so a new
// order number or barcode can never shadow another order's id.
func (r *MemoryOrderRepository) identifierTaken(token string) bool {
	if _, ok := r.byNumber[token]; ok {
		return true
	}
	if _, ok := r.byBarcode[token]; ok {
		return true
	}
	if id, err := strconv.ParseInt(token, 10, 64); err == nil {
		_, ok := r.orders[id]
		return ok
	}
	return false
}

func (r *MemoryOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	out := cloneOrder(*order)
	return &out, nil
}

func (r *MemoryOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	r.mu.RLock()
	id, ok := r.byNumber[orderNumber]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with number %s not found", orderNumber))
	}
	return r.FindByID(ctx, id)
}

func (r *MemoryOrderRepository) FindByBarcode(ctx context.Context, barcode string) (*domain.Order, error) {
	r.mu.RLock()
	id, ok := r.byBarcode[barcode]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with barcode %s not found", barcode))
	}
	return r.FindByID(ctx, id)
}

func (r *MemoryOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && (o.CustomerID == nil || *o.CustomerID != filter.CustomerID) {
			continue
		}
		orders = append(orders, cloneOrder(*o))
	}

	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})

	return orders, nil
}

func (r *MemoryOrderRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus, deliveredAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}

	order.Status = to
	if deliveredAt != nil {
		t := *deliveredAt
		order.DeliveredAt = &t
	}
	order.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryOrderRepository) UpdateFields(ctx context.Context, id int64, patch domain.OrderPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}

	if patch.EstimatedTime != nil {
		order.EstimatedTime = *patch.EstimatedTime
	}
	if patch.CustomerName != nil {
		name := *patch.CustomerName
		order.CustomerName = &name
	}
	order.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	out := o
	out.Items = make([]domain.LineItem, len(o.Items))
	for i, item := range o.Items {
		out.Items[i] = item
		out.Items[i].SelectedAddOns = append([]domain.AddOn(nil), item.SelectedAddOns...)
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		out.DeliveredAt = &t
	}
	return out
}
