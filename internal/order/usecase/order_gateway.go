package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"canteen/internal/config"
	"canteen/internal/domain"
	apperrors "canteen/internal/errors"
	"canteen/internal/identity"
	"canteen/internal/order/resolver"
	"canteen/internal/viewsync"
)

const maxItemsPerOrder = 100

// The status graph is acyclic and at most three edges deep, so a writer can
// lose the compare-and-set only a bounded number of times.
const maxTransitionAttempts = 4

type OrderRepository interface {
	resolver.Store
	Insert(ctx context.Context, order *domain.Order) (int64, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus, deliveredAt *time.Time) (bool, error)
	UpdateFields(ctx context.Context, id int64, patch domain.OrderPatch) error
}

type MenuPricer interface {
	PriceItems(ctx context.Context, items []domain.LineItem) ([]domain.LineItem, error)
}

type IdentifierGenerator interface {
	Next() (orderNumber, barcode string)
}

// Quote is a validated, priced draft.
type Quote struct {
	Draft    domain.OrderDraft
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Amount   decimal.Decimal
}

// OrderGateway is the single write path for orders. Every successful
// mutation invalidates the shared views before returning.
type OrderGateway struct {
	orders           OrderRepository
	pricer           MenuPricer
	ids              IdentifierGenerator
	views            viewsync.Invalidator
	loader           *viewsync.Loader
	logger           *zap.Logger
	taxRate          decimal.Decimal
	maxRetryAttempts int
	defaultETA       int
	now              func() time.Time
}

func NewOrderGateway(
	orders OrderRepository,
	pricer MenuPricer,
	ids IdentifierGenerator,
	views viewsync.Invalidator,
	loader *viewsync.Loader,
	cfg config.OrderConfig,
	logger *zap.Logger,
) *OrderGateway {
	maxAttempts := cfg.MaxRetryAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OrderGateway{
		orders:           orders,
		pricer:           pricer,
		ids:              ids,
		views:            views,
		loader:           loader,
		logger:           logger,
		taxRate:          cfg.TaxRate,
		maxRetryAttempts: maxAttempts,
		defaultETA:       cfg.DefaultEstimatedTime,
		now:              time.Now,
	}
}

// Quote validates a draft and prices it against the menu.
func (g *OrderGateway) Quote(ctx context.Context, actor identity.Actor, draft domain.OrderDraft) (*Quote, error) {
	if err := validateDraft(actor, draft); err != nil {
		return nil, err
	}

	items, err := g.pricer.PriceItems(ctx, draft.Items)
	if err != nil {
		return nil, err
	}

	priced := draft
	priced.Items = items
	subtotal, tax, amount := domain.Pricing(items, g.taxRate)

	return &Quote{Draft: priced, Subtotal: subtotal, Tax: tax, Amount: amount}, nil
}

func validateDraft(actor identity.Actor, draft domain.OrderDraft) error {
	var details []apperrors.ValidationDetail

	if len(draft.Items) == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	if len(draft.Items) > maxItemsPerOrder {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: fmt.Sprintf("items exceeds maximum of %d", maxItemsPerOrder),
		})
	}

	for idx, item := range draft.Items {
		field := fmt.Sprintf("items[%d]", idx)
		if err := item.Validate(); err != nil {
			details = append(details, apperrors.ValidationDetail{Field: field, Message: err.Error()})
			continue
		}
		if item.Kind == domain.LineItemCustom && !actor.IsStaff() {
			details = append(details, apperrors.ValidationDetail{
				Field:   field,
				Message: "custom items can only be entered at the counter",
			})
		}
	}

	if draft.EstimatedTime < 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "estimatedTime",
			Message: "estimatedTime must be non-negative",
		})
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}

// Create commits a draft as a new order in preparing. Identifier
// collisions are retried with fresh identifiers.
func (g *OrderGateway) Create(ctx context.Context, actor identity.Actor, draft domain.OrderDraft) (*domain.Order, error) {
	quote, err := g.Quote(ctx, actor, draft)
	if err != nil {
		return nil, err
	}
	return g.CreateQuoted(ctx, actor, quote)
}

// CreateQuoted commits an already priced quote, so the amount a customer
// paid is the amount stored.
func (g *OrderGateway) CreateQuoted(ctx context.Context, actor identity.Actor, quote *Quote) (*domain.Order, error) {
	now := g.now().UTC()
	order := &domain.Order{
		Items:         quote.Draft.Items,
		Subtotal:      quote.Subtotal,
		Tax:           quote.Tax,
		Amount:        quote.Amount,
		Status:        domain.OrderStatusPreparing,
		EstimatedTime: quote.Draft.EstimatedTime,
		PaymentRef:    quote.Draft.PaymentRef,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if order.EstimatedTime == 0 {
		order.EstimatedTime = g.defaultETA
	}
	if actor.ID != "" {
		id := actor.ID
		order.CustomerID = &id
	}
	if name := customerName(actor, quote.Draft); name != "" {
		order.CustomerName = &name
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetryAttempts; attempt++ {
		order.OrderNumber, order.Barcode = g.ids.Next()

		id, err := g.orders.Insert(ctx, order)
		if err == nil {
			order.ID = id
			g.logger.Info("order created",
				zap.Int64("orderId", id),
				zap.String("orderNumber", order.OrderNumber),
				zap.String("amount", order.Amount.StringFixed(2)),
				zap.Int("attempt", attempt))
			g.views.Invalidate(ctx, viewsync.OrderChange(order, viewsync.ReasonCreated))
			return order, nil
		}

		if _, ok := apperrors.IsDuplicateError(err); !ok {
			return nil, err
		}

		lastErr = err
		g.logger.Warn("order identifier collision, regenerating",
			zap.String("orderNumber", order.OrderNumber),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", g.maxRetryAttempts))
	}

	return nil, lastErr
}

// customerName prefers a staff override, used for counter entries on behalf
// of a named customer.
func customerName(actor identity.Actor, draft domain.OrderDraft) string {
	if draft.CustomerName != nil && actor.IsStaff() {
		if name := strings.TrimSpace(*draft.CustomerName); name != "" {
			return name
		}
	}
	return actor.Name
}

// Transition applies event to the order ref resolves to. It never holds a
// lock: the status update is conditional on the status it was computed
// from, and a lost race reloads and re-evaluates.
func (g *OrderGateway) Transition(ctx context.Context, actor identity.Actor, ref string, event domain.OrderEvent) (*domain.Order, error) {
	if !event.Valid() {
		return nil, apperrors.NewValidationError("unknown event", apperrors.ValidationDetail{
			Field:   "event",
			Message: fmt.Sprintf("unknown event %q", event),
		})
	}

	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		order, err := resolver.ResolveStored(ctx, g.orders, ref)
		if err != nil {
			return nil, err
		}

		if err := authorizeTransition(actor, order, event); err != nil {
			return nil, err
		}

		next, changed, err := order.Status.Apply(event)
		if err != nil {
			return nil, err
		}
		if !changed {
			return order, nil
		}

		var deliveredAt *time.Time
		if next == domain.OrderStatusCompleted {
			t := g.now().UTC()
			deliveredAt = &t
		}

		ok, err := g.orders.UpdateStatus(ctx, order.ID, order.Status, next, deliveredAt)
		if err != nil {
			return nil, err
		}
		if !ok {
			g.logger.Debug("status changed underneath, re-evaluating",
				zap.Int64("orderId", order.ID),
				zap.String("event", string(event)),
				zap.Int("attempt", attempt))
			continue
		}

		updated, err := g.orders.FindByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}

		g.logger.Info("order status changed",
			zap.Int64("orderId", order.ID),
			zap.String("from", string(order.Status)),
			zap.String("to", string(next)),
			zap.String("actorRole", string(actor.Role)))
		g.views.Invalidate(ctx, viewsync.OrderChange(updated, viewsync.ReasonStatus))
		return updated, nil
	}

	return nil, apperrors.NewInternalError(fmt.Sprintf("order %s kept changing during %s", ref, event), nil)
}

func authorizeTransition(actor identity.Actor, order *domain.Order, event domain.OrderEvent) error {
	if actor.IsStaff() {
		return nil
	}
	if event == domain.EventCancel && actor.ID != "" && order.CustomerID != nil && *order.CustomerID == actor.ID {
		return nil
	}
	return apperrors.NewForbiddenError(fmt.Sprintf("role %s may not %s this order", actor.Role, event))
}

// Patch changes non-status fields. Status never travels through here.
func (g *OrderGateway) Patch(ctx context.Context, actor identity.Actor, ref string, patch domain.OrderPatch) (*domain.Order, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbiddenError("only staff may edit orders")
	}
	if patch.Empty() {
		return nil, apperrors.NewValidationError("nothing to update")
	}
	if patch.EstimatedTime != nil && *patch.EstimatedTime < 0 {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "estimatedTime",
			Message: "estimatedTime must be non-negative",
		})
	}

	order, err := resolver.ResolveStored(ctx, g.orders, ref)
	if err != nil {
		return nil, err
	}

	if err := g.orders.UpdateFields(ctx, order.ID, patch); err != nil {
		return nil, err
	}

	updated, err := g.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	g.views.Invalidate(ctx, viewsync.OrderChange(updated, viewsync.ReasonFields))
	return updated, nil
}

// List returns the orders visible to actor. Customers only ever see their
// own orders; a guest sees none.
func (g *OrderGateway) List(ctx context.Context, actor identity.Actor, filter domain.OrderFilter) ([]domain.Order, error) {
	if !actor.IsStaff() {
		if actor.ID == "" {
			return []domain.Order{}, nil
		}
		filter.CustomerID = actor.ID
	}

	key := fmt.Sprintf("list:%s:%s", filter.Status, filter.CustomerID)
	return viewsync.Load(ctx, g.loader, viewsync.ScopeOrders, key, func(ctx context.Context) ([]domain.Order, error) {
		return g.orders.List(ctx, filter)
	})
}

// Get resolves ref through the cached orders view.
func (g *OrderGateway) Get(ctx context.Context, ref string) (*domain.Order, error) {
	ref = strings.TrimSpace(ref)
	order, err := viewsync.Load(ctx, g.loader, viewsync.ScopeOrders, "ref:"+ref, func(ctx context.Context) (domain.Order, error) {
		o, err := resolver.ResolveStored(ctx, g.orders, ref)
		if err != nil {
			return domain.Order{}, err
		}
		return *o, nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
