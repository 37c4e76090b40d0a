// Package resolver maps whichever identifier a caller has on hand (internal
// id, order number or barcode) to one order.
package resolver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"canteen/internal/domain"
	"canteen/internal/errors"
)

// Resolve looks token up in an already synchronised collection. Matching is
// exact and tried as id, then order number, then barcode.
func Resolve(token string, orders []domain.Order) (*domain.Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, notFound(token)
	}

	if id, err := strconv.ParseInt(token, 10, 64); err == nil {
		for i := range orders {
			if orders[i].ID == id {
				return &orders[i], nil
			}
		}
	}
	for i := range orders {
		if orders[i].OrderNumber == token {
			return &orders[i], nil
		}
	}
	for i := range orders {
		if orders[i].Barcode == token {
			return &orders[i], nil
		}
	}

	return nil, notFound(token)
}

type Store interface {
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	FindByBarcode(ctx context.Context, barcode string) (*domain.Order, error)
}

// ResolveStored applies the same precedence as Resolve against the order
// store.
func ResolveStored(ctx context.Context, store Store, token string) (*domain.Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, notFound(token)
	}

	lookups := make([]func() (*domain.Order, error), 0, 3)
	if id, err := strconv.ParseInt(token, 10, 64); err == nil {
		lookups = append(lookups, func() (*domain.Order, error) { return store.FindByID(ctx, id) })
	}
	lookups = append(lookups,
		func() (*domain.Order, error) { return store.FindByOrderNumber(ctx, token) },
		func() (*domain.Order, error) { return store.FindByBarcode(ctx, token) },
	)

	for _, lookup := range lookups {
		order, err := lookup()
		if err == nil {
			return order, nil
		}
		if _, ok := errors.IsNotFoundError(err); !ok {
			return nil, err
		}
	}

	return nil, notFound(token)
}

func notFound(token string) error {
	return errors.NewNotFoundError(fmt.Sprintf("order %q not found", token))
}
