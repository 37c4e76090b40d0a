package service

import (
	"context"
	"fmt"
	"strconv"

	"canteen/internal/domain"
	apperrors "canteen/internal/errors"
	"canteen/internal/viewsync"
)

const (
	ReasonNotFound     = "NOT_FOUND"
	ReasonItemInactive = "ITEM_INACTIVE"
)

type Repository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListMenuItems(ctx context.Context, categoryID int) ([]domain.MenuItem, error)
	FindByIDs(ctx context.Context, ids []int) ([]domain.MenuItem, error)
}

type MenuService struct {
	repo   Repository
	loader *viewsync.Loader
}

func NewMenuService(repo Repository, loader *viewsync.Loader) *MenuService {
	return &MenuService{repo: repo, loader: loader}
}

func (s *MenuService) Categories(ctx context.Context) ([]domain.Category, error) {
	return viewsync.Load(ctx, s.loader, viewsync.ScopeCategories, "all", s.repo.ListCategories)
}

func (s *MenuService) MenuItems(ctx context.Context, categoryID int) ([]domain.MenuItem, error) {
	return viewsync.Load(ctx, s.loader, viewsync.ScopeMenuItems, strconv.Itoa(categoryID),
		func(ctx context.Context) ([]domain.MenuItem, error) {
			return s.repo.ListMenuItems(ctx, categoryID)
		})
}

// PriceItems stamps name and price from the menu onto every menu_item line.
// Custom lines pass through. Prices are read from the store, never the view
// cache.
func (s *MenuService) PriceItems(ctx context.Context, items []domain.LineItem) ([]domain.LineItem, error) {
	var ids []int
	for _, item := range items {
		if item.Kind == domain.LineItemMenu {
			ids = append(ids, item.ItemID)
		}
	}

	byID := make(map[int]domain.MenuItem, len(ids))
	if len(ids) > 0 {
		found, err := s.repo.FindByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("loading menu items: %w", err)
		}
		for _, it := range found {
			byID[it.ID] = it
		}
	}

	priced := make([]domain.LineItem, len(items))
	var details []apperrors.ValidationDetail
	for i, item := range items {
		priced[i] = item
		if item.Kind != domain.LineItemMenu {
			continue
		}

		field := fmt.Sprintf("items[%d].itemId", i)
		menuItem, ok := byID[item.ItemID]
		switch {
		case !ok:
			details = append(details, apperrors.ValidationDetail{Field: field, Message: ReasonNotFound})
		case !menuItem.IsActive:
			details = append(details, apperrors.ValidationDetail{Field: field, Message: ReasonItemInactive})
		default:
			priced[i].Name = menuItem.Name
			priced[i].UnitPrice = menuItem.Price
		}
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("some menu items cannot be ordered", details...)
	}

	return priced, nil
}
