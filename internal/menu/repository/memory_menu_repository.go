package repository

import (
	"context"
	"sort"
	"sync"

	"canteen/internal/domain"
)

type MemoryRepository struct {
	mu         sync.RWMutex
	categories map[int]domain.Category
	items      map[int]domain.MenuItem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		categories: make(map[int]domain.Category),
		items:      make(map[int]domain.MenuItem),
	}
}

func (r *MemoryRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	categories := make([]domain.Category, 0, len(r.categories))
	for _, c := range r.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].SortOrder != categories[j].SortOrder {
			return categories[i].SortOrder < categories[j].SortOrder
		}
		return categories[i].ID < categories[j].ID
	})
	return categories, nil
}

func (r *MemoryRepository) ListMenuItems(ctx context.Context, categoryID int) ([]domain.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]domain.MenuItem, 0, len(r.items))
	for _, it := range r.items {
		if categoryID > 0 && it.CategoryID != categoryID {
			continue
		}
		items = append(items, it)
	}
	sortItems(items)
	return items, nil
}

func (r *MemoryRepository) FindByIDs(ctx context.Context, ids []int) ([]domain.MenuItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []domain.MenuItem{}
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if it, ok := r.items[id]; ok {
			items = append(items, it)
		}
	}
	sortItems(items)
	return items, nil
}

func (r *MemoryRepository) ApplySeed(ctx context.Context, seed *Seed) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range seed.Categories {
		r.categories[c.ID] = c
	}
	for _, it := range seed.Items {
		r.items[it.ID] = it
	}
	return nil
}

func sortItems(items []domain.MenuItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CategoryID != items[j].CategoryID {
			return items[i].CategoryID < items[j].CategoryID
		}
		return items[i].ID < items[j].ID
	})
}
