package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"canteen/internal/domain"
)

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

func (r *MySQLRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, sortOrder
		FROM Categories
		ORDER BY sortOrder, id`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", err)
	}

	return categories, nil
}

// ListMenuItems returns the items of one category, or all items when
// categoryID is zero.
func (r *MySQLRepository) ListMenuItems(ctx context.Context, categoryID int) ([]domain.MenuItem, error) {
	query := `SELECT id, categoryId, name, price, isActive FROM MenuItems`
	var args []any
	if categoryID > 0 {
		query += ` WHERE categoryId = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY categoryId, id`

	return r.queryItems(ctx, query, args...)
}

func (r *MySQLRepository) FindByIDs(ctx context.Context, ids []int) ([]domain.MenuItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, categoryId, name, price, isActive
		FROM MenuItems
		WHERE id IN (%s)`,
		strings.Join(placeholders, ", "),
	)

	return r.queryItems(ctx, query, args...)
}

func (r *MySQLRepository) queryItems(ctx context.Context, query string, args ...any) ([]domain.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying menu items: %w", err)
	}
	defer rows.Close()

	items := []domain.MenuItem{}
	for rows.Next() {
		var it domain.MenuItem
		if err := rows.Scan(&it.ID, &it.CategoryID, &it.Name, &it.Price, &it.IsActive); err != nil {
			return nil, fmt.Errorf("scanning menu item row: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating menu item rows: %w", err)
	}

	return items, nil
}

// ApplySeed upserts every category and item of seed in one transaction.
func (r *MySQLRepository) ApplySeed(ctx context.Context, seed *Seed) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range seed.Categories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO Categories (id, name, sortOrder) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE name = VALUES(name), sortOrder = VALUES(sortOrder)`,
			c.ID, c.Name, c.SortOrder)
		if err != nil {
			return fmt.Errorf("seeding category %d: %w", c.ID, err)
		}
	}

	for _, it := range seed.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO MenuItems (id, categoryId, name, price, isActive) VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE categoryId = VALUES(categoryId), name = VALUES(name),
			                        price = VALUES(price), isActive = VALUES(isActive)`,
			it.ID, it.CategoryID, it.Name, it.Price, it.IsActive)
		if err != nil {
			return fmt.Errorf("seeding menu item %d: %w", it.ID, err)
		}
	}

	return tx.Commit()
}
