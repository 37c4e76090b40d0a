package repository

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.yaml.in/yaml/v3"

	"canteen/internal/domain"
)

//go:embed default_menu.yaml
var defaultMenu []byte

type seedFile struct {
	Categories []seedCategory `yaml:"categories"`
}

type seedCategory struct {
	ID        int        `yaml:"id"`
	Name      string     `yaml:"name"`
	SortOrder int        `yaml:"sortOrder"`
	Items     []seedItem `yaml:"items"`
}

type seedItem struct {
	ID     int    `yaml:"id"`
	Name   string `yaml:"name"`
	Price  string `yaml:"price"`
	Active *bool  `yaml:"active"`
}

// Seed is a decoded menu ready to be loaded into a repository.
type Seed struct {
	Categories []domain.Category
	Items      []domain.MenuItem
}

// LoadSeed reads a menu seed file. An empty path yields the built-in menu.
func LoadSeed(path string) (*Seed, error) {
	data := defaultMenu
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading menu seed: %w", err)
		}
		data = raw
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing menu seed: %w", err)
	}

	seed := &Seed{}
	itemIDs := make(map[int]struct{})
	for _, c := range file.Categories {
		if c.ID <= 0 || c.Name == "" {
			return nil, fmt.Errorf("category %q needs a positive id and a name", c.Name)
		}
		seed.Categories = append(seed.Categories, domain.Category{ID: c.ID, Name: c.Name, SortOrder: c.SortOrder})

		for _, it := range c.Items {
			if it.ID <= 0 || it.Name == "" {
				return nil, fmt.Errorf("menu item %q needs a positive id and a name", it.Name)
			}
			if _, dup := itemIDs[it.ID]; dup {
				return nil, fmt.Errorf("menu item id %d declared twice", it.ID)
			}
			itemIDs[it.ID] = struct{}{}

			price, err := decimal.NewFromString(it.Price)
			if err != nil {
				return nil, fmt.Errorf("menu item %q: invalid price %q", it.Name, it.Price)
			}
			if price.IsNegative() {
				return nil, fmt.Errorf("menu item %q: price must be non-negative", it.Name)
			}

			active := true
			if it.Active != nil {
				active = *it.Active
			}
			seed.Items = append(seed.Items, domain.MenuItem{
				ID:         it.ID,
				CategoryID: c.ID,
				Name:       it.Name,
				Price:      price,
				IsActive:   active,
			})
		}
	}

	return seed, nil
}
