package domain

import "github.com/shopspring/decimal"

type Category struct {
	ID        int
	Name      string
	SortOrder int
}

type MenuItem struct {
	ID         int
	CategoryID int
	Name       string
	Price      decimal.Decimal
	IsActive   bool
}
