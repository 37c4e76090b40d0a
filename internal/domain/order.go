package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            int64
	OrderNumber   string
	Barcode       string
	CustomerID    *string
	CustomerName  *string
	Items         []LineItem
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Amount        decimal.Decimal
	Status        OrderStatus
	EstimatedTime int
	PaymentRef    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeliveredAt   *time.Time
}

// Matches reports whether token equals the order's id, order number or
// barcode, in that precedence.
func (o Order) Matches(token string) bool {
	return strconv.FormatInt(o.ID, 10) == token || o.OrderNumber == token || o.Barcode == token
}

// OrderDraft is what a checkout or a counter entry submits before the order
// exists.
type OrderDraft struct {
	Items         []LineItem
	EstimatedTime int
	CustomerName  *string
	PaymentRef    *string
}

// OrderPatch holds the non-status fields an operator may change. Nil fields
// are left untouched.
type OrderPatch struct {
	EstimatedTime *int
	CustomerName  *string
}

func (p OrderPatch) Empty() bool {
	return p.EstimatedTime == nil && p.CustomerName == nil
}

type OrderFilter struct {
	Status     OrderStatus
	CustomerID string
}

// Pricing computes the stored money fields of an order. Amount is fixed at
// creation.
func Pricing(items []LineItem, taxRate decimal.Decimal) (subtotal, tax, amount decimal.Decimal) {
	subtotal = decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	subtotal = subtotal.Round(2)
	tax = subtotal.Mul(taxRate).Round(2)
	amount = subtotal.Add(tax)
	return subtotal, tax, amount
}
