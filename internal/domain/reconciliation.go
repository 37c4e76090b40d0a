package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reconciliation records a payment the gateway confirmed but the order
// store never accepted. Staff settle it by hand.
type Reconciliation struct {
	ID         int64
	SessionID  string
	GatewayRef string
	Amount     decimal.Decimal
	CustomerID *string
	Items      []LineItem
	Cause      string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

func (r Reconciliation) Resolved() bool {
	return r.ResolvedAt != nil
}
