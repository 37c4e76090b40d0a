package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"canteen/internal/domain"
)

type AddOnDTO struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// LineItemRequest is a cart line as submitted. Kind may be omitted: an
// itemId makes it a menu item.
type LineItemRequest struct {
	Kind           string          `json:"kind,omitempty"`
	ItemID         int             `json:"itemId,omitempty"`
	Name           string          `json:"name,omitempty"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Quantity       int             `json:"quantity"`
	SelectedAddOns []AddOnDTO      `json:"selectedAddOns,omitempty"`
}

type CreateOrderRequest struct {
	Items         []LineItemRequest `json:"items"`
	EstimatedTime int               `json:"estimatedTime,omitempty"`
	CustomerName  *string           `json:"customerName,omitempty"`
}

func (r CreateOrderRequest) Draft() domain.OrderDraft {
	items := make([]domain.LineItem, len(r.Items))
	for i, it := range r.Items {
		kind := domain.LineItemKind(it.Kind)
		if kind == "" {
			kind = domain.LineItemCustom
			if it.ItemID > 0 {
				kind = domain.LineItemMenu
			}
		}
		items[i] = domain.LineItem{
			Kind:      kind,
			ItemID:    it.ItemID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		}
		for _, a := range it.SelectedAddOns {
			items[i].SelectedAddOns = append(items[i].SelectedAddOns, domain.AddOn{Name: a.Name, Price: a.Price})
		}
	}
	return domain.OrderDraft{
		Items:         items,
		EstimatedTime: r.EstimatedTime,
		CustomerName:  r.CustomerName,
	}
}

// PatchOrderRequest carries either a status change or field edits.
type PatchOrderRequest struct {
	Status        *string `json:"status,omitempty"`
	EstimatedTime *int    `json:"estimatedTime,omitempty"`
	CustomerName  *string `json:"customerName,omitempty"`
}

type LineItemDTO struct {
	Kind           string     `json:"kind"`
	ItemID         int        `json:"itemId,omitempty"`
	Name           string     `json:"name"`
	UnitPrice      float64    `json:"unitPrice"`
	Quantity       int        `json:"quantity"`
	SelectedAddOns []AddOnDTO `json:"selectedAddOns,omitempty"`
	Subtotal       float64    `json:"subtotal"`
}

type OrderDTO struct {
	ID            int64         `json:"id"`
	OrderNumber   string        `json:"orderNumber"`
	Barcode       string        `json:"barcode"`
	CustomerID    *string       `json:"customerId"`
	CustomerName  *string       `json:"customerName"`
	Items         []LineItemDTO `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	Tax           float64       `json:"tax"`
	Amount        float64       `json:"amount"`
	Status        string        `json:"status"`
	Progress      int           `json:"progress"`
	EstimatedTime int           `json:"estimatedTime"`
	PaymentRef    *string       `json:"paymentRef,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	DeliveredAt   *time.Time    `json:"deliveredAt"`
}

func NewLineItemDTOs(items []domain.LineItem) []LineItemDTO {
	out := make([]LineItemDTO, len(items))
	for i, it := range items {
		out[i] = LineItemDTO{
			Kind:      string(it.Kind),
			ItemID:    it.ItemID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice.InexactFloat64(),
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal().InexactFloat64(),
		}
		for _, a := range it.SelectedAddOns {
			out[i].SelectedAddOns = append(out[i].SelectedAddOns, AddOnDTO{Name: a.Name, Price: a.Price})
		}
	}
	return out
}

func NewOrderDTO(o domain.Order) OrderDTO {
	return OrderDTO{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Barcode:       o.Barcode,
		CustomerID:    o.CustomerID,
		CustomerName:  o.CustomerName,
		Items:         NewLineItemDTOs(o.Items),
		Subtotal:      o.Subtotal.InexactFloat64(),
		Tax:           o.Tax.InexactFloat64(),
		Amount:        o.Amount.InexactFloat64(),
		Status:        string(o.Status),
		Progress:      o.Status.Progress(),
		EstimatedTime: o.EstimatedTime,
		PaymentRef:    o.PaymentRef,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		DeliveredAt:   o.DeliveredAt,
	}
}

type OrderResponse struct {
	TraceID string   `json:"traceId"`
	Order   OrderDTO `json:"order"`
}

type OrdersResponse struct {
	TraceID string     `json:"traceId"`
	Orders  []OrderDTO `json:"orders"`
}
