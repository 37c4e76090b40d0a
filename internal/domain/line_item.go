package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const MaxLineItemQuantity = 100

type LineItemKind string

const (
	// LineItemMenu references a menu item; name and price come from the menu.
	LineItemMenu LineItemKind = "menu_item"
	// LineItemCustom is a free-form counter entry priced by the operator.
	LineItemCustom LineItemKind = "custom"
)

type AddOn struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type LineItem struct {
	Kind           LineItemKind    `json:"kind"`
	ItemID         int             `json:"itemId,omitempty"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Quantity       int             `json:"quantity"`
	SelectedAddOns []AddOn         `json:"selectedAddOns"`
}

// Subtotal is (unit price + add-ons) x quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	unit := li.UnitPrice
	for _, a := range li.SelectedAddOns {
		unit = unit.Add(a.Price)
	}
	return unit.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Validate checks the fields required by the item's kind. Menu items are
// validated before pricing, so name and price are not required for them.
func (li LineItem) Validate() error {
	switch li.Kind {
	case LineItemMenu:
		if li.ItemID <= 0 {
			return fmt.Errorf("menu item requires a positive itemId")
		}
	case LineItemCustom:
		if strings.TrimSpace(li.Name) == "" {
			return fmt.Errorf("custom item requires a name")
		}
		if li.UnitPrice.IsNegative() {
			return fmt.Errorf("unitPrice must be non-negative")
		}
	default:
		return fmt.Errorf("unknown line item kind %q", li.Kind)
	}

	if li.Quantity < 1 || li.Quantity > MaxLineItemQuantity {
		return fmt.Errorf("quantity must be between 1 and %d", MaxLineItemQuantity)
	}

	for _, a := range li.SelectedAddOns {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("add-on requires a name")
		}
		if a.Price.IsNegative() {
			return fmt.Errorf("add-on %q price must be non-negative", a.Name)
		}
	}
	return nil
}

// UnmarshalJSON decodes a line item and validates it. Rows written before
// items were tagged carry no kind; it is inferred from the presence of an
// itemId.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	type rawLineItem LineItem
	var raw rawLineItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding line item: %w", err)
	}

	if raw.Kind == "" {
		if raw.ItemID > 0 {
			raw.Kind = LineItemMenu
		} else {
			raw.Kind = LineItemCustom
		}
	}

	item := LineItem(raw)
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid line item: %w", err)
	}

	*li = item
	return nil
}

// EncodeItems serialises items for the opaque storage column.
func EncodeItems(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}

func DecodeItems(data []byte) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}
