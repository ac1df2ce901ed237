package kernel

import (
	"fmt"
	"sort"

	"preorder/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// LineItem is one product line of a basket or an order. The unit price is
// carried by the line; the engine never computes prices.
type LineItem struct {
	productID string
	unitLabel string
	quantity  decimal.Decimal
	unitPrice decimal.Decimal
}

// NewLineItem validates and builds a line. A zero quantity is allowed and
// means "absent"; negative quantities and negative prices are rejected with
// ErrInvalidQuantity.
func NewLineItem(productID, unitLabel string, quantity, unitPrice decimal.Decimal) (LineItem, error) {
	if productID == "" {
		return LineItem{}, errs.NewValueIsRequiredError("productID")
	}
	if quantity.IsNegative() {
		return LineItem{}, fmt.Errorf("%w: quantity %s is negative", ErrInvalidQuantity, quantity)
	}
	if unitPrice.IsNegative() {
		return LineItem{}, fmt.Errorf("%w: unit price %s is negative", ErrInvalidQuantity, unitPrice)
	}
	return LineItem{
		productID: productID,
		unitLabel: unitLabel,
		quantity:  quantity,
		unitPrice: unitPrice,
	}, nil
}

// MustNewLineItem panics on invalid input. Intended for fixtures.
func MustNewLineItem(productID, unitLabel string, quantity, unitPrice decimal.Decimal) LineItem {
	item, err := NewLineItem(productID, unitLabel, quantity, unitPrice)
	if err != nil {
		panic(err)
	}
	return item
}

func (l LineItem) ProductID() string          { return l.productID }
func (l LineItem) UnitLabel() string          { return l.unitLabel }
func (l LineItem) Quantity() decimal.Decimal  { return l.quantity }
func (l LineItem) UnitPrice() decimal.Decimal { return l.unitPrice }

// Subtotal is quantity × unit price.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.quantity.Mul(l.unitPrice)
}

func (l LineItem) IsZero() bool {
	return l.quantity.IsZero()
}

// WithQuantity returns a copy of the line with a different quantity.
func (l LineItem) WithQuantity(quantity decimal.Decimal) LineItem {
	l.quantity = quantity
	return l
}

// Equal compares lines by value; decimals compare numerically so 1.0 == 1.
func (l LineItem) Equal(other LineItem) bool {
	return l.productID == other.productID &&
		l.unitLabel == other.unitLabel &&
		l.quantity.Equal(other.quantity) &&
		l.unitPrice.Equal(other.unitPrice)
}

// SumSubtotals totals a set of lines.
func SumSubtotals(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// NormalizeLineItems drops zero-quantity lines, keeps the last line per
// product and sorts by product id.
func NormalizeLineItems(items []LineItem) []LineItem {
	byProduct := make(map[string]LineItem, len(items))
	for _, item := range items {
		if item.IsZero() {
			delete(byProduct, item.productID)
			continue
		}
		byProduct[item.productID] = item
	}

	out := make([]LineItem, 0, len(byProduct))
	for _, item := range byProduct {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].productID < out[j].productID })
	return out
}
