package basket

import (
	"sort"

	"preorder/internal/core/domain/model/kernel"

	"github.com/shopspring/decimal"
)

// Basket is an immutable snapshot of a Store.
type Basket struct {
	ownerID string
	items   map[string]kernel.LineItem

	boundOrderID      kernel.UUID
	boundOrderDateKey string
	boundOrderVersion int64

	revision uint64
}

// Restore builds a snapshot from persisted fields. Zero-quantity lines are
// dropped; a zero boundOrderID means unbound.
func Restore(
	ownerID string,
	items []kernel.LineItem,
	boundOrderID kernel.UUID,
	boundOrderDateKey string,
	boundOrderVersion int64,
	revision uint64,
) Basket {
	b := Basket{
		ownerID:  ownerID,
		items:    toMap(items),
		revision: revision,
	}
	if !boundOrderID.IsZero() {
		b.boundOrderID = boundOrderID
		b.boundOrderDateKey = boundOrderDateKey
		b.boundOrderVersion = boundOrderVersion
	}
	return b
}

func (b Basket) OwnerID() string {
	return b.ownerID
}

// Items returns the lines sorted by product id.
func (b Basket) Items() []kernel.LineItem {
	items := make([]kernel.LineItem, 0, len(b.items))
	for _, item := range b.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID() < items[j].ProductID() })
	return items
}

// Item returns the line of a product.
func (b Basket) Item(productID string) (kernel.LineItem, bool) {
	item, ok := b.items[productID]
	return item, ok
}

// Quantity is the basket quantity of a product, zero if absent.
func (b Basket) Quantity(productID string) decimal.Decimal {
	if item, ok := b.items[productID]; ok {
		return item.Quantity()
	}
	return decimal.Zero
}

func (b Basket) IsEmpty() bool {
	return len(b.items) == 0
}

func (b Basket) IsBound() bool {
	return !b.boundOrderID.IsZero()
}

func (b Basket) BoundOrderID() kernel.UUID {
	return b.boundOrderID
}

// BoundOrderDateKey is the pickup day of the bound order ("2006-01-02").
func (b Basket) BoundOrderDateKey() string {
	return b.boundOrderDateKey
}

// BoundOrderVersion is the order version the basket last synchronised
// with. Commits use it as the expected version.
func (b Basket) BoundOrderVersion() int64 {
	return b.boundOrderVersion
}

func (b Basket) Revision() uint64 {
	return b.revision
}

func (b Basket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func toMap(items []kernel.LineItem) map[string]kernel.LineItem {
	m := make(map[string]kernel.LineItem, len(items))
	for _, item := range items {
		if item.IsZero() {
			continue
		}
		m[item.ProductID()] = item
	}
	return m
}

func copyItems(items map[string]kernel.LineItem) map[string]kernel.LineItem {
	m := make(map[string]kernel.LineItem, len(items))
	for k, v := range items {
		m[k] = v
	}
	return m
}
