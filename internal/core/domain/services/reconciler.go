package services

import (
	"sort"
	"time"

	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"

	"github.com/shopspring/decimal"
)

// ItemDiff compares one product between basket and committed order.
type ItemDiff struct {
	ProductID         string
	UnitLabel         string
	CurrentQuantity   decimal.Decimal
	CommittedQuantity decimal.Decimal
	HasChanged        bool
}

// ReconciliationResult is the per-product comparison of a basket with an
// order, sorted by product id.
type ReconciliationResult struct {
	OrderID     kernel.UUID
	Items       []ItemDiff
	IsDivergent bool
}

// Item looks up the row of a product.
func (r ReconciliationResult) Item(productID string) (ItemDiff, bool) {
	for _, item := range r.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return ItemDiff{}, false
}

// Reconciler compares baskets with their orders.
//
// Example usage:
//
//	reconciler := services.NewReconciler(services.NewEditWindow(calendar))
//	current, ok := reconciler.SelectCurrentOrder(placedOrders, now)
//	if ok {
//	    result := reconciler.Diff(store.Snapshot(), current)
//	    // result.IsDivergent: the basket holds uncommitted edits
//	}
type Reconciler struct {
	window EditWindow
}

func NewReconciler(window EditWindow) Reconciler {
	return Reconciler{window: window}
}

// Diff compares every product present in either the basket or the order.
// A nil order compares against nothing committed.
func (r Reconciler) Diff(b basket.Basket, o *order.Order) ReconciliationResult {
	rows := make(map[string]ItemDiff)

	for _, item := range b.Items() {
		rows[item.ProductID()] = ItemDiff{
			ProductID:         item.ProductID(),
			UnitLabel:         item.UnitLabel(),
			CurrentQuantity:   item.Quantity(),
			CommittedQuantity: decimal.Zero,
		}
	}

	var result ReconciliationResult
	if o != nil {
		result.OrderID = o.ID()
		for _, item := range o.Items() {
			row, ok := rows[item.ProductID()]
			if !ok {
				row = ItemDiff{
					ProductID:       item.ProductID(),
					UnitLabel:       item.UnitLabel(),
					CurrentQuantity: decimal.Zero,
				}
			}
			row.CommittedQuantity = item.Quantity()
			rows[item.ProductID()] = row
		}
	}

	result.Items = make([]ItemDiff, 0, len(rows))
	for _, row := range rows {
		row.HasChanged = !row.CurrentQuantity.Equal(row.CommittedQuantity)
		if row.HasChanged {
			result.IsDivergent = true
		}
		result.Items = append(result.Items, row)
	}
	sort.Slice(result.Items, func(i, j int) bool {
		return result.Items[i].ProductID < result.Items[j].ProductID
	})

	return result
}

// SelectCurrentOrder picks, among orders, the Placed order still editable
// at now with the most recent creation time. Ties go to the smallest id,
// the first of them in a repository listing.
func (r Reconciler) SelectCurrentOrder(orders []*order.Order, now time.Time) (*order.Order, bool) {
	var current *order.Order
	for _, o := range orders {
		if o == nil || !r.window.IsOpen(o, now) {
			continue
		}
		if current == nil ||
			o.CreatedAt().After(current.CreatedAt()) ||
			(o.CreatedAt().Equal(current.CreatedAt()) && o.ID().String() < current.ID().String()) {
			current = o
		}
	}
	return current, current != nil
}
