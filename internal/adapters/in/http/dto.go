package http

import (
	"time"

	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/application/usecases/queries"
	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/services"

	"github.com/shopspring/decimal"
)

// Error is the body of every non-2xx JSON response. Local and Remote are set
// for reconciliation conflicts only.
type Error struct {
	Code    int     `json:"code"`
	Message string  `json:"message"`
	Local   *Basket `json:"local,omitempty"`
	Remote  *Order  `json:"remote,omitempty"`
}

type LineItem struct {
	ProductID string          `json:"productId"`
	UnitLabel string          `json:"unitLabel"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Basket struct {
	OwnerID           string          `json:"ownerId"`
	Items             []LineItem      `json:"items"`
	Total             decimal.Decimal `json:"total"`
	Revision          uint64          `json:"revision"`
	BoundOrderID      *kernel.UUID    `json:"boundOrderId,omitempty"`
	BoundOrderDateKey string          `json:"boundOrderDateKey,omitempty"`
	BoundOrderVersion int64           `json:"boundOrderVersion,omitempty"`
	Conflict          *Conflict       `json:"conflict,omitempty"`
}

// Conflict pairs the local basket with the remote order it diverged from.
type Conflict struct {
	Local  Basket `json:"local"`
	Remote Order  `json:"remote"`
}

type Order struct {
	ID       kernel.UUID     `json:"id"`
	Status   string          `json:"status"`
	Version  int64           `json:"version"`
	PickupAt time.Time       `json:"pickupAt"`
	DateKey  string          `json:"dateKey"`
	Deadline time.Time       `json:"deadline"`
	Editable bool            `json:"editable"`
	Total    decimal.Decimal `json:"total"`
	Items    []LineItem      `json:"items"`
}

type PickupSlot struct {
	PickupAt time.Time `json:"pickupAt"`
	DateKey  string    `json:"dateKey"`
	Deadline time.Time `json:"deadline"`
}

type ItemDiff struct {
	ProductID         string          `json:"productId"`
	UnitLabel         string          `json:"unitLabel,omitempty"`
	CurrentQuantity   decimal.Decimal `json:"currentQuantity"`
	CommittedQuantity decimal.Decimal `json:"committedQuantity"`
	HasChanged        bool            `json:"hasChanged"`
}

type Reconciliation struct {
	OrderID         *kernel.UUID `json:"orderId,omitempty"`
	Divergent       bool         `json:"divergent"`
	Bound           bool         `json:"bound"`
	BindingReleased bool         `json:"bindingReleased"`
	Items           []ItemDiff   `json:"items"`
}

type SweepResult struct {
	Examined     int `json:"examined"`
	Transitioned int `json:"transitioned"`
	Conflicts    int `json:"conflicts"`
}

type Sweeps struct {
	Deadlines SweepResult `json:"deadlines"`
	Stale     SweepResult `json:"stale"`
}

// Request bodies.
type (
	SetItemRequest struct {
		ProductID string `json:"productId"`
		UnitLabel string `json:"unitLabel"`
		UnitPrice string `json:"unitPrice"`
		Quantity  string `json:"quantity"`
	}

	CommitRequest struct {
		PickupAt *time.Time `json:"pickupAt"`
	}

	ResolveRequest struct {
		OrderID string `json:"orderId"`
		Policy  string `json:"policy"`
	}
)

func toLineItems(items []kernel.LineItem) []LineItem {
	result := make([]LineItem, 0, len(items))
	for _, item := range items {
		result = append(result, LineItem{
			ProductID: item.ProductID(),
			UnitLabel: item.UnitLabel(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice(),
			Subtotal:  item.Subtotal(),
		})
	}
	return result
}

func toBasket(b basket.Basket) Basket {
	response := Basket{
		OwnerID:  b.OwnerID(),
		Items:    toLineItems(b.Items()),
		Total:    b.Total(),
		Revision: b.Revision(),
	}
	if b.IsBound() {
		id := b.BoundOrderID()
		response.BoundOrderID = &id
		response.BoundOrderDateKey = b.BoundOrderDateKey()
		response.BoundOrderVersion = b.BoundOrderVersion()
	}
	return response
}

func toOrder(o *order.Order, window services.EditWindow, now time.Time) Order {
	return Order{
		ID:       o.ID(),
		Status:   o.Status().String(),
		Version:  o.Version(),
		PickupAt: window.RealPickupAt(o),
		DateKey:  window.DateKey(o),
		Deadline: window.Deadline(o),
		Editable: window.IsOpen(o, now),
		Total:    o.Total(),
		Items:    toLineItems(o.Items()),
	}
}

func fromListedOrder(o queries.ListOrdersQueryResponse) Order {
	items := make([]LineItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, LineItem{
			ProductID: item.ProductID,
			UnitLabel: item.UnitLabel,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	return Order{
		ID:       o.ID,
		Status:   o.Status.String(),
		Version:  o.Version,
		PickupAt: o.PickupAt,
		DateKey:  o.DateKey,
		Deadline: o.Deadline,
		Editable: o.Editable,
		Total:    o.Total,
		Items:    items,
	}
}

func toReconciliation(outcome commands.ReconcileOutcome) Reconciliation {
	response := Reconciliation{
		Divergent:       outcome.Result.IsDivergent,
		Bound:           outcome.Bound,
		BindingReleased: outcome.BindingReleased,
		Items:           make([]ItemDiff, 0, len(outcome.Result.Items)),
	}
	if outcome.Order != nil {
		id := outcome.Order.ID()
		response.OrderID = &id
	}
	for _, item := range outcome.Result.Items {
		response.Items = append(response.Items, ItemDiff{
			ProductID:         item.ProductID,
			UnitLabel:         item.UnitLabel,
			CurrentQuantity:   item.CurrentQuantity,
			CommittedQuantity: item.CommittedQuantity,
			HasChanged:        item.HasChanged,
		})
	}
	return response
}

func toSweepResult(r commands.SweepResult) SweepResult {
	return SweepResult{Examined: r.Examined, Transitioned: r.Transitioned, Conflicts: r.Conflicts}
}
