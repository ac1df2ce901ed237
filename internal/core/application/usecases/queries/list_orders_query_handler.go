package queries

import (
	"context"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/services"
)

// OrderReader is the read side of the order repository.
type OrderReader interface {
	ListOrdersForOwner(ctx context.Context, ownerID string, statuses ...order.Status) ([]*order.Order, error)
}

// ListOrdersQueryHandler reads an owner's orders through the repository so
// that every persistence driver serves it.
type ListOrdersQueryHandler struct {
	reader OrderReader
	window services.EditWindow
}

func NewListOrdersQueryHandler(reader OrderReader, window services.EditWindow) ListOrdersQueryHandler {
	return ListOrdersQueryHandler{reader: reader, window: window}
}

func (h ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) ([]ListOrdersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	orders, err := h.reader.ListOrdersForOwner(ctx, query.OwnerID(), query.Statuses()...)
	if err != nil {
		return nil, err
	}

	result := make([]ListOrdersQueryResponse, 0, len(orders))
	for _, o := range orders {
		result = append(result, ListOrdersQueryResponse{
			ID:       o.ID(),
			Status:   o.Status(),
			Version:  o.Version(),
			PickupAt: h.window.RealPickupAt(o),
			DateKey:  h.window.DateKey(o),
			Deadline: h.window.Deadline(o),
			Editable: h.window.IsOpen(o, query.Now()),
			Total:    o.Total(),
			Items:    toLineItemResponses(o.Items()),
		})
	}

	return result, nil
}

func toLineItemResponses(items []kernel.LineItem) []LineItemResponse {
	result := make([]LineItemResponse, 0, len(items))
	for _, item := range items {
		result = append(result, LineItemResponse{
			ProductID: item.ProductID(),
			UnitLabel: item.UnitLabel(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice(),
			Subtotal:  item.Subtotal(),
		})
	}
	return result
}
