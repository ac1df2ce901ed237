package queries

import (
	"context"

	"preorder/internal/core/domain/model/schedule"
)

// ListPickupSlotsQueryHandler lists selectable pickup instants. It reads no
// storage.
type ListPickupSlotsQueryHandler struct {
	calendar schedule.Calendar
}

func NewListPickupSlotsQueryHandler(calendar schedule.Calendar) ListPickupSlotsQueryHandler {
	return ListPickupSlotsQueryHandler{calendar: calendar}
}

func (h ListPickupSlotsQueryHandler) Handle(ctx context.Context, query ListPickupSlotsQuery) ([]PickupSlot, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	instants := h.calendar.NextPickupInstants(query.From(), query.Count())
	slots := make([]PickupSlot, 0, len(instants))
	for _, at := range instants {
		slots = append(slots, PickupSlot{
			PickupAt: at,
			DateKey:  h.calendar.DateKey(at),
			Deadline: h.calendar.EditDeadline(at),
		})
	}
	return slots, nil
}
