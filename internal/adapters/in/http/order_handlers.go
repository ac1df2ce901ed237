package http

import (
	"net/http"

	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/application/usecases/queries"
	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// DefaultPickupSlots is the number of slots listed when count is omitted.
const DefaultPickupSlots = 4

// ListPickupSlots handles GET /api/v1/pickup-slots.
func (s *Server) ListPickupSlots(c echo.Context) error {
	count := DefaultPickupSlots
	if err := runtime.BindQueryParameter("form", true, false, "count", c.QueryParams(), &count); err != nil {
		return s.respondError(c, errs.NewValueIsInvalidErrorWithCause("count", err))
	}

	query, err := queries.NewListPickupSlotsQuery(s.clock.Now(), count)
	if err != nil {
		return s.respondError(c, err)
	}
	slots, err := s.pickupSlots.Handle(c.Request().Context(), query)
	if err != nil {
		return s.respondError(c, err)
	}

	response := make([]PickupSlot, 0, len(slots))
	for _, slot := range slots {
		response = append(response, PickupSlot{
			PickupAt: slot.PickupAt,
			DateKey:  slot.DateKey,
			Deadline: slot.Deadline,
		})
	}
	return c.JSON(http.StatusOK, response)
}

// ListOrders handles GET /api/v1/orders.
func (s *Server) ListOrders(c echo.Context) error {
	var names []string
	if err := runtime.BindQueryParameter("form", false, false, "status", c.QueryParams(), &names); err != nil {
		return s.respondError(c, errs.NewValueIsInvalidErrorWithCause("status", err))
	}
	statuses := make([]order.Status, 0, len(names))
	for _, name := range names {
		status, err := order.ParseStatus(name)
		if err != nil {
			return s.respondError(c, err)
		}
		statuses = append(statuses, status)
	}

	query, err := queries.NewListOrdersQuery(ownerID(c), s.clock.Now(), statuses...)
	if err != nil {
		return s.respondError(c, err)
	}
	orders, err := s.listOrders.Handle(c.Request().Context(), query)
	if err != nil {
		return s.respondError(c, err)
	}

	response := make([]Order, 0, len(orders))
	for _, o := range orders {
		response = append(response, fromListedOrder(o))
	}
	return c.JSON(http.StatusOK, response)
}

// CancelOrder handles POST /api/v1/orders/{orderId}/cancel. The caller's
// basket is emptied when it was bound to the cancelled order.
func (s *Server) CancelOrder(c echo.Context) error {
	var orderID kernel.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "orderId", c.Param("orderId"), &orderID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return s.respondError(c, errs.NewValueIsInvalidErrorWithCause("orderId", err))
	}

	var o *order.Order
	err = s.withBasket(c, func(store *basket.Store) error {
		cmd, err := commands.NewCancelStoreCommand(store, orderID)
		if err != nil {
			return err
		}
		o, err = s.cancel.Handle(c.Request().Context(), cmd)
		return err
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOrder(o, s.window, s.clock.Now()))
}

// RunSweeps handles POST /api/v1/sweeps: a deadline sweep followed by a
// stale sweep, scoped to the caller when X-Owner-ID is set.
func (s *Server) RunSweeps(c echo.Context) error {
	cmd, err := commands.NewSweepCommand(s.clock.Now(), ownerID(c))
	if err != nil {
		return s.respondError(c, err)
	}

	deadlines, err := s.deadlines.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.respondError(c, err)
	}
	stale, err := s.stale.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusOK, Sweeps{
		Deadlines: toSweepResult(deadlines),
		Stale:     toSweepResult(stale),
	})
}
