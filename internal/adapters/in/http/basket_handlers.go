package http

import (
	"net/http"
	"time"

	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// GetBasket handles GET /api/v1/basket.
func (s *Server) GetBasket(c echo.Context) error {
	store, err := s.openBasket(c)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, s.basketView(store.Snapshot()))
}

// ClearBasket handles DELETE /api/v1/basket. The stored session goes with
// the items.
func (s *Server) ClearBasket(c echo.Context) error {
	store, err := s.openBasket(c)
	if err != nil {
		return s.respondError(c, err)
	}
	if err = s.sessions.Discard(c.Request().Context(), ownerID(c)); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, s.basketView(store.Snapshot()))
}

// SetBasketItem handles POST /api/v1/basket/items. A quantity of zero or
// less removes the product.
func (s *Server) SetBasketItem(c echo.Context) error {
	var req SetItemRequest
	if err := c.Bind(&req); err != nil {
		return s.respondError(c, errs.NewValueIsInvalidErrorWithCause("body", err))
	}

	quantity, err := kernel.ParseQuantity(req.Quantity)
	if err != nil {
		return s.respondError(c, err)
	}
	unitPrice := decimal.Zero
	if req.UnitPrice != "" {
		if unitPrice, err = decimal.NewFromString(req.UnitPrice); err != nil {
			return s.respondError(c, errs.NewValueIsInvalidErrorWithCause("unitPrice", err))
		}
	}

	store, err := s.openBasket(c)
	if err != nil {
		return s.respondError(c, err)
	}
	if err = store.SetQuantity(req.ProductID, req.UnitLabel, unitPrice, quantity); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, s.basketView(store.Snapshot()))
}

// CommitBasket handles POST /api/v1/basket/commit. pickupAt is only read
// for unbound baskets.
func (s *Server) CommitBasket(c echo.Context) error {
	var req CommitRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return s.respondError(c, errs.NewValueIsInvalidErrorWithCause("body", err))
		}
	}
	var pickupAt time.Time
	if req.PickupAt != nil {
		pickupAt = *req.PickupAt
	}

	var o *order.Order
	err := s.withBasket(c, func(store *basket.Store) error {
		cmd, err := commands.NewCommitStoreCommand(store, pickupAt, s.clock.Now())
		if err != nil {
			return err
		}
		o, err = s.commit.Handle(c.Request().Context(), cmd)
		return err
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOrder(o, s.window, s.clock.Now()))
}

// ReconcileBasket handles POST /api/v1/basket/reconcile.
func (s *Server) ReconcileBasket(c echo.Context) error {
	outcome, err := s.sessions.Reconcile(c.Request().Context(), ownerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReconciliation(outcome))
}

// ResolveConflict handles POST /api/v1/basket/resolve.
func (s *Server) ResolveConflict(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return s.respondError(c, errs.NewValueIsInvalidErrorWithCause("body", err))
	}

	orderID, err := kernel.UUIDFromString(req.OrderID)
	if err != nil {
		return s.respondError(c, errs.NewValueIsInvalidErrorWithCause("orderId", err))
	}
	policy, err := commands.ParseResolutionPolicy(req.Policy)
	if err != nil {
		return s.respondError(c, err)
	}

	var resolved *basket.Store
	err = s.withBasket(c, func(store *basket.Store) error {
		cmd, err := commands.NewResolveConflictCommand(store, orderID, policy, s.clock.Now())
		if err != nil {
			return err
		}
		resolved = store
		_, err = s.resolve.Handle(c.Request().Context(), cmd)
		return err
	})
	if err != nil {
		return s.respondError(c, err)
	}

	// Refresh the recorded conflict for the owner.
	if _, err = s.sessions.Reconcile(c.Request().Context(), ownerID(c)); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, s.basketView(resolved.Snapshot()))
}
