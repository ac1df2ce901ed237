package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	// eventsBuffer is the basket event buffer of one SSE client.
	eventsBuffer = 16

	conflictsBuffer = 4
)

// StreamBasketEvents handles GET /api/v1/basket/events. The current basket
// is sent first, then one event per basket change until the client leaves.
// While a signed-in owner is connected, changes to their orders reconcile
// the basket: the resulting basket events reach the stream, and a conflict
// event carries both sides of any divergence found.
func (s *Server) StreamBasketEvents(c echo.Context) error {
	ctx := c.Request().Context()
	owner := ownerID(c)

	conflicts, stopConflicts, err := s.sessions.SubscribeConflicts(ctx, owner, conflictsBuffer)
	if err != nil {
		return s.respondError(c, err)
	}
	defer stopConflicts()

	store, err := s.openBasket(c)
	if err != nil {
		return s.respondError(c, err)
	}

	events, unsubscribe := store.Subscribe(eventsBuffer)
	defer unsubscribe()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err = writeEvent(w, "snapshot", s.basketView(store.Snapshot())); err != nil {
		return nil
	}

	if owner != "" {
		go s.watch(ctx, owner)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err = writeEvent(w, event.Kind.String(), s.basketView(event.Snapshot)); err != nil {
				return nil
			}
		case conflict, ok := <-conflicts:
			if !ok {
				return nil
			}
			if err = writeEvent(w, "conflict", s.toConflict(conflict)); err != nil {
				return nil
			}
		}
	}
}

func (s *Server) watch(ctx context.Context, ownerID string) {
	if err := s.sessions.Watch(ctx, ownerID); err != nil {
		s.logger.ErrorContext(ctx, "order feed subscription failed",
			"owner_id", ownerID,
			"error", err,
		)
	}
}

func writeEvent(w *echo.Response, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
