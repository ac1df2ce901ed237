package http

import (
	"context"
	"log/slog"
	"net/http"

	"preorder/internal/core/application/session"
	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/application/usecases/queries"
	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/services"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// OwnerHeader carries the opaque owner id of the caller.
const OwnerHeader = "X-Owner-ID"

type (
	CommitHandler interface {
		Handle(ctx context.Context, cmd commands.CommitBasketCommand) (*order.Order, error)
	}

	CancelHandler interface {
		Handle(ctx context.Context, cmd commands.CancelOrderCommand) (*order.Order, error)
	}

	ResolveHandler interface {
		Handle(ctx context.Context, cmd commands.ResolveConflictCommand) (*order.Order, error)
	}

	SweepHandler interface {
		Handle(ctx context.Context, cmd commands.SweepCommand) (commands.SweepResult, error)
	}

	ListOrdersHandler interface {
		Handle(ctx context.Context, query queries.ListOrdersQuery) ([]queries.ListOrdersQueryResponse, error)
	}

	ListPickupSlotsHandler interface {
		Handle(ctx context.Context, query queries.ListPickupSlotsQuery) ([]queries.PickupSlot, error)
	}
)

// Dependencies groups the use cases served over HTTP.
type Dependencies struct {
	Sessions    *session.Manager
	Commit      CommitHandler
	Cancel      CancelHandler
	Resolve     ResolveHandler
	Deadlines   SweepHandler
	Stale       SweepHandler
	ListOrders  ListOrdersHandler
	PickupSlots ListPickupSlotsHandler
	Window      services.EditWindow
	Clock       kernel.Clock
	Logger      *slog.Logger
}

// Server coordinates between HTTP handlers and application use cases.
type Server struct {
	sessions *session.Manager

	// Command handlers
	commit    CommitHandler
	cancel    CancelHandler
	resolve   ResolveHandler
	deadlines SweepHandler
	stale     SweepHandler

	// Query handlers
	listOrders  ListOrdersHandler
	pickupSlots ListPickupSlotsHandler

	window services.EditWindow
	clock  kernel.Clock
	logger *slog.Logger
}

func NewServer(deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = kernel.NewSystemClock(0)
	}
	return &Server{
		sessions:    deps.Sessions,
		commit:      deps.Commit,
		cancel:      deps.Cancel,
		resolve:     deps.Resolve,
		deadlines:   deps.Deadlines,
		stale:       deps.Stale,
		listOrders:  deps.ListOrders,
		pickupSlots: deps.PickupSlots,
		window:      deps.Window,
		clock:       clock,
		logger:      logger.With("component", "http"),
	}
}

// Register mounts the API, the request validator and the Swagger UI on e.
func (s *Server) Register(e *echo.Echo) error {
	doc, err := LoadOpenAPIDoc()
	if err != nil {
		return err
	}
	if err = registerSwaggerDoc(doc); err != nil {
		return err
	}
	validator, err := RequestValidator(doc)
	if err != nil {
		return err
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1", validator)
	api.GET("/pickup-slots", s.ListPickupSlots)
	api.GET("/basket", s.GetBasket)
	api.DELETE("/basket", s.ClearBasket)
	api.POST("/basket/items", s.SetBasketItem)
	api.POST("/basket/commit", s.CommitBasket)
	api.POST("/basket/reconcile", s.ReconcileBasket)
	api.POST("/basket/resolve", s.ResolveConflict)
	api.GET("/basket/events", s.StreamBasketEvents)
	api.GET("/orders", s.ListOrders)
	api.POST("/orders/:orderId/cancel", s.CancelOrder)
	api.POST("/sweeps", s.RunSweeps)
	return nil
}

func ownerID(c echo.Context) string {
	return c.Request().Header.Get(OwnerHeader)
}

// openBasket returns the caller's live basket.
func (s *Server) openBasket(c echo.Context) (*basket.Store, error) {
	return s.sessions.Open(c.Request().Context(), ownerID(c))
}

// withBasket runs fn on the caller's basket with the owner's other basket
// operations held off.
func (s *Server) withBasket(c echo.Context, fn func(*basket.Store) error) error {
	return s.sessions.WithBasket(c.Request().Context(), ownerID(c), fn)
}

// basketView renders a snapshot together with the owner's unresolved
// conflict, if any.
func (s *Server) basketView(b basket.Basket) Basket {
	response := toBasket(b)
	if conflict := s.sessions.LastConflict(b.OwnerID()); conflict != nil {
		view := s.toConflict(conflict)
		response.Conflict = &view
	}
	return response
}

func (s *Server) toConflict(conflict *commands.ReconciliationConflictError) Conflict {
	return Conflict{
		Local:  toBasket(conflict.Local),
		Remote: toOrder(conflict.Remote, s.window, s.clock.Now()),
	}
}
