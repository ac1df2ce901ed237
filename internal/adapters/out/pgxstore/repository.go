package pgxstore

import (
	"context"
	"errors"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/ports"
	"preorder/internal/pkg/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is implemented by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type aggregateTracker interface {
	TrackAggregate(ctx context.Context, aggregate *order.Order)
}

// OrderRepository implements ports.OrderRepository with hand-written SQL.
type OrderRepository struct {
	db      querier
	tracker aggregateTracker
}

func NewOrderRepository(db querier, tracker aggregateTracker) *OrderRepository {
	return &OrderRepository{db: db, tracker: tracker}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, aggregate *order.Order) (kernel.UUID, error) {
	if err := aggregate.Validate(); err != nil {
		return kernel.UUID{}, err
	}
	if aggregate.ID().IsZero() {
		if err := aggregate.AssignID(kernel.NewUUID()); err != nil {
			return kernel.UUID{}, err
		}
	}

	items, err := encodeItems(aggregate.Items())
	if err != nil {
		return kernel.UUID{}, err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		aggregate.ID().Bytes(),
		aggregate.OwnerID(),
		aggregate.CreatedAt(),
		aggregate.PickupAt(),
		int64(aggregate.PickupOffsetDays()),
		items,
		int64(aggregate.Status()),
		aggregate.Version(),
	)
	if err != nil {
		return kernel.UUID{}, err
	}

	r.tracker.TrackAggregate(ctx, aggregate)
	return aggregate.ID(), nil
}

// UpdateOrder writes the order only if the stored version still equals
// expectedVersion, and advances the version by one.
func (r *OrderRepository) UpdateOrder(ctx context.Context, aggregate *order.Order, expectedVersion int64) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	items, err := encodeItems(aggregate.Items())
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET items = $1, status = $2, version = version + 1
		WHERE id = $3 AND version = $4`,
		items, int64(aggregate.Status()), aggregate.ID().Bytes(), expectedVersion,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return r.missedUpdate(ctx, aggregate.ID(), expectedVersion)
	}

	aggregate.ConfirmUpdate(expectedVersion)
	r.tracker.TrackAggregate(ctx, aggregate)
	return nil
}

func (r *OrderRepository) missedUpdate(ctx context.Context, id kernel.UUID, expectedVersion int64) error {
	var actual int64
	err := r.db.QueryRow(ctx, `SELECT version FROM orders WHERE id = $1`, id.Bytes()).Scan(&actual)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.NewObjectNotFoundError("orderID", id)
	}
	if err != nil {
		return err
	}
	return errs.NewVersionConflictError("order", id, expectedVersion, actual)
}

func (r *OrderRepository) LoadOrder(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id.Bytes()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NewObjectNotFoundError("orderID", id)
	}
	return o, err
}

// ListOrdersForOwner returns the owner's orders, newest first.
func (r *OrderRepository) ListOrdersForOwner(ctx context.Context, ownerID string, statuses ...order.Status) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE owner_id = $1`
	args := []any{ownerID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, statusValues(statuses))
	}

	rows, err := r.db.Query(ctx, query+` ORDER BY created_at DESC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ListOrdersInStatus returns every order in one of statuses, earliest pickup
// first.
func (r *OrderRepository) ListOrdersInStatus(ctx context.Context, statuses ...order.Status) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status = ANY($1)`
		args = append(args, statusValues(statuses))
	}

	rows, err := r.db.Query(ctx, query+` ORDER BY pickup_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

var _ ports.OrderRepository = (*OrderRepository)(nil)
