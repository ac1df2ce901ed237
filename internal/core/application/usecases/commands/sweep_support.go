package commands

import (
	"context"
	"errors"

	"preorder/internal/core/domain/model/order"
	"preorder/internal/pkg/errs"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// sweeper applies one transition to every matching order, each in its own
// unit of work. Conflicts and vanished orders are skipped; they are picked
// up by the next run.
type sweeper struct {
	uowFactory OrderUoWFactory
	counter    metric.Int64Counter
	target     order.Status
}

func (s sweeper) candidates(ctx context.Context, cmd SweepCommand, statuses ...order.Status) ([]*order.Order, error) {
	repo := s.uowFactory.Create().OrderRepository()
	if cmd.OwnerID() != "" {
		return repo.ListOrdersForOwner(ctx, cmd.OwnerID(), statuses...)
	}
	return repo.ListOrdersInStatus(ctx, statuses...)
}

func (s sweeper) run(
	ctx context.Context,
	orders []*order.Order,
	matches func(*order.Order) bool,
	transition func(*order.Order) error,
) (SweepResult, error) {
	var result SweepResult

	for _, candidate := range orders {
		if !matches(candidate) {
			continue
		}
		result.Examined++

		moved, err := s.transitionOne(ctx, candidate, matches, transition)
		switch {
		case errors.Is(err, errs.ErrVersionConflict), errors.Is(err, errs.ErrObjectNotFound):
			result.Conflicts++
		case err != nil:
			return result, err
		case moved:
			result.Transitioned++
		}
	}

	if result.Transitioned > 0 {
		s.counter.Add(ctx, int64(result.Transitioned), metric.WithAttributes(
			attribute.String("status", s.target.String()),
		))
	}
	return result, nil
}

// transitionOne re-reads the order inside a transaction so that an order
// changed since listing is judged on its current state.
func (s sweeper) transitionOne(
	ctx context.Context,
	candidate *order.Order,
	matches func(*order.Order) bool,
	transition func(*order.Order) error,
) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	o, err := repo.LoadOrder(ctx, candidate.ID())
	if err != nil {
		return false, err
	}
	if !matches(o) {
		return false, nil
	}

	expectedVersion := o.Version()
	if err = transition(o); err != nil {
		return false, err
	}

	if err = repo.UpdateOrder(ctx, o, expectedVersion); err != nil {
		return false, err
	}

	if err = uow.Commit(ctx); err != nil {
		return false, err
	}

	return true, nil
}
