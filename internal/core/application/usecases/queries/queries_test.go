package queries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"preorder/internal/adapters/out/memory"
	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/application/usecases/queries"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/model/schedule"
	"preorder/internal/core/domain/services"
	"preorder/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	monday   = time.Date(2025, time.November, 10, 9, 0, 0, 0, time.UTC)
	thursday = time.Date(2025, time.November, 13, 0, 0, 0, 0, time.UTC)
)

func utcCalendar() schedule.Calendar {
	cfg := schedule.DefaultConfig()
	cfg.Location = time.UTC
	return schedule.MustNewCalendar(cfg)
}

func TestNewListOrdersQuery(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		query, err := queries.NewListOrdersQuery("owner-1", monday, order.Placed)
		require.NoError(t, err)
		require.NoError(t, query.Validate())
		assert.Equal(t, []order.Status{order.Placed}, query.Statuses())
	})

	t.Run("joins errors", func(t *testing.T) {
		_, err := queries.NewListOrdersQuery("", time.Time{}, order.Unknown)
		require.ErrorIs(t, err, commands.ErrAuthenticationRequired)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("not constructed", func(t *testing.T) {
		require.ErrorIs(t, queries.ListOrdersQuery{}.Validate(), queries.ErrListOrdersQueryIsNotConstructed)
	})
}

func TestListOrdersQueryHandler_Handle(t *testing.T) {
	ctx := t.Context()
	factory := memory.NewUnitOfWorkFactory(memory.NewOrderStore(), nil, nil)
	repo := factory.Create().OrderRepository()

	item := kernel.MustNewLineItem("apples", "kg", decimal.RequireFromString("1.5"), decimal.RequireFromString("2"))
	older, err := order.NewOrder("owner-1", monday.Add(-time.Hour), thursday, 0, []kernel.LineItem{item})
	require.NoError(t, err)
	_, err = repo.CreateOrder(ctx, older)
	require.NoError(t, err)

	newer, err := order.NewOrder("owner-1", monday, thursday.AddDate(0, 0, 14), 7, nil)
	require.NoError(t, err)
	require.NoError(t, newer.Cancel())
	_, err = repo.CreateOrder(ctx, newer)
	require.NoError(t, err)

	foreign, err := order.NewOrder("owner-2", monday, thursday, 0, nil)
	require.NoError(t, err)
	_, err = repo.CreateOrder(ctx, foreign)
	require.NoError(t, err)

	h := queries.NewListOrdersQueryHandler(repo, services.NewEditWindow(utcCalendar()))

	t.Run("newest first with real pickup instants", func(t *testing.T) {
		query, _ := queries.NewListOrdersQuery("owner-1", monday)
		result, err := h.Handle(ctx, query)

		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.True(t, result[0].ID.IsEqual(newer.ID()))
		assert.Equal(t, order.Cancelled, result[0].Status)
		assert.False(t, result[0].Editable)
		assert.Equal(t, "2025-11-20", result[0].DateKey)
		assert.True(t, result[0].PickupAt.Equal(thursday.AddDate(0, 0, 7)))

		assert.True(t, result[1].ID.IsEqual(older.ID()))
		assert.True(t, result[1].Editable)
		assert.True(t, result[1].Total.Equal(decimal.RequireFromString("3")))
		assert.Equal(t, time.Date(2025, time.November, 11, 23, 59, 59, 0, time.UTC), result[1].Deadline)
		require.Len(t, result[1].Items, 1)
		assert.Equal(t, "kg", result[1].Items[0].UnitLabel)
	})

	t.Run("status filter", func(t *testing.T) {
		query, _ := queries.NewListOrdersQuery("owner-1", monday, order.Placed)
		result, err := h.Handle(ctx, query)

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.True(t, result[0].ID.IsEqual(older.ID()))
	})

	t.Run("invalid query", func(t *testing.T) {
		result, err := h.Handle(ctx, queries.ListOrdersQuery{})
		require.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("reader errors pass through", func(t *testing.T) {
		broken := queries.NewListOrdersQueryHandler(failingReader{}, services.NewEditWindow(utcCalendar()))
		query, _ := queries.NewListOrdersQuery("owner-1", monday)
		_, err := broken.Handle(ctx, query)
		require.EqualError(t, err, "db down")
	})
}

type failingReader struct{}

func (failingReader) ListOrdersForOwner(_ context.Context, _ string, _ ...order.Status) ([]*order.Order, error) {
	return nil, errors.New("db down")
}

func TestListPickupSlotsQueryHandler_Handle(t *testing.T) {
	h := queries.NewListPickupSlotsQueryHandler(utcCalendar())

	t.Run("skips slots whose deadline passed", func(t *testing.T) {
		query, err := queries.NewListPickupSlotsQuery(time.Date(2025, time.November, 12, 10, 0, 0, 0, time.UTC), 2)
		require.NoError(t, err)

		slots, err := h.Handle(t.Context(), query)

		require.NoError(t, err)
		require.Len(t, slots, 2)
		assert.Equal(t, "2025-11-20", slots[0].DateKey)
		assert.Equal(t, time.Date(2025, time.November, 18, 23, 59, 59, 0, time.UTC), slots[0].Deadline)
		assert.Equal(t, "2025-11-27", slots[1].DateKey)
	})

	t.Run("count is bounded", func(t *testing.T) {
		_, err := queries.NewListPickupSlotsQuery(monday, 0)
		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
		_, err = queries.NewListPickupSlotsQuery(monday, queries.MaxPickupSlots+1)
		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
		_, err = queries.NewListPickupSlotsQuery(time.Time{}, 1)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("not constructed", func(t *testing.T) {
		_, err := h.Handle(t.Context(), queries.ListPickupSlotsQuery{})
		require.ErrorIs(t, err, queries.ErrListPickupSlotsQueryIsNotConstructed)
	})
}
