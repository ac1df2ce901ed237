package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"preorder/internal/adapters/out/eventbus"
	"preorder/internal/adapters/out/memory"
	"preorder/internal/core/application/session"
	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/domain/model/schedule"
	"preorder/internal/core/domain/services"
	"preorder/internal/core/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	monday    = time.Date(2025, time.November, 10, 9, 0, 0, 0, time.UTC)
	wednesday = time.Date(2025, time.November, 12, 10, 0, 0, 0, time.UTC)
	thursday  = time.Date(2025, time.November, 13, 0, 0, 0, 0, time.UTC)
)

type memoryFactory struct {
	inner ports.UnitOfWorkFactory
}

func (f memoryFactory) Create() commands.OrderUoW {
	return f.inner.Create()
}

type memorySessions struct {
	mu    sync.Mutex
	saved map[string]basket.Basket
}

func newMemorySessions() *memorySessions {
	return &memorySessions{saved: make(map[string]basket.Basket)}
}

func (s *memorySessions) Load(_ context.Context, ownerID string) (basket.Basket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.saved[ownerID]
	return b, ok, nil
}

func (s *memorySessions) Save(_ context.Context, snapshot basket.Basket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[snapshot.OwnerID()] = snapshot
	return nil
}

func (s *memorySessions) Delete(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, ownerID)
	return nil
}

func (s *memorySessions) get(ownerID string) (basket.Basket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.saved[ownerID]
	return b, ok
}

type fixture struct {
	factory  memoryFactory
	bus      *eventbus.Bus
	sessions *memorySessions
	clock    *kernel.FixedClock
	window   services.EditWindow
	manager  *session.Manager
}

func newFixture(t *testing.T, policy session.Policy) *fixture {
	t.Helper()
	return newFixtureWith(t, policy, func(s *memorySessions) ports.BasketSessionStore { return s })
}

// newFixtureWith lets a test wrap the session store the manager sees.
func newFixtureWith(t *testing.T, policy session.Policy, wrap func(*memorySessions) ports.BasketSessionStore) *fixture {
	t.Helper()

	cfg := schedule.DefaultConfig()
	cfg.Location = time.UTC
	window := services.NewEditWindow(schedule.MustNewCalendar(cfg))

	bus := eventbus.NewBus(8, nil)
	factory := memoryFactory{inner: memory.NewUnitOfWorkFactory(memory.NewOrderStore(), bus, nil)}
	deadlines := commands.NewSweepDeadlinesCommandHandler(factory, window)
	stale := commands.NewSweepStaleCompletionsCommandHandler(factory)
	reconcile := commands.NewReconcileBasketCommandHandler(factory, window)

	f := &fixture{
		factory:  factory,
		bus:      bus,
		sessions: newMemorySessions(),
		clock:    kernel.NewFixedClock(monday),
		window:   window,
	}
	f.manager = session.NewManager(policy, session.Dependencies{
		Deadlines: &deadlines,
		Stale:     &stale,
		Reconcile: &reconcile,
		Sessions:  wrap(f.sessions),
		Feed:      bus,
		Clock:     f.clock,
	})
	t.Cleanup(f.manager.Close)
	return f
}

func (f *fixture) seed(t *testing.T, owner string, pickupAt time.Time, items ...kernel.LineItem) *order.Order {
	t.Helper()
	o, err := order.NewOrder(owner, monday.Add(-time.Hour), pickupAt, 0, items)
	require.NoError(t, err)
	_, err = f.factory.Create().OrderRepository().CreateOrder(t.Context(), o)
	require.NoError(t, err)
	return o
}

func (f *fixture) load(t *testing.T, id kernel.UUID) *order.Order {
	t.Helper()
	o, err := f.factory.Create().OrderRepository().LoadOrder(t.Context(), id)
	require.NoError(t, err)
	return o
}

// amend commits a new item set for o as another device would.
func (f *fixture) amend(t *testing.T, o *order.Order, items ...kernel.LineItem) {
	t.Helper()
	remote := basket.Restore(o.OwnerID(), items, o.ID(), "2025-11-13", o.Version(), 0)
	cmd, err := commands.NewCommitBasketCommand(remote, time.Time{}, monday)
	require.NoError(t, err)
	commit := commands.NewCommitBasketCommandHandler(f.factory, f.window, f.clock)
	_, err = commit.Handle(t.Context(), cmd)
	require.NoError(t, err)
}

// gatedSessions holds Load for one owner until the gate is closed.
type gatedSessions struct {
	*memorySessions
	owner   string
	gate    chan struct{}
	loading chan struct{}
}

func (s *gatedSessions) Load(ctx context.Context, ownerID string) (basket.Basket, bool, error) {
	if ownerID == s.owner {
		close(s.loading)
		<-s.gate
	}
	return s.memorySessions.Load(ctx, ownerID)
}

func line(productID string, quantity int64) kernel.LineItem {
	return kernel.MustNewLineItem(productID, "pc", decimal.NewFromInt(quantity), decimal.NewFromInt(1))
}

func TestManager_Open_RequiresOwnerUnlessGuestsAllowed(t *testing.T) {
	f := newFixture(t, session.Policy{})
	_, err := f.manager.Open(t.Context(), "")
	require.ErrorIs(t, err, commands.ErrAuthenticationRequired)

	guests := newFixture(t, session.Policy{AllowsUnauthenticatedBasket: true})
	store, err := guests.manager.Open(t.Context(), "")
	require.NoError(t, err)
	require.NoError(t, store.SetQuantity("apples", "pc", decimal.NewFromInt(1), decimal.NewFromInt(2)))

	_, err = commands.NewCommitStoreCommand(store, thursday, monday)
	require.ErrorIs(t, err, commands.ErrAuthenticationRequired)
}

func TestManager_Open_ReturnsTheSameStore(t *testing.T) {
	f := newFixture(t, session.Policy{})

	first, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)
	second, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestManager_Open_BindsToCurrentOrder(t *testing.T) {
	f := newFixture(t, session.Policy{})
	o := f.seed(t, "owner-1", thursday, line("apples", 2))

	store, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)

	snapshot := store.Snapshot()
	assert.True(t, snapshot.BoundOrderID().IsEqual(o.ID()))
	assert.True(t, snapshot.Quantity("apples").Equal(decimal.NewFromInt(2)))
	assert.Nil(t, f.manager.LastConflict("owner-1"))
}

func TestManager_Open_HydratesFromSessionStore(t *testing.T) {
	f := newFixture(t, session.Policy{})
	saved := basket.Restore("owner-1", []kernel.LineItem{line("pears", 3)}, kernel.UUID{}, "", 0, 9)
	require.NoError(t, f.sessions.Save(t.Context(), saved))

	store, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)

	snapshot := store.Snapshot()
	assert.False(t, snapshot.IsBound())
	assert.True(t, snapshot.Quantity("pears").Equal(decimal.NewFromInt(3)))
	assert.Equal(t, uint64(9), snapshot.Revision())
}

func TestManager_Open_SweepsTheOwnersOrders(t *testing.T) {
	f := newFixture(t, session.Policy{})
	expired := f.seed(t, "owner-1", thursday, line("apples", 2))
	stale := f.seed(t, "owner-1", thursday.AddDate(0, 0, -7))
	other := f.seed(t, "owner-2", thursday, line("apples", 2))
	f.clock.Set(wednesday)

	store, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)

	assert.Equal(t, order.Locked, f.load(t, expired.ID()).Status())
	assert.Equal(t, order.Completed, f.load(t, stale.ID()).Status())
	assert.Equal(t, order.Placed, f.load(t, other.ID()).Status())
	assert.False(t, store.Snapshot().IsBound())
}

func TestManager_PersistsBasketChanges(t *testing.T) {
	f := newFixture(t, session.Policy{})
	store, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)

	require.NoError(t, store.SetQuantity("apples", "pc", decimal.NewFromInt(1), decimal.NewFromInt(4)))

	require.Eventually(t, func() bool {
		saved, ok := f.sessions.get("owner-1")
		return ok && saved.Quantity("apples").Equal(decimal.NewFromInt(4))
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.manager.Discard(t.Context(), "owner-1"))
	_, ok := f.sessions.get("owner-1")
	assert.False(t, ok)
}

func TestManager_Watch_RecordsRemoteConflicts(t *testing.T) {
	f := newFixture(t, session.Policy{})
	o := f.seed(t, "owner-1", thursday, line("apples", 2))
	store, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- f.manager.Watch(ctx, "owner-1") }()
	require.Eventually(t, func() bool { return f.bus.Subscribers("owner-1") == 1 }, time.Second, 5*time.Millisecond)

	// Another device amends the same order.
	remote := basket.Restore("owner-1", []kernel.LineItem{line("apples", 5)}, o.ID(), "2025-11-13", o.Version(), 0)
	cmd, err := commands.NewCommitBasketCommand(remote, time.Time{}, monday)
	require.NoError(t, err)
	commit := commands.NewCommitBasketCommandHandler(f.factory, f.window, f.clock)
	_, err = commit.Handle(t.Context(), cmd)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.manager.LastConflict("owner-1") != nil }, time.Second, 5*time.Millisecond)
	conflict := f.manager.LastConflict("owner-1")
	assert.Equal(t, int64(2), conflict.Remote.Version())
	assert.Equal(t, int64(1), store.Snapshot().BoundOrderVersion())

	resolve := commands.NewResolveConflictCommandHandler(f.factory, f.window)
	resolveCmd, err := commands.NewResolveConflictCommand(store, o.ID(), commands.TakeRemote, monday)
	require.NoError(t, err)
	_, err = resolve.Handle(t.Context(), resolveCmd)
	require.NoError(t, err)

	_, err = f.manager.Reconcile(t.Context(), "owner-1")
	require.NoError(t, err)
	assert.Nil(t, f.manager.LastConflict("owner-1"))

	cancel()
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestManager_Open_RecordsConflictWithStoredBinding(t *testing.T) {
	f := newFixture(t, session.Policy{})
	o := f.seed(t, "owner-1", thursday, line("apples", 2))
	saved := basket.Restore("owner-1", []kernel.LineItem{line("apples", 2)}, o.ID(), "2025-11-13", o.Version(), 4)
	require.NoError(t, f.sessions.Save(t.Context(), saved))
	f.amend(t, o, line("apples", 6))

	store, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)

	conflict := f.manager.LastConflict("owner-1")
	require.NotNil(t, conflict)
	assert.Equal(t, int64(1), conflict.Local.BoundOrderVersion())
	assert.Equal(t, int64(2), conflict.Remote.Version())
	assert.True(t, conflict.Remote.Quantity("apples").Equal(decimal.NewFromInt(6)))
	assert.Equal(t, int64(1), store.Snapshot().BoundOrderVersion())
}

func TestManager_SubscribeConflicts(t *testing.T) {
	f := newFixture(t, session.Policy{})
	o := f.seed(t, "owner-1", thursday, line("apples", 2))
	_, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)

	conflicts, cancel, err := f.manager.SubscribeConflicts(t.Context(), "owner-1", 1)
	require.NoError(t, err)

	f.amend(t, o, line("apples", 3))
	_, err = f.manager.Reconcile(t.Context(), "owner-1")
	var conflictErr *commands.ReconciliationConflictError
	require.ErrorAs(t, err, &conflictErr)

	select {
	case conflict := <-conflicts:
		assert.Same(t, conflictErr, conflict)
		assert.Equal(t, int64(2), conflict.Remote.Version())
	case <-time.After(time.Second):
		t.Fatal("conflict was not delivered")
	}

	cancel()
	cancel()
	_, ok := <-conflicts
	assert.False(t, ok)

	_, _, err = f.manager.SubscribeConflicts(t.Context(), "", 1)
	require.ErrorIs(t, err, commands.ErrAuthenticationRequired)
}

func TestManager_Open_ConcurrentCallsShareOneStore(t *testing.T) {
	f := newFixture(t, session.Policy{})
	f.seed(t, "owner-1", thursday, line("apples", 2))

	const callers = 16
	stores := make([]*basket.Store, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store, err := f.manager.Open(t.Context(), "owner-1")
			assert.NoError(t, err)
			stores[i] = store
		}()
	}
	wg.Wait()

	for _, store := range stores {
		assert.Same(t, stores[0], store)
	}
}

func TestManager_Open_SlowOwnerDoesNotBlockOthers(t *testing.T) {
	gated := &gatedSessions{owner: "slow", gate: make(chan struct{}), loading: make(chan struct{})}
	f := newFixtureWith(t, session.Policy{}, func(s *memorySessions) ports.BasketSessionStore {
		gated.memorySessions = s
		return gated
	})

	slow := make(chan error, 1)
	go func() {
		_, err := f.manager.Open(t.Context(), "slow")
		slow <- err
	}()
	<-gated.loading

	store, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", store.OwnerID())

	close(gated.gate)
	select {
	case err = <-slow:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("slow owner was never opened")
	}
}

func TestManager_EvictIdle(t *testing.T) {
	t.Run("disabled without a ttl", func(t *testing.T) {
		f := newFixture(t, session.Policy{})
		_, err := f.manager.Open(t.Context(), "owner-1")
		require.NoError(t, err)

		assert.Zero(t, f.manager.EvictIdle(monday.AddDate(1, 0, 0)))
	})

	t.Run("idle baskets are dropped and rehydrated", func(t *testing.T) {
		f := newFixture(t, session.Policy{IdleTTL: time.Hour})
		first, err := f.manager.Open(t.Context(), "owner-1")
		require.NoError(t, err)
		require.NoError(t, first.SetQuantity("apples", "pc", decimal.NewFromInt(1), decimal.NewFromInt(4)))
		require.Eventually(t, func() bool {
			saved, ok := f.sessions.get("owner-1")
			return ok && saved.Quantity("apples").Equal(decimal.NewFromInt(4))
		}, time.Second, 5*time.Millisecond)

		assert.Zero(t, f.manager.EvictIdle(monday.Add(30*time.Minute)))
		assert.Equal(t, 1, f.manager.EvictIdle(monday.Add(2*time.Hour)))

		second, err := f.manager.Open(t.Context(), "owner-1")
		require.NoError(t, err)
		assert.NotSame(t, first, second)
		assert.True(t, second.Snapshot().Quantity("apples").Equal(decimal.NewFromInt(4)))
	})

	t.Run("watched baskets are kept", func(t *testing.T) {
		f := newFixture(t, session.Policy{IdleTTL: time.Hour})
		first, err := f.manager.Open(t.Context(), "owner-1")
		require.NoError(t, err)
		_, cancel, err := f.manager.SubscribeConflicts(t.Context(), "owner-1", 1)
		require.NoError(t, err)

		assert.Zero(t, f.manager.EvictIdle(monday.Add(2*time.Hour)))
		second, err := f.manager.Open(t.Context(), "owner-1")
		require.NoError(t, err)
		assert.Same(t, first, second)

		cancel()
		assert.Equal(t, 1, f.manager.EvictIdle(monday.Add(2*time.Hour)))
	})

	t.Run("discard forgets and deletes", func(t *testing.T) {
		f := newFixture(t, session.Policy{IdleTTL: time.Hour})
		first, err := f.manager.Open(t.Context(), "owner-1")
		require.NoError(t, err)
		require.NoError(t, f.sessions.Save(t.Context(), first.Snapshot()))

		require.NoError(t, f.manager.Discard(t.Context(), "owner-1"))
		assert.Zero(t, f.manager.EvictIdle(monday.Add(2*time.Hour)))
		_, ok := f.sessions.get("owner-1")
		assert.False(t, ok)
	})
}

func TestManager_WithBasket_HoldsOffReconciliation(t *testing.T) {
	f := newFixture(t, session.Policy{})
	f.seed(t, "owner-1", thursday, line("apples", 2))

	reconciled := make(chan struct{})
	err := f.manager.WithBasket(t.Context(), "owner-1", func(store *basket.Store) error {
		go func() {
			_, _ = f.manager.Reconcile(t.Context(), "owner-1")
			close(reconciled)
		}()

		select {
		case <-reconciled:
			t.Error("reconciliation ran inside WithBasket")
		case <-time.After(50 * time.Millisecond):
		}
		return store.SetQuantity("pears", "pc", decimal.NewFromInt(1), decimal.NewFromInt(1))
	})
	require.NoError(t, err)

	select {
	case <-reconciled:
	case <-time.After(time.Second):
		t.Fatal("reconciliation never ran")
	}

	require.ErrorIs(t, f.manager.WithBasket(t.Context(), "", func(*basket.Store) error { return nil }),
		commands.ErrAuthenticationRequired)
}

func TestManager_Watch_IgnoresOwnCommits(t *testing.T) {
	f := newFixture(t, session.Policy{})
	o := f.seed(t, "owner-1", thursday, line("apples", 2))
	_, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = f.manager.Watch(ctx, "owner-1") }()
	require.Eventually(t, func() bool { return f.bus.Subscribers("owner-1") == 1 }, time.Second, 5*time.Millisecond)

	commit := commands.NewCommitBasketCommandHandler(f.factory, f.window, f.clock)
	err = f.manager.WithBasket(t.Context(), "owner-1", func(store *basket.Store) error {
		if err := store.SetQuantity("apples", "pc", decimal.NewFromInt(1), decimal.NewFromInt(5)); err != nil {
			return err
		}
		cmd, err := commands.NewCommitStoreCommand(store, time.Time{}, monday)
		if err != nil {
			return err
		}
		_, err = commit.Handle(t.Context(), cmd)
		return err
	})
	require.NoError(t, err)

	assert.Never(t, func() bool { return f.manager.LastConflict("owner-1") != nil }, 200*time.Millisecond, 10*time.Millisecond)
	store, err := f.manager.Open(t.Context(), "owner-1")
	require.NoError(t, err)
	assert.True(t, store.Snapshot().BoundOrderID().IsEqual(o.ID()))
	assert.Equal(t, int64(2), store.Snapshot().BoundOrderVersion())
}
