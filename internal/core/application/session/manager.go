// Package session owns the live basket of each owner: it hydrates the basket
// from the session store, brings the owner's orders up to date, reconciles,
// and keeps the session store in sync with every basket change.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/ports"

	"golang.org/x/sync/singleflight"
)

const (
	// persistBuffer is the basket event buffer of the persisting subscriber.
	persistBuffer = 32

	// DefaultIdleTTL suits a manager backed by a session store, which
	// rehydrates evicted baskets on the next Open.
	DefaultIdleTTL = time.Hour

	evictInterval = time.Minute
)

// Policy is the flavor-specific behavior of the session manager.
type Policy struct {
	// AllowsUnauthenticatedBasket lets guests keep a basket. Guest baskets
	// can be edited but never committed.
	AllowsUnauthenticatedBasket bool

	// IdleTTL drops baskets from memory once nobody opened or watched them
	// for this long. Zero keeps them for the process lifetime.
	IdleTTL time.Duration
}

type (
	SweepHandler interface {
		Handle(ctx context.Context, cmd commands.SweepCommand) (commands.SweepResult, error)
	}

	ReconcileHandler interface {
		Handle(ctx context.Context, cmd commands.ReconcileBasketCommand) (commands.ReconcileOutcome, error)
	}
)

// Dependencies groups the collaborators of a Manager. Sessions and Feed are
// optional.
type Dependencies struct {
	Deadlines SweepHandler
	Stale     SweepHandler
	Reconcile ReconcileHandler
	Sessions  ports.BasketSessionStore
	Feed      ports.OrderFeed
	Clock     kernel.Clock
	Logger    *slog.Logger
}

type entry struct {
	store  *basket.Store
	cancel func()

	// ops serializes the basket operations of one owner.
	ops sync.Mutex

	// Guarded by Manager.mu.
	conflict  *commands.ReconciliationConflictError
	lastUsed  time.Time
	watchers  int
	listeners map[chan *commands.ReconciliationConflictError]struct{}
}

// Manager hands out one basket.Store per owner.
//
// Example:
//
//	store, err := manager.Open(ctx, ownerID)
//	if errors.Is(err, commands.ErrAuthenticationRequired) {
//	    // ask the user to sign in
//	}
//	go manager.Watch(ctx, ownerID)
type Manager struct {
	policy Policy
	deps   Dependencies
	logger *slog.Logger

	// ctx outlives requests; it bounds the persisting goroutines.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stop      chan struct{}
	closeOnce sync.Once

	opening singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
}

func NewManager(policy Policy, deps Dependencies) *Manager {
	if deps.Clock == nil {
		deps.Clock = kernel.NewSystemClock(0)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		policy:  policy,
		deps:    deps,
		logger:  logger.With("component", "session"),
		ctx:     ctx,
		cancel:  cancel,
		stop:    make(chan struct{}),
		entries: make(map[string]*entry),
	}

	if policy.IdleTTL > 0 {
		m.wg.Add(1)
		go m.evictLoop()
	}
	return m
}

// Open returns the owner's live basket, creating it on first use. An
// unresolved reconciliation conflict does not fail Open; it is available
// through LastConflict.
func (m *Manager) Open(ctx context.Context, ownerID string) (*basket.Store, error) {
	e, err := m.entryFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return e.store, nil
}

// WithBasket runs fn on the owner's basket while no other basket operation
// or reconciliation of that owner is in progress.
func (m *Manager) WithBasket(ctx context.Context, ownerID string, fn func(*basket.Store) error) error {
	e, err := m.entryFor(ctx, ownerID)
	if err != nil {
		return err
	}

	e.ops.Lock()
	defer e.ops.Unlock()
	return fn(e.store)
}

// Reconcile re-runs reconciliation for an open basket and records or clears
// the owner's conflict.
func (m *Manager) Reconcile(ctx context.Context, ownerID string) (commands.ReconcileOutcome, error) {
	e, err := m.entryFor(ctx, ownerID)
	if err != nil {
		return commands.ReconcileOutcome{}, err
	}
	if ownerID == "" {
		return commands.ReconcileOutcome{}, commands.ErrAuthenticationRequired
	}

	e.ops.Lock()
	defer e.ops.Unlock()

	cmd, err := commands.NewReconcileBasketCommand(e.store, m.deps.Clock.Now())
	if err != nil {
		return commands.ReconcileOutcome{}, err
	}
	outcome, err := m.deps.Reconcile.Handle(ctx, cmd)

	var conflict *commands.ReconciliationConflictError
	switch {
	case errors.As(err, &conflict):
		m.setConflict(e, conflict)
	case err == nil:
		m.setConflict(e, nil)
	}
	return outcome, err
}

// LastConflict returns the conflict found by the latest reconciliation of
// the owner, or nil.
func (m *Manager) LastConflict(ownerID string) *commands.ReconciliationConflictError {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[ownerID]; ok {
		return e.conflict
	}
	return nil
}

// SubscribeConflicts delivers every conflict recorded for the owner from now
// on. Delivery is non-blocking. The owner's basket is not evicted until
// cancel is called.
func (m *Manager) SubscribeConflicts(
	ctx context.Context,
	ownerID string,
	buffer int,
) (<-chan *commands.ReconciliationConflictError, func(), error) {
	e, err := m.entryFor(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan *commands.ReconciliationConflictError, buffer)
	m.mu.Lock()
	e.listeners[ch] = struct{}{}
	e.watchers++
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(e.listeners, ch)
			e.watchers--
			e.lastUsed = m.deps.Clock.Now()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Watch reconciles the owner's basket whenever one of the owner's orders
// changes, until ctx is done or the feed closes. Changes the basket is
// already bound to are skipped.
func (m *Manager) Watch(ctx context.Context, ownerID string) error {
	if m.deps.Feed == nil {
		return nil
	}
	e, err := m.entryFor(ctx, ownerID)
	if err != nil {
		return err
	}
	m.retain(e)
	defer m.release(e)

	changes, err := m.deps.Feed.SubscribeToOwnerOrders(ctx, ownerID)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if holds(e.store.Snapshot(), change) {
				continue
			}
			_, err = m.Reconcile(ctx, ownerID)
			var conflict *commands.ReconciliationConflictError
			if err != nil && !errors.As(err, &conflict) {
				m.logger.ErrorContext(ctx, "reconciliation after order change failed",
					"owner_id", ownerID,
					"order_id", change.OrderID.String(),
					"error", err,
				)
			}
		}
	}
}

// Discard empties the owner's basket and removes it from the session store.
// An unwatched basket is also dropped from memory.
func (m *Manager) Discard(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	e, ok := m.entries[ownerID]
	if ok {
		e.conflict = nil
		if e.watchers == 0 {
			delete(m.entries, ownerID)
			e.cancel()
		}
	}
	m.mu.Unlock()

	if ok {
		e.store.Clear()
	}
	if m.deps.Sessions == nil {
		return nil
	}
	return m.deps.Sessions.Delete(ctx, ownerID)
}

// EvictIdle drops the baskets idle since before now minus the policy's
// IdleTTL and returns how many were dropped. Baskets stay in the session
// store, so the next Open rehydrates them.
func (m *Manager) EvictIdle(now time.Time) int {
	if m.policy.IdleTTL <= 0 {
		return 0
	}

	m.mu.Lock()
	var idle []*entry
	for ownerID, e := range m.entries {
		if e.watchers == 0 && now.Sub(e.lastUsed) >= m.policy.IdleTTL {
			idle = append(idle, e)
			delete(m.entries, ownerID)
		}
	}
	m.mu.Unlock()

	for _, e := range idle {
		e.cancel()
	}
	return len(idle)
}

// Close stops persisting and waits for pending writes.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	for _, e := range m.entries {
		e.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.cancel()
}

func (m *Manager) entryFor(ctx context.Context, ownerID string) (*entry, error) {
	if ownerID == "" && !m.policy.AllowsUnauthenticatedBasket {
		return nil, commands.ErrAuthenticationRequired
	}
	if e := m.touch(ownerID); e != nil {
		return e, nil
	}

	v, err, _ := m.opening.Do(ownerID, func() (any, error) {
		if e := m.touch(ownerID); e != nil {
			return e, nil
		}
		e, err := m.create(ctx, ownerID)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.entries[ownerID] = e
		m.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

// touch returns the owner's entry, if any, and marks it used.
func (m *Manager) touch(ownerID string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[ownerID]
	if !ok {
		return nil
	}
	e.lastUsed = m.deps.Clock.Now()
	return e
}

// create builds an entry without holding the manager lock, so that slow
// backends only delay the owner being opened.
func (m *Manager) create(ctx context.Context, ownerID string) (*entry, error) {
	store, err := m.hydrate(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	e := &entry{
		store:     store,
		lastUsed:  m.deps.Clock.Now(),
		listeners: make(map[chan *commands.ReconciliationConflictError]struct{}),
	}
	if ownerID != "" {
		if err = m.sweep(ctx, ownerID); err != nil {
			return nil, err
		}
		if e.conflict, err = m.reconcile(ctx, store); err != nil {
			return nil, err
		}
	}

	e.cancel = m.persist(store)
	return e, nil
}

func (m *Manager) retain(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.watchers++
}

func (m *Manager) release(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.watchers--
	e.lastUsed = m.deps.Clock.Now()
}

func (m *Manager) evictLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if n := m.EvictIdle(m.deps.Clock.Now()); n > 0 {
				m.logger.Debug("evicted idle baskets", "count", n)
			}
		}
	}
}

func (m *Manager) hydrate(ctx context.Context, ownerID string) (*basket.Store, error) {
	if m.deps.Sessions == nil {
		return basket.NewStore(ownerID), nil
	}

	snapshot, found, err := m.deps.Sessions.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return basket.NewStore(ownerID), nil
	}
	return basket.NewStoreFrom(snapshot), nil
}

// sweep brings the owner's orders up to date before the basket is shown.
func (m *Manager) sweep(ctx context.Context, ownerID string) error {
	cmd, err := commands.NewSweepCommand(m.deps.Clock.Now(), ownerID)
	if err != nil {
		return err
	}

	for _, h := range []SweepHandler{m.deps.Deadlines, m.deps.Stale} {
		if h == nil {
			continue
		}
		if _, err = h.Handle(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) reconcile(ctx context.Context, store *basket.Store) (*commands.ReconciliationConflictError, error) {
	cmd, err := commands.NewReconcileBasketCommand(store, m.deps.Clock.Now())
	if err != nil {
		return nil, err
	}

	_, err = m.deps.Reconcile.Handle(ctx, cmd)
	var conflict *commands.ReconciliationConflictError
	if errors.As(err, &conflict) {
		return conflict, nil
	}
	return nil, err
}

func (m *Manager) setConflict(e *entry, conflict *commands.ReconciliationConflictError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.conflict = conflict
	if conflict == nil {
		return
	}
	for ch := range e.listeners {
		select {
		case ch <- conflict:
		default:
		}
	}
}

// holds reports whether the basket is already bound to the changed order
// at the changed version.
func holds(b basket.Basket, change ports.OrderChanged) bool {
	return b.IsBound() &&
		b.BoundOrderID().IsEqual(change.OrderID) &&
		b.BoundOrderVersion() == change.Version
}

// persist saves the latest snapshot after every basket event. Saving the
// current snapshot rather than the event's makes a dropped event harmless.
func (m *Manager) persist(store *basket.Store) func() {
	if m.deps.Sessions == nil {
		return func() {}
	}
	events, cancel := store.Subscribe(persistBuffer)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		for range events {
			if err := m.deps.Sessions.Save(m.ctx, store.Snapshot()); err != nil && m.ctx.Err() == nil {
				m.logger.ErrorContext(m.ctx, "failed to persist basket",
					"owner_id", store.OwnerID(),
					"error", err,
				)
			}
		}
	}()
	return cancel
}
