package basket

import (
	"sync"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// EventKind names the mutation that produced an Event.
type EventKind int

const (
	ItemsChanged EventKind = iota + 1
	Cleared
	Bound
	Unbound
	Committed
)

func (k EventKind) String() string {
	switch k {
	case ItemsChanged:
		return "items_changed"
	case Cleared:
		return "cleared"
	case Bound:
		return "bound"
	case Unbound:
		return "unbound"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// Event is pushed to subscribers after every mutation.
type Event struct {
	Kind     EventKind
	Snapshot Basket
}

// Store is the live basket of one owner.
type Store struct {
	mu    sync.RWMutex
	state Basket

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewStore returns an empty, unbound basket.
func NewStore(ownerID string) *Store {
	return NewStoreFrom(Restore(ownerID, nil, kernel.UUID{}, "", 0, 0))
}

// NewStoreFrom resumes a basket from a persisted snapshot.
func NewStoreFrom(snapshot Basket) *Store {
	snapshot.items = copyItems(snapshot.items)
	return &Store{
		state: snapshot,
		subs:  make(map[int]chan Event),
	}
}

func (s *Store) OwnerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ownerID
}

// Snapshot returns an immutable copy of the current basket.
func (s *Store) Snapshot() Basket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Total()
}

// SetQuantity upserts a line when quantity > 0 and removes it otherwise.
// Removing an absent product is a no-op and emits nothing.
func (s *Store) SetQuantity(productID, unitLabel string, unitPrice, quantity decimal.Decimal) error {
	if productID == "" {
		return errs.NewValueIsRequiredError("productID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !quantity.IsPositive() {
		if _, ok := s.state.items[productID]; !ok {
			return nil
		}
		delete(s.state.items, productID)
		s.changedLocked(ItemsChanged)
		return nil
	}

	item, err := kernel.NewLineItem(productID, unitLabel, quantity, unitPrice)
	if err != nil {
		return err
	}
	s.state.items[productID] = item
	s.changedLocked(ItemsChanged)
	return nil
}

// Clear empties the basket and drops its binding.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.items = make(map[string]kernel.LineItem)
	s.unbindLocked()
	s.changedLocked(Cleared)
}

// ClearIfBoundTo clears the basket when it is bound to orderID and reports
// whether it did.
func (s *Store) ClearIfBoundTo(orderID kernel.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsBound() || !s.state.BoundOrderID().IsEqual(orderID) {
		return false
	}
	s.state.items = make(map[string]kernel.LineItem)
	s.unbindLocked()
	s.changedLocked(Cleared)
	return true
}

// BindToOrder atomically replaces the items with an order's items and binds
// the basket to it.
func (s *Store) BindToOrder(orderID kernel.UUID, dateKey string, version int64, items []kernel.LineItem) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.items = toMap(items)
	s.bindLocked(orderID, dateKey, version)
	s.changedLocked(Bound)
	return nil
}

// MarkCommitted rebinds the basket to the order produced by a commit that
// was based on the snapshot with the given revision. The committed items
// replace the local ones only if nothing changed since that snapshot; the
// return value reports whether they did.
func (s *Store) MarkCommitted(revision uint64, orderID kernel.UUID, dateKey string, version int64, items []kernel.LineItem) (bool, error) {
	if err := orderID.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := s.state.revision == revision
	if replaced {
		s.state.items = toMap(items)
	}
	s.bindLocked(orderID, dateKey, version)
	s.changedLocked(Committed)
	return replaced, nil
}

// Unbind drops the binding and keeps the items as a fresh draft.
func (s *Store) Unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsBound() {
		return
	}
	s.unbindLocked()
	s.changedLocked(Unbound)
}

// Subscribe registers a listener. Delivery never blocks the writer: when
// the channel buffer is full the event is dropped for that subscriber,
// which can always re-read Snapshot. The returned cancel func closes the
// channel and is safe to call more than once.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Store) snapshotLocked() Basket {
	snapshot := s.state
	snapshot.items = copyItems(s.state.items)
	return snapshot
}

func (s *Store) bindLocked(orderID kernel.UUID, dateKey string, version int64) {
	s.state.boundOrderID = orderID
	s.state.boundOrderDateKey = dateKey
	s.state.boundOrderVersion = version
}

func (s *Store) unbindLocked() {
	s.state.boundOrderID = kernel.UUID{}
	s.state.boundOrderDateKey = ""
	s.state.boundOrderVersion = 0
}

// changedLocked bumps the revision and publishes; s.mu must be held so
// events leave in mutation order.
func (s *Store) changedLocked(kind EventKind) {
	s.state.revision++
	event := Event{Kind: kind, Snapshot: s.snapshotLocked()}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
