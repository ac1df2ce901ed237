package memory

import (
	"sort"
	"sync"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/pkg/errs"
)

// OrderStore is the committed state shared by all units of work.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[kernel.UUID]*order.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[kernel.UUID]*order.Order)}
}

// Len returns the number of stored orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func (s *OrderStore) get(id kernel.UUID) (*order.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, false
	}
	return clone(o), true
}

func (s *OrderStore) all() []*order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, clone(o))
	}
	return out
}

// apply writes all staged changes or none of them.
func (s *OrderStore) apply(writes []stagedWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		current, exists := s.orders[w.order.ID()]
		switch {
		case w.insert && exists:
			return errs.NewValueIsInvalidError("order already exists")
		case !w.insert && !exists:
			return errs.NewObjectNotFoundError("orderID", w.order.ID())
		case !w.insert && current.Version() != w.baseVersion:
			return errs.NewVersionConflictError("order", w.order.ID(), w.baseVersion, current.Version())
		}
	}
	for _, w := range writes {
		s.orders[w.order.ID()] = clone(w.order)
	}
	return nil
}

type stagedWrite struct {
	order       *order.Order
	insert      bool
	baseVersion int64
}

// clone copies an aggregate so that callers never share state with the store.
func clone(o *order.Order) *order.Order {
	c, err := order.RestoreOrder(
		o.ID(), o.OwnerID(), o.CreatedAt(), o.PickupAt(), o.PickupOffsetDays(),
		o.Items(), o.Status(), o.Version(),
	)
	if err != nil {
		panic(err)
	}
	return c
}

func matchesStatus(o *order.Order, statuses []order.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if o.Status() == s {
			return true
		}
	}
	return false
}

func sortNewestFirst(orders []*order.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt().Equal(orders[j].CreatedAt()) {
			return orders[i].CreatedAt().After(orders[j].CreatedAt())
		}
		return orders[i].ID().String() < orders[j].ID().String()
	})
}

func sortByPickup(orders []*order.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].PickupAt().Equal(orders[j].PickupAt()) {
			return orders[i].PickupAt().Before(orders[j].PickupAt())
		}
		return orders[i].ID().String() < orders[j].ID().String()
	})
}
