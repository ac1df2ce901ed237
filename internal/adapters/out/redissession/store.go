// Package redissession keeps basket snapshots in Redis so that a basket
// survives restarts and is shared by every instance serving the owner.
package redissession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"preorder/internal/core/domain/model/basket"
	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/ports"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const (
	DefaultKeyPrefix = "preorder"
	DefaultTTL       = 30 * 24 * time.Hour

	// guestKey stores the basket of the unauthenticated flavor.
	guestKey = "guest"
)

// Store implements ports.BasketSessionStore with one JSON value per owner
// at {prefix}:basket:{owner}.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(ownerID string) string {
	if ownerID == "" {
		ownerID = guestKey
	}
	return fmt.Sprintf("%s:basket:%s", s.prefix, ownerID)
}

type lineItemDTO struct {
	ProductID string          `json:"product_id"`
	UnitLabel string          `json:"unit_label"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type basketDTO struct {
	OwnerID           string        `json:"owner_id"`
	Items             []lineItemDTO `json:"items"`
	BoundOrderID      *kernel.UUID  `json:"bound_order_id,omitempty"`
	BoundOrderDateKey string        `json:"bound_order_date_key,omitempty"`
	BoundOrderVersion int64         `json:"bound_order_version,omitempty"`
	Revision          uint64        `json:"revision"`
}

func toDTO(b basket.Basket) basketDTO {
	dto := basketDTO{
		OwnerID:  b.OwnerID(),
		Items:    make([]lineItemDTO, 0),
		Revision: b.Revision(),
	}
	for _, item := range b.Items() {
		dto.Items = append(dto.Items, lineItemDTO{
			ProductID: item.ProductID(),
			UnitLabel: item.UnitLabel(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice(),
		})
	}
	if b.IsBound() {
		id := b.BoundOrderID()
		dto.BoundOrderID = &id
		dto.BoundOrderDateKey = b.BoundOrderDateKey()
		dto.BoundOrderVersion = b.BoundOrderVersion()
	}
	return dto
}

func (dto basketDTO) toDomain() (basket.Basket, error) {
	items := make([]kernel.LineItem, 0, len(dto.Items))
	for _, item := range dto.Items {
		li, err := kernel.NewLineItem(item.ProductID, item.UnitLabel, item.Quantity, item.UnitPrice)
		if err != nil {
			return basket.Basket{}, err
		}
		items = append(items, li)
	}

	var boundID kernel.UUID
	if dto.BoundOrderID != nil {
		boundID = *dto.BoundOrderID
	}
	return basket.Restore(dto.OwnerID, items, boundID, dto.BoundOrderDateKey, dto.BoundOrderVersion, dto.Revision), nil
}

func (s *Store) Load(ctx context.Context, ownerID string) (basket.Basket, bool, error) {
	data, err := s.client.Get(ctx, s.key(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return basket.Basket{}, false, nil
	}
	if err != nil {
		return basket.Basket{}, false, fmt.Errorf("load basket: %w", err)
	}

	var dto basketDTO
	if err = json.Unmarshal(data, &dto); err != nil {
		return basket.Basket{}, false, fmt.Errorf("decode basket: %w", err)
	}
	b, err := dto.toDomain()
	if err != nil {
		return basket.Basket{}, false, err
	}
	return b, true, nil
}

// Save overwrites the owner's snapshot and refreshes its TTL.
func (s *Store) Save(ctx context.Context, snapshot basket.Basket) error {
	data, err := json.Marshal(toDTO(snapshot))
	if err != nil {
		return err
	}
	if err = s.client.Set(ctx, s.key(snapshot.OwnerID()), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save basket: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID string) error {
	if err := s.client.Del(ctx, s.key(ownerID)).Err(); err != nil {
		return fmt.Errorf("delete basket: %w", err)
	}
	return nil
}

var _ ports.BasketSessionStore = (*Store)(nil)
