// Package orderrepo maps the order aggregate to the orders table and back.
// Line items live in a jsonb column; the version column carries the
// optimistic concurrency token.
package orderrepo

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderDTO represents the database structure for persisting order aggregates.
type OrderDTO struct {
	ID               uuid.UUID    `gorm:"type:uuid;primaryKey"`
	OwnerID          string       `gorm:"type:text;not null;index:idx_orders_owner_created,priority:1"`
	CreatedAt        time.Time    `gorm:"type:timestamptz;not null;autoCreateTime:false;index:idx_orders_owner_created,priority:2"`
	PickupAt         time.Time    `gorm:"type:timestamptz;not null"`
	PickupOffsetDays int          `gorm:"not null;default:0"`
	Items            LineItemsDTO `gorm:"type:jsonb;not null"`
	Status           int          `gorm:"not null;index"`
	Version          int64        `gorm:"not null"`
}

// TableName specifies the database table name for order entities.
func (OrderDTO) TableName() string {
	return "orders"
}

// LineItemDTO is one line inside the items column.
type LineItemDTO struct {
	ProductID string          `json:"product_id"`
	UnitLabel string          `json:"unit_label"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineItemsDTO stores the lines of an order as a JSON array.
type LineItemsDTO []LineItemDTO

func (l LineItemsDTO) Value() (driver.Value, error) {
	if l == nil {
		l = LineItemsDTO{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *LineItemsDTO) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = LineItemsDTO{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into line items", src)
	}
	return json.Unmarshal(data, l)
}

// ErrCorruptRow is returned for rows that no longer form a valid order.
var ErrCorruptRow = errors.New("corrupt order row")

func fromDomain(o *order.Order) OrderDTO {
	items := make(LineItemsDTO, 0, len(o.Items()))
	for _, item := range o.Items() {
		items = append(items, LineItemDTO{
			ProductID: item.ProductID(),
			UnitLabel: item.UnitLabel(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice(),
		})
	}

	return OrderDTO{
		ID:               o.ID().Bytes(),
		OwnerID:          o.OwnerID(),
		CreatedAt:        o.CreatedAt(),
		PickupAt:         o.PickupAt(),
		PickupOffsetDays: o.PickupOffsetDays(),
		Items:            items,
		Status:           int(o.Status()),
		Version:          o.Version(),
	}
}

func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	items := make([]kernel.LineItem, 0, len(dto.Items))
	for _, item := range dto.Items {
		li, itemErr := kernel.NewLineItem(item.ProductID, item.UnitLabel, item.Quantity, item.UnitPrice)
		if itemErr != nil {
			return nil, fmt.Errorf("%w: order %s: %w", ErrCorruptRow, id, itemErr)
		}
		items = append(items, li)
	}

	return order.RestoreOrder(
		id,
		dto.OwnerID,
		dto.CreatedAt,
		dto.PickupAt,
		dto.PickupOffsetDays,
		items,
		order.Status(dto.Status),
		dto.Version,
	)
}

func statusValues(statuses []order.Status) []int {
	values := make([]int, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, int(s))
	}
	return values
}
