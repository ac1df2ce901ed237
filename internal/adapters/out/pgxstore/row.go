package pgxstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, owner_id, created_at, pickup_at, pickup_offset_days, items, status, version`

// ErrCorruptRow is returned for rows that no longer form a valid order.
var ErrCorruptRow = errors.New("corrupt order row")

type lineItem struct {
	ProductID string          `json:"product_id"`
	UnitLabel string          `json:"unit_label"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func encodeItems(items []kernel.LineItem) ([]byte, error) {
	lines := make([]lineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, lineItem{
			ProductID: item.ProductID(),
			UnitLabel: item.UnitLabel(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice(),
		})
	}
	return json.Marshal(lines)
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		id         uuid.UUID
		ownerID    string
		createdAt  time.Time
		pickupAt   time.Time
		offsetDays int64
		rawItems   []byte
		status     int64
		version    int64
	)
	if err := row.Scan(&id, &ownerID, &createdAt, &pickupAt, &offsetDays, &rawItems, &status, &version); err != nil {
		return nil, err
	}

	orderID, err := kernel.UUIDFromBytes(id[:])
	if err != nil {
		return nil, err
	}

	var lines []lineItem
	if err := json.Unmarshal(rawItems, &lines); err != nil {
		return nil, fmt.Errorf("%w: order %s: %w", ErrCorruptRow, orderID, err)
	}
	items := make([]kernel.LineItem, 0, len(lines))
	for _, line := range lines {
		item, itemErr := kernel.NewLineItem(line.ProductID, line.UnitLabel, line.Quantity, line.UnitPrice)
		if itemErr != nil {
			return nil, fmt.Errorf("%w: order %s: %w", ErrCorruptRow, orderID, itemErr)
		}
		items = append(items, item)
	}

	return order.RestoreOrder(orderID, ownerID, createdAt, pickupAt, int(offsetDays), items, order.Status(status), version)
}

func collectOrders(rows pgx.Rows) ([]*order.Order, error) {
	defer rows.Close()

	orders := make([]*order.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func statusValues(statuses []order.Status) []int64 {
	values := make([]int64, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, int64(s))
	}
	return values
}
