package orderrepo

import (
	"context"
	"errors"

	"preorder/internal/core/domain/model/kernel"
	"preorder/internal/core/domain/model/order"
	"preorder/internal/core/ports"
	"preorder/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

// aggregateTracker defines the interface for tracking aggregates.
type aggregateTracker interface {
	TrackAggregate(ctx context.Context, aggregate *order.Order)
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB, tracker aggregateTracker) *GormOrderRepository {
	return &GormOrderRepository{
		db:      db,
		tracker: tracker,
	}
}

// CreateOrder inserts a new order, assigning an id when it has none.
func (r *GormOrderRepository) CreateOrder(ctx context.Context, aggregate *order.Order) (kernel.UUID, error) {
	if err := aggregate.Validate(); err != nil {
		return kernel.UUID{}, err
	}
	if aggregate.ID().IsZero() {
		if err := aggregate.AssignID(kernel.NewUUID()); err != nil {
			return kernel.UUID{}, err
		}
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return kernel.UUID{}, err
	}

	r.tracker.TrackAggregate(ctx, aggregate)
	return aggregate.ID(), nil
}

// UpdateOrder writes the order only if the stored version still equals
// expectedVersion, and advances the version by one.
func (r *GormOrderRepository) UpdateOrder(ctx context.Context, aggregate *order.Order, expectedVersion int64) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND version = ?", dto.ID, expectedVersion).
		Updates(map[string]any{
			"items":   dto.Items,
			"status":  dto.Status,
			"version": expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return r.missedUpdate(ctx, aggregate.ID(), expectedVersion)
	}

	aggregate.ConfirmUpdate(expectedVersion)
	r.tracker.TrackAggregate(ctx, aggregate)
	return nil
}

// missedUpdate tells a vanished row from a concurrent writer.
func (r *GormOrderRepository) missedUpdate(ctx context.Context, id kernel.UUID, expectedVersion int64) error {
	var versions []int64
	if err := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ?", id.Bytes()).
		Pluck("version", &versions).Error; err != nil {
		return err
	}

	if len(versions) == 0 {
		return errs.NewObjectNotFoundError("orderID", id)
	}
	return errs.NewVersionConflictError("order", id, expectedVersion, versions[0])
}

// LoadOrder retrieves an order by ID.
func (r *GormOrderRepository) LoadOrder(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("orderID", id)
		}
		return nil, err
	}

	return toDomain(dto)
}

// ListOrdersForOwner returns the owner's orders, newest first.
func (r *GormOrderRepository) ListOrdersForOwner(ctx context.Context, ownerID string, statuses ...order.Status) ([]*order.Order, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statusValues(statuses))
	}

	var dtos []OrderDTO
	if err := query.Order("created_at DESC, id ASC").Find(&dtos).Error; err != nil {
		return nil, err
	}
	return toDomainList(dtos)
}

// ListOrdersInStatus returns every order in one of statuses, earliest pickup
// first.
func (r *GormOrderRepository) ListOrdersInStatus(ctx context.Context, statuses ...order.Status) ([]*order.Order, error) {
	query := r.db.WithContext(ctx)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statusValues(statuses))
	}

	var dtos []OrderDTO
	if err := query.Order("pickup_at ASC, id ASC").Find(&dtos).Error; err != nil {
		return nil, err
	}
	return toDomainList(dtos)
}

func toDomainList(dtos []OrderDTO) ([]*order.Order, error) {
	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

var _ ports.OrderRepository = (*GormOrderRepository)(nil)
