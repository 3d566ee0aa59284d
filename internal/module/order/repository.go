package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the order data access the engine needs from the
// host shop.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	SetMeta(ctx context.Context, orderID uuid.UUID, key, value string) error
	DeleteMeta(ctx context.Context, orderID uuid.UUID, key string) error
	AddNote(ctx context.Context, orderID uuid.UUID, text string) error

	ReplaceFeeLine(ctx context.Context, orderID uuid.UUID, fee *Item) error
	DeleteFeeLines(ctx context.Context, orderID uuid.UUID) error

	// ListRenewalsDue returns subscription orders whose renewal is due.
	ListRenewalsDue(ctx context.Context, limit int) ([]*Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Meta").
		First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Order, error) {
	var o Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Meta").
		First(&o, "number = ?", number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Update persists the order row and its metadata association in one
// transaction. Metadata rows removed from the association are deleted,
// so ClearMetaValue takes effect on save.
func (r *repository) Update(ctx context.Context, o *Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items", "Meta", "Notes").Save(o).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&Meta{}).Error; err != nil {
			return err
		}
		for i := range o.Meta {
			o.Meta[i].ID = 0
			o.Meta[i].OrderID = o.ID
		}
		if len(o.Meta) == 0 {
			return nil
		}
		return tx.Create(&o.Meta).Error
	})
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	result := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) SetMeta(ctx context.Context, orderID uuid.UUID, key, value string) error {
	meta := Meta{OrderID: orderID, Key: key, Value: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&meta).Error
}

func (r *repository) DeleteMeta(ctx context.Context, orderID uuid.UUID, key string) error {
	return r.db.WithContext(ctx).
		Where("order_id = ? AND key = ?", orderID, key).
		Delete(&Meta{}).Error
}

func (r *repository) AddNote(ctx context.Context, orderID uuid.UUID, text string) error {
	return r.db.WithContext(ctx).Create(&Note{OrderID: orderID, Text: text}).Error
}

func (r *repository) ReplaceFeeLine(ctx context.Context, orderID uuid.UUID, fee *Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ? AND type = ?", orderID, ItemTypeFee).Delete(&Item{}).Error; err != nil {
			return err
		}
		fee.OrderID = orderID
		fee.Type = ItemTypeFee
		return tx.Create(fee).Error
	})
}

func (r *repository) DeleteFeeLines(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_id = ? AND type = ?", orderID, ItemTypeFee).
		Delete(&Item{}).Error
}

func (r *repository) ListRenewalsDue(ctx context.Context, limit int) ([]*Order, error) {
	var orders []*Order
	err := r.db.WithContext(ctx).
		Preload("Meta").
		Where("parent_id IS NOT NULL AND status = ?", StatusPending).
		Order("created_at").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
