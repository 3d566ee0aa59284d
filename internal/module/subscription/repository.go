package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	sharederrors "github.com/orderlink/server/internal/shared/errors"
)

// ErrSubscriptionNotFound is returned when no subscription exists for
// an order.
var ErrSubscriptionNotFound = sharederrors.NotFound("subscription")

// Repository defines subscription data access.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Subscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a subscription repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, sub *Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) GetByOrder(ctx context.Context, orderID uuid.UUID) (*Subscription, error) {
	var sub Subscription
	err := r.db.WithContext(ctx).First(&sub, "order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) Update(ctx context.Context, sub *Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]*Subscription, error) {
	var subs []*Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_renewal_at <= ?", StatusActive, now).
		Order("next_renewal_at").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}
