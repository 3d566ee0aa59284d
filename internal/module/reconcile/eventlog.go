package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookEvent is one inbound notification with its processing
// outcome. The log is observability only; idempotency comes from the
// order's processed marker and linkage comparison, never from here.
type WebhookEvent struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	OrderID    uuid.UUID `json:"order_id" gorm:"type:uuid;index"`
	ResourceID string    `json:"resource_id" gorm:"index"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// EventLog persists webhook events.
type EventLog interface {
	Record(ctx context.Context, event *WebhookEvent) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]WebhookEvent, error)
}

type gormEventLog struct {
	db *gorm.DB
}

// NewEventLog creates a gorm-backed webhook event log.
func NewEventLog(db *gorm.DB) EventLog {
	return &gormEventLog{db: db}
}

func (l *gormEventLog) Record(ctx context.Context, event *WebhookEvent) error {
	return l.db.WithContext(ctx).Create(event).Error
}

func (l *gormEventLog) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]WebhookEvent, error) {
	var events []WebhookEvent
	err := l.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&events).Error
	return events, err
}
