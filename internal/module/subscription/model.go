package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a subscription.
type Status string

const (
	StatusPendingFirst Status = "pending-first" // first payment not yet confirmed
	StatusActive       Status = "active"
	StatusOnHold       Status = "on-hold" // renewal failed, staff attention needed
	StatusCancelled    Status = "cancelled"
)

// Subscription is the minimal activation bookkeeping for a recurring
// series: which parent order started it, which mandate charges it, and
// when the next renewal is due.
type Subscription struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;uniqueIndex;not null"` // parent order
	Status    Status    `json:"status" gorm:"not null;default:pending-first"`
	MandateID string    `json:"mandate_id,omitempty"`

	IntervalDays  int       `json:"interval_days" gorm:"default:30"`
	NextRenewalAt time.Time `json:"next_renewal_at" gorm:"index"`
	RenewalCount  int       `json:"renewal_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Subscription) TableName() string {
	return "subscriptions"
}

// Advance schedules the next renewal after a successful charge
// attempt.
func (s *Subscription) Advance(from time.Time) {
	s.RenewalCount++
	s.NextRenewalAt = from.AddDate(0, 0, s.IntervalDays)
}
