package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderlink/server/internal/module/resource"
)

// GatewayName identifies this integration on an order. The webhook
// guards check it before mutating status, so an order swapped to
// another payment integration is left alone.
const GatewayName = "orderlink"

// Status represents the status of a local order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusOnHold     Status = "on-hold"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"

	// StatusPartiallyPaid is a host-specific refinement of on-hold a
	// delayed-confirmation transition must not overwrite.
	StatusPartiallyPaid Status = "partially-paid"
)

// Metadata keys persisted on the local order. The names are stable:
// existing shops carry them on live orders.
const (
	MetaPaymentID          = "_remote_payment_id"
	MetaOrderID            = "_remote_order_id"
	MetaPaymentMode        = "_payment_mode"
	MetaCustomerID         = "_remote_customer_id"
	MetaCancelledPaymentID = "_cancelled_payment_id"
	MetaMandateID          = "_mandate_id"
	MetaPaidProcessed      = "_paid_and_processed"
	MetaStockReduced       = "_stock_reduced"
	MetaOpenStatusNote     = "_open_status_note"
)

// flagSet is the stored value for boolean metadata flags.
const flagSet = "1"

// Order is the local order record. The engine mutates its status and a
// bounded set of metadata; everything else belongs to the host shop.
type Order struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Number   string    `json:"number" gorm:"uniqueIndex;not null"`
	Key      string    `json:"-" gorm:"not null"` // webhook correlation key
	Status   Status    `json:"status" gorm:"not null;default:pending"`
	Total    int64     `json:"total"` // in minor units
	Currency string    `json:"currency" gorm:"default:EUR"`

	// Gateway is the payment integration currently owning the order.
	Gateway string `json:"gateway"`

	// Method is the payment method code selected at checkout.
	Method string `json:"method"`

	CustomerFirstName string `json:"customer_first_name"`
	CustomerLastName  string `json:"customer_last_name"`
	CustomerCompany   string `json:"customer_company,omitempty"`
	CustomerEmail     string `json:"customer_email"`
	CustomerCountry   string `json:"customer_country,omitempty"`
	Locale            string `json:"locale,omitempty"`

	// Subscription marks orders that start a recurring series;
	// ParentID links a renewal order back to its parent.
	Subscription bool       `json:"subscription"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty" gorm:"type:uuid;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []Item `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Meta  []Meta `json:"-" gorm:"foreignKey:OrderID"`
	Notes []Note `json:"notes,omitempty" gorm:"foreignKey:OrderID"`
}

// TableName returns the database table name.
func (Order) TableName() string {
	return "orders"
}

// IsFinal reports whether the order reached a status that cancellation
// or expiry notifications for older remote attempts must not regress.
func (o *Order) IsFinal() bool {
	switch o.Status {
	case StatusCompleted, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

// IsRenewal reports whether the order is a subscription renewal.
func (o *Order) IsRenewal() bool { return o.ParentID != nil }

// OwnedByGateway reports whether this integration still owns the
// order's payment method.
func (o *Order) OwnedByGateway() bool { return o.Gateway == GatewayName }

// MetaValue returns the value stored under the metadata key, or "".
func (o *Order) MetaValue(key string) string {
	for i := range o.Meta {
		if o.Meta[i].Key == key {
			return o.Meta[i].Value
		}
	}
	return ""
}

// SetMetaValue sets a metadata value in the loaded association. The
// repository persists it on save.
func (o *Order) SetMetaValue(key, value string) {
	for i := range o.Meta {
		if o.Meta[i].Key == key {
			o.Meta[i].Value = value
			return
		}
	}
	o.Meta = append(o.Meta, Meta{OrderID: o.ID, Key: key, Value: value})
}

// ClearMetaValue removes a metadata key from the loaded association.
func (o *Order) ClearMetaValue(key string) {
	for i := range o.Meta {
		if o.Meta[i].Key == key {
			o.Meta = append(o.Meta[:i], o.Meta[i+1:]...)
			return
		}
	}
}

// HasFlag reports whether a boolean metadata flag is set.
func (o *Order) HasFlag(key string) bool { return o.MetaValue(key) == flagSet }

// SetFlag sets a boolean metadata flag.
func (o *Order) SetFlag(key string) { o.SetMetaValue(key, flagSet) }

// ClearFlag clears a boolean metadata flag.
func (o *Order) ClearFlag(key string) { o.ClearMetaValue(key) }

// ActiveLinkage returns the id and kind of the currently linked remote
// resource. The order-kind linkage wins when both are present; ok is
// false when the order has no linkage.
func (o *Order) ActiveLinkage() (id string, kind resource.Kind, ok bool) {
	if id := o.MetaValue(MetaOrderID); id != "" {
		return id, resource.KindOrder, true
	}
	if id := o.MetaValue(MetaPaymentID); id != "" {
		return id, resource.KindPayment, true
	}
	return "", "", false
}

// SetLinkage stores the active remote linkage. At most one of the two
// linkage slots is populated at a time.
func (o *Order) SetLinkage(id string, kind resource.Kind) {
	switch kind {
	case resource.KindOrder:
		o.SetMetaValue(MetaOrderID, id)
		o.ClearMetaValue(MetaPaymentID)
	default:
		o.SetMetaValue(MetaPaymentID, id)
		o.ClearMetaValue(MetaOrderID)
	}
}

// ClearLinkage drops both linkage slots.
func (o *Order) ClearLinkage() {
	o.ClearMetaValue(MetaOrderID)
	o.ClearMetaValue(MetaPaymentID)
}

// ItemType distinguishes product lines from fee lines.
type ItemType string

const (
	ItemTypeProduct ItemType = "product"
	ItemTypeFee     ItemType = "fee"
)

// Item is one line of a local order.
type Item struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	Type    ItemType  `json:"type" gorm:"not null;default:product"`
	Name    string    `json:"name" gorm:"not null"`
	SKU     string    `json:"sku,omitempty"`

	Quantity int   `json:"quantity"`
	Unit     int64 `json:"unit"`  // unit price in minor units
	Total    int64 `json:"total"` // line total in minor units

	// CorrelationID ties the line to its remote counterpart. Refunds
	// and cancels match on it.
	CorrelationID string `json:"correlation_id,omitempty" gorm:"index"`

	// ProductValid is false when the line's product reference no
	// longer resolves; such carts cannot use the order endpoint.
	ProductValid bool `json:"product_valid" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (Item) TableName() string {
	return "order_items"
}

// Meta is one persisted metadata entry of an order.
type Meta struct {
	ID      uint      `json:"-" gorm:"primaryKey"`
	OrderID uuid.UUID `json:"-" gorm:"type:uuid;not null;uniqueIndex:idx_order_meta_key"`
	Key     string    `json:"key" gorm:"not null;uniqueIndex:idx_order_meta_key"`
	Value   string    `json:"value"`
}

// TableName returns the database table name.
func (Meta) TableName() string {
	return "order_meta"
}

// Note is an audit note visible to shop staff.
type Note struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	Text      string    `json:"text" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (Note) TableName() string {
	return "order_notes"
}
