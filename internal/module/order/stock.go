package order

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StockLevel tracks the on-hand quantity for one product.
type StockLevel struct {
	CorrelationID string    `json:"correlation_id" gorm:"primaryKey"`
	Quantity      int       `json:"quantity" gorm:"not null;default:0"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (StockLevel) TableName() string {
	return "stock_levels"
}

type stockLedger struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStockLedger creates a database-backed stock adjuster. Products
// without a stock row are treated as untracked and skipped.
func NewStockLedger(db *gorm.DB, logger *zap.Logger) StockAdjuster {
	return &stockLedger{db: db, logger: logger}
}

func (l *stockLedger) Reduce(ctx context.Context, o *Order) error {
	return l.adjust(ctx, o, -1)
}

func (l *stockLedger) Restore(ctx context.Context, o *Order) error {
	return l.adjust(ctx, o, +1)
}

func (l *stockLedger) adjust(ctx context.Context, o *Order, direction int) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range o.Items {
			if item.Type != ItemTypeProduct {
				continue
			}
			res := tx.Model(&StockLevel{}).
				Where("correlation_id = ?", item.CorrelationID).
				Update("quantity", gorm.Expr("quantity + ?", direction*item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				l.logger.Debug("no stock row for item, skipping",
					zap.String("correlation_id", item.CorrelationID),
				)
			}
		}
		return nil
	})
}
