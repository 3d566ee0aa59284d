package checkout

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerLink maps a local customer (by email) to the provider
// customer id created for them.
type CustomerLink struct {
	ID        uint      `gorm:"primaryKey"`
	Email     string    `gorm:"uniqueIndex;not null"`
	RemoteID  string    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name.
func (CustomerLink) TableName() string {
	return "customer_links"
}

type gormVault struct {
	db *gorm.DB
}

// NewVault creates a gorm-backed customer vault.
func NewVault(db *gorm.DB) CustomerVault {
	return &gormVault{db: db}
}

func (v *gormVault) Lookup(ctx context.Context, email string) (string, error) {
	var link CustomerLink
	err := v.db.WithContext(ctx).First(&link, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return link.RemoteID, nil
}

func (v *gormVault) Store(ctx context.Context, email, remoteID string) error {
	link := CustomerLink{Email: email, RemoteID: remoteID}
	return v.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"remote_id", "updated_at"}),
		}).
		Create(&link).Error
}
