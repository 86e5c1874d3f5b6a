package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// License status constants
const (
	LicenseStatusActive  = "active"
	LicenseStatusExpired = "expired"
	LicenseStatusRevoked = "revoked"
)

// License is the durable grant proving a purchase. The unique index on
// OrderID is the idempotency boundary for the whole fulfillment
// pipeline: at most one license may ever exist per order, and concurrent
// issuers rely on this constraint, not on application locks.
type License struct {
	ID      string `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID string `gorm:"type:uuid;index;not null" json:"asset_id"`
	Asset   Asset  `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	BuyerID string `gorm:"type:uuid;index;not null" json:"buyer_id"`
	Buyer   User   `gorm:"foreignKey:BuyerID" json:"-"`
	OrderID string `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`

	LicenseType string `gorm:"not null" json:"license_type"`
	LicenseKey  string `gorm:"uniqueIndex;not null" json:"license_key"`
	Status      string `gorm:"default:active;not null" json:"status"`

	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (l *License) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
