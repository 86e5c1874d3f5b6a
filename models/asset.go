package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Asset status constants
const (
	AssetStatusDraft         = "draft"
	AssetStatusPendingReview = "pending_review"
	AssetStatusApproved      = "approved"
	AssetStatusRejected      = "rejected"
)

// Asset is a listed software asset. The payment core reads license
// prices at order-creation time and increments SoldLicenses at license
// issuance; no other field is mutated here.
type Asset struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	BuilderID string `gorm:"type:uuid;index;not null" json:"builder_id"`
	Builder   User   `gorm:"foreignKey:BuilderID" json:"-"`

	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `json:"description"`

	// Pricing. A nil price means that license type is not offered.
	UsageLicensePrice  *decimal.Decimal `gorm:"type:decimal(10,2)" json:"usage_license_price,omitempty"`
	SourceLicensePrice *decimal.Decimal `gorm:"type:decimal(10,2)" json:"source_license_price,omitempty"`

	// Scarcity. SoldLicenses must equal the count of licenses issued
	// against this asset; MaxLicenses nil means unbounded.
	MaxLicenses  *int `json:"max_licenses,omitempty"`
	SoldLicenses int  `gorm:"default:0;not null" json:"sold_licenses"`

	Status    string    `gorm:"default:draft" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// PriceFor returns the asset's price for the given license type, or nil
// when that license type is not offered.
func (a *Asset) PriceFor(licenseType string) *decimal.Decimal {
	if licenseType == LicenseTypeSource {
		return a.SourceLicensePrice
	}
	return a.UsageLicensePrice
}

// SoldOut reports whether the scarcity ceiling has been reached.
func (a *Asset) SoldOut() bool {
	return a.MaxLicenses != nil && a.SoldLicenses >= *a.MaxLicenses
}
