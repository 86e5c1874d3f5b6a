package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codexchange/codexchange/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNoLicensesRemaining is returned when the asset's scarcity ceiling
// has been reached.
var ErrNoLicensesRemaining = errors.New("no licenses remaining for this asset")

// GenerateLicenseKey builds a license key: type prefix, time component,
// random suffix. Global uniqueness is enforced by the unique index on
// licenses.license_key, not by generation entropy alone.
func GenerateLicenseKey(licenseType string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("%s-%d-%s", strings.ToUpper(licenseType), time.Now().UnixMilli(), suffix)
}

// IssueLicense mints the license for a paid order, idempotently. Safe
// to call any number of times, from any number of concurrent callers:
// an existing license is returned unchanged, and when two callers pass
// the existence check simultaneously the unique index on
// licenses.order_id picks the winner; the loser re-fetches and returns
// the winner's row. The license insert and the asset sold-counter
// increment commit in one transaction or not at all.
func IssueLicense(db *gorm.DB, order *models.Order) (*models.License, error) {
	var existing models.License
	err := db.Where("order_id = ?", order.ID).First(&existing).Error
	if err == nil {
		LogDebug("License already issued for order %s, returning existing", order.ID)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	license := models.License{
		AssetID:     order.AssetID,
		BuyerID:     order.BuyerID,
		OrderID:     order.ID,
		LicenseType: order.LicenseType,
		LicenseKey:  GenerateLicenseKey(order.LicenseType),
		Status:      models.LicenseStatusActive,
	}
	now := time.Now()
	license.ActivatedAt = &now

	err = db.Transaction(func(tx *gorm.DB) error {
		// Bounded counter update: refuses to pass the scarcity ceiling.
		res := tx.Model(&models.Asset{}).
			Where("id = ? AND (max_licenses IS NULL OR sold_licenses < max_licenses)", order.AssetID).
			UpdateColumn("sold_licenses", gorm.Expr("sold_licenses + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoLicensesRemaining
		}

		return tx.Create(&license).Error
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the issuance race; the rollback undid our counter
		// increment. Return the winner's row.
		LogInfo("Concurrent license issuance detected for order %s", order.ID)
		var winner models.License
		if ferr := db.Where("order_id = ?", order.ID).First(&winner).Error; ferr != nil {
			return nil, ferr
		}
		return &winner, nil
	}
	if err != nil {
		return nil, err
	}

	LogInfo("License %s issued for order %s", license.LicenseKey, order.ID)
	return &license, nil
}

// GetLicenseByOrderID fetches the license for an order, or nil when
// none has been issued.
func GetLicenseByOrderID(db *gorm.DB, orderID string) (*models.License, error) {
	var license models.License
	err := db.Where("order_id = ?", orderID).First(&license).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &license, nil
}

// HasLicenseForAsset reports whether the buyer already holds any
// license for the asset. Free assets are claim-once.
func HasLicenseForAsset(db *gorm.DB, buyerID, assetID string) (bool, error) {
	var count int64
	err := db.Model(&models.License{}).
		Where("buyer_id = ? AND asset_id = ?", buyerID, assetID).
		Count(&count).Error
	return count > 0, err
}
