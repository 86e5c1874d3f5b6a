package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order status constants. Transitions are one-way: pending -> paid or
// pending -> failed, never reopened.
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// License type constants
const (
	LicenseTypeUsage  = "usage"
	LicenseTypeSource = "source"
)

// Order records one purchase attempt. The amount breakdown is computed
// server-side once, at creation time, from the asset's current price and
// persisted so audits never re-derive it. GatewayOrderID is the sole
// correlation key used by both the webhook and the verification path.
type Order struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID   string `gorm:"type:uuid;index;not null" json:"asset_id"`
	Asset     Asset  `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	BuyerID   string `gorm:"type:uuid;index;not null" json:"buyer_id"`
	Buyer     User   `gorm:"foreignKey:BuyerID" json:"-"`
	BuilderID string `gorm:"type:uuid;not null" json:"builder_id"`

	LicenseType string `gorm:"not null" json:"license_type"`
	Currency    string `gorm:"default:INR;not null" json:"currency"`

	// Amount breakdown. Total is what the buyer pays; the platform fee,
	// GST on the fee and TCS are deductions from the builder payout.
	AmountBase        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_base"`
	AmountPlatformFee decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_platform_fee"`
	AmountGst         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_gst"`
	AmountTcs         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_tcs"`
	AmountTotal       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_total"`

	Status string `gorm:"default:pending;not null" json:"status"`

	PaymentGateway   string `gorm:"default:cashfree" json:"payment_gateway"`
	GatewayOrderID   string `gorm:"uniqueIndex;not null" json:"gateway_order_id"`
	PaymentSessionID string `json:"payment_session_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// Terminal reports whether the order has reached a final status.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusFailed
}
