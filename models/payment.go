package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment status constants
const (
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// Payment is the gateway's record of one completed attempt against an
// Order. Rows are append-only audit trail; a gateway may report retried
// attempts, but only the first success drives license issuance.
type Payment struct {
	ID      string `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID string `gorm:"type:uuid;index;not null" json:"order_id"`
	Order   Order  `gorm:"foreignKey:OrderID" json:"-"`

	Amount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency string          `gorm:"default:INR;not null" json:"currency"`
	Status   string          `gorm:"not null" json:"status"`

	PaymentGateway   string `gorm:"default:cashfree" json:"payment_gateway"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty"`

	// Raw gateway payload, stored verbatim for audit and replay debugging.
	PayloadJSON string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
