package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Normalized order status vocabulary.
const (
	OrderStatusPaid    = "PAID"
	OrderStatusActive  = "ACTIVE"
	OrderStatusExpired = "EXPIRED"
	OrderStatusFailed  = "FAILED"
)

// Normalized payment status vocabulary.
const (
	PaymentStatusSuccess     = "SUCCESS"
	PaymentStatusPending     = "PENDING"
	PaymentStatusFailed      = "FAILED"
	PaymentStatusUserDropped = "USER_DROPPED"
)

// ErrGatewayUnavailable covers network failures and gateway 5xx
// responses. Callers should surface these as retryable.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ErrInvalidRequest covers gateway 4xx responses.
var ErrInvalidRequest = errors.New("payment gateway rejected request")

// CreateOrderRequest carries the purchase intent forwarded to the
// gateway's hosted checkout.
type CreateOrderRequest struct {
	AssetID     string
	LicenseType string
	BuyerID     string
	BuyerEmail  string
	BuyerName   string
	BuyerPhone  string
}

// CreateOrderResponse is the gateway's checkout session for one order.
type CreateOrderResponse struct {
	GatewayOrderID   string
	PaymentSessionID string
	OrderAmount      decimal.Decimal
}

// PaymentStatus is the gateway's view of an order, normalized to the
// closed status vocabulary above.
type PaymentStatus struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	OrderStatus      string `json:"order_status"`
	PaymentStatus    string `json:"payment_status"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty"`
}

// PaymentGateway isolates all third-party gateway protocol details.
// FetchPaymentStatus is a pure read, safe to call repeatedly; the
// verification endpoint uses it as the source of truth instead of
// trusting anything the client claims.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest, amount decimal.Decimal, returnURL string) (*CreateOrderResponse, error)
	FetchPaymentStatus(ctx context.Context, gatewayOrderID string) (*PaymentStatus, error)
	VerifySignature(rawBody []byte, signature, timestamp string) bool
}
