package controllers

import (
	"errors"

	"github.com/codexchange/codexchange/config"
	"github.com/codexchange/codexchange/gateway"
	"github.com/codexchange/codexchange/models"
	"github.com/codexchange/codexchange/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Gateway is the payment gateway used by the payment controllers. Set
// once at startup; tests substitute a stub.
var Gateway gateway.PaymentGateway

// ErrOrderNotFound indicates the gateway order id correlates to no
// ledger row. On the webhook path this is an integration bug, not a
// security issue.
var ErrOrderNotFound = errors.New("order not found")

// Fee rates. The platform fee is deducted from the builder payout; the
// buyer always pays the base price.
var (
	platformFeeRate = decimal.RequireFromString("0.16")
	gstOnFeeRate    = decimal.RequireFromString("0.18")
	tcsRate         = decimal.RequireFromString("0.01")
)

// AmountBreakdown carries the figures persisted on every order so
// audits never re-derive them from a possibly-changed asset price.
type AmountBreakdown struct {
	Base        decimal.Decimal
	PlatformFee decimal.Decimal
	Gst         decimal.Decimal
	Tcs         decimal.Decimal
	Total       decimal.Decimal
}

// ComputeAmounts derives the full breakdown from the asset's current
// price. Computed exactly once, server-side, at order-creation time.
func ComputeAmounts(price decimal.Decimal) AmountBreakdown {
	base := price.Round(2)
	fee := base.Mul(platformFeeRate).Round(2)
	return AmountBreakdown{
		Base:        base,
		PlatformFee: fee,
		Gst:         fee.Mul(gstOnFeeRate).Round(2),
		Tcs:         base.Mul(tcsRate).Round(2),
		Total:       base,
	}
}

// PaymentOutcome is a terminal gateway report about an order, from
// either completion path.
type PaymentOutcome struct {
	PaymentStatus    string
	GatewayPaymentID string
	PaymentMethod    string
	RawPayload       []byte
}

// CompletePayment is the single convergence point for the webhook and
// the verification endpoint: it settles the order (status update plus
// payment audit row, atomically) and, when the order is paid, invokes
// the idempotent license issuer. Calling it again for a settled order
// is cheap and side-effect-free; the returned issued flag is true only
// when this call minted the license.
func CompletePayment(db *gorm.DB, gatewayOrderID string, outcome PaymentOutcome) (*models.Order, *models.License, bool, error) {
	order, err := getOrderByGatewayID(db, gatewayOrderID)
	if err != nil {
		return nil, nil, false, err
	}

	if !order.Terminal() {
		if err := settleOrder(db, order, outcome); err != nil {
			return nil, nil, false, err
		}
	}

	if order.Status != models.OrderStatusPaid {
		return order, nil, false, nil
	}

	prior, err := utils.GetLicenseByOrderID(db, order.ID)
	if err != nil {
		return order, nil, false, err
	}
	license, err := utils.IssueLicense(db, order)
	if err != nil {
		return order, nil, false, err
	}
	return order, license, prior == nil, nil
}

// paymentError converts the pipeline's sentinel errors into the
// AppError taxonomy so handlers respond through utils.RespondWithError
// instead of mapping statuses branch by branch. Unknown errors pass
// through and surface as a 500.
func paymentError(err error) error {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return utils.NotFoundError("Order not found", err)
	case errors.Is(err, gateway.ErrInvalidRequest):
		return utils.BadRequestError("Payment gateway rejected the order", err)
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		return utils.ServiceUnavailableError("Payment gateway is unavailable, please try again", err)
	case errors.Is(err, utils.ErrNoLicensesRemaining):
		return utils.ConflictError("All licenses for this asset have been sold", err)
	default:
		return err
	}
}

// settleOrder moves a pending order to its terminal status and records
// the payment audit row in one transaction. The status guard on the
// update is the authority on the one-way transition: when a concurrent
// settle already landed, the update matches no row, nothing is written,
// and the winner's status is re-read instead of overwritten.
func settleOrder(db *gorm.DB, order *models.Order, outcome PaymentOutcome) error {
	newStatus := models.OrderStatusFailed
	paymentStatus := models.PaymentStatusFailed
	if outcome.PaymentStatus == gateway.PaymentStatusSuccess {
		newStatus = models.OrderStatusPaid
		paymentStatus = models.PaymentStatusSuccess
	}

	lost := false
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Update("status", newStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			lost = true
			return nil
		}
		payment := models.Payment{
			OrderID:          order.ID,
			Amount:           order.AmountTotal,
			Currency:         order.Currency,
			Status:           paymentStatus,
			GatewayPaymentID: outcome.GatewayPaymentID,
			PaymentMethod:    outcome.PaymentMethod,
			PayloadJSON:      string(outcome.RawPayload),
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return err
	}

	if lost {
		return db.First(order, "id = ?", order.ID).Error
	}
	order.Status = newStatus
	utils.LogInfo("Order %s settled with status %s", order.GatewayOrderID, newStatus)
	return nil
}

func getOrderByGatewayID(db *gorm.DB, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	err := db.Preload("Asset").Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func currentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get("user")
	if !exists {
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	return user, ok
}

// db returns the active database handle. Indirection keeps handlers on
// the package-level connection while tests swap it.
func db() *gorm.DB {
	return config.DB
}
