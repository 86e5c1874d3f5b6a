package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/codexchange/codexchange/config"
	"github.com/codexchange/codexchange/gateway"
	"github.com/codexchange/codexchange/models"
	"github.com/codexchange/codexchange/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// POST /v1/payments/orders
// CreatePaymentOrder records the purchase intent, computes the amount
// breakdown from the asset's current price and opens a gateway checkout
// session. The client never supplies a price. Free assets bypass the
// gateway entirely and are fulfilled inline.
func CreatePaymentOrder(c *gin.Context) {
	utils.LogInfo("CreatePaymentOrder called")
	user, ok := currentUser(c)
	if !ok {
		utils.Unauthorized(c, "User not found")
		return
	}

	var req struct {
		AssetID     string `json:"asset_id" binding:"required"`
		LicenseType string `json:"license_type" binding:"required,oneof=usage source"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid order request from user %s: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. asset_id and license_type (usage|source) are required", err.Error())
		return
	}

	var asset models.Asset
	if err := db().Where("id = ?", req.AssetID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Asset not found")
			return
		}
		utils.LogError("Failed to load asset %s: %v", req.AssetID, err)
		utils.InternalServerError(c, "Failed to load asset", nil)
		return
	}

	if asset.Status != models.AssetStatusApproved {
		utils.BadRequest(c, "Asset is not available for purchase", nil)
		return
	}

	price := asset.PriceFor(req.LicenseType)
	if price == nil {
		utils.BadRequest(c, fmt.Sprintf("%s license is not available for this asset", req.LicenseType), nil)
		return
	}

	if asset.SoldOut() {
		utils.Conflict(c, "All licenses for this asset have been sold", nil)
		return
	}

	amounts := ComputeAmounts(*price)

	if amounts.Total.IsZero() {
		createFreeOrder(c, user, asset, req.LicenseType, amounts)
		return
	}

	returnURL := config.AppConfig.AppURL + "/payment/verify?order_id={order_id}"
	gwResp, err := Gateway.CreateOrder(c.Request.Context(), gateway.CreateOrderRequest{
		AssetID:     asset.ID,
		LicenseType: req.LicenseType,
		BuyerID:     user.ID,
		BuyerEmail:  user.Email,
		BuyerName:   user.Name,
	}, amounts.Total, returnURL)
	if err != nil {
		utils.LogError("Failed to create gateway order for asset %s, user %s: %v", asset.ID, user.ID, err)
		utils.RespondWithError(c, paymentError(err))
		return
	}

	order := models.Order{
		AssetID:           asset.ID,
		BuyerID:           user.ID,
		BuilderID:         asset.BuilderID,
		LicenseType:       req.LicenseType,
		Currency:          "INR",
		AmountBase:        amounts.Base,
		AmountPlatformFee: amounts.PlatformFee,
		AmountGst:         amounts.Gst,
		AmountTcs:         amounts.Tcs,
		AmountTotal:       amounts.Total,
		Status:            models.OrderStatusPending,
		GatewayOrderID:    gwResp.GatewayOrderID,
		PaymentSessionID:  gwResp.PaymentSessionID,
	}
	if err := db().Create(&order).Error; err != nil {
		utils.LogError("Failed to record order for gateway order %s: %v", gwResp.GatewayOrderID, err)
		utils.InternalServerError(c, "Failed to record order", nil)
		return
	}
	utils.LogInfo("Order %s created for asset %s, user %s", order.GatewayOrderID, asset.ID, user.ID)

	utils.Created(c, "Order created successfully", gin.H{
		"order_id":           order.GatewayOrderID,
		"payment_session_id": order.PaymentSessionID,
		"order_amount":       order.AmountTotal,
		"currency":           order.Currency,
		"free":               false,
	})
}

// createFreeOrder handles zero-amount assets: claim-once check, a
// synthesized terminal-paid order with a local pseudo gateway id, and
// inline license issuance. Keeps the free path's data shapes identical
// to the paid path so the verification short-circuit works uniformly.
func createFreeOrder(c *gin.Context, user models.User, asset models.Asset, licenseType string, amounts AmountBreakdown) {
	claimed, err := utils.HasLicenseForAsset(db(), user.ID, asset.ID)
	if err != nil {
		utils.LogError("Failed to check existing licenses for user %s, asset %s: %v", user.ID, asset.ID, err)
		utils.InternalServerError(c, "Failed to check existing licenses", nil)
		return
	}
	if claimed {
		utils.Conflict(c, "Free assets can only be claimed once", nil)
		return
	}

	order := models.Order{
		AssetID:           asset.ID,
		BuyerID:           user.ID,
		BuilderID:         asset.BuilderID,
		LicenseType:       licenseType,
		Currency:          "INR",
		AmountBase:        amounts.Base,
		AmountPlatformFee: amounts.PlatformFee,
		AmountGst:         amounts.Gst,
		AmountTcs:         amounts.Tcs,
		AmountTotal:       amounts.Total,
		Status:            models.OrderStatusPaid,
		GatewayOrderID:    "order_free_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:18],
	}
	if err := db().Create(&order).Error; err != nil {
		utils.LogError("Failed to record free order for asset %s: %v", asset.ID, err)
		utils.InternalServerError(c, "Failed to record order", nil)
		return
	}

	license, err := utils.IssueLicense(db(), &order)
	if err != nil {
		utils.LogError("Failed to issue free license for order %s: %v", order.ID, err)
		utils.RespondWithError(c, paymentError(err))
		return
	}
	utils.LogInfo("Free order %s fulfilled inline for user %s", order.GatewayOrderID, user.ID)

	utils.Created(c, "License claimed successfully", gin.H{
		"order_id":           order.GatewayOrderID,
		"payment_session_id": "",
		"order_amount":       order.AmountTotal,
		"currency":           order.Currency,
		"free":               true,
		"license":            license,
	})
}

// POST /v1/payments/verify
// VerifyPayment is invoked by the buyer's browser after the checkout
// redirect. It never trusts client-claimed status: truth is re-derived
// from the gateway. The handler is deliberately session-agnostic, since
// the redirect may outlive the session: authorization comes from
// knowledge of the opaque order id plus the gateway's independent
// confirmation, and the license is always attributed to the buyer on
// the order row.
func VerifyPayment(c *gin.Context) {
	utils.LogInfo("VerifyPayment called")

	var req struct {
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. order_id is required", err.Error())
		return
	}

	order, err := getOrderByGatewayID(db(), req.OrderID)
	if err != nil {
		utils.LogError("Failed to load order %s: %v", req.OrderID, err)
		utils.RespondWithError(c, paymentError(err))
		return
	}

	// Already settled successfully (prior webhook, or a free order
	// provisioned at creation): return the existing license without
	// contacting the gateway again.
	if order.Status == models.OrderStatusPaid {
		license, lerr := utils.GetLicenseByOrderID(db(), order.ID)
		if lerr != nil {
			utils.LogError("Failed to load license for order %s: %v", order.ID, lerr)
			utils.InternalServerError(c, "Failed to load license", nil)
			return
		}
		utils.Success(c, "Payment verified", gin.H{
			"status":  gateway.PaymentStatusSuccess,
			"order":   order,
			"license": license,
		})
		return
	}

	status, err := Gateway.FetchPaymentStatus(c.Request.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, gateway.ErrGatewayUnavailable) {
			// Payment may simply still be in flight at the gateway;
			// tell the browser to retry rather than failing hard.
			utils.LogError("Gateway unavailable while verifying order %s: %v", req.OrderID, err)
			utils.Success(c, "Payment verification pending, please retry", gin.H{
				"status": gateway.PaymentStatusPending,
				"order":  order,
				"retry":  true,
			})
			return
		}
		utils.LogError("Failed to fetch payment status for order %s: %v", req.OrderID, err)
		utils.InternalServerError(c, "Failed to verify payment", nil)
		return
	}

	if status.PaymentStatus == gateway.PaymentStatusPending {
		utils.Success(c, "Payment still pending", gin.H{
			"status": gateway.PaymentStatusPending,
			"order":  order,
			"retry":  true,
		})
		return
	}

	// The fetched status is this path's equivalent of a webhook body:
	// persist it on the audit row.
	rawStatus, _ := json.Marshal(status)
	order, license, _, err := CompletePayment(db(), req.OrderID, PaymentOutcome{
		PaymentStatus:    status.PaymentStatus,
		GatewayPaymentID: status.GatewayPaymentID,
		PaymentMethod:    status.PaymentMethod,
		RawPayload:       rawStatus,
	})
	if err != nil {
		utils.LogError("Failed to settle order %s: %v", req.OrderID, err)
		utils.RespondWithError(c, paymentError(err))
		return
	}

	if order.Status == models.OrderStatusPaid {
		utils.Success(c, "Payment verified", gin.H{
			"status":  gateway.PaymentStatusSuccess,
			"order":   order,
			"license": license,
		})
		return
	}

	utils.Success(c, "Payment was not successful", gin.H{
		"status": status.PaymentStatus,
		"order":  order,
	})
}
