package controllers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/codexchange/codexchange/config"
	"github.com/codexchange/codexchange/gateway"
	"github.com/codexchange/codexchange/models"
	"github.com/codexchange/codexchange/utils"
	"github.com/gin-gonic/gin"
)

// webhookPayload mirrors the gateway's notification body. Parsed only
// after the signature gate has passed.
type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID       string  `json:"order_id"`
			OrderAmount   float64 `json:"order_amount"`
			OrderCurrency string  `json:"order_currency"`
			OrderStatus   string  `json:"order_status"`
		} `json:"order"`
		Payment struct {
			CfPaymentID   json.Number `json:"cf_payment_id"`
			PaymentStatus string      `json:"payment_status"`
			PaymentAmount float64     `json:"payment_amount"`
			PaymentTime   string      `json:"payment_time"`
			PaymentMethod string      `json:"payment_group"`
		} `json:"payment"`
	} `json:"data"`
}

// POST /v1/webhooks/cashfree
// CashfreeWebhook ingests gateway-pushed payment notifications. The
// channel is untrusted and at-least-once: every delivery passes the
// header/freshness/signature gate before any parsing, and redeliveries
// for already-settled orders are silent no-ops answered with 200 so the
// gateway stops retrying.
func CashfreeWebhook(c *gin.Context) {
	// Raw bytes first: the signature covers the exact body received,
	// and parsed-then-reserialized JSON is not byte-stable.
	rawBody, err := c.GetRawData()
	if err != nil {
		utils.LogError("Failed to read webhook body: %v", err)
		utils.BadRequest(c, "Failed to read request body", nil)
		return
	}

	signature := c.GetHeader("x-webhook-signature")
	timestamp := c.GetHeader("x-webhook-timestamp")
	if signature == "" || timestamp == "" {
		utils.LogError("Webhook missing signature or timestamp header")
		utils.Unauthorized(c, "Missing webhook signature headers")
		return
	}

	cfg := config.AppConfig
	if !gateway.FreshTimestamp(timestamp, time.Now(), cfg.WebhookFreshness, cfg.WebhookForwardSlack) {
		utils.LogError("Webhook timestamp outside freshness window: %s", timestamp)
		utils.Unauthorized(c, "Webhook timestamp expired")
		return
	}

	if !Gateway.VerifySignature(rawBody, signature, timestamp) {
		utils.LogError("Webhook signature verification failed")
		utils.Unauthorized(c, "Invalid webhook signature")
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		utils.LogError("Malformed webhook body after signature pass: %v", err)
		utils.InternalServerError(c, "Malformed webhook payload", nil)
		return
	}
	if payload.Data.Order.OrderID == "" {
		utils.LogError("Webhook payload missing order id")
		utils.InternalServerError(c, "Malformed webhook payload", nil)
		return
	}

	utils.LogInfo("Webhook received for order %s with payment status %s",
		payload.Data.Order.OrderID, payload.Data.Payment.PaymentStatus)

	order, license, issued, err := CompletePayment(db(), payload.Data.Order.OrderID, PaymentOutcome{
		PaymentStatus:    payload.Data.Payment.PaymentStatus,
		GatewayPaymentID: payload.Data.Payment.CfPaymentID.String(),
		PaymentMethod:    payload.Data.Payment.PaymentMethod,
		RawPayload:       rawBody,
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			// Correlation bug, not a security issue. Log loudly; the
			// 404 from the mapper keeps the gateway from retry-looping
			// a row that will never appear.
			utils.LogError("Webhook for unknown gateway order id: %s", payload.Data.Order.OrderID)
		} else {
			utils.LogError("Webhook processing failed for order %s: %v", payload.Data.Order.OrderID, err)
		}
		utils.RespondWithError(c, paymentError(err))
		return
	}

	if issued && license != nil {
		// Best-effort delivery mail; never blocks the 2xx.
		var buyer models.User
		if berr := db().Where("id = ?", order.BuyerID).First(&buyer).Error; berr == nil {
			if merr := utils.SendLicenseEmail(buyer.Email, order.Asset.Name, license.LicenseType, license.LicenseKey); merr != nil {
				utils.LogError("Failed to send license email for order %s: %v", order.ID, merr)
			}
		}
		utils.LogInfo("License created for order %s", payload.Data.Order.OrderID)
	}

	utils.Success(c, "Webhook processed", gin.H{"order_id": payload.Data.Order.OrderID})
}
