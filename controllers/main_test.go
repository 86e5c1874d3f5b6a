package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/codexchange/codexchange/config"
	"github.com/codexchange/codexchange/gateway"
	"github.com/codexchange/codexchange/middleware"
	"github.com/codexchange/codexchange/models"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testWebhookSecret = "cf_test_webhook_secret"
	testJWTSecret     = "test_jwt_secret"
)

// stubGateway scripts gateway behavior and counts calls so tests can
// assert which paths contact the gateway.
type stubGateway struct {
	createResp  *gateway.CreateOrderResponse
	createErr   error
	fetchStatus *gateway.PaymentStatus
	fetchErr    error

	createCalls int
	fetchCalls  int
}

func (s *stubGateway) CreateOrder(_ context.Context, _ gateway.CreateOrderRequest, amount decimal.Decimal, _ string) (*gateway.CreateOrderResponse, error) {
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.createResp != nil {
		return s.createResp, nil
	}
	return &gateway.CreateOrderResponse{
		GatewayOrderID:   "order_stub_1",
		PaymentSessionID: "session_stub_1",
		OrderAmount:      amount,
	}, nil
}

func (s *stubGateway) FetchPaymentStatus(_ context.Context, gatewayOrderID string) (*gateway.PaymentStatus, error) {
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if s.fetchStatus != nil {
		return s.fetchStatus, nil
	}
	return &gateway.PaymentStatus{
		GatewayOrderID: gatewayOrderID,
		OrderStatus:    gateway.OrderStatusActive,
		PaymentStatus:  gateway.PaymentStatusPending,
	}, nil
}

func (s *stubGateway) VerifySignature(rawBody []byte, signature, timestamp string) bool {
	return gateway.ValidSignature(testWebhookSecret, rawBody, signature, timestamp)
}

// setupTest wires an in-memory database, test config and a stub
// gateway, and returns a router carrying the production routes.
func setupTest(t *testing.T) (*gin.Engine, *stubGateway) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	config.DB = db

	config.AppConfig = &config.Config{
		JWTSecret:           testJWTSecret,
		AppURL:              "https://codexchange.test",
		CashfreeSecretKey:   testWebhookSecret,
		WebhookFreshness:    config.DefaultWebhookFreshness,
		WebhookForwardSlack: config.DefaultWebhookForwardSlack,
	}

	stub := &stubGateway{}
	Gateway = stub

	router := gin.New()
	v1 := router.Group("/v1")
	v1.POST("/webhooks/cashfree", CashfreeWebhook)
	v1.POST("/payments/verify", VerifyPayment)

	authed := v1.Group("", middleware.AuthMiddleware())
	authed.POST("/payments/orders", CreatePaymentOrder)
	authed.GET("/payments/orders", GetOrderHistory)
	authed.GET("/payments/orders/:id/invoice", DownloadInvoice)
	authed.GET("/licenses", GetUserLicenses)
	authed.POST("/licenses/:id/download", GenerateDownloadURL)
	authed.GET("/builder/sales/export", ExportBuilderSales)

	return router, stub
}

func createTestUser(t *testing.T, email, role string) models.User {
	t.Helper()
	user := models.User{Email: email, Name: "Test User", Role: role}
	require.NoError(t, config.DB.Create(&user).Error)
	return user
}

func createTestAsset(t *testing.T, builderID, usagePrice string, maxLicenses *int) models.Asset {
	t.Helper()
	asset := models.Asset{
		BuilderID:   builderID,
		Name:        "Support Ticket Classifier",
		Slug:        "support-ticket-classifier-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		Status:      models.AssetStatusApproved,
		MaxLicenses: maxLicenses,
	}
	if usagePrice != "" {
		price := decimal.RequireFromString(usagePrice)
		asset.UsageLicensePrice = &price
	}
	require.NoError(t, config.DB.Create(&asset).Error)
	return asset
}

func createPendingOrder(t *testing.T, buyer models.User, asset models.Asset, gatewayOrderID string) models.Order {
	t.Helper()
	amounts := ComputeAmounts(*asset.UsageLicensePrice)
	order := models.Order{
		AssetID:           asset.ID,
		BuyerID:           buyer.ID,
		BuilderID:         asset.BuilderID,
		LicenseType:       models.LicenseTypeUsage,
		Currency:          "INR",
		AmountBase:        amounts.Base,
		AmountPlatformFee: amounts.PlatformFee,
		AmountGst:         amounts.Gst,
		AmountTcs:         amounts.Tcs,
		AmountTotal:       amounts.Total,
		Status:            models.OrderStatusPending,
		GatewayOrderID:    gatewayOrderID,
		PaymentSessionID:  "session_stub_1",
	}
	require.NoError(t, config.DB.Create(&order).Error)
	return order
}

func authToken(t *testing.T, user models.User) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// signWebhook computes the headers the gateway would attach to a body.
func signWebhook(body []byte, ts time.Time) (signature, timestamp string) {
	timestamp = strconv.FormatInt(ts.UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), timestamp
}

func postWebhook(router *gin.Engine, body []byte, signature, timestamp string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/cashfree", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("x-webhook-signature", signature)
	}
	if timestamp != "" {
		req.Header.Set("x-webhook-timestamp", timestamp)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func successWebhookBody(gatewayOrderID string) []byte {
	return []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"` + gatewayOrderID + `","order_amount":499.00,"order_currency":"INR","order_status":"PAID"},"payment":{"cf_payment_id":5114917,"payment_status":"SUCCESS","payment_amount":499.00,"payment_group":"upi"}}}`)
}

func failedWebhookBody(gatewayOrderID string) []byte {
	return []byte(`{"type":"PAYMENT_FAILED_WEBHOOK","data":{"order":{"order_id":"` + gatewayOrderID + `","order_status":"ACTIVE"},"payment":{"cf_payment_id":5114918,"payment_status":"FAILED","payment_group":"upi"}}}`)
}
