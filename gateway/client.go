package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codexchange/codexchange/config"
	"github.com/codexchange/codexchange/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	sandboxBaseURL    = "https://sandbox.cashfree.com"
	productionBaseURL = "https://api.cashfree.com"
	apiVersion        = "2023-08-01"

	// Bounded per-call timeout, distinct from the webhook freshness
	// window. A timed-out status fetch surfaces as retryable.
	requestTimeout = 12 * time.Second
)

// Client talks to the Cashfree PG REST API. Credentials are injected at
// construction; nothing here reads the environment.
type Client struct {
	appID      string
	secretKey  string
	baseURL    string
	webhookURL string
	httpClient *http.Client
}

// NewClient builds a gateway client from the loaded configuration.
func NewClient(cfg *config.Config) *Client {
	baseURL := sandboxBaseURL
	if cfg.CashfreeEnvironment == "production" {
		baseURL = productionBaseURL
	}
	return &Client{
		appID:      cfg.CashfreeAppID,
		secretKey:  cfg.CashfreeSecretKey,
		baseURL:    baseURL,
		webhookURL: cfg.CashfreeWebhookURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type createOrderPayload struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
	OrderMeta       orderMeta       `json:"order_meta"`
	OrderNote       string          `json:"order_note,omitempty"`
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	CustomerName  string `json:"customer_name"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type orderResponse struct {
	OrderID          string      `json:"order_id"`
	CfOrderID        json.Number `json:"cf_order_id"`
	OrderAmount      float64     `json:"order_amount"`
	OrderStatus      string      `json:"order_status"`
	PaymentSessionID string      `json:"payment_session_id"`
}

// CreateOrder registers a checkout session with the gateway. The order
// id is generated locally so webhook correlation never depends on the
// gateway assigning one.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, amount decimal.Decimal, returnURL string) (*CreateOrderResponse, error) {
	orderID := fmt.Sprintf("order_%d_%s", time.Now().UnixMilli(), strings.Split(uuid.NewString(), "-")[0])

	phone := req.BuyerPhone
	if phone == "" {
		phone = "9999999999"
	}

	amountFloat, _ := amount.Float64()
	payload := createOrderPayload{
		OrderID:       orderID,
		OrderAmount:   amountFloat,
		OrderCurrency: "INR",
		CustomerDetails: customerDetails{
			CustomerID:    req.BuyerID,
			CustomerEmail: req.BuyerEmail,
			CustomerPhone: phone,
			CustomerName:  req.BuyerName,
		},
		OrderMeta: orderMeta{
			ReturnURL: returnURL,
			NotifyURL: c.webhookURL,
		},
		OrderNote: fmt.Sprintf("Purchase %s license for asset %s", req.LicenseType, req.AssetID),
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/pg/orders", payload, &resp); err != nil {
		utils.LogError("Failed to create gateway order %s: %v", orderID, err)
		return nil, err
	}

	if resp.PaymentSessionID == "" {
		return nil, fmt.Errorf("%w: no payment session id returned", ErrInvalidRequest)
	}

	confirmed := amount
	if resp.OrderAmount > 0 {
		confirmed = decimal.NewFromFloat(resp.OrderAmount).Round(2)
	}
	gatewayOrderID := resp.OrderID
	if gatewayOrderID == "" {
		gatewayOrderID = orderID
	}

	return &CreateOrderResponse{
		GatewayOrderID:   gatewayOrderID,
		PaymentSessionID: resp.PaymentSessionID,
		OrderAmount:      confirmed,
	}, nil
}

// FetchPaymentStatus reads the gateway's current view of an order and
// normalizes its status vocabulary.
func (c *Client) FetchPaymentStatus(ctx context.Context, gatewayOrderID string) (*PaymentStatus, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/pg/orders/"+gatewayOrderID, nil, &resp); err != nil {
		return nil, err
	}

	orderStatus := normalizeOrderStatus(resp.OrderStatus)
	return &PaymentStatus{
		GatewayOrderID:   gatewayOrderID,
		OrderStatus:      orderStatus,
		PaymentStatus:    paymentStatusFor(orderStatus),
		GatewayPaymentID: resp.CfOrderID.String(),
	}, nil
}

func normalizeOrderStatus(status string) string {
	switch status {
	case "PAID":
		return OrderStatusPaid
	case "EXPIRED":
		return OrderStatusExpired
	case "TERMINATED", "FAILED":
		return OrderStatusFailed
	default:
		return OrderStatusActive
	}
}

func paymentStatusFor(orderStatus string) string {
	switch orderStatus {
	case OrderStatusPaid:
		return PaymentStatusSuccess
	case OrderStatusExpired, OrderStatusFailed:
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d: %s", ErrInvalidRequest, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: malformed response: %v", ErrGatewayUnavailable, err)
		}
	}
	return nil
}
