package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/codexchange/codexchange/config"
	"github.com/codexchange/codexchange/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserLicenses(t *testing.T) {
	router, _ := setupTest(t)
	buyer := createTestUser(t, "buyer@example.in", models.RoleBuyer)
	other := createTestUser(t, "other@example.in", models.RoleBuyer)
	builder := createTestUser(t, "builder@example.in", models.RoleBuilder)
	asset := createTestAsset(t, builder.ID, "499.00", nil)

	order := createPendingOrder(t, buyer, asset, "order_lic_1")
	body := successWebhookBody(order.GatewayOrderID)
	sig, ts := signWebhook(body, time.Now())
	require.Equal(t, http.StatusOK, postWebhook(router, body, sig, ts).Code)

	w := doJSON(router, http.MethodGet, "/v1/licenses", authToken(t, buyer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w.Body.Bytes())
	assert.EqualValues(t, 1, data["count"])

	// Other buyers see nothing.
	w = doJSON(router, http.MethodGet, "/v1/licenses", authToken(t, other), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w.Body.Bytes())
	assert.EqualValues(t, 0, data["count"])
}

func TestGenerateDownloadURL_OwnershipRequired(t *testing.T) {
	router, _ := setupTest(t)
	buyer := createTestUser(t, "buyer@example.in", models.RoleBuyer)
	other := createTestUser(t, "other@example.in", models.RoleBuyer)
	builder := createTestUser(t, "builder@example.in", models.RoleBuilder)
	asset := createTestAsset(t, builder.ID, "499.00", nil)

	order := createPendingOrder(t, buyer, asset, "order_dl_1")
	body := successWebhookBody(order.GatewayOrderID)
	sig, ts := signWebhook(body, time.Now())
	require.Equal(t, http.StatusOK, postWebhook(router, body, sig, ts).Code)

	var license models.License
	require.NoError(t, config.DB.First(&license, "order_id = ?", order.ID).Error)

	w := doJSON(router, http.MethodPost, "/v1/licenses/"+license.ID+"/download", authToken(t, buyer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w.Body.Bytes())
	assert.NotEmpty(t, data["expires_at"])

	// A stranger gets 404, not 403: no existence leak.
	w = doJSON(router, http.MethodPost, "/v1/licenses/"+license.ID+"/download", authToken(t, other), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrderHistory(t *testing.T) {
	router, _ := setupTest(t)
	buyer := createTestUser(t, "buyer@example.in", models.RoleBuyer)
	builder := createTestUser(t, "builder@example.in", models.RoleBuilder)
	asset := createTestAsset(t, builder.ID, "499.00", nil)

	createPendingOrder(t, buyer, asset, "order_hist_1")
	createPendingOrder(t, buyer, asset, "order_hist_2")

	w := doJSON(router, http.MethodGet, "/v1/payments/orders", authToken(t, buyer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w.Body.Bytes())
	assert.EqualValues(t, 2, data["count"])
}

func TestDownloadInvoice(t *testing.T) {
	router, _ := setupTest(t)
	buyer := createTestUser(t, "buyer@example.in", models.RoleBuyer)
	builder := createTestUser(t, "builder@example.in", models.RoleBuilder)
	asset := createTestAsset(t, builder.ID, "499.00", nil)
	order := createPendingOrder(t, buyer, asset, "order_inv_1")

	// Pending orders have no invoice.
	w := doJSON(router, http.MethodGet, "/v1/payments/orders/"+order.GatewayOrderID+"/invoice", authToken(t, buyer), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := successWebhookBody(order.GatewayOrderID)
	sig, ts := signWebhook(body, time.Now())
	require.Equal(t, http.StatusOK, postWebhook(router, body, sig, ts).Code)

	w = doJSON(router, http.MethodGet, "/v1/payments/orders/"+order.GatewayOrderID+"/invoice", authToken(t, buyer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())
}

func TestExportBuilderSales_RoleGate(t *testing.T) {
	router, _ := setupTest(t)
	buyer := createTestUser(t, "buyer@example.in", models.RoleBuyer)

	w := doJSON(router, http.MethodGet, "/v1/builder/sales/export", authToken(t, buyer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportBuilderSales(t *testing.T) {
	router, _ := setupTest(t)
	buyer := createTestUser(t, "buyer@example.in", models.RoleBuyer)
	builder := createTestUser(t, "builder@example.in", models.RoleBuilder)
	asset := createTestAsset(t, builder.ID, "499.00", nil)

	order := createPendingOrder(t, buyer, asset, "order_exp_1")
	body := successWebhookBody(order.GatewayOrderID)
	sig, ts := signWebhook(body, time.Now())
	require.Equal(t, http.StatusOK, postWebhook(router, body, sig, ts).Code)

	w := doJSON(router, http.MethodGet, "/v1/builder/sales/export", authToken(t, builder), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, w.Body.Len())
}
