package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/codexchange/codexchange/models"
	"github.com/codexchange/codexchange/utils"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"gorm.io/gorm"
)

// GET /v1/payments/orders/:id/invoice
// DownloadInvoice renders a PDF invoice for a paid order from the
// persisted amount breakdown. Figures are never re-derived from the
// asset's current price.
func DownloadInvoice(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		utils.Unauthorized(c, "User not found")
		return
	}

	orderID := c.Param("id")
	var order models.Order
	err := db().Preload("Asset").Where("gateway_order_id = ? AND buyer_id = ?", orderID, user.ID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Order not found")
		return
	}
	if err != nil {
		utils.LogError("Failed to load order %s for invoice: %v", orderID, err)
		utils.InternalServerError(c, "Failed to load order", nil)
		return
	}

	if order.Status != models.OrderStatusPaid {
		utils.BadRequest(c, "Invoice is only available for paid orders", nil)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, "CodeXchange")
	pdf.SetFont("Arial", "", 12)
	pdf.Ln(8)
	pdf.Cell(100, 8, "support@codexchange.in")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "TAX INVOICE")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(90, 8, "Order ID: "+order.GatewayOrderID)
	pdf.Cell(60, 8, "Date: "+order.CreatedAt.Format("2006-01-02"))
	pdf.Ln(8)
	pdf.Cell(90, 8, "Billed To: "+user.Name)
	pdf.Cell(60, 8, user.Email)
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(110, 8, "Item")
	pdf.Cell(40, 8, "Amount (INR)")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(110, 8, fmt.Sprintf("%s (%s license)", order.Asset.Name, order.LicenseType))
	pdf.Cell(40, 8, order.AmountBase.StringFixed(2))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(110, 8, "Total Paid")
	pdf.Cell(40, 8, order.AmountTotal.StringFixed(2))
	pdf.Ln(12)

	// Payout deductions are informational for the buyer's records.
	pdf.SetFont("Arial", "I", 10)
	pdf.Cell(150, 6, fmt.Sprintf("Platform fee: %s  |  GST on fee: %s  |  TCS: %s",
		order.AmountPlatformFee.StringFixed(2),
		order.AmountGst.StringFixed(2),
		order.AmountTcs.StringFixed(2)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.LogError("Failed to generate invoice PDF for order %s: %v", orderID, err)
		utils.InternalServerError(c, "Failed to generate invoice", nil)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", order.GatewayOrderID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
