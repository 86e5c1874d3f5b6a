package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/codexchange/codexchange/models"
	"github.com/codexchange/codexchange/utils"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
)

// GET /v1/builder/sales/export
// ExportBuilderSales writes an xlsx of the builder's paid orders with
// the full fee breakdown. Settlement itself happens out of band; this
// is the builder-facing record of what will be paid out.
func ExportBuilderSales(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		utils.Unauthorized(c, "User not found")
		return
	}
	if user.Role != models.RoleBuilder && user.Role != models.RoleAdmin {
		utils.Forbidden(c, "Only builders can export sales reports")
		return
	}

	var orders []models.Order
	if err := db().Preload("Asset").
		Where("builder_id = ? AND status = ?", user.ID, models.OrderStatusPaid).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		utils.LogError("Failed to load sales for builder %s: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to load sales", nil)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales")
	if err != nil {
		utils.LogError("Failed to create sales sheet: %v", err)
		utils.InternalServerError(c, "Failed to generate report", nil)
		return
	}

	header := sheet.AddRow()
	for _, title := range []string{"Date", "Order ID", "Asset", "License", "Gross (INR)", "Platform Fee", "GST on Fee", "TCS", "Net Payout"} {
		header.AddCell().SetString(title)
	}

	for _, order := range orders {
		net := order.AmountBase.
			Sub(order.AmountPlatformFee).
			Sub(order.AmountGst).
			Sub(order.AmountTcs)

		row := sheet.AddRow()
		row.AddCell().SetString(order.CreatedAt.Format("2006-01-02"))
		row.AddCell().SetString(order.GatewayOrderID)
		row.AddCell().SetString(order.Asset.Name)
		row.AddCell().SetString(order.LicenseType)
		row.AddCell().SetString(order.AmountBase.StringFixed(2))
		row.AddCell().SetString(order.AmountPlatformFee.StringFixed(2))
		row.AddCell().SetString(order.AmountGst.StringFixed(2))
		row.AddCell().SetString(order.AmountTcs.StringFixed(2))
		row.AddCell().SetString(net.StringFixed(2))
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		utils.LogError("Failed to write sales report for builder %s: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to generate report", nil)
		return
	}

	filename := fmt.Sprintf("sales-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
