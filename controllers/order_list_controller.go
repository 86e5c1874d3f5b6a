package controllers

import (
	"github.com/codexchange/codexchange/models"
	"github.com/codexchange/codexchange/utils"
	"github.com/gin-gonic/gin"
)

// GET /v1/payments/orders
// GetOrderHistory returns the authenticated buyer's orders, newest
// first, with the persisted amount breakdown.
func GetOrderHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		utils.Unauthorized(c, "User not found")
		return
	}

	var orders []models.Order
	if err := db().Preload("Asset").
		Where("buyer_id = ?", user.ID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		utils.LogError("Failed to load orders for user %s: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to load orders", nil)
		return
	}

	utils.Success(c, "Orders retrieved successfully", gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}
