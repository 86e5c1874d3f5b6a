package controllers

import (
	"errors"
	"time"

	"github.com/codexchange/codexchange/models"
	"github.com/codexchange/codexchange/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GET /v1/licenses
// GetUserLicenses returns the authenticated buyer's licenses with an
// asset summary, newest first.
func GetUserLicenses(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		utils.Unauthorized(c, "User not found")
		return
	}

	var licenses []models.License
	if err := db().Preload("Asset").
		Where("buyer_id = ?", user.ID).
		Order("created_at DESC").
		Find(&licenses).Error; err != nil {
		utils.LogError("Failed to load licenses for user %s: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to load licenses", nil)
		return
	}

	utils.Success(c, "Licenses retrieved successfully", gin.H{
		"licenses": licenses,
		"count":    len(licenses),
	})
}

// POST /v1/licenses/:id/download
// GenerateDownloadURL returns a time-limited download link for a
// license the caller owns. Package storage is handled elsewhere; until
// it lands this returns a placeholder with the agreed expiry shape.
func GenerateDownloadURL(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		utils.Unauthorized(c, "User not found")
		return
	}

	licenseID := c.Param("id")
	var license models.License
	err := db().Where("id = ? AND buyer_id = ?", licenseID, user.ID).First(&license).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "License not found")
		return
	}
	if err != nil {
		utils.LogError("Failed to load license %s: %v", licenseID, err)
		utils.InternalServerError(c, "Failed to load license", nil)
		return
	}

	if license.Status != models.LicenseStatusActive {
		utils.Forbidden(c, "License is not active")
		return
	}

	utils.Success(c, "Download URL generated", gin.H{
		"url":        "#",
		"expires_at": time.Now().Add(72 * time.Hour),
		"message":    "Package storage integration pending",
	})
}
