package middleware

import (
	"errors"
	"strings"

	"github.com/codexchange/codexchange/config"
	"github.com/codexchange/codexchange/models"
	"github.com/codexchange/codexchange/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"gorm.io/gorm"
)

// AuthMiddleware validates the bearer token issued by the identity
// provider and puts the local profile row in the context. The profile
// is created from the token claims on first sight, mirroring the
// provider's user-created hook.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Please login for access")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(config.AppConfig.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			utils.LogError("Invalid token: %v", err)
			utils.Unauthorized(c, "Please login for access")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			utils.Unauthorized(c, "Invalid token claims")
			c.Abort()
			return
		}

		userID, _ := claims["sub"].(string)
		email, _ := claims["email"].(string)
		if userID == "" || email == "" {
			utils.Unauthorized(c, "Invalid token claims")
			c.Abort()
			return
		}

		var user models.User
		err = config.DB.Where("id = ?", userID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			name, _ := claims["name"].(string)
			user = models.User{ID: userID, Email: email, Name: name}
			if cerr := config.DB.Create(&user).Error; cerr != nil {
				utils.LogError("Failed to create profile for user %s: %v", userID, cerr)
				utils.InternalServerError(c, "Failed to load profile", nil)
				c.Abort()
				return
			}
			utils.LogInfo("Created profile for new user %s", userID)
		} else if err != nil {
			utils.LogError("Failed to load user %s: %v", userID, err)
			utils.InternalServerError(c, "Failed to load profile", nil)
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}
