package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/smartcommerce/notification-service/utils"
)

// WebSocketAuthMiddleware authenticates the live channel. Browsers cannot
// set headers on WebSocket upgrades, so the token travels as a query param.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("roles", claims.Roles)
		c.Next()
	}
}
