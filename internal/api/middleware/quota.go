package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/nexusrbx/nexusrbx-server/internal/pkg/response"
	"github.com/nexusrbx/nexusrbx-server/internal/service"
)

// QuotaCheck token 额度检查中间件
func QuotaCheck(quotaService *service.QuotaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		hasTokens, err := quotaService.CheckTokens(userID)
		if err != nil {
			response.ServerError(c, "额度检查失败")
			c.Abort()
			return
		}

		if !hasTokens {
			response.QuotaError(c, "token 额度已用完")
			c.Abort()
			return
		}

		c.Next()
	}
}
