package api

import (
	"strings"

	apperrors "nutrichat/backend/pkg/errors"
	"nutrichat/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the bearer token and stores the caller's identity
// in the request context
func AuthRequired(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			header = c.GetHeader("authorization")
		}
		if header == "" {
			c.Error(apperrors.NewUnauthorizedError("AUTH_MISSING", "Authorization header is required"))
			c.Abort()
			return
		}

		token := header
		if strings.HasPrefix(header, "Bearer ") {
			token = header[len("Bearer "):]
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			code := "AUTH_INVALID"
			if err == jwt.ErrExpiredToken {
				code = "AUTH_EXPIRED"
			}
			c.Error(apperrors.NewUnauthorizedError(code, "Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// userID pulls the authenticated user's ID out of the context
func userID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userId")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
