package middleware

import (
	"strings"

	"fleet-manager/internal/errs"
	"fleet-manager/pkg/jwt"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Auth requires a valid bearer token and exposes its claims to later
// handlers as user_id, username and role. WebSocket handshakes may pass the
// token as ?token= instead.
func Auth(jwtUtil *jwt.JWTUtil) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		// Browsers cannot set headers on a WebSocket handshake.
		if authHeader == "" && c.IsWebsocket() && c.Query("token") != "" {
			authHeader = "Bearer " + c.Query("token")
		}
		if authHeader == "" {
			utils.HandleError(c, errs.Unauthorized("authorization header required"))
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			utils.HandleError(c, errs.Unauthorized("authorization header must be a bearer token"))
			return
		}

		claims, err := jwtUtil.ValidateToken(tokenString)
		if err != nil {
			logrus.WithField("request_id", c.GetString("request_id")).WithError(err).Debug("token rejected")
			utils.HandleError(c, errs.Unauthorized("invalid or expired token"))
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Next()
	}
}
