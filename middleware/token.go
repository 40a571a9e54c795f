package middleware

import (
	"errors"
	"net/http"

	"bitwise74/files-api/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewTokenMiddleware resolves the X-Token header through the session
// store and sets userID for downstream handlers.
//
// A token that doesn't resolve is a 401. A session store outage is a
// 500, conflating the two would make outages look like auth failures
// in the logs
func NewTokenMiddleware(s *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		token := c.GetHeader("X-Token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Unauthorized",
				"requestID": requestID,
			})
			return
		}

		userID, err := s.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":     "Unauthorized",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to resolve session token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
