package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Disconnect revokes the session token the request authenticated
// with. Runs behind the token middleware so an unknown token never
// reaches this point
func (a *API) Disconnect(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	token := c.GetHeader("X-Token")

	if err := a.Sessions.Revoke(c.Request.Context(), token); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to revoke session", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Status(http.StatusNoContent)
}
