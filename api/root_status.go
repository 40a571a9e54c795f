package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status reports whether the session cache and the database are
// currently usable
func (a *API) Status(c *gin.Context) {
	dbAlive := false
	if sqlDB, err := a.DB.DB(); err == nil {
		dbAlive = sqlDB.PingContext(c.Request.Context()) == nil
	}

	c.JSON(http.StatusOK, gin.H{
		"redis": a.Sessions.Alive(c.Request.Context()),
		"db":    dbAlive,
	})
}
