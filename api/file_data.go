package api

import (
	"bitwise74/files-api/model"
	"bitwise74/files-api/service"
	"bitwise74/files-api/session"
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileData serves the stored bytes of a file, or one of its
// renditions when ?size= is given. Renditions are generated in the
// background, so a missing rendition file means "not yet generated or
// failed" and reads as a plain 404
func (a *API) FileData(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var file model.File

	err := a.DB.Where("id = ?", c.Param("id")).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch file", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if file.Type == model.TypeFolder {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "A folder doesn't have content",
			"requestID": requestID,
		})
		return
	}

	// Private files answer 404 to anyone but their owner, existence
	// is not leaked
	if !file.IsPublic {
		userID, err := a.Sessions.Resolve(c.Request.Context(), c.GetHeader("X-Token"))
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to resolve session token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if userID != file.UserID {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Not found",
				"requestID": requestID,
			})
			return
		}
	}

	p := file.StoragePath

	if sizeStr := c.Query("size"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || !slices.Contains(service.RenditionSizes, size) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid size",
				"requestID": requestID,
			})
			return
		}

		p = service.RenditionPath(p, size)
	}

	if _, err := os.Stat(p); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Not found",
			"requestID": requestID,
		})
		return
	}

	// Stored paths carry no extension, the original name decides the
	// content type
	ct := mime.TypeByExtension(filepath.Ext(file.Name))
	if ct == "" {
		ct = "application/octet-stream"
	}

	c.Header("Content-Type", ct)
	c.File(p)
}
