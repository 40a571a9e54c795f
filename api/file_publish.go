package api

import (
	"bitwise74/files-api/model"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (a *API) FilePublish(c *gin.Context) {
	a.setPublic(c, true)
}

func (a *API) FileUnpublish(c *gin.Context) {
	a.setPublic(c, false)
}

// setPublic flips the only mutable field a file record has
func (a *API) setPublic(c *gin.Context, public bool) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var file model.File

	err := a.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&file).Error
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

	if err := a.DB.Model(&file).Update("is_public", public).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update file", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	file.IsPublic = public
	c.JSON(http.StatusOK, file)
}
