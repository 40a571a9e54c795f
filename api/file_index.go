package api

import (
	"bitwise74/files-api/model"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const pageSize = 20

func (a *API) FileIndex(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	parentID := c.DefaultQuery("parentId", model.RootParentID)

	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		page = 0
	}

	files := []model.File{}

	err = a.DB.
		Where("user_id = ? AND parent_id = ?", userID, parentID).
		Order("created_at").
		Limit(pageSize).
		Offset(page * pageSize).
		Find(&files).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list files", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, files)
}
