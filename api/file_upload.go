package api

import (
	"bitwise74/files-api/model"
	"bitwise74/files-api/service"
	"bitwise74/files-api/validators"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type uploadBody struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID string `json:"parentId"`
	IsPublic bool   `json:"isPublic"`

	// Base64 of the file content, empty for folders
	Data string `json:"data"`
}

func (a *API) FileUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var body uploadBody
	if err := c.ShouldBind(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Error("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if body.ParentID == "" {
		body.ParentID = model.RootParentID
	}

	data, err := base64.StdEncoding.DecodeString(body.Data)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid data encoding",
			"requestID": requestID,
		})
		return
	}

	if code, err := validators.UploadValidator(body.Name, body.Type, data); err != nil {
		c.AbortWithStatusJSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	file, err := a.Uploader.Do(c.Request.Context(), userID, &service.UploadRequest{
		Name:     body.Name,
		Type:     body.Type,
		ParentID: body.ParentID,
		IsPublic: body.IsPublic,
		Data:     data,
	})
	if err != nil {
		if errors.Is(err, service.ErrParentNotFound) || errors.Is(err, service.ErrParentNotFolder) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to store upload", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, file)
}
