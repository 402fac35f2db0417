package api

import (
	"errors"
	"net/http"

	"pos-service/internal/apperr"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps an application error onto an HTTP status. Server
// faults are logged with their cause and reported opaquely.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	var stockErr *apperr.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":      stockErr.Error(),
			"code":       kind,
			"product_id": stockErr.ProductID,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
		return
	}

	switch kind {
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": message(err), "code": kind})
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": message(err), "code": kind})
	case apperr.KindDuplicate:
		c.JSON(http.StatusConflict, gin.H{"error": message(err), "code": kind})
	default:
		util.GetLogger().Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": kind})
	}
}

// message is the caller-facing part of an application error
func message(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
