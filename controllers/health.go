package controllers

import (
	"net/http"

	"dost-pmns-api/config"

	"github.com/gin-gonic/gin"
)

// Health reports whether the API and its database respond.
func Health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if config.DB == nil {
		status, code = "degraded", http.StatusServiceUnavailable
	} else if sqlDB, err := config.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"message": "DOST MIMAROPA PMNS API is running",
	})
}
