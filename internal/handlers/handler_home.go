package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
)

// Version is the build version, overridable at link time with
// -ldflags "-X .../internal/handlers.Version=v1.2.3".
var Version = "dev"

// getInfo godoc
// @Summary Service build information
// @Description Returns the service name, build version and Go runtime version.
// @Tags info
// @Produce json
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /info [get]
func getInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":    "etims-bridge",
		"version":    Version,
		"go_version": runtime.Version(),
	})
}

// registerInfoRoutes registers the build info route.
func registerInfoRoutes(group *gin.RouterGroup) {
	group.GET("/info", getInfo)
}
