package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/internal/handlers"
)

func RegisterDeviceRoutes(r gin.IRouter, h *handlers.DeviceHandler) {
	devices := r.Group("/devices")
	{
		devices.POST("", h.Register)
		devices.PUT("/token", h.Refresh)
	}

	r.POST("/push/should-display", h.ShouldDisplay)
}
