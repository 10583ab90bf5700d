package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/internal/handlers"
)

func RegisterProfileRoutes(r gin.IRouter, h *handlers.ProfileHandler) {
	profile := r.Group("/profile")
	{
		profile.GET("", h.Me)
		profile.PUT("", h.Update)
		profile.POST("/avatar", h.UploadAvatar)
	}

	// Wildcard last so /users/search keeps winning
	r.GET("/users/:userId", h.Get)
}
