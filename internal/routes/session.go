package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/internal/handlers"
)

func RegisterSessionRoutes(r gin.IRouter, h *handlers.SessionHandler, signInLimit gin.HandlerFunc) {
	session := r.Group("/session")
	{
		session.GET("", h.GetSession)
		session.POST("/sign-in", signInLimit, h.SignIn)
		session.POST("/sign-out", h.SignOut)
		session.POST("/refresh", h.Refresh)
	}
}
