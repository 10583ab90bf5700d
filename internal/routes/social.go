package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/internal/handlers"
)

func RegisterSocialRoutes(r gin.IRouter, h *handlers.FriendshipHandler, searchLimit gin.HandlerFunc) {
	friends := r.Group("/friends")
	{
		// Specific paths first
		friends.GET("", h.GetFriends)
		friends.GET("/requests/incoming", h.GetIncoming)
		friends.GET("/requests/outgoing", h.GetOutgoing)

		friends.GET("/:userId/state", h.GetState)
		friends.POST("/:userId/request", h.SendRequest)
		friends.POST("/:userId/accept", h.AcceptRequest)
		friends.POST("/:userId/reject", h.RejectRequest)
		friends.DELETE("/:userId/request", h.CancelRequest)
		friends.DELETE("/:userId", h.Unfriend)
	}

	r.GET("/users/search", searchLimit, h.SearchUsers) // ?q=&limit=
}
