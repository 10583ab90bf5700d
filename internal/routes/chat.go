package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/internal/handlers"
)

func RegisterChatRoutes(r gin.IRouter, chats *handlers.ChatHandler, messages *handlers.MessageHandler) {
	group := r.Group("/chats")
	{
		group.GET("", chats.GetChats)
		group.POST("/direct", chats.CreateDirectChat)
		group.POST("/group", chats.CreateGroupChat)

		group.GET("/:chatId", chats.GetChat)
		group.GET("/:chatId/participants", chats.GetParticipants)
		group.POST("/:chatId/participants", chats.AddParticipants)
		group.POST("/:chatId/leave", chats.LeaveChat)

		group.GET("/:chatId/messages", messages.GetMessages) // ?limit=&before=
		group.POST("/:chatId/messages", messages.SendText)
		group.POST("/:chatId/photos", messages.SendPhoto)
		group.POST("/:chatId/voice", messages.SendVoice)
		group.POST("/:chatId/read", messages.MarkRead)
		group.GET("/:chatId/unread", messages.GetUnreadCount)
	}

	r.DELETE("/messages/:messageId", messages.DeleteMessage)
}
