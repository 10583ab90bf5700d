package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/internal/models"
	"github.com/Raed-Bourouis/VoiceUP/internal/services"
	"github.com/Raed-Bourouis/VoiceUP/pkg/logger"
)

// ChatHandler exposes chat and membership operations.
type ChatHandler struct {
	chats    *services.ChatService
	messages *services.MessageService
}

func NewChatHandler(chats *services.ChatService, messages *services.MessageService) *ChatHandler {
	return &ChatHandler{chats: chats, messages: messages}
}

// chatListEntry is one row of the chat list screen.
type chatListEntry struct {
	models.Chat
	UnreadCount int64 `json:"unreadCount"`
}

// GetChats lists the caller's chats, most recently active first, with
// the unread badge per chat.
func (h *ChatHandler) GetChats(c *gin.Context) {
	chats, err := h.chats.GetChats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	entries := make([]chatListEntry, 0, len(chats))
	for _, chat := range chats {
		count, err := h.messages.GetUnreadCount(c.Request.Context(), chat.ID)
		if err != nil {
			// A broken badge should not take the whole list down
			logger.Warn().Err(err).Str("chatId", chat.ID).Msg("unread count failed")
			count = 0
		}
		entries = append(entries, chatListEntry{Chat: chat, UnreadCount: count})
	}

	c.JSON(http.StatusOK, gin.H{"chats": entries})
}

// CreateDirectChat opens (or returns) the direct chat with a user.
func (h *ChatHandler) CreateDirectChat(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	chat, err := h.chats.CreateDirectChat(c.Request.Context(), req.UserID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// CreateGroupChat creates a group with the caller and the given
// members.
func (h *ChatHandler) CreateGroupChat(c *gin.Context) {
	var req struct {
		Name      string   `json:"name" binding:"required"`
		AvatarURL string   `json:"avatarUrl"`
		MemberIDs []string `json:"memberIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	chat, err := h.chats.CreateGroupChat(c.Request.Context(), req.Name, req.AvatarURL, req.MemberIDs)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// GetChat returns one chat the caller belongs to.
func (h *ChatHandler) GetChat(c *gin.Context) {
	chat, err := h.chats.GetChatByID(c.Request.Context(), c.Param("chatId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// GetParticipants returns the chat's membership rows with profiles.
func (h *ChatHandler) GetParticipants(c *gin.Context) {
	participants, err := h.chats.GetChatParticipants(c.Request.Context(), c.Param("chatId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// AddParticipants grows a group chat.
func (h *ChatHandler) AddParticipants(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"userIds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userIds is required"})
		return
	}

	added, err := h.chats.AddParticipants(c.Request.Context(), c.Param("chatId"), req.UserIDs)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// LeaveChat removes the caller from a chat.
func (h *ChatHandler) LeaveChat(c *gin.Context) {
	if err := h.chats.LeaveChat(c.Request.Context(), c.Param("chatId")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}
