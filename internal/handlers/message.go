package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/internal/services"
)

// maxMediaUploadBytes caps message attachments at 25 MB.
const maxMediaUploadBytes = 25 << 20

// MessageHandler exposes sending, paging and read tracking.
type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// GetMessages returns one page of a chat's history, oldest first.
// ?before= takes an RFC3339 timestamp cursor; ?limit= caps the page.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	chatID := c.Param("chatId")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC3339 timestamp"})
			return
		}
		before = &parsed
	}

	page, hasMore, err := h.messages.GetMessages(c.Request.Context(), chatID, limit, before)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": page, "hasMore": hasMore})
}

// SendText sends a text message to a chat.
func (h *MessageHandler) SendText(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	message, err := h.messages.SendText(c.Request.Context(), c.Param("chatId"), req.Content)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// SendPhoto sends an image message from a multipart upload.
func (h *MessageHandler) SendPhoto(c *gin.Context) {
	h.sendMedia(c, func(filename string, data *multipartFile) (any, error) {
		return h.messages.SendPhoto(c.Request.Context(), c.Param("chatId"), filename, data.reader, data.contentType)
	})
}

// SendVoice sends a voice message from a multipart upload.
func (h *MessageHandler) SendVoice(c *gin.Context) {
	h.sendMedia(c, func(filename string, data *multipartFile) (any, error) {
		return h.messages.SendVoice(c.Request.Context(), c.Param("chatId"), filename, data.reader, data.contentType)
	})
}

func (h *MessageHandler) sendMedia(c *gin.Context, send func(filename string, data *multipartFile) (any, error)) {
	file, err := openMultipartFile(c, "file", maxMediaUploadBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	message, err := send(file.filename, file)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// MarkRead advances the caller's read watermark for a chat.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	if err := h.messages.MarkAsRead(c.Request.Context(), c.Param("chatId")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}

// GetUnreadCount returns the chat's unread badge for the caller.
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	count, err := h.messages.GetUnreadCount(c.Request.Context(), c.Param("chatId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

// DeleteMessage tombstones the caller's own message.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	if err := h.messages.DeleteMessage(c.Request.Context(), c.Param("messageId")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
