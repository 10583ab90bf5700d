package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/internal/services"
)

// DeviceHandler manages push device tokens and incoming push routing.
type DeviceHandler struct {
	router *services.PushRouter
}

func NewDeviceHandler(router *services.PushRouter) *DeviceHandler {
	return &DeviceHandler{router: router}
}

// Register records a push token for the current user.
func (h *DeviceHandler) Register(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Platform string `json:"platform" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token and platform are required"})
		return
	}

	if err := h.router.RegisterDevice(c.Request.Context(), req.Token, req.Platform); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true})
}

// Refresh swaps a rotated push token for its replacement.
func (h *DeviceHandler) Refresh(c *gin.Context) {
	var req struct {
		OldToken string `json:"oldToken"`
		NewToken string `json:"newToken" binding:"required"`
		Platform string `json:"platform" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "newToken and platform are required"})
		return
	}

	if err := h.router.RefreshDeviceToken(c.Request.Context(), req.OldToken, req.NewToken, req.Platform); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": true})
}

// ShouldDisplay tells the shell whether to surface an incoming push.
// Pushes for the chat the user is currently looking at stay silent.
func (h *DeviceHandler) ShouldDisplay(c *gin.Context) {
	var req struct {
		ChatID string `json:"chatId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"display": h.router.ShouldDisplay(req.ChatID)})
}
