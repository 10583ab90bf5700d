package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/internal/auth"
)

// SessionHandler exposes the session lifecycle to the UI shell.
type SessionHandler struct {
	sessions *auth.Manager
}

func NewSessionHandler(sessions *auth.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SignIn performs a password grant against the identity service.
func (h *SessionHandler) SignIn(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	session, err := h.sessions.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": gin.H{
			"userId":    session.UserID,
			"email":     session.Email,
			"expiresAt": session.ExpiresAt,
		},
	})
}

// SignOut drops the local session.
func (h *SessionHandler) SignOut(c *gin.Context) {
	h.sessions.SignOut()
	c.JSON(http.StatusOK, gin.H{"signedOut": true})
}

// GetSession reports who is signed in, if anyone.
func (h *SessionHandler) GetSession(c *gin.Context) {
	userID, err := h.sessions.CurrentUserID()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"signedIn": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signedIn": true, "userId": userID})
}

// Refresh forces a token refresh, for the shell's pull-to-recover
// path.
func (h *SessionHandler) Refresh(c *gin.Context) {
	if err := h.sessions.Refresh(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": true})
}
