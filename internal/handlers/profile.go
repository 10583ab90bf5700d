package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/internal/services"
)

// maxAvatarUploadBytes caps avatar uploads at 5 MB.
const maxAvatarUploadBytes = 5 << 20

// ProfileHandler exposes reading and editing profiles.
type ProfileHandler struct {
	profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Me returns the caller's own profile.
func (h *ProfileHandler) Me(c *gin.Context) {
	profile, err := h.profiles.Me(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// Get returns any user's profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// Update edits the caller's username, display name and bio.
func (h *ProfileHandler) Update(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Bio      string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and name are required"})
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), req.Username, req.Name, req.Bio)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UploadAvatar stores a new avatar from a multipart upload.
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	file, err := openMultipartFile(c, "file", maxAvatarUploadBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	profile, err := h.profiles.UploadAvatar(c.Request.Context(), file.filename, file.reader, file.contentType)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}
