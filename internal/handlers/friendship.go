package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Raed-Bourouis/VoiceUP/internal/services"
)

// FriendshipHandler exposes the social graph.
type FriendshipHandler struct {
	friendships *services.FriendshipService
}

func NewFriendshipHandler(friendships *services.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{friendships: friendships}
}

// GetState returns the derived relationship with another user.
func (h *FriendshipHandler) GetState(c *gin.Context) {
	state, err := h.friendships.GetFriendshipState(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// SendRequest sends a friend request.
func (h *FriendshipHandler) SendRequest(c *gin.Context) {
	if err := h.friendships.SendFriendRequest(c.Request.Context(), c.Param("userId")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

// AcceptRequest accepts a pending request from a user.
func (h *FriendshipHandler) AcceptRequest(c *gin.Context) {
	if err := h.friendships.AcceptFriendRequest(c.Request.Context(), c.Param("userId")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

// RejectRequest declines a user's request.
func (h *FriendshipHandler) RejectRequest(c *gin.Context) {
	if err := h.friendships.RejectFriendRequest(c.Request.Context(), c.Param("userId")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rejected": true})
}

// CancelRequest withdraws the caller's own pending request.
func (h *FriendshipHandler) CancelRequest(c *gin.Context) {
	if err := h.friendships.CancelFriendRequest(c.Request.Context(), c.Param("userId")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// Unfriend removes an accepted friendship.
func (h *FriendshipHandler) Unfriend(c *gin.Context) {
	if err := h.friendships.Unfriend(c.Request.Context(), c.Param("userId")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unfriended": true})
}

// GetFriends lists accepted friends' profiles.
func (h *FriendshipHandler) GetFriends(c *gin.Context) {
	friends, err := h.friendships.GetFriends(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// GetIncoming lists pending requests sent to the caller.
func (h *FriendshipHandler) GetIncoming(c *gin.Context) {
	requests, err := h.friendships.GetIncomingRequests(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// GetOutgoing lists the caller's own pending requests.
func (h *FriendshipHandler) GetOutgoing(c *gin.Context) {
	requests, err := h.friendships.GetOutgoingRequests(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// SearchUsers finds users by username or display name.
func (h *FriendshipHandler) SearchUsers(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	results, err := h.friendships.SearchUsers(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": results})
}
