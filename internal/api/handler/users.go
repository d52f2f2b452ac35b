package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/Durga62823/chat-application/internal/models"
	"github.com/Durga62823/chat-application/internal/storage"
)

type userResult struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	PhoneNumber string `json:"phoneNumber"`
	Avatar      string `json:"avatar"`
	Online      bool   `json:"online"`
}

func (h *Handler) userResult(u models.User) userResult {
	return userResult{
		ID:          u.ID,
		Username:    u.Username,
		PhoneNumber: u.PhoneNumber,
		Avatar:      u.Avatar,
		Online:      h.Hub.Presence().IsOnline(u.ID),
	}
}

// SearchUsers matches users by username or phone number substring.
func (h *Handler) SearchUsers(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}

	users, err := h.Store.SearchUsers(c.Request.Context(), query, 10)
	if err != nil {
		h.logger.Error("user search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search users"})
		return
	}

	c.JSON(http.StatusOK, lo.Map(users, func(u models.User, _ int) userResult {
		return h.userResult(u)
	}))
}

// GetUser returns one user's public fields by id.
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	user, err := h.Store.FindUserByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("get user failed", "user_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
		return
	}

	c.JSON(http.StatusOK, h.userResult(*user))
}
