package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Durga62823/chat-application/internal/auth"
	"github.com/Durga62823/chat-application/internal/models"
	"github.com/Durga62823/chat-application/internal/storage"
)

type registerRequest struct {
	Username    string `json:"username" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// Register creates an account and returns a signed token.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, phoneNumber and password are required"})
		return
	}

	hash, err := auth.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		h.logger.Error("password hashing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	user := &models.User{
		Username:    req.Username,
		PhoneNumber: req.PhoneNumber,
		Password:    hash,
	}
	if err := h.Store.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number already registered"})
			return
		}
		h.logger.Error("create user failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	token, err := h.Auth.Issue(user.ID)
	if err != nil {
		h.logger.Error("token issue failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"phoneNumber": user.PhoneNumber,
		"token":       token,
	})
}

// Login verifies credentials and returns a signed token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumber and password are required"})
		return
	}

	user, err := h.Store.FindUserByPhone(c.Request.Context(), req.PhoneNumber)
	if err != nil || !auth.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Auth.Issue(user.ID)
	if err != nil {
		h.logger.Error("token issue failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":          user.ID,
			"username":    user.Username,
			"phoneNumber": user.PhoneNumber,
			"avatar":      user.Avatar,
		},
	})
}

// Logout best-effort clears the online mirror. The realtime registry clears
// itself when the sockets actually close; an invalid token still logs out.
func (h *Handler) Logout(c *gin.Context) {
	if userID, err := h.Auth.Verify(bearerToken(c)); err == nil {
		if err := h.Store.SetUserOnline(c.Request.Context(), userID, false); err != nil {
			h.logger.Warn("logout mirror update failed", "user_id", userID, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Profile returns the authenticated user's own record.
func (h *Handler) Profile(c *gin.Context) {
	userID, err := h.Auth.Verify(bearerToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	user, err := h.Store.FindUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("load profile failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"phoneNumber": user.PhoneNumber,
		"avatar":      user.Avatar,
		"online":      h.Hub.Presence().IsOnline(user.ID),
	})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
