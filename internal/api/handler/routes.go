package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Durga62823/chat-application/internal/api/middleware"
)

// RegisterRoutes mounts every endpoint on the gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	authRequired := middleware.RequireAuth(h.Auth)

	api := r.Group("/api")
	{
		api.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong", "time": time.Now().UTC().Format(time.RFC3339)})
		})
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Server is running"})
		})

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.POST("/logout", h.Logout)
			authGroup.GET("/profile", h.Profile)
		}

		users := api.Group("/users")
		{
			users.GET("/search", h.SearchUsers)
			users.GET("/:id", h.GetUser)
		}

		api.GET("/channels/:channelId/messages", authRequired, h.GetChannelMessages)
	}

	r.GET("/ws", h.ServeWebSocket)
}
