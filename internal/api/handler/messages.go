package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetChannelMessages returns one history page for a channel, oldest first.
// Reading history never changes delivery state.
func (h *Handler) GetChannelMessages(c *gin.Context) {
	channelID := c.Param("channelId")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.Hub.Coordinator().History(c.Request.Context(), channelID, page, limit)
	if err != nil {
		h.logger.Error("history fetch failed", "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, messages)
}
