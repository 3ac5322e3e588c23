package notification

import (
	"net/http"

	"github.com/BrightBuddy/brightbuddy-backend/internal/user"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	queue *Queue
}

func NewHandler(queue *Queue) *Handler {
	return &Handler{queue: queue}
}

// GetPending 取走当前用户的全部待投递通知。
func (h *Handler) GetPending(c *gin.Context) {
	userID := user.CurrentUserID(c)

	notices, err := h.queue.Drain(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取通知失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notices})
}
