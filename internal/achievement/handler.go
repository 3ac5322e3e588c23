package achievement

import (
	"net/http"

	"github.com/BrightBuddy/brightbuddy-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// Handler 承载achievement模块的只读HTTP接口。
type Handler struct {
	engine *Engine
}

// NewHandler 创建achievement模块的HTTP处理器。
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// GetProgress 返回当前用户的完整进阶档案。
func (h *Handler) GetProgress(c *gin.Context) {
	userID := user.CurrentUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少用户标识"})
		return
	}

	category := c.Query("category")
	if category != "" {
		states, err := h.engine.StatesByCategory(c.Request.Context(), userID, Category(category))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取进阶档案"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"achievements": states})
		return
	}

	profile, err := h.engine.GetProfile(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取进阶档案"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":           profile,
		"levelTitle":        LevelTitle(profile.Level),
		"unlockedCount":     profile.UnlockedCount(),
		"totalAchievements": len(Catalog),
	})
}

// GetRecent 返回最近解锁的成就。
func (h *Handler) GetRecent(c *gin.Context) {
	userID := user.CurrentUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少用户标识"})
		return
	}

	defs, err := h.engine.RecentUnlocks(c.Request.Context(), userID, 5)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取最近解锁"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recent": defs})
}
